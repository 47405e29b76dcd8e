package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"oraclewatcher/internal/service"
	"oraclewatcher/internal/storage"
	"oraclewatcher/internal/submit"
)

// runOutcome is one submission's verification result, carried alongside its
// bucket time and original index so results can be re-admitted in order
// after the concurrent signature-recovery pass.
type runOutcome struct {
	index  int
	bucket time.Time
	quotes *submit.Quotes
	err    error
}

// Backfill replays a batch of previously recorded committee submissions
// through the engine and verifier. The CPU-bound signature-recovery half of
// each submission (RunSubmission) runs concurrently across opts.Workers
// goroutines; admission into the consumer verifier (AdmitQuotes) happens
// sequentially afterward, in submission order, since the (timestamp, slot)
// replacement rule is order-dependent.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	if len(opts.Submissions) == 0 {
		return errors.New("no submissions to backfill")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = a.Config.Scheduler.BackfillWorkers
	}
	if workers <= 0 {
		workers = 1
	}

	var store *storage.Store
	var closeStore func()
	var err error
	var quoteStore storage.QuoteStore
	var eventStore storage.EventStore

	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: no database writes will occur")
	} else {
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database.dsn not configured; cannot backfill")
		}
		if closeStore != nil {
			defer closeStore()
		}
		quoteStore = store
		eventStore = store
	}

	discoverer := a.newDiscoverer()
	proxy := &eventProxy{}
	engine, verifier, committee, err := a.resolveCommittee(ctx, discoverer, proxy)
	if err != nil {
		return err
	}

	svc := service.New(a.Config, nil, nil, engine, verifier, committee, quoteStore, eventStore, nil, a.Logger)
	proxy.bind(svc)

	p := pool.NewWithResults[runOutcome]().WithMaxGoroutines(workers)
	for i, sub := range opts.Submissions {
		i, sub := i, sub
		p.Go(func() runOutcome {
			bucket := time.Unix(int64(sub.TimestampSeconds), 0).UTC()
			quotes, err := svc.RunSubmission(sub, uint64(bucket.UnixMilli()))
			return runOutcome{index: i, bucket: bucket, quotes: quotes, err: err}
		})
	}
	outcomes := p.Wait()
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].index < outcomes[j].index })

	processed := 0
	failed := 0
	for _, outcome := range outcomes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if outcome.err != nil {
			failed++
			a.Logger.Error().Err(outcome.err).Int("index", outcome.index).Msg("backfill submission failed verification")
			continue
		}

		if err := svc.AdmitQuotes(ctx, outcome.quotes, outcome.bucket); err != nil {
			failed++
			a.Logger.Error().Err(err).Int("index", outcome.index).Time("bucket", outcome.bucket).Msg("backfill admission failed")
			continue
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("backfill complete")
	if failed > 0 {
		return errors.New("some submissions failed backfill; check logs")
	}
	return nil
}
