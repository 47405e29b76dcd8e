package app

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"oraclewatcher/internal/config"
	"oraclewatcher/internal/consumer"
	"oraclewatcher/internal/decimal"
	"oraclewatcher/internal/events"
	"oraclewatcher/internal/hash"
	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/service"
	"oraclewatcher/internal/submit"
)

// fanOutSubmissions drives n synthetic, independent committee submissions
// (distinct feed ids so admission order never matters) through the same
// worker-pool pattern internal/app/backfill.go uses, with the given worker
// count. It mirrors the split Backfill relies on: RunSubmission runs
// concurrently across workers, AdmitQuotes runs sequentially afterward.
func fanOutSubmissions(t *testing.T, n, workers int) int {
	t.Helper()

	q, err := queue.New(queue.ID{0xBF}, [32]byte{0xBF}, queue.Config{
		Authority:              "backfill-test",
		MinAttestations:        1,
		OracleValidityLengthMs: 3_600_000,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	oracle, priv := newSimulatedOracle(q)

	logger := zerolog.Nop()
	sink := events.NewZerologSink(logger)
	engine := submit.NewEngine(q, sink)
	verifier := consumer.New(q.QueueKey, sink)
	svc := service.New(&config.Config{}, nil, nil, engine, verifier, []*queue.Oracle{oracle}, nil, nil, nil, logger)

	submissions := make([]submit.CommitteeSubmission, n)
	for i := 0; i < n; i++ {
		feedID := [32]byte{byte(i + 1)}
		value, err := decimal.New(big.NewInt(int64(i)), false)
		if err != nil {
			t.Fatalf("decimal.New: %v", err)
		}
		feedQuote := hash.FeedQuote{FeedID: feedID, Value: value, MinOracleSamples: 1}
		slot := uint64(i + 1)
		timestamp := uint64(i + 1)
		message, _, err := hash.ConsensusMessage(slot, timestamp, []hash.FeedQuote{feedQuote})
		if err != nil {
			t.Fatalf("consensus message: %v", err)
		}
		submissions[i] = submit.CommitteeSubmission{
			QueueID:          oracle.QueueID,
			OracleIDs:        []queue.ID{oracle.ID},
			Signatures:       [][]byte{signCompact(priv, message)},
			Feeds:            []submit.FeedInput{{FeedID: feedID, Value: big.NewInt(int64(i)), MinOracleSamples: 1}},
			Slot:             slot,
			TimestampSeconds: timestamp,
		}
	}

	type outcome struct {
		quotes *submit.Quotes
		bucket time.Time
		err    error
	}

	p := pool.NewWithResults[outcome]().WithMaxGoroutines(workers)
	for _, sub := range submissions {
		sub := sub
		p.Go(func() outcome {
			bucket := time.Unix(int64(sub.TimestampSeconds), 0).UTC()
			quotes, err := svc.RunSubmission(sub, uint64(bucket.UnixMilli()))
			return outcome{quotes: quotes, bucket: bucket, err: err}
		})
	}
	results := p.Wait()

	processed := 0
	for _, r := range results {
		if r.err != nil {
			t.Fatalf("unexpected RunSubmission error: %v", r.err)
		}
		if err := svc.AdmitQuotes(context.Background(), r.quotes, r.bucket); err != nil {
			t.Fatalf("unexpected AdmitQuotes error: %v", err)
		}
		processed++
	}
	return processed
}

func TestBackfillWorkerPoolProcessesEachSubmissionExactlyOnce(t *testing.T) {
	const submissionCount = 12
	for _, workers := range []int{1, 2, 4, submissionCount, submissionCount * 2} {
		workers := workers
		t.Run("", func(t *testing.T) {
			processed := fanOutSubmissions(t, submissionCount, workers)
			if processed != submissionCount {
				t.Fatalf("workers=%d: expected %d submissions processed, got %d", workers, submissionCount, processed)
			}
		})
	}
}
