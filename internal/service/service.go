// Package service orchestrates the long-running verifier loop: each
// scheduled tick pulls the next committee submission from Crossbar, runs it
// through the submit/consumer pipeline, persists the result, and alerts on
// deviation or signature-failure bursts.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"oraclewatcher/internal/alerting"
	"oraclewatcher/internal/client"
	"oraclewatcher/internal/config"
	"oraclewatcher/internal/consumer"
	"oraclewatcher/internal/events"
	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/scheduler"
	"oraclewatcher/internal/storage"
	"oraclewatcher/internal/submit"
)

// Service orchestrates Crossbar polling, submission verification,
// persistence, and alerting.
type Service struct {
	scheduler  *scheduler.Scheduler
	crossbar   *client.Crossbar
	engine     *submit.Engine
	verifier   *consumer.Verifier
	committee  []*queue.Oracle
	store      storage.QuoteStore
	eventStore storage.EventStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	locker  storage.AdvisoryLocker
	lockKey int64

	deviationThresholdPct float64
	channels              []string

	sigFailureBurst  int
	sigFailureWindow time.Duration

	mu          sync.Mutex
	sigFailures map[[32]byte][]time.Time
}

// New constructs the verifier service.
func New(
	cfg *config.Config,
	sched *scheduler.Scheduler,
	crossbar *client.Crossbar,
	engine *submit.Engine,
	verifier *consumer.Verifier,
	committee []*queue.Oracle,
	store storage.QuoteStore,
	eventStore storage.EventStore,
	notifier alerting.Notifier,
	logger zerolog.Logger,
) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:             sched,
		crossbar:              crossbar,
		engine:                engine,
		verifier:              verifier,
		committee:             committee,
		store:                 store,
		eventStore:            eventStore,
		notifier:              notifier,
		logger:                logger.With().Str("component", "service").Logger(),
		locker:                locker,
		lockKey:               cfg.Scheduler.AdvisoryLockKey,
		deviationThresholdPct: cfg.Alerting.DeviationThresholdPct,
		channels:              cfg.Alerting.Channels,
		sigFailureBurst:       cfg.Alerting.SignatureFailureBurst,
		sigFailureWindow:      cfg.Alerting.Cooldown,
		sigFailures:           make(map[[32]byte][]time.Time),
	}
}

// Run begins the aligned polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket processes a single scheduled tick under the advisory lock.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeBucket(ctx, bucket)
}

func (s *Service) executeBucket(ctx context.Context, bucket time.Time) error {
	sub, err := s.crossbar.Next(ctx)
	if err != nil {
		return fmt.Errorf("read crossbar submission: %w", err)
	}

	return s.ProcessSubmission(ctx, sub, bucket)
}

// RunSubmission assembles and runs one committee submission through the
// engine, without touching the verifier's admission table. It does the
// CPU-bound signature-recovery work and nothing stateful, so callers such as
// internal/app.Backfill can run many of these concurrently and feed the
// results through AdmitQuotes in order afterward.
func (s *Service) RunSubmission(sub submit.CommitteeSubmission, nowMs uint64) (*submit.Quotes, error) {
	req, err := client.Assemble(sub, s.committee, nowMs)
	if err != nil {
		return nil, fmt.Errorf("assemble submission: %w", err)
	}

	quotes, err := s.engine.RunRequest(req)
	if err != nil {
		return nil, fmt.Errorf("run submit engine: %w", err)
	}
	return quotes, nil
}

// AdmitQuotes runs quotes through the consumer verifier's admission table,
// persisting accepted quotes and alerting on deviation. It must be called
// sequentially per queue: the (timestamp, slot) replacement rule is
// order-dependent.
func (s *Service) AdmitQuotes(ctx context.Context, quotes *submit.Quotes, bucket time.Time) error {
	nowMs := uint64(bucket.UnixMilli())

	previous := make(map[[32]byte]submit.Quote, len(quotes.Quotes))
	for _, q := range quotes.Quotes {
		if existing, getErr := s.verifier.Get(q.FeedID); getErr == nil {
			previous[q.FeedID] = existing
		}
	}

	if err := s.verifier.VerifyQuotes(quotes, nowMs); err != nil {
		return fmt.Errorf("verify quotes: %w", err)
	}

	for _, q := range quotes.Quotes {
		stored, getErr := s.verifier.Get(q.FeedID)
		if getErr != nil || stored.TimestampMs != q.TimestampMs || stored.Slot != q.Slot {
			// The verifier dropped this quote (future-dated or outranked).
			continue
		}
		if s.store != nil {
			record := storage.QuoteRecord{
				Queue:       quotes.QueueID,
				FeedID:      q.FeedID,
				Value:       q.Value,
				TimestampMs: q.TimestampMs,
				Slot:        q.Slot,
				Oracles:     quotes.Oracles,
			}
			if err := s.store.UpsertQuote(ctx, record); err != nil {
				s.logger.Error().Err(err).Str("feed_id", fmt.Sprintf("%x", q.FeedID)).Msg("failed to persist quote")
			}
		}

		if prev, ok := previous[q.FeedID]; ok {
			s.maybeAlertDeviation(ctx, bucket, q.FeedID, prev, q)
		}
	}

	return nil
}

// ProcessSubmission runs one committee submission through the engine and
// consumer verifier, persisting and alerting on the result. It is the
// per-submission unit the live loop drives.
func (s *Service) ProcessSubmission(ctx context.Context, sub submit.CommitteeSubmission, bucket time.Time) error {
	quotes, err := s.RunSubmission(sub, uint64(bucket.UnixMilli()))
	if err != nil {
		return err
	}
	return s.AdmitQuotes(ctx, quotes, bucket)
}

func (s *Service) maybeAlertDeviation(ctx context.Context, bucket time.Time, feedID [32]byte, previous, current submit.Quote) {
	if s.notifier == nil || s.deviationThresholdPct <= 0 {
		return
	}
	if previous.Value.IsZero() {
		return
	}

	prevFloat := decimalToFloat(previous.Value)
	currFloat := decimalToFloat(current.Value)
	if prevFloat == 0 {
		return
	}

	deviationPct := (currFloat/prevFloat - 1) * 100
	if deviationPct < 0 {
		deviationPct = -deviationPct
	}
	if deviationPct <= s.deviationThresholdPct {
		return
	}

	direction := "up"
	if currFloat < prevFloat {
		direction = "down"
	}

	note := alerting.Notification{
		Bucket:        bucket,
		FeedID:        feedID,
		PreviousQuote: previous,
		CurrentQuote:  current,
		DeviationPct:  deviationPct,
		ThresholdPct:  s.deviationThresholdPct,
		Direction:     direction,
		Channels:      s.channels,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to dispatch deviation alert")
	}
}

// QuoteVerified implements events.Sink: logs and persists admitted quotes.
func (s *Service) QuoteVerified(e events.QuoteVerified) {
	s.logEvent("QuoteVerified", e)
	s.persistEvent("QuoteVerified", e)
}

// SignatureInvalid implements events.Sink: logs, persists, and tracks
// signature-failure bursts per oracle for alerting.
func (s *Service) SignatureInvalid(e events.SignatureInvalid) {
	s.logEvent("SignatureInvalid", e)
	s.persistEvent("SignatureInvalid", e)
	s.recordSignatureFailure(e.OracleID)
}

func (s *Service) AggregatorAuthorityUpdated(e events.AggregatorAuthorityUpdated) {
	s.logEvent("AggregatorAuthorityUpdated", e)
	s.persistEvent("AggregatorAuthorityUpdated", e)
}

func (s *Service) QueueAuthorityUpdated(e events.QueueAuthorityUpdated) {
	s.logEvent("QueueAuthorityUpdated", e)
	s.persistEvent("QueueAuthorityUpdated", e)
}

func (s *Service) QueueFeeTypeAdded(e events.QueueFeeTypeAdded) {
	s.logEvent("QueueFeeTypeAdded", e)
	s.persistEvent("QueueFeeTypeAdded", e)
}

func (s *Service) QueueFeeTypeRemoved(e events.QueueFeeTypeRemoved) {
	s.logEvent("QueueFeeTypeRemoved", e)
	s.persistEvent("QueueFeeTypeRemoved", e)
}

func (s *Service) QueueCreated(e events.QueueCreated) {
	s.logEvent("QueueCreated", e)
	s.persistEvent("QueueCreated", e)
}

func (s *Service) logEvent(kind string, e any) {
	s.logger.Info().Str("event", kind).Interface("payload", e).Msg("event emitted")
}

func (s *Service) persistEvent(kind string, e any) {
	if s.eventStore == nil {
		return
	}
	payload, err := marshalEvent(e)
	if err != nil {
		s.logger.Error().Err(err).Str("event", kind).Msg("failed to marshal event payload")
		return
	}
	if _, err := s.eventStore.InsertEvent(context.Background(), storage.EventRecord{Kind: kind, Payload: payload}); err != nil {
		s.logger.Error().Err(err).Str("event", kind).Msg("failed to persist event")
	}
}

func (s *Service) recordSignatureFailure(oracleID [32]byte) {
	if s.notifier == nil || s.sigFailureBurst <= 0 {
		return
	}

	window := s.sigFailureWindow
	if window <= 0 {
		window = time.Minute
	}

	s.mu.Lock()
	now := time.Now()
	cutoff := now.Add(-window)
	failures := append(s.sigFailures[oracleID], now)
	pruned := failures[:0]
	for _, t := range failures {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}
	s.sigFailures[oracleID] = pruned
	count := len(pruned)
	s.mu.Unlock()

	if count < s.sigFailureBurst {
		return
	}

	note := alerting.SignatureFailureNotification{
		Bucket:   now,
		OracleID: oracleID,
		Count:    count,
		Window:   window,
		Channels: s.channels,
	}
	if err := s.notifier.NotifySignatureFailures(context.Background(), note); err != nil {
		s.logger.Error().Err(err).Msg("failed to dispatch signature failure alert")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

var _ events.Sink = (*Service)(nil)
