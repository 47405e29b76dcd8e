package service

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/rs/zerolog"

	"oraclewatcher/internal/alerting"
	"oraclewatcher/internal/config"
	"oraclewatcher/internal/consumer"
	"oraclewatcher/internal/decimal"
	"oraclewatcher/internal/events"
	"oraclewatcher/internal/hash"
	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/storage"
	"oraclewatcher/internal/submit"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func newSignedOracle(t *testing.T, q *queue.Queue, id queue.ID, seed byte, expirationMs uint64) (*queue.Oracle, *secp256k1.PrivateKey) {
	t.Helper()
	var scalar [32]byte
	scalar[31] = seed + 1
	priv := secp256k1.PrivKeyFromBytes(scalar[:])

	uncompressed := priv.PubKey().SerializeUncompressed()
	var xy [64]byte
	copy(xy[:], uncompressed[1:65])

	o := queue.InitOracle(q, id, [32]byte{seed})
	o.Secp256k1Key = xy
	o.ExpirationTimeMs = expirationMs
	return o, priv
}

func sign(priv *secp256k1.PrivateKey, message [32]byte) []byte {
	compact := ecdsa.SignCompact(priv, message[:], false)
	sig := make([]byte, 65)
	copy(sig[0:32], compact[1:33])
	copy(sig[32:64], compact[33:65])
	sig[64] = compact[0] - 27
	return sig
}

type fakeQuoteStore struct {
	mu     sync.Mutex
	quotes []storage.QuoteRecord
}

func (f *fakeQuoteStore) UpsertQuote(_ context.Context, q storage.QuoteRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes = append(f.quotes, q)
	return nil
}
func (f *fakeQuoteStore) ListQuotesBetween(context.Context, [32]byte, time.Time, time.Time) ([]storage.QuoteRecord, error) {
	return nil, nil
}
func (f *fakeQuoteStore) ListRecentQuotes(context.Context, [32]byte, int) ([]storage.QuoteRecord, error) {
	return nil, nil
}
func (f *fakeQuoteStore) CountQuotes(context.Context) (int64, error) { return 0, nil }

type fakeEventStore struct {
	mu     sync.Mutex
	events []storage.EventRecord
}

func (f *fakeEventStore) InsertEvent(_ context.Context, e storage.EventRecord) (storage.EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return e, nil
}
func (f *fakeEventStore) ListRecentEvents(context.Context, int) ([]storage.EventRecord, error) {
	return nil, nil
}
func (f *fakeEventStore) DeleteEventsBefore(context.Context, time.Time) error { return nil }

type fakeNotifier struct {
	mu          sync.Mutex
	deviations  []alerting.Notification
	sigFailures []alerting.SignatureFailureNotification
}

func (f *fakeNotifier) Notify(_ context.Context, note alerting.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviations = append(f.deviations, note)
	return nil
}
func (f *fakeNotifier) NotifySignatureFailures(_ context.Context, note alerting.SignatureFailureNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sigFailures = append(f.sigFailures, note)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Alerting.DeviationThresholdPct = 5
	cfg.Alerting.SignatureFailureBurst = 2
	cfg.Alerting.Cooldown = time.Minute
	cfg.Alerting.Channels = []string{"telegram"}
	return cfg
}

func buildSubmission(t *testing.T, q *queue.Queue, oracle *queue.Oracle, priv *secp256k1.PrivateKey, feedID [32]byte, value int64, slot, timestampSeconds uint64) submit.CommitteeSubmission {
	t.Helper()
	feeds := []submit.FeedInput{{FeedID: feedID, Value: big.NewInt(value), MinOracleSamples: 1}}
	d := decimal.FromUint64(uint64(value), false)
	message, _, err := hash.ConsensusMessage(slot, timestampSeconds, []hash.FeedQuote{{FeedID: feedID, Value: d, MinOracleSamples: 1}})
	if err != nil {
		t.Fatalf("ConsensusMessage: %v", err)
	}
	return submit.CommitteeSubmission{
		QueueID:          q.ID,
		OracleIDs:        []queue.ID{oracle.ID},
		Signatures:       [][]byte{sign(priv, message)},
		Feeds:            feeds,
		Slot:             slot,
		TimestampSeconds: timestampSeconds,
	}
}

func TestProcessSubmissionAdmitsAndPersistsQuote(t *testing.T) {
	q, err := queue.New(queue.ID{1}, [32]byte{0xAA}, queue.Config{Authority: "auth", MinAttestations: 1, OracleValidityLengthMs: 60_000})
	if err != nil {
		t.Fatalf("queue.New: %v", err)
	}
	oracle, priv := newSignedOracle(t, q, queue.ID{7}, 0x01, 10_000_000)

	feedID := [32]byte{0x33}
	engine := submit.NewEngine(q, nil)
	verifier := consumer.New(q.QueueKey, nil)
	store := &fakeQuoteStore{}
	eventStore := &fakeEventStore{}
	notifier := &fakeNotifier{}

	svc := New(testConfig(), nil, nil, engine, verifier, []*queue.Oracle{oracle}, store, eventStore, notifier, testLogger())

	sub := buildSubmission(t, q, oracle, priv, feedID, 100, 5, 1000)
	bucket := time.UnixMilli(1_000_000)
	if err := svc.ProcessSubmission(context.Background(), sub, bucket); err != nil {
		t.Fatalf("ProcessSubmission: %v", err)
	}

	if len(store.quotes) != 1 {
		t.Fatalf("expected one persisted quote, got %d", len(store.quotes))
	}
	if !verifier.Contains(feedID) {
		t.Fatal("expected feed to be admitted into the verifier")
	}
}

func TestProcessSubmissionAlertsOnDeviation(t *testing.T) {
	q, err := queue.New(queue.ID{1}, [32]byte{0xAA}, queue.Config{Authority: "auth", MinAttestations: 1, OracleValidityLengthMs: 60_000})
	if err != nil {
		t.Fatalf("queue.New: %v", err)
	}
	oracle, priv := newSignedOracle(t, q, queue.ID{7}, 0x01, 10_000_000)

	feedID := [32]byte{0x33}
	engine := submit.NewEngine(q, nil)
	verifier := consumer.New(q.QueueKey, nil)
	store := &fakeQuoteStore{}
	eventStore := &fakeEventStore{}
	notifier := &fakeNotifier{}

	svc := New(testConfig(), nil, nil, engine, verifier, []*queue.Oracle{oracle}, store, eventStore, notifier, testLogger())

	first := buildSubmission(t, q, oracle, priv, feedID, 100, 1, 1000)
	if err := svc.ProcessSubmission(context.Background(), first, time.UnixMilli(1_000_000)); err != nil {
		t.Fatalf("first ProcessSubmission: %v", err)
	}

	second := buildSubmission(t, q, oracle, priv, feedID, 200, 2, 2000)
	if err := svc.ProcessSubmission(context.Background(), second, time.UnixMilli(2_000_000)); err != nil {
		t.Fatalf("second ProcessSubmission: %v", err)
	}

	if len(notifier.deviations) != 1 {
		t.Fatalf("expected one deviation alert, got %d", len(notifier.deviations))
	}
	if notifier.deviations[0].Direction != "up" {
		t.Fatalf("expected upward deviation, got %s", notifier.deviations[0].Direction)
	}
}

func TestSignatureInvalidTracksBurstAndAlerts(t *testing.T) {
	cfg := testConfig()
	notifier := &fakeNotifier{}
	svc := New(cfg, nil, nil, nil, nil, nil, nil, &fakeEventStore{}, notifier, testLogger())

	oracleID := [32]byte{0x42}
	svc.SignatureInvalid(events.SignatureInvalid{OracleID: oracleID, Signature: []byte{1}})
	if len(notifier.sigFailures) != 0 {
		t.Fatalf("expected no alert after a single failure, got %d", len(notifier.sigFailures))
	}

	svc.SignatureInvalid(events.SignatureInvalid{OracleID: oracleID, Signature: []byte{2}})
	if len(notifier.sigFailures) != 1 {
		t.Fatalf("expected an alert once the burst threshold is met, got %d", len(notifier.sigFailures))
	}
	if notifier.sigFailures[0].OracleID != oracleID {
		t.Fatalf("unexpected oracle id in alert: %x", notifier.sigFailures[0].OracleID)
	}
}

