// Package aggregator implements the single-feed Aggregator Update Pipeline
// (spec §4.7): a ring buffer of accepted updates with incrementally
// recomputed sliding-window statistics.
package aggregator

import (
	"oraclewatcher/internal/decimal"
	"oraclewatcher/internal/events"
	"oraclewatcher/internal/hash"
	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/verify"
)

// Error is a stable-string sentinel error matching the spec's error-code
// contract.
type Error string

func (e Error) Error() string { return string(e) }

// ErrFeeType is returned when the payer's coin type is not a member of the
// queue's fee_types (spec §4.7).
const ErrFeeType Error = "EFeeType"

// Config holds the fixed parameters of one aggregator instance.
type Config struct {
	FeedHash      [32]byte
	MinSampleSize int
	MaxVariance   uint64
	MinResponses  uint32
}

// Aggregator admits single-oracle updates against one queue and feed.
type Aggregator struct {
	Queue  *queue.Queue
	Config Config
	Events events.Sink

	ring    *ring
	summary *Summary
}

// New constructs an Aggregator bound to q, with an empty ring buffer. The
// ring's capacity equals MinSampleSize (spec §3): the populated-count
// recompute gate in AdmitUpdate assumes a full window of exactly that size,
// not some larger sliding window.
func New(q *queue.Queue, cfg Config, sink events.Sink) *Aggregator {
	return &Aggregator{
		Queue:  q,
		Config: cfg,
		Events: sink,
		ring:   newRing(cfg.MinSampleSize),
	}
}

// FeeTransfer describes the fixed fee an accepted update must pay.
type FeeTransfer struct {
	CoinType string
	Amount   uint64
	Payer    string
}

// AdmitUpdate runs the admission algorithm of spec §4.7 for a single-oracle
// submission: queue match, oracle non-expiry, signature recovery against
// the update-message canonical form, a non-future timestamp check, and fee
// validation. On success the update is pushed into the ring buffer and, once
// the populated count reaches MinSampleSize, the Summary is recomputed.
func (a *Aggregator) AdmitUpdate(oracle *queue.Oracle, sig []byte, value decimal.Decimal, slothash [32]byte, timestampSeconds uint64, nowMs uint64, fee FeeTransfer) error {
	if oracle.QueueID != a.Queue.ID {
		return queue.ErrQueueMismatch
	}
	if oracle.IsExpired(nowMs) {
		return queue.ErrOracleInvalid
	}

	timestampMs := timestampSeconds * 1000
	if timestampMs > nowMs {
		// Future-dated updates are dropped silently, mirroring the
		// QuoteVerifier's admission rule (spec §4.6) applied to the
		// aggregator's single-feed path (spec §4.7).
		return nil
	}

	if !a.Queue.HasFeeCoin(fee.CoinType) {
		return ErrFeeType
	}
	// Only the coin-type membership check runs here. The actual transfer of
	// fee.Amount from fee.Payer to a.Queue.FeeRecipient (spec §4.7) and the
	// "fully consumed or the transaction aborts" coin semantics (spec §5)
	// are a host-chain primitive this repository has no write path for
	// (spec §1); see DESIGN.md.

	message, _, err := hash.UpdateMessage(a.Queue.QueueKey, a.Config.FeedHash, value, slothash, a.Config.MaxVariance, a.Config.MinResponses, timestampSeconds)
	if err != nil {
		return err
	}

	valid, err := verify.Verify(message, [][]byte{sig}, []verify.OracleData{{Secp256k1Key: oracle.Secp256k1Key, OracleID: oracle.ID}}, events.VerifyAdapter{Sink: a.Events})
	if err != nil {
		return err
	}
	if len(valid) == 0 {
		// Signature mismatch already surfaced via SignatureInvalid; not
		// fatal to the call (spec §4.4), but there is nothing to admit.
		return nil
	}

	a.ring.push(oracle.ID, value, timestampMs)

	if a.ring.populated >= a.Config.MinSampleSize {
		summary := computeSummary(a.ring.populatedSamples())
		a.summary = &summary
	}

	return nil
}

// Summary returns the most recently recomputed Summary, or false if fewer
// than MinSampleSize updates have ever been populated.
func (a *Aggregator) Summary() (Summary, bool) {
	if a.summary == nil {
		return Summary{}, false
	}
	return *a.summary, true
}

// VarianceExceeded reports whether the current Summary's spread exceeds
// MaxVariance under the scaled 1e9-basis tolerance (spec §4.7). An update
// that exceeds the gate is still accepted into the ring; this only governs
// whether a caller should expose the Summary.
func (a *Aggregator) VarianceExceeded() bool {
	if a.summary == nil {
		return false
	}
	const varianceScale = 1e9
	return a.summary.Stdev*varianceScale > float64(a.Config.MaxVariance)
}
