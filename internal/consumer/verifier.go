// Package consumer implements QuoteVerifier, the per-consumer admission
// table that ingests a submit.Quotes bundle and applies the
// (timestamp, slot) replacement policy (spec §4.6).
package consumer

import (
	"oraclewatcher/internal/events"
	"oraclewatcher/internal/submit"
)

// Error is a stable-string sentinel error matching the spec's error-code
// contract.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrInvalidQueue is returned when a bundle's queue does not match the
	// verifier's own binding.
	ErrInvalidQueue Error = "EInvalidQueue"
	// ErrQuoteNotFound is returned by Get when no quote is stored for a feed.
	ErrQuoteNotFound Error = "EQuoteNotFound"
)

// Verifier holds one consumer's admitted quotes, keyed by feed id. It is
// mutated only through VerifyQuotes (spec §5: "QuoteVerifier tables are
// mutated only by their owning consumer").
type Verifier struct {
	QueueID [32]byte
	Events  events.Sink
	quotes  map[[32]byte]submit.Quote
}

// New returns a Verifier bound to queueID with an empty quote table,
// emitting through sink.
func New(queueID [32]byte, sink events.Sink) *Verifier {
	return &Verifier{QueueID: queueID, Events: sink, quotes: make(map[[32]byte]submit.Quote)}
}

// VerifyQuotes admits every quote in bundle whose feed either has no
// existing entry, or whose (timestamp_ms, slot) strictly outranks the
// existing entry under the replacement rule: later timestamp wins outright;
// equal timestamp breaks ties by larger slot. Future-dated quotes
// (timestamp_ms > nowMs) are dropped silently, per spec §4.6's note that the
// per-quote loop must still advance past a dropped future-dated entry — the
// idiomatic Go for-range loop does this by construction, so no special
// handling is required here.
func (v *Verifier) VerifyQuotes(bundle *submit.Quotes, nowMs uint64) error {
	if bundle.QueueID != v.QueueID {
		return ErrInvalidQueue
	}

	for _, q := range bundle.Quotes {
		if q.TimestampMs > nowMs {
			continue
		}

		existing, ok := v.quotes[q.FeedID]
		if !ok {
			v.quotes[q.FeedID] = q
			v.emitVerified(q, bundle)
			continue
		}

		if q.TimestampMs > existing.TimestampMs {
			v.quotes[q.FeedID] = q
			v.emitVerified(q, bundle)
			continue
		}
		if q.TimestampMs == existing.TimestampMs && q.Slot > existing.Slot {
			v.quotes[q.FeedID] = q
			v.emitVerified(q, bundle)
		}
	}

	return nil
}

func (v *Verifier) emitVerified(q submit.Quote, bundle *submit.Quotes) {
	if v.Events == nil {
		return
	}
	v.Events.QuoteVerified(events.QuoteVerified{
		TimestampMs: q.TimestampMs,
		Slot:        q.Slot,
		FeedID:      q.FeedID,
		Oracles:     bundle.Oracles,
		Queue:       bundle.QueueID,
	})
}

// Get returns the admitted quote for feedID, or ErrQuoteNotFound.
func (v *Verifier) Get(feedID [32]byte) (submit.Quote, error) {
	q, ok := v.quotes[feedID]
	if !ok {
		return submit.Quote{}, ErrQuoteNotFound
	}
	return q, nil
}

// Contains reports whether feedID has an admitted quote.
func (v *Verifier) Contains(feedID [32]byte) bool {
	_, ok := v.quotes[feedID]
	return ok
}
