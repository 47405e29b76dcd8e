package consumer

import (
	"testing"

	"oraclewatcher/internal/decimal"
	"oraclewatcher/internal/events"
	"oraclewatcher/internal/submit"
)

type recordingSink struct {
	verified []events.QuoteVerified
}

func (r *recordingSink) QuoteVerified(e events.QuoteVerified)                         { r.verified = append(r.verified, e) }
func (r *recordingSink) SignatureInvalid(events.SignatureInvalid)                     {}
func (r *recordingSink) AggregatorAuthorityUpdated(events.AggregatorAuthorityUpdated) {}
func (r *recordingSink) QueueAuthorityUpdated(events.QueueAuthorityUpdated)           {}
func (r *recordingSink) QueueFeeTypeAdded(events.QueueFeeTypeAdded)                   {}
func (r *recordingSink) QueueFeeTypeRemoved(events.QueueFeeTypeRemoved)               {}
func (r *recordingSink) QueueCreated(events.QueueCreated)                             {}

func bundleOf(queueID [32]byte, quotes ...submit.Quote) *submit.Quotes {
	return &submit.Quotes{QueueID: queueID, Quotes: quotes}
}

func TestVerifyQuotesRejectsQueueMismatch(t *testing.T) {
	v := New([32]byte{1}, nil)
	err := v.VerifyQuotes(bundleOf([32]byte{2}), 1000)
	if err != ErrInvalidQueue {
		t.Fatalf("expected ErrInvalidQueue, got %v", err)
	}
}

func TestVerifyQuotesInsertsNewFeed(t *testing.T) {
	v := New([32]byte{1}, nil)
	feedID := [32]byte{9}
	quote := submit.Quote{FeedID: feedID, Value: decimal.FromUint64(100, false), TimestampMs: 500, Slot: 1}

	if err := v.VerifyQuotes(bundleOf([32]byte{1}, quote), 1000); err != nil {
		t.Fatalf("VerifyQuotes: %v", err)
	}
	got, err := v.Get(feedID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TimestampMs != 500 {
		t.Fatalf("expected stored timestamp 500, got %d", got.TimestampMs)
	}
}

func TestVerifyQuotesDropsFutureTimestampSilently(t *testing.T) {
	v := New([32]byte{1}, nil)
	feedID := [32]byte{9}
	future := submit.Quote{FeedID: feedID, Value: decimal.FromUint64(1, false), TimestampMs: 2000, Slot: 1}

	if err := v.VerifyQuotes(bundleOf([32]byte{1}, future), 1000); err != nil {
		t.Fatalf("VerifyQuotes: %v", err)
	}
	if v.Contains(feedID) {
		t.Fatal("future-dated quote must not be admitted")
	}
}

// TestVerifyQuotesAdvancesPastDroppedFutureEntry regresses the source's
// non-advancing continue on the future-timestamp branch (§9 open question):
// a dropped future quote must not prevent later quotes in the same bundle
// from being processed.
func TestVerifyQuotesAdvancesPastDroppedFutureEntry(t *testing.T) {
	v := New([32]byte{1}, nil)
	feedA := [32]byte{1}
	feedB := [32]byte{2}

	future := submit.Quote{FeedID: feedA, Value: decimal.FromUint64(1, false), TimestampMs: 5000, Slot: 1}
	valid := submit.Quote{FeedID: feedB, Value: decimal.FromUint64(2, false), TimestampMs: 500, Slot: 1}

	if err := v.VerifyQuotes(bundleOf([32]byte{1}, future, valid), 1000); err != nil {
		t.Fatalf("VerifyQuotes: %v", err)
	}
	if v.Contains(feedA) {
		t.Fatal("future-dated quote must still be dropped")
	}
	if !v.Contains(feedB) {
		t.Fatal("quote following a dropped future quote must still be admitted")
	}
}

func TestVerifyQuotesReplacesOnLaterTimestamp(t *testing.T) {
	v := New([32]byte{1}, nil)
	feedID := [32]byte{9}
	old := submit.Quote{FeedID: feedID, Value: decimal.FromUint64(1, false), TimestampMs: 100, Slot: 1}
	newer := submit.Quote{FeedID: feedID, Value: decimal.FromUint64(2, false), TimestampMs: 200, Slot: 1}

	_ = v.VerifyQuotes(bundleOf([32]byte{1}, old), 1000)
	_ = v.VerifyQuotes(bundleOf([32]byte{1}, newer), 1000)

	got, _ := v.Get(feedID)
	if got.TimestampMs != 200 {
		t.Fatalf("expected replacement by later timestamp, got %d", got.TimestampMs)
	}
}

// TestVerifyQuotesTieBreaksOnSlot exercises the equal-timestamp,
// larger-slot-wins branch of the replacement rule.
func TestVerifyQuotesTieBreaksOnSlot(t *testing.T) {
	v := New([32]byte{1}, nil)
	feedID := [32]byte{9}
	low := submit.Quote{FeedID: feedID, Value: decimal.FromUint64(1, false), TimestampMs: 100, Slot: 5}
	high := submit.Quote{FeedID: feedID, Value: decimal.FromUint64(2, false), TimestampMs: 100, Slot: 9}

	_ = v.VerifyQuotes(bundleOf([32]byte{1}, low), 1000)
	_ = v.VerifyQuotes(bundleOf([32]byte{1}, high), 1000)

	got, _ := v.Get(feedID)
	if got.Slot != 9 {
		t.Fatalf("expected higher slot to win the tie, got slot %d", got.Slot)
	}

	// A lower slot at the same timestamp must not replace the winner.
	_ = v.VerifyQuotes(bundleOf([32]byte{1}, low), 1000)
	got, _ = v.Get(feedID)
	if got.Slot != 9 {
		t.Fatalf("expected lower slot at equal timestamp to be a no-op, got slot %d", got.Slot)
	}
}

func TestVerifyQuotesIsIdempotent(t *testing.T) {
	v := New([32]byte{1}, nil)
	feedID := [32]byte{9}
	quote := submit.Quote{FeedID: feedID, Value: decimal.FromUint64(1, false), TimestampMs: 100, Slot: 1}

	bundle := bundleOf([32]byte{1}, quote)
	if err := v.VerifyQuotes(bundle, 1000); err != nil {
		t.Fatalf("VerifyQuotes: %v", err)
	}
	if err := v.VerifyQuotes(bundle, 1000); err != nil {
		t.Fatalf("VerifyQuotes (replay): %v", err)
	}

	got, _ := v.Get(feedID)
	if got.TimestampMs != 100 || got.Slot != 1 {
		t.Fatalf("replaying an identical bundle must not change the stored quote, got %+v", got)
	}
}

func TestVerifyQuotesEmitsQuoteVerifiedOnAdmission(t *testing.T) {
	sink := &recordingSink{}
	v := New([32]byte{1}, sink)
	feedID := [32]byte{9}
	quote := submit.Quote{FeedID: feedID, Value: decimal.FromUint64(1, false), TimestampMs: 100, Slot: 1}

	if err := v.VerifyQuotes(bundleOf([32]byte{1}, quote), 1000); err != nil {
		t.Fatalf("VerifyQuotes: %v", err)
	}
	if len(sink.verified) != 1 {
		t.Fatalf("expected exactly one QuoteVerified event, got %d", len(sink.verified))
	}
	if sink.verified[0].FeedID != feedID || sink.verified[0].TimestampMs != 100 {
		t.Fatalf("unexpected event payload: %+v", sink.verified[0])
	}
}

func TestVerifyQuotesDoesNotEmitOnNoOp(t *testing.T) {
	sink := &recordingSink{}
	v := New([32]byte{1}, sink)
	feedID := [32]byte{9}
	high := submit.Quote{FeedID: feedID, Value: decimal.FromUint64(1, false), TimestampMs: 100, Slot: 9}
	low := submit.Quote{FeedID: feedID, Value: decimal.FromUint64(2, false), TimestampMs: 100, Slot: 1}

	_ = v.VerifyQuotes(bundleOf([32]byte{1}, high), 1000)
	_ = v.VerifyQuotes(bundleOf([32]byte{1}, low), 1000)

	if len(sink.verified) != 1 {
		t.Fatalf("expected the losing replacement attempt to emit nothing, got %d events", len(sink.verified))
	}
}

func TestGetReturnsNotFoundForMissingFeed(t *testing.T) {
	v := New([32]byte{1}, nil)
	if _, err := v.Get([32]byte{42}); err != ErrQuoteNotFound {
		t.Fatalf("expected ErrQuoteNotFound, got %v", err)
	}
}
