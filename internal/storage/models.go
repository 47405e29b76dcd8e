package storage

import (
	"encoding/json"
	"time"

	"oraclewatcher/internal/decimal"
)

// QuoteRecord is a persisted admitted quote: one feed's committee-verified
// value as of a (timestamp_ms, slot) pair (spec §4.5/§4.6).
type QuoteRecord struct {
	Queue       [32]byte
	FeedID      [32]byte
	Value       decimal.Decimal
	TimestampMs uint64
	Slot        uint64
	Oracles     [][32]byte
	CreatedAt   time.Time
}

// EventRecord is a persisted verifier event (spec §4.8): QuoteVerified,
// SignatureInvalid, or one of the admin events, with a JSON payload
// carrying the event-specific fields.
type EventRecord struct {
	ID        int64
	Kind      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// AggregatorSampleRecord is a persisted accepted aggregator update (spec
// §4.7), independent of the in-memory ring buffer's own retention window. It
// mirrors the ring's own (oracle, value, timestamp_ms) entry shape (spec §3).
type AggregatorSampleRecord struct {
	Queue       [32]byte
	FeedHash    [32]byte
	Oracle      [32]byte
	Value       decimal.Decimal
	TimestampMs uint64
	CreatedAt   time.Time
}
