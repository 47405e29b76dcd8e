// Package events models the verifier's event log (spec §4.8). The host
// chain's native event log is outside this module's reach, so a Sink
// stands in for it, and the default Sink emits structured zerolog records.
package events

import (
	"encoding/hex"

	"github.com/rs/zerolog"
)

// QuoteVerified is emitted once for each quote admitted into a consumer's
// quote table, whether it fills an empty feed entry or replaces one.
type QuoteVerified struct {
	TimestampMs uint64
	Slot        uint64
	FeedID      [32]byte
	Oracles     [][32]byte
	Queue       [32]byte
}

// SignatureInvalid is emitted on recovery mismatch (spec §4.4).
type SignatureInvalid struct {
	Signature []byte
	OracleID  [32]byte
}

// AggregatorAuthorityUpdated is emitted when an aggregator's authority changes.
type AggregatorAuthorityUpdated struct {
	Aggregator   [32]byte
	OldAuthority string
	NewAuthority string
}

// QueueAuthorityUpdated is emitted when a queue's authority changes.
type QueueAuthorityUpdated struct {
	Queue        [32]byte
	OldAuthority string
	NewAuthority string
}

// QueueFeeTypeAdded is emitted when a coin type is added to a queue's fee types.
type QueueFeeTypeAdded struct {
	Queue    [32]byte
	CoinType string
}

// QueueFeeTypeRemoved is emitted when a coin type is removed from a queue's fee types.
type QueueFeeTypeRemoved struct {
	Queue    [32]byte
	CoinType string
}

// QueueCreated is emitted when a new queue is registered.
type QueueCreated struct {
	Queue     [32]byte
	Authority string
	Name      string
}

// Sink receives every event this module emits. internal/verify.Events and
// internal/aggregator's admission path are satisfied by a Sink through thin
// adapters so both share one emission substrate.
type Sink interface {
	QuoteVerified(QuoteVerified)
	SignatureInvalid(SignatureInvalid)
	AggregatorAuthorityUpdated(AggregatorAuthorityUpdated)
	QueueAuthorityUpdated(QueueAuthorityUpdated)
	QueueFeeTypeAdded(QueueFeeTypeAdded)
	QueueFeeTypeRemoved(QueueFeeTypeRemoved)
	QueueCreated(QueueCreated)
}

// ZerologSink emits every event as a structured zerolog record. Event
// shapes are stable (spec §4.8): field names below are the schema, not
// incidental logging detail.
type ZerologSink struct {
	Logger zerolog.Logger
}

func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{Logger: logger}
}

func (s *ZerologSink) QuoteVerified(e QuoteVerified) {
	oracleIDs := make([]string, len(e.Oracles))
	for i, id := range e.Oracles {
		oracleIDs[i] = hex.EncodeToString(id[:])
	}
	s.Logger.Info().
		Str("event", "QuoteVerified").
		Uint64("timestamp_ms", e.TimestampMs).
		Uint64("slot", e.Slot).
		Str("feed_id", hex.EncodeToString(e.FeedID[:])).
		Strs("oracles", oracleIDs).
		Str("queue", hex.EncodeToString(e.Queue[:])).
		Msg("quote verified")
}

func (s *ZerologSink) SignatureInvalid(e SignatureInvalid) {
	s.Logger.Warn().
		Str("event", "SignatureInvalid").
		Str("oracle_id", hex.EncodeToString(e.OracleID[:])).
		Str("signature", hex.EncodeToString(e.Signature)).
		Msg("signature recovery mismatch")
}

func (s *ZerologSink) AggregatorAuthorityUpdated(e AggregatorAuthorityUpdated) {
	s.Logger.Info().
		Str("event", "AggregatorAuthorityUpdated").
		Str("aggregator", hex.EncodeToString(e.Aggregator[:])).
		Str("old_authority", e.OldAuthority).
		Str("new_authority", e.NewAuthority).
		Msg("aggregator authority updated")
}

func (s *ZerologSink) QueueAuthorityUpdated(e QueueAuthorityUpdated) {
	s.Logger.Info().
		Str("event", "QueueAuthorityUpdated").
		Str("queue", hex.EncodeToString(e.Queue[:])).
		Str("old_authority", e.OldAuthority).
		Str("new_authority", e.NewAuthority).
		Msg("queue authority updated")
}

func (s *ZerologSink) QueueFeeTypeAdded(e QueueFeeTypeAdded) {
	s.Logger.Info().
		Str("event", "QueueFeeTypeAdded").
		Str("queue", hex.EncodeToString(e.Queue[:])).
		Str("coin_type", e.CoinType).
		Msg("queue fee type added")
}

func (s *ZerologSink) QueueFeeTypeRemoved(e QueueFeeTypeRemoved) {
	s.Logger.Info().
		Str("event", "QueueFeeTypeRemoved").
		Str("queue", hex.EncodeToString(e.Queue[:])).
		Str("coin_type", e.CoinType).
		Msg("queue fee type removed")
}

func (s *ZerologSink) QueueCreated(e QueueCreated) {
	s.Logger.Info().
		Str("event", "QueueCreated").
		Str("queue", hex.EncodeToString(e.Queue[:])).
		Str("authority", e.Authority).
		Str("name", e.Name).
		Msg("queue created")
}
