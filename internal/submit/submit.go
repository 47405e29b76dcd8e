// Package submit implements the Quote Submit Engine (spec §4.5): it
// assembles a signed committee submission into a Quotes bundle, checking
// each oracle's queue binding and freshness before running signature
// recovery.
package submit

import (
	"math/big"

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

// ErrInvalidLength is returned when the signatures and oracles supplied to
// Run differ in count, or when a feed value is not a valid Decimal magnitude.
const ErrInvalidLength Error = "EInvalidLength"

// FeedInput is one positional entry of the values/values_neg/min_samples
// arrays a submission carries per spec §4.5.
type FeedInput struct {
	FeedID           [32]byte
	Value            *big.Int
	Neg              bool
	MinOracleSamples uint8
}

// Quote is one admitted feed value, timestamped and slotted (spec §4.5).
type Quote struct {
	FeedID      [32]byte
	Value       decimal.Decimal
	TimestampMs uint64
	Slot        uint64
}

// Quotes is the result bundle a submission produces; Oracles holds only the
// signature verifier's valid-set.
type Quotes struct {
	QueueID [32]byte
	Oracles [][32]byte
	Quotes  []Quote
}

// Engine runs quote submissions against a single queue.
type Engine struct {
	Queue  *queue.Queue
	Events events.Sink
}

// NewEngine constructs an Engine bound to q, emitting through sink.
func NewEngine(q *queue.Queue, sink events.Sink) *Engine {
	return &Engine{Queue: q, Events: sink}
}

// Run performs the full submission algorithm of spec §4.5 against an
// arbitrary-arity committee. RunK (K in 1..6) are the arity-bounded entry
// points a caller modeling the source's fixed run_1..run_6 dispatch should
// use instead; Run itself has no arity ceiling.
func (e *Engine) Run(oracles []*queue.Oracle, sigs [][]byte, feeds []FeedInput, slot, timestampSeconds, nowMs uint64) (*Quotes, error) {
	if len(sigs) != len(oracles) {
		return nil, ErrInvalidLength
	}

	committee := make([]verify.OracleData, 0, len(oracles))
	for _, o := range oracles {
		if o.QueueID != e.Queue.ID {
			return nil, queue.ErrQueueMismatch
		}
		if o.IsExpired(nowMs) {
			return nil, queue.ErrOracleInvalid
		}
		committee = append(committee, verify.OracleData{
			Secp256k1Key: o.Secp256k1Key,
			OracleID:     o.ID,
		})
	}

	decimals := make([]decimal.Decimal, len(feeds))
	feedQuotes := make([]hash.FeedQuote, len(feeds))
	for i, f := range feeds {
		d, err := decimal.New(f.Value, f.Neg)
		if err != nil {
			return nil, ErrInvalidLength
		}
		decimals[i] = d
		feedQuotes[i] = hash.FeedQuote{
			FeedID:           f.FeedID,
			Value:            d,
			MinOracleSamples: f.MinOracleSamples,
		}
	}

	message, _, err := hash.ConsensusMessage(slot, timestampSeconds, feedQuotes)
	if err != nil {
		return nil, err
	}

	valid, err := verify.Verify(message, sigs, committee, events.VerifyAdapter{Sink: e.Events})
	if err != nil {
		return nil, err
	}

	timestampMs := timestampSeconds * 1000
	quotes := make([]Quote, 0, len(feeds))
	for i, f := range feeds {
		if uint32(f.MinOracleSamples) <= uint32(len(valid)) {
			quotes = append(quotes, Quote{
				FeedID:      f.FeedID,
				Value:       decimals[i],
				TimestampMs: timestampMs,
				Slot:        slot,
			})
		}
	}

	return &Quotes{
		QueueID: e.Queue.QueueKey,
		Oracles: valid,
		Quotes:  quotes,
	}, nil
}

// Run1 through Run6 are thin arity-bounded wrappers preserving the source's
// run_1..run_6 dispatch surface (spec §9): a committee of exactly K oracles
// each paired with one signature.
func (e *Engine) Run1(o1 *queue.Oracle, sig1 []byte, feeds []FeedInput, slot, timestampSeconds, nowMs uint64) (*Quotes, error) {
	return e.Run([]*queue.Oracle{o1}, [][]byte{sig1}, feeds, slot, timestampSeconds, nowMs)
}

func (e *Engine) Run2(o1, o2 *queue.Oracle, sig1, sig2 []byte, feeds []FeedInput, slot, timestampSeconds, nowMs uint64) (*Quotes, error) {
	return e.Run([]*queue.Oracle{o1, o2}, [][]byte{sig1, sig2}, feeds, slot, timestampSeconds, nowMs)
}

func (e *Engine) Run3(o1, o2, o3 *queue.Oracle, sig1, sig2, sig3 []byte, feeds []FeedInput, slot, timestampSeconds, nowMs uint64) (*Quotes, error) {
	return e.Run([]*queue.Oracle{o1, o2, o3}, [][]byte{sig1, sig2, sig3}, feeds, slot, timestampSeconds, nowMs)
}

func (e *Engine) Run4(o1, o2, o3, o4 *queue.Oracle, sig1, sig2, sig3, sig4 []byte, feeds []FeedInput, slot, timestampSeconds, nowMs uint64) (*Quotes, error) {
	return e.Run([]*queue.Oracle{o1, o2, o3, o4}, [][]byte{sig1, sig2, sig3, sig4}, feeds, slot, timestampSeconds, nowMs)
}

func (e *Engine) Run5(o1, o2, o3, o4, o5 *queue.Oracle, sig1, sig2, sig3, sig4, sig5 []byte, feeds []FeedInput, slot, timestampSeconds, nowMs uint64) (*Quotes, error) {
	return e.Run([]*queue.Oracle{o1, o2, o3, o4, o5}, [][]byte{sig1, sig2, sig3, sig4, sig5}, feeds, slot, timestampSeconds, nowMs)
}

func (e *Engine) Run6(o1, o2, o3, o4, o5, o6 *queue.Oracle, sig1, sig2, sig3, sig4, sig5, sig6 []byte, feeds []FeedInput, slot, timestampSeconds, nowMs uint64) (*Quotes, error) {
	return e.Run([]*queue.Oracle{o1, o2, o3, o4, o5, o6}, [][]byte{sig1, sig2, sig3, sig4, sig5, sig6}, feeds, slot, timestampSeconds, nowMs)
}
