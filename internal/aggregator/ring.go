package aggregator

import (
	"oraclewatcher/internal/decimal"
	"oraclewatcher/internal/queue"
)

// sample is one accepted update stored in the ring buffer: (oracle, value,
// timestamp_ms), per spec §3's ring-entry data model.
type sample struct {
	oracle      queue.ID
	value       decimal.Decimal
	timestampMs uint64
	set         bool
}

// ring is a fixed-capacity circular buffer of accepted updates. Insertion
// always advances currIdx modulo capacity and overwrites the oldest slot,
// the same slot/head bookkeeping as a sliding-window ring buffer.
type ring struct {
	slots     []sample
	currIdx   int
	populated int
}

func newRing(capacity int) *ring {
	return &ring{slots: make([]sample, capacity)}
}

// push inserts v at currIdx and advances it, tracking how many slots have
// ever been populated (capped at capacity).
func (r *ring) push(oracle queue.ID, v decimal.Decimal, timestampMs uint64) {
	if !r.slots[r.currIdx].set {
		r.populated++
	}
	r.slots[r.currIdx] = sample{oracle: oracle, value: v, timestampMs: timestampMs, set: true}
	r.currIdx = (r.currIdx + 1) % len(r.slots)
}

// populatedSamples returns every currently populated slot in slot-index
// order, which matches insertion order only until the ring first wraps
// (order does not matter for the
// Summary computation, which is order-independent besides the explicit
// median and range passes).
func (r *ring) populatedSamples() []sample {
	out := make([]sample, 0, r.populated)
	for _, s := range r.slots {
		if s.set {
			out = append(out, s)
		}
	}
	return out
}
