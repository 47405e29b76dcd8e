package hash

import (
	"fmt"

	"oraclewatcher/internal/decimal"
)

// FeedQuote is one positional entry in a consensus message: a feed id, its
// submitted value, and the minimum committee size required to admit it.
type FeedQuote struct {
	FeedID           [32]byte
	Value            decimal.Decimal
	MinOracleSamples uint8
}

// ConsensusMessage builds the canonical committee-submission message (spec
// §4.2):
//
//	slot (u64, LE, 8)
//	timestamp_seconds (u64, LE, 8)
//	for i in 0..N:
//	  feed_id[i]                       (32 bytes, verbatim)
//	  value[i] as i128 little-endian   (16 bytes)
//	  min_oracle_samples[i]            (1 byte)
//
// Total length is 16 + N*49 bytes; the digest is SHA-256 over this buffer.
func ConsensusMessage(slot uint64, timestampSeconds uint64, feeds []FeedQuote) ([32]byte, []byte, error) {
	b := NewBuilder(16 + len(feeds)*49)
	b.PushU64LE(slot)
	b.PushU64LE(timestampSeconds)

	for i, f := range feeds {
		if err := b.PushBytesExact(f.FeedID[:], 32, ErrWrongFeedHashLength); err != nil {
			return [32]byte{}, nil, fmt.Errorf("consensus message: feed %d: %w", i, err)
		}
		encoded := f.Value.AppendCanonicalLE(nil)
		if err := b.PushI128LE(encoded); err != nil {
			return [32]byte{}, nil, fmt.Errorf("consensus message: feed %d: %w", i, err)
		}
		b.PushU8(f.MinOracleSamples)
	}

	return b.Sum256(), b.Bytes(), nil
}

// UpdateMessage builds the canonical single-feed aggregator update message
// (spec §4.2):
//
//	queue_key      (32 bytes)
//	feed_hash      (32 bytes)
//	value          (i128 LE, 16 bytes)
//	slothash       (32 bytes; zero-filled on this chain)
//	max_variance   (u64 LE, 8)
//	min_responses  (u32 LE, 4)
//	timestamp      (u64 LE, 8)
//
// Total length is 132 bytes.
func UpdateMessage(queueKey, feedHash [32]byte, value decimal.Decimal, slothash [32]byte, maxVariance uint64, minResponses uint32, timestamp uint64) ([32]byte, []byte, error) {
	b := NewBuilder(132)

	if err := b.PushBytesExact(queueKey[:], 32, ErrWrongQueueLength); err != nil {
		return [32]byte{}, nil, err
	}
	if err := b.PushBytesExact(feedHash[:], 32, ErrWrongFeedHashLength); err != nil {
		return [32]byte{}, nil, err
	}
	if err := b.PushI128LE(value.AppendCanonicalLE(nil)); err != nil {
		return [32]byte{}, nil, err
	}
	if err := b.PushBytesExact(slothash[:], 32, ErrWrongSlothashLength); err != nil {
		return [32]byte{}, nil, err
	}
	b.PushU64LE(maxVariance)
	b.PushU32LE(minResponses)
	b.PushU64LE(timestamp)

	return b.Sum256(), b.Bytes(), nil
}
