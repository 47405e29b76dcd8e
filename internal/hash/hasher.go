// Package hash implements the byte-exact canonical message encodings
// consumed by the off-chain oracle committee and the on-chain verifier, and
// the SHA-256 digest over them. Every multi-byte integer has an explicit
// little-endian or big-endian pusher; callers must use the exact ordering
// the spec defines, since any deviation invalidates every signature over
// the resulting digest.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Error is a stable-string sentinel error, matching the spec's error-code
// contract (comparable with errors.Is).
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrWrongFeedHashLength is returned when a feed id is not 32 bytes.
	ErrWrongFeedHashLength Error = "EWrongFeedHashLength"
	// ErrWrongQueueLength is returned when a queue key is not 32 bytes.
	ErrWrongQueueLength Error = "EWrongQueueLength"
	// ErrWrongSlothashLength is returned when a slothash is not 32 bytes.
	ErrWrongSlothashLength Error = "EWrongSlothashLength"
	// ErrWrongMrEnclaveLength is returned when an mr_enclave is not 32 bytes.
	ErrWrongMrEnclaveLength Error = "EWrongMrEnclaveLength"
	// ErrWrongOracleIDLength is returned when an oracle id is not 32 bytes.
	ErrWrongOracleIDLength Error = "EWrongOracleIdLength"
	// ErrWrongSecp256k1KeyLength is returned when a secp256k1 key is not 64 bytes.
	ErrWrongSecp256k1KeyLength Error = "EWrongSec256k1KeyLength"
)

// Builder assembles a message buffer with typed pushers. It carries no
// state beyond the buffer itself: a Builder must not be reused once the
// digest has been taken via Sum256.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty Builder, optionally pre-sized.
func NewBuilder(sizeHint int) *Builder {
	return &Builder{buf: make([]byte, 0, sizeHint)}
}

// PushU64LE appends v as 8 little-endian bytes.
func (b *Builder) PushU64LE(v uint64) *Builder {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

// PushU32LE appends v as 4 little-endian bytes.
func (b *Builder) PushU32LE(v uint32) *Builder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

// PushU8 appends a single byte.
func (b *Builder) PushU8(v uint8) *Builder {
	b.buf = append(b.buf, v)
	return b
}

// PushBytesExact appends raw bytes after asserting their length, returning
// the named error on mismatch.
func (b *Builder) PushBytesExact(data []byte, want int, onMismatch Error) error {
	if len(data) != want {
		return onMismatch
	}
	b.buf = append(b.buf, data...)
	return nil
}

// PushI128LE appends the canonical little-endian two's-complement encoding
// of a Decimal-shaped value. Callers pass an already-encoded 16-byte slice
// (see internal/decimal.Decimal.AppendCanonicalLE) to keep this package
// decoupled from the decimal representation.
func (b *Builder) PushI128LE(encoded []byte) error {
	if len(encoded) != 16 {
		return fmt.Errorf("hash: i128 encoding must be 16 bytes, got %d", len(encoded))
	}
	b.buf = append(b.buf, encoded...)
	return nil
}

// Bytes returns the assembled buffer.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Sum256 returns the SHA-256 digest of the assembled buffer. The Builder
// must not be reused afterward.
func (b *Builder) Sum256() [32]byte {
	return sha256.Sum256(b.buf)
}
