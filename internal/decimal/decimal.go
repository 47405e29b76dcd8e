// Package decimal implements the signed 128-bit fixed-point value used by
// the canonical hasher and the verifier core. It is deliberately narrow: the
// only operations required are construction, unpacking, and the canonical
// little-endian two's-complement encoding consumed by internal/hash.
package decimal

import (
	"fmt"
	"math/big"
)

// maxMagnitude is 2^128, the modulus of the two's-complement encoding.
var maxMagnitude = new(big.Int).Lsh(big.NewInt(1), 128)

// maxU128 is 2^128 - 1, the largest representable magnitude.
var maxU128 = new(big.Int).Sub(maxMagnitude, big.NewInt(1))

// Decimal is a signed 128-bit fixed-point value: a u128 magnitude and a sign
// flag. It carries no scale of its own — callers agree on the exponent out
// of band, exactly as the on-chain type does.
type Decimal struct {
	magnitude big.Int
	neg       bool
}

// New builds a Decimal from a magnitude and sign, enforcing the invariant
// that zero is never negative and that the magnitude fits in 128 bits.
func New(magnitude *big.Int, neg bool) (Decimal, error) {
	if magnitude.Sign() < 0 {
		return Decimal{}, fmt.Errorf("decimal: magnitude must be non-negative")
	}
	if magnitude.Cmp(maxU128) > 0 {
		return Decimal{}, fmt.Errorf("decimal: magnitude exceeds 128 bits")
	}
	m := new(big.Int).Set(magnitude)
	if m.Sign() == 0 {
		neg = false
	}
	return Decimal{magnitude: *m, neg: neg}, nil
}

// MustNew is New but panics on error; useful for compile-time-known
// literals in tests and fixtures.
func MustNew(magnitude *big.Int, neg bool) Decimal {
	d, err := New(magnitude, neg)
	if err != nil {
		panic(err)
	}
	return d
}

// FromUint64 builds a Decimal from a u64 magnitude and a sign flag.
func FromUint64(magnitude uint64, neg bool) Decimal {
	return MustNew(new(big.Int).SetUint64(magnitude), neg)
}

// Unpack returns the stored magnitude and sign.
func (d Decimal) Unpack() (magnitude *big.Int, neg bool) {
	return new(big.Int).Set(&d.magnitude), d.neg
}

// Value returns the raw non-negative magnitude, ignoring sign.
func (d Decimal) Value() *big.Int {
	return new(big.Int).Set(&d.magnitude)
}

// Neg reports the sign flag.
func (d Decimal) Neg() bool {
	return d.neg
}

// IsZero reports whether the magnitude is zero.
func (d Decimal) IsZero() bool {
	return d.magnitude.Sign() == 0
}

// SignedBigInt returns the value as a signed *big.Int, i.e. -magnitude when
// neg is set.
func (d Decimal) SignedBigInt() *big.Int {
	v := new(big.Int).Set(&d.magnitude)
	if d.neg {
		v.Neg(v)
	}
	return v
}

// AppendCanonicalLE appends the 16-byte little-endian two's-complement
// encoding of this value to dst, per spec §4.1: treat (magnitude, neg) as an
// i128 and emit its bytes little-endian. Non-negative values encode as
// magnitude directly; negative values encode as 2^128 - magnitude.
func (d Decimal) AppendCanonicalLE(dst []byte) []byte {
	var encoded big.Int
	if d.neg && d.magnitude.Sign() != 0 {
		encoded.Sub(maxMagnitude, &d.magnitude)
	} else {
		encoded.Set(&d.magnitude)
	}

	be := encoded.FillBytes(make([]byte, 16))
	var le [16]byte
	for i := 0; i < 16; i++ {
		le[i] = be[15-i]
	}
	return append(dst, le[:]...)
}

// FromCanonicalLE decodes the 16-byte little-endian two's-complement
// encoding produced by AppendCanonicalLE.
func FromCanonicalLE(b []byte) (Decimal, error) {
	if len(b) != 16 {
		return Decimal{}, fmt.Errorf("decimal: canonical encoding must be 16 bytes, got %d", len(b))
	}
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[i] = b[15-i]
	}
	raw := new(big.Int).SetBytes(be)

	// Top bit set means the two's-complement value is negative.
	if raw.Bit(127) == 1 {
		magnitude := new(big.Int).Sub(maxMagnitude, raw)
		return New(magnitude, true)
	}
	return New(raw, false)
}

// String renders the signed magnitude, e.g. "-12345" or "66681990000000000000000".
func (d Decimal) String() string {
	return d.SignedBigInt().String()
}
