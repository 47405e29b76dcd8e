package decimal

import (
	"math/big"
	"testing"
)

func TestCanonicalLEPositive(t *testing.T) {
	magnitude, ok := new(big.Int).SetString("66681990000000000000000", 10)
	if !ok {
		t.Fatal("failed to parse fixture magnitude")
	}
	dec := MustNew(magnitude, false)

	encoded := dec.AppendCanonicalLE(nil)
	if len(encoded) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(encoded))
	}

	round, err := FromCanonicalLE(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if round.String() != dec.String() {
		t.Fatalf("round trip mismatch: got %s want %s", round.String(), dec.String())
	}
}

func TestCanonicalLENegative(t *testing.T) {
	dec := FromUint64(12345, true)
	encoded := dec.AppendCanonicalLE(nil)

	want := new(big.Int).Sub(maxMagnitude, big.NewInt(12345))
	wantBE := want.FillBytes(make([]byte, 16))
	for i := 0; i < 8; i++ {
		wantBE[i], wantBE[15-i] = wantBE[15-i], wantBE[i]
	}

	for i := range encoded {
		if encoded[i] != wantBE[i] {
			t.Fatalf("byte %d mismatch: got %x want %x", i, encoded[i], wantBE[i])
		}
	}

	round, err := FromCanonicalLE(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !round.Neg() || round.Value().Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("round trip mismatch: neg=%v value=%s", round.Neg(), round.Value())
	}
}

func TestZeroIsNeverNegative(t *testing.T) {
	d := MustNew(big.NewInt(0), true)
	if d.Neg() {
		t.Fatal("zero magnitude must normalize neg to false")
	}
}

func TestNewRejectsOutOfRange(t *testing.T) {
	if _, err := New(big.NewInt(-1), false); err == nil {
		t.Fatal("expected error for negative magnitude")
	}
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	if _, err := New(tooBig, false); err == nil {
		t.Fatal("expected error for magnitude >= 2^128")
	}
}
