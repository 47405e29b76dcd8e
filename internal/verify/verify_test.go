package verify

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

type recordingEvents struct {
	invalid []SignatureInvalid
}

func (r *recordingEvents) SignatureInvalid(e SignatureInvalid) {
	r.invalid = append(r.invalid, e)
}

func mustPrivKey(t *testing.T, seed byte) (*secp256k1.PrivateKey, [64]byte) {
	t.Helper()
	var scalarBytes [32]byte
	scalarBytes[31] = seed + 1 // avoid the zero scalar
	priv := secp256k1.PrivKeyFromBytes(scalarBytes[:])

	uncompressed := priv.PubKey().SerializeUncompressed()
	var xy [64]byte
	copy(xy[:], uncompressed[1:65])
	return priv, xy
}

// signRecoverable produces a 65-byte r‖s‖v signature whose recovery byte is
// taken from the compact signature's leading byte, matching the shape
// verify.recoverUncompressed expects.
func signRecoverable(t *testing.T, priv *secp256k1.PrivateKey, message [32]byte) []byte {
	t.Helper()
	compact := ecdsa.SignCompact(priv, message[:], false)
	// compact is header(1) || r(32) || s(32); header encodes recovery id + 27.
	sig := make([]byte, 65)
	copy(sig[0:32], compact[1:33])
	copy(sig[32:64], compact[33:65])
	sig[64] = compact[0] - 27
	return sig
}

func TestVerifyAcceptsMatchingSignature(t *testing.T) {
	priv, xy := mustPrivKey(t, 1)
	message := [32]byte{0xAB, 0xCD}
	sig := signRecoverable(t, priv, message)

	oracleID := [32]byte{0x01}
	events := &recordingEvents{}

	valid, err := Verify(message, [][]byte{sig}, []OracleData{{Secp256k1Key: xy, OracleID: oracleID}}, events)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(valid) != 1 || valid[0] != oracleID {
		t.Fatalf("expected oracle to be valid, got %v", valid)
	}
	if len(events.invalid) != 0 {
		t.Fatalf("expected no SignatureInvalid events, got %d", len(events.invalid))
	}
}

func TestVerifyRejectsKeyMismatch(t *testing.T) {
	priv, _ := mustPrivKey(t, 1)
	_, wrongXY := mustPrivKey(t, 2)
	message := [32]byte{0xAB, 0xCD}
	sig := signRecoverable(t, priv, message)

	oracleID := [32]byte{0x01}
	events := &recordingEvents{}

	valid, err := Verify(message, [][]byte{sig}, []OracleData{{Secp256k1Key: wrongXY, OracleID: oracleID}}, events)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(valid) != 0 {
		t.Fatalf("expected no valid oracles, got %v", valid)
	}
	if len(events.invalid) != 1 || events.invalid[0].OracleID != oracleID {
		t.Fatalf("expected one SignatureInvalid event for the mismatched oracle, got %v", events.invalid)
	}
}

func TestVerifyIsPositional(t *testing.T) {
	priv1, xy1 := mustPrivKey(t, 1)
	priv2, xy2 := mustPrivKey(t, 2)
	message := [32]byte{0x11}

	sig1 := signRecoverable(t, priv1, message)
	sig2 := signRecoverable(t, priv2, message)

	oracle1, oracle2 := [32]byte{0x01}, [32]byte{0x02}
	events := &recordingEvents{}

	// sigs and oracles swapped: index 0 sig belongs to oracle1's key but is
	// checked against oracle2's descriptor, and vice versa.
	valid, err := Verify(message, [][]byte{sig1, sig2}, []OracleData{
		{Secp256k1Key: xy2, OracleID: oracle1},
		{Secp256k1Key: xy1, OracleID: oracle2},
	}, events)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(valid) != 0 {
		t.Fatalf("expected positional mismatch to invalidate both, got %v", valid)
	}
	if len(events.invalid) != 2 {
		t.Fatalf("expected two SignatureInvalid events, got %d", len(events.invalid))
	}
}

func TestVerifyToleratesRecoveryByteConventions(t *testing.T) {
	priv, xy := mustPrivKey(t, 3)
	message := [32]byte{0x22}
	sig := signRecoverable(t, priv, message)

	// Re-express the recovery byte in the {27,28} convention some signers
	// use; recoverUncompressed must normalize it back to {0,1}.
	shifted := append([]byte(nil), sig...)
	shifted[64] += 27

	oracleID := [32]byte{0x09}
	valid, err := Verify(message, [][]byte{shifted}, []OracleData{{Secp256k1Key: xy, OracleID: oracleID}}, nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(valid) != 1 {
		t.Fatalf("expected recovery byte normalization to still recover the correct key, got %v", valid)
	}
}

func TestVerifyRejectsLengthMismatch(t *testing.T) {
	_, err := Verify([32]byte{}, [][]byte{{1, 2, 3}}, nil, nil)
	if err == nil {
		t.Fatal("expected error for mismatched sigs/oracles length")
	}
}
