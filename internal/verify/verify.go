// Package verify implements secp256k1 signature recovery against a
// queue-registered committee, matching each signature to its oracle by
// position (spec §4.4).
package verify

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// OracleData is one committee member's descriptor, positionally paired with
// a signature at the same index.
type OracleData struct {
	Secp256k1Key [64]byte
	OracleID     [32]byte
}

// Result is one index's verification outcome.
type Result struct {
	OracleID  [32]byte
	Signature []byte
	Valid     bool
}

// SignatureInvalid is emitted (via the Events collaborator) whenever
// recovery at an index does not match the committee's registered key.
type SignatureInvalid struct {
	Signature []byte
	OracleID  [32]byte
}

// Events receives non-fatal verification observability. Implementations
// typically forward to internal/events.
type Events interface {
	SignatureInvalid(SignatureInvalid)
}

// NopEvents discards all events; useful in tests.
type NopEvents struct{}

func (NopEvents) SignatureInvalid(SignatureInvalid) {}

// Verify checks sigs[i] against oracles[i] for every index, recovering a
// compressed secp256k1 public key from (sigs[i], message), decompressing
// it, and comparing the resulting X‖Y bytes to oracles[i].Secp256k1Key. A
// mismatch is not fatal: it is reported through events and the oracle is
// excluded from the returned valid-set, per spec §4.4's "invalid signatures
// are not fatal; they are observability."
//
// len(sigs) must equal len(oracles); callers (internal/submit) are
// responsible for pairing signatures to committee members before calling.
func Verify(message [32]byte, sigs [][]byte, oracles []OracleData, events Events) ([][32]byte, error) {
	if len(sigs) != len(oracles) {
		return nil, fmt.Errorf("verify: %d signatures for %d oracles", len(sigs), len(oracles))
	}
	if events == nil {
		events = NopEvents{}
	}

	valid := make([][32]byte, 0, len(oracles))
	for i, sig := range sigs {
		od := oracles[i]

		uncompressed, err := recoverUncompressed(sig, message[:])
		if err != nil {
			events.SignatureInvalid(SignatureInvalid{Signature: sig, OracleID: od.OracleID})
			continue
		}

		// uncompressed is 0x04 || X(32) || Y(32); compare bytes 1..65 to the
		// registered 64-byte X||Y key (spec §4.4 step 3).
		var xy [64]byte
		copy(xy[:], uncompressed[1:65])

		if xy != od.Secp256k1Key {
			events.SignatureInvalid(SignatureInvalid{Signature: sig, OracleID: od.OracleID})
			continue
		}

		valid = append(valid, od.OracleID)
	}

	return valid, nil
}

// recoverUncompressed recovers the compressed public key from sig over
// message and returns its uncompressed 65-byte serialization. The recovery
// id is extracted from the signature's 65th byte when the signature is the
// standard 65-byte r‖s‖v form, per the §9 recovery-id-handling decision
// (rather than the source's literal recovery_id=1).
func recoverUncompressed(sig, message []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, fmt.Errorf("verify: signature must be 65 bytes, got %d", len(sig))
	}

	var r, s [32]byte
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	recID := sig[64]
	// Signers commonly emit v in {0,1} or {27,28}; normalize to {0,1} for
	// the compact-signature recovery id byte.
	if recID >= 27 {
		recID -= 27
	}

	compact := make([]byte, 65)
	compact[0] = recID + 27
	copy(compact[1:33], r[:])
	copy(compact[33:65], s[:])

	pub, _, err := ecdsa.RecoverCompact(compact, message)
	if err != nil {
		return nil, fmt.Errorf("verify: recover: %w", err)
	}

	return pub.SerializeUncompressed(), nil
}
