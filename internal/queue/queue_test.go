package queue

import (
	"errors"
	"testing"
	"time"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := New(ID{1}, [32]byte{0x86}, Config{
		Authority:              "authority-1",
		Name:                   "btc-usd",
		MinAttestations:        2,
		OracleValidityLengthMs: 60_000,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return q
}

func TestNewRejectsZeroMinAttestations(t *testing.T) {
	_, err := New(ID{1}, [32]byte{}, Config{Authority: "a", MinAttestations: 0, OracleValidityLengthMs: 1})
	if !errors.Is(err, ErrInvalidMinAttestations) {
		t.Fatalf("expected ErrInvalidMinAttestations, got %v", err)
	}
}

func TestNewRejectsZeroValidityLength(t *testing.T) {
	_, err := New(ID{1}, [32]byte{}, Config{Authority: "a", MinAttestations: 1, OracleValidityLengthMs: 0})
	if !errors.Is(err, ErrInvalidOracleValidityLength) {
		t.Fatalf("expected ErrInvalidOracleValidityLength, got %v", err)
	}
}

func TestSetConfigsRequiresAuthority(t *testing.T) {
	q := newTestQueue(t)
	err := q.SetConfigs("not-the-authority", Config{MinAttestations: 2, OracleValidityLengthMs: 60_000})
	if !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected ErrInvalidAuthority, got %v", err)
	}
}

func TestSetAuthorityTransfersControl(t *testing.T) {
	q := newTestQueue(t)
	if err := q.SetAuthority("authority-1", "authority-2"); err != nil {
		t.Fatalf("SetAuthority: %v", err)
	}
	if err := q.SetAuthority("authority-1", "authority-3"); !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected old authority to be rejected, got %v", err)
	}
}

func TestFeeCoinAddRemove(t *testing.T) {
	q := newTestQueue(t)
	if err := q.AddFeeCoin("authority-1", "usdc"); err != nil {
		t.Fatalf("AddFeeCoin: %v", err)
	}
	if !q.HasFeeCoin("usdc") {
		t.Fatal("expected usdc to be an accepted fee coin")
	}
	if err := q.RemoveFeeCoin("authority-1", "usdc"); err != nil {
		t.Fatalf("RemoveFeeCoin: %v", err)
	}
	if q.HasFeeCoin("usdc") {
		t.Fatal("expected usdc to be removed")
	}
}

func TestInitOracleRegistersMembership(t *testing.T) {
	q := newTestQueue(t)
	oracleID := ID{7}
	o := InitOracle(q, oracleID, [32]byte{0xAA})

	if !q.IsMember(oracleID) {
		t.Fatal("expected oracle to be a member after init")
	}
	key, ok := q.OracleKey(oracleID)
	if !ok || key != o.OracleKey {
		t.Fatalf("expected registered oracle_key to match, got %x ok=%v", key, ok)
	}
}

func TestOverrideOracleRequiresAuthority(t *testing.T) {
	q := newTestQueue(t)
	o := InitOracle(q, ID{7}, [32]byte{0xAA})

	now := time.Unix(1_700_000_000, 0)
	err := q.OverrideOracle("impostor", o, [64]byte{0x01}, [32]byte{0x02}, uint64(now.Add(time.Hour).UnixMilli()), now)
	if !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected ErrInvalidAuthority, got %v", err)
	}
}

func TestOverrideOracleRejectsQueueMismatch(t *testing.T) {
	q1 := newTestQueue(t)
	q2, err := New(ID{2}, [32]byte{0x99}, Config{Authority: "authority-1", MinAttestations: 1, OracleValidityLengthMs: 1000})
	if err != nil {
		t.Fatalf("New q2: %v", err)
	}
	o := InitOracle(q1, ID{7}, [32]byte{0xAA})

	now := time.Unix(1_700_000_000, 0)
	err = q2.OverrideOracle("authority-1", o, [64]byte{}, [32]byte{}, uint64(now.Add(time.Hour).UnixMilli()), now)
	if !errors.Is(err, ErrQueueMismatch) {
		t.Fatalf("expected ErrQueueMismatch, got %v", err)
	}
}

// TestOverrideOracleRejectsPastExpiration guards the admin-override-replay
// decision: an override that would set an expiration at or before the
// current host clock is rejected rather than silently admitting an
// already-expired oracle.
func TestOverrideOracleRejectsPastExpiration(t *testing.T) {
	q := newTestQueue(t)
	o := InitOracle(q, ID{7}, [32]byte{0xAA})

	now := time.Unix(1_700_000_000, 0)
	err := q.OverrideOracle("authority-1", o, [64]byte{0x01}, [32]byte{0x02}, uint64(now.UnixMilli()), now)
	if !errors.Is(err, ErrOracleInvalid) {
		t.Fatalf("expected ErrOracleInvalid for non-future expiration, got %v", err)
	}

	past := uint64(now.Add(-time.Second).UnixMilli())
	err = q.OverrideOracle("authority-1", o, [64]byte{0x01}, [32]byte{0x02}, past, now)
	if !errors.Is(err, ErrOracleInvalid) {
		t.Fatalf("expected ErrOracleInvalid for past expiration, got %v", err)
	}
}

func TestOverrideOracleUpdatesAttestationAndPreservesOracleKey(t *testing.T) {
	q := newTestQueue(t)
	o := InitOracle(q, ID{7}, [32]byte{0xAA})
	originalOracleKey := o.OracleKey

	now := time.Unix(1_700_000_000, 0)
	newSecp := [64]byte{0x11, 0x22}
	newEnclave := [32]byte{0x33, 0x44}
	newExp := uint64(now.Add(time.Hour).UnixMilli())

	if err := q.OverrideOracle("authority-1", o, newSecp, newEnclave, newExp, now); err != nil {
		t.Fatalf("OverrideOracle: %v", err)
	}

	if o.Secp256k1Key != newSecp {
		t.Fatal("expected secp256k1 key to be updated")
	}
	if o.MrEnclave != newEnclave {
		t.Fatal("expected mr_enclave to be updated")
	}
	if o.ExpirationTimeMs != newExp {
		t.Fatal("expected expiration to be updated")
	}
	if o.OracleKey != originalOracleKey {
		t.Fatal("expected oracle_key to be preserved across override")
	}
	if q.LastOverrideMs() != uint64(now.UnixMilli()) {
		t.Fatalf("expected last_queue_override_ms to be recorded, got %d", q.LastOverrideMs())
	}

	key, ok := q.OracleKey(o.ID)
	if !ok || key != originalOracleKey {
		t.Fatal("expected queue membership to still resolve to original oracle_key")
	}
}

func TestOracleIsExpired(t *testing.T) {
	o := &Oracle{ExpirationTimeMs: 1000}
	if o.IsExpired(999) {
		t.Fatal("oracle should not be expired before expiration time")
	}
	if !o.IsExpired(1000) {
		t.Fatal("oracle should be expired at exactly expiration time")
	}
	if !o.IsExpired(1001) {
		t.Fatal("oracle should be expired after expiration time")
	}
}
