// Package queue implements the oracle registry: a governance boundary
// binding a set of admitted Oracles, a fee policy, and an attestation
// threshold (spec §3, §4.3).
package queue

import (
	"fmt"
	"time"
)

// Error is a stable-string sentinel error matching the spec's error-code
// contract.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrQueueMismatch is returned when an oracle's queue binding does not
	// match the queue it is presented against.
	ErrQueueMismatch Error = "EQueueMismatch"
	// ErrInvalidAuthority is returned when the caller is not the queue authority.
	ErrInvalidAuthority Error = "EInvalidAuthority"
	// ErrOracleInvalid is returned when an oracle's attestation has expired.
	ErrOracleInvalid Error = "EOracleInvalid"
	// ErrInvalidMinAttestations is returned when min_attestations is not positive.
	ErrInvalidMinAttestations Error = "EInvalidMinAttestations"
	// ErrInvalidOracleValidityLength is returned when oracle_validity_length_ms is not positive.
	ErrInvalidOracleValidityLength Error = "EInvalidOracleValidityLength"
)

// ID identifies a Queue or Oracle object. The host chain's real allocator is
// out of scope (spec §1); this module only needs a comparable, stable key.
type ID [32]byte

// Queue is the registry of admitted Oracles, as defined in spec §3.
type Queue struct {
	ID                     ID
	QueueKey               [32]byte
	Authority              string
	Name                   string
	Fee                    uint64
	FeeRecipient           string
	MinAttestations        uint32
	OracleValidityLengthMs uint64
	GuardianQueueID        ID
	IsGuardian             bool

	existingOracles map[ID][32]byte // oracle_id -> oracle_key
	feeTypes        map[string]struct{}
	lastOverrideMs  uint64
}

// Config bundles the authority-settable fields used by New and SetConfigs.
type Config struct {
	Authority              string
	Name                   string
	Fee                    uint64
	FeeRecipient           string
	MinAttestations        uint32
	OracleValidityLengthMs uint64
	GuardianQueueID        ID
	IsGuardian             bool
}

// New constructs a Queue with an empty oracle set and fee-type set,
// enforcing the invariants from spec §3: min_attestations > 0 and
// oracle_validity_length_ms > 0.
func New(id ID, queueKey [32]byte, cfg Config) (*Queue, error) {
	if cfg.MinAttestations == 0 {
		return nil, ErrInvalidMinAttestations
	}
	if cfg.OracleValidityLengthMs == 0 {
		return nil, ErrInvalidOracleValidityLength
	}

	return &Queue{
		ID:                     id,
		QueueKey:               queueKey,
		Authority:              cfg.Authority,
		Name:                   cfg.Name,
		Fee:                    cfg.Fee,
		FeeRecipient:           cfg.FeeRecipient,
		MinAttestations:        cfg.MinAttestations,
		OracleValidityLengthMs: cfg.OracleValidityLengthMs,
		GuardianQueueID:        cfg.GuardianQueueID,
		IsGuardian:             cfg.IsGuardian,
		existingOracles:        make(map[ID][32]byte),
		feeTypes:                make(map[string]struct{}),
	}, nil
}

// SetConfigs updates the mutable governance fields. caller must match
// Authority.
func (q *Queue) SetConfigs(caller string, cfg Config) error {
	if caller != q.Authority {
		return ErrInvalidAuthority
	}
	if cfg.MinAttestations == 0 {
		return ErrInvalidMinAttestations
	}
	if cfg.OracleValidityLengthMs == 0 {
		return ErrInvalidOracleValidityLength
	}

	q.Name = cfg.Name
	q.Fee = cfg.Fee
	q.FeeRecipient = cfg.FeeRecipient
	q.MinAttestations = cfg.MinAttestations
	q.OracleValidityLengthMs = cfg.OracleValidityLengthMs
	q.GuardianQueueID = cfg.GuardianQueueID
	q.IsGuardian = cfg.IsGuardian
	return nil
}

// SetAuthority transfers authority over the queue.
func (q *Queue) SetAuthority(caller, newAuthority string) error {
	if caller != q.Authority {
		return ErrInvalidAuthority
	}
	q.Authority = newAuthority
	return nil
}

// AddFeeCoin registers a coin type as eligible to pay the queue's fee.
func (q *Queue) AddFeeCoin(caller, coinType string) error {
	if caller != q.Authority {
		return ErrInvalidAuthority
	}
	q.feeTypes[coinType] = struct{}{}
	return nil
}

// RemoveFeeCoin deregisters a coin type.
func (q *Queue) RemoveFeeCoin(caller, coinType string) error {
	if caller != q.Authority {
		return ErrInvalidAuthority
	}
	delete(q.feeTypes, coinType)
	return nil
}

// HasFeeCoin reports whether coinType is an accepted fee coin.
func (q *Queue) HasFeeCoin(coinType string) bool {
	_, ok := q.feeTypes[coinType]
	return ok
}

// IsMember reports whether oracleID is present in existing_oracles.
// submit.Engine.Run and aggregator.Aggregator.AdmitUpdate do not call it:
// they check only the oracle's queue binding and expiry before signature
// recovery.
func (q *Queue) IsMember(oracleID ID) bool {
	_, ok := q.existingOracles[oracleID]
	return ok
}

// OracleKey returns the registered oracle_key for a member oracle.
func (q *Queue) OracleKey(oracleID ID) ([32]byte, bool) {
	key, ok := q.existingOracles[oracleID]
	return key, ok
}

// OverrideOracle is the sole path by which (secp256k1_key, mr_enclave,
// expiration_time_ms) of a member Oracle may change (spec §4.3). It inserts
// the oracle into existing_oracles if absent, preserving oracle_key across
// overrides, and records last_queue_override_ms. now is the host clock at
// call time; per §9's replay-of-admin-overrides note, an override with
// newExpirationMs <= now is rejected.
func (q *Queue) OverrideOracle(caller string, oracle *Oracle, newSecpKey [64]byte, newMrEnclave [32]byte, newExpirationMs uint64, now time.Time) error {
	if caller != q.Authority {
		return ErrInvalidAuthority
	}
	if oracle.QueueID != q.ID {
		return ErrQueueMismatch
	}
	nowMs := uint64(now.UnixMilli())
	if newExpirationMs <= nowMs {
		return ErrOracleInvalid
	}

	oracle.Secp256k1Key = newSecpKey
	oracle.MrEnclave = newMrEnclave
	oracle.ExpirationTimeMs = newExpirationMs

	q.existingOracles[oracle.ID] = oracle.OracleKey
	q.lastOverrideMs = nowMs
	return nil
}

// LastOverrideMs returns the timestamp of the most recent override.
func (q *Queue) LastOverrideMs() uint64 {
	return q.lastOverrideMs
}

// String implements fmt.Stringer for logging.
func (q *Queue) String() string {
	return fmt.Sprintf("Queue{id=%x name=%q min_attestations=%d oracles=%d}", q.ID, q.Name, q.MinAttestations, len(q.existingOracles))
}
