package queue

// Oracle is a single committee member's on-chain attestation record (spec
// §3): its queue binding, its enclave-derived secp256k1 key, the enclave
// measurement it was attested under, and the expiry of that attestation.
type Oracle struct {
	ID               ID
	QueueID          ID
	OracleKey        [32]byte
	Secp256k1Key     [64]byte
	MrEnclave        [32]byte
	ExpirationTimeMs uint64
}

// InitOracle creates a new Oracle bound to queue and records its oracleKey
// in the queue's existing_oracles. Signatures are verified against the
// oracle's Secp256k1Key, not against oracleKey.
// The oracle starts with a zero secp256k1 key and mr_enclave; both are only
// ever set through Queue.OverrideOracle (spec §4.3).
func InitOracle(q *Queue, id ID, oracleKey [32]byte) *Oracle {
	o := &Oracle{
		ID:        id,
		QueueID:   q.ID,
		OracleKey: oracleKey,
	}
	q.existingOracles[id] = oracleKey
	return o
}

// IsExpired reports whether the oracle's attestation is no longer valid at
// the given host-clock time, expressed in milliseconds since epoch.
func (o *Oracle) IsExpired(nowMs uint64) bool {
	return nowMs >= o.ExpirationTimeMs
}
