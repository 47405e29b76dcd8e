package events

import "oraclewatcher/internal/verify"

// VerifyAdapter adapts a Sink to internal/verify.Events, so the signature
// verifier's non-fatal SignatureInvalid observations flow through the same
// event log as everything else.
type VerifyAdapter struct {
	Sink Sink
}

func (a VerifyAdapter) SignatureInvalid(e verify.SignatureInvalid) {
	a.Sink.SignatureInvalid(SignatureInvalid{Signature: e.Signature, OracleID: e.OracleID})
}
