package client

import (
	"testing"

	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/submit"
)

func TestAssembleResolvesOraclesByID(t *testing.T) {
	oracle := &queue.Oracle{ID: queue.ID{1}}
	sub := submit.CommitteeSubmission{
		OracleIDs:        []queue.ID{{1}},
		Signatures:       [][]byte{make([]byte, 65)},
		Slot:             1,
		TimestampSeconds: 1,
	}

	req, err := Assemble(sub, []*queue.Oracle{oracle}, 1000)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(req.Oracles) != 1 || req.Oracles[0] != oracle {
		t.Fatalf("expected assembled request to reference the resolved oracle, got %+v", req.Oracles)
	}
}

func TestAssembleRejectsUnknownOracle(t *testing.T) {
	sub := submit.CommitteeSubmission{
		OracleIDs:  []queue.ID{{9}},
		Signatures: [][]byte{make([]byte, 65)},
	}
	if _, err := Assemble(sub, nil, 1000); err == nil {
		t.Fatal("expected error for an oracle id not present in the known committee")
	}
}

func TestAssembleRejectsLengthMismatch(t *testing.T) {
	sub := submit.CommitteeSubmission{
		OracleIDs:  []queue.ID{{1}, {2}},
		Signatures: [][]byte{make([]byte, 65)},
	}
	if _, err := Assemble(sub, nil, 1000); err != submit.ErrInvalidLength {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}
