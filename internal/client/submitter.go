package client

import (
	"context"
	"fmt"

	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/submit"
)

// Signer represents the out-of-scope transaction-submission step beyond
// request assembly: signing and broadcasting a submit.Request to the host
// chain (spec §1, §6).
type Signer interface {
	Sign(ctx context.Context, req submit.Request) ([]byte, error)
}

// Assemble maps a Crossbar job response onto a submit.Request, resolving
// each committee member's oracle id against the currently known roster.
// It performs no verification itself; that is internal/submit's job.
func Assemble(sub submit.CommitteeSubmission, committee []*queue.Oracle, nowMs uint64) (submit.Request, error) {
	if len(sub.OracleIDs) != len(sub.Signatures) {
		return submit.Request{}, submit.ErrInvalidLength
	}

	byID := make(map[queue.ID]*queue.Oracle, len(committee))
	for _, o := range committee {
		byID[o.ID] = o
	}

	oracles := make([]*queue.Oracle, len(sub.OracleIDs))
	for i, id := range sub.OracleIDs {
		o, ok := byID[id]
		if !ok {
			return submit.Request{}, fmt.Errorf("submitter: unknown oracle id %x", id)
		}
		oracles[i] = o
	}

	return submit.Request{
		Oracles:          oracles,
		Signatures:       sub.Signatures,
		Feeds:            sub.Feeds,
		Slot:             sub.Slot,
		TimestampSeconds: sub.TimestampSeconds,
		NowMs:            nowMs,
	}, nil
}
