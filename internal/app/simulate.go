package app

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"oraclewatcher/internal/consumer"
	"oraclewatcher/internal/decimal"
	"oraclewatcher/internal/events"
	"oraclewatcher/internal/hash"
	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/service"
	"oraclewatcher/internal/submit"
)

// SimulateQuote drives two synthetic committee submissions (previous, then
// current) through the engine and verifier, using a single locally
// generated oracle key rather than the discovered committee. It exists to
// exercise the deviation-alert path offline, without a live RPC endpoint or
// Crossbar connection.
func (a *App) SimulateQuote(ctx context.Context, feedID [32]byte, previous, current int64, slot, timestampSeconds uint64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	q, err := queue.New(queue.ID{0xAB}, [32]byte{0xAB}, queue.Config{
		Authority:              "simulate",
		MinAttestations:        1,
		OracleValidityLengthMs: 3_600_000,
	})
	if err != nil {
		return err
	}

	oracle, priv := newSimulatedOracle(q)
	sink := events.NewZerologSink(a.Logger)
	engine := submit.NewEngine(q, sink)
	verifier := consumer.New(q.QueueKey, sink)
	committee := []*queue.Oracle{oracle}

	svc := service.New(a.Config, nil, nil, engine, verifier, committee, nil, nil, notifier, a.Logger)

	if err := simulateSubmission(ctx, svc, oracle, priv, feedID, previous, slot, timestampSeconds); err != nil {
		return err
	}
	return simulateSubmission(ctx, svc, oracle, priv, feedID, current, slot+1, timestampSeconds+1)
}

func simulateSubmission(ctx context.Context, svc *service.Service, oracle *queue.Oracle, priv *secp256k1.PrivateKey, feedID [32]byte, value int64, slot, timestampSeconds uint64) error {
	neg := value < 0
	magnitude := value
	if neg {
		magnitude = -magnitude
	}

	decValue, err := decimal.New(big.NewInt(magnitude), neg)
	if err != nil {
		return err
	}
	feedQuote := hash.FeedQuote{FeedID: feedID, Value: decValue, MinOracleSamples: 1}

	message, _, err := hash.ConsensusMessage(slot, timestampSeconds, []hash.FeedQuote{feedQuote})
	if err != nil {
		return err
	}

	sub := submit.CommitteeSubmission{
		QueueID:          oracle.QueueID,
		OracleIDs:        []queue.ID{oracle.ID},
		Signatures:       [][]byte{signCompact(priv, message)},
		Feeds:            []submit.FeedInput{{FeedID: feedID, Value: big.NewInt(magnitude), Neg: neg, MinOracleSamples: 1}},
		Slot:             slot,
		TimestampSeconds: timestampSeconds,
	}

	bucket := time.Unix(int64(timestampSeconds), 0).UTC()
	return svc.ProcessSubmission(ctx, sub, bucket)
}

func newSimulatedOracle(q *queue.Queue) (*queue.Oracle, *secp256k1.PrivateKey) {
	var scalar [32]byte
	scalar[31] = 0x2a
	priv := secp256k1.PrivKeyFromBytes(scalar[:])

	uncompressed := priv.PubKey().SerializeUncompressed()
	var xy [64]byte
	copy(xy[:], uncompressed[1:65])

	o := queue.InitOracle(q, queue.ID{0x2a}, [32]byte{0x2a})
	o.Secp256k1Key = xy
	o.ExpirationTimeMs = 4_102_444_800_000
	return o, priv
}

func signCompact(priv *secp256k1.PrivateKey, message [32]byte) []byte {
	compact := ecdsa.SignCompact(priv, message[:], false)
	sig := make([]byte, 65)
	copy(sig[0:32], compact[1:33])
	copy(sig[32:64], compact[33:65])
	sig[64] = compact[0] - 27
	return sig
}
