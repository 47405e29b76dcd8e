package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"oraclewatcher/internal/aggregator"
	"oraclewatcher/internal/decimal"
	"oraclewatcher/internal/events"
	"oraclewatcher/internal/hash"
	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/storage"
)

// AggregateOptions configure a single single-oracle aggregator update run
// through a locally discovered queue and oracle.
type AggregateOptions struct {
	QueueID          queue.ID
	FeedHash         [32]byte
	MinSampleSize    int
	MaxVariance      uint64
	MinResponses     uint32
	OracleID         queue.ID
	Value            int64
	Neg              bool
	TimestampSeconds uint64
	FeeCoinType      string
	FeeAmount        uint64
	FeePayer         string
}

// Aggregate discovers the queue and one oracle, admits a single update
// through internal/aggregator's ring-buffer pipeline, and persists the
// accepted sample. It is the offline counterpart to the live service's
// submit/consumer path for single-oracle aggregator updates, which Crossbar
// does not carry (spec §4.7 has no multi-oracle committee step).
func (a *App) Aggregate(ctx context.Context, opts AggregateOptions, priv *secp256k1.PrivateKey) (aggregator.Summary, bool, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return aggregator.Summary{}, false, err
	}
	if closeStore != nil {
		defer closeStore()
	}

	discoverer := a.newDiscoverer()
	q, err := discoverer.FetchQueue(ctx, opts.QueueID)
	if err != nil {
		return aggregator.Summary{}, false, fmt.Errorf("fetch queue: %w", err)
	}

	oracles, err := discoverer.FetchOracles(ctx, opts.QueueID)
	if err != nil {
		return aggregator.Summary{}, false, fmt.Errorf("fetch oracles: %w", err)
	}

	var oracle *queue.Oracle
	for i := range oracles {
		if oracles[i].ID == opts.OracleID {
			oracle = &oracles[i]
			break
		}
	}
	if oracle == nil {
		return aggregator.Summary{}, false, fmt.Errorf("oracle %x not found in queue %x", opts.OracleID, opts.QueueID)
	}

	sink := events.NewZerologSink(a.Logger)
	agg := aggregator.New(&q, aggregator.Config{
		FeedHash:      opts.FeedHash,
		MinSampleSize: opts.MinSampleSize,
		MaxVariance:   opts.MaxVariance,
		MinResponses:  opts.MinResponses,
	}, sink)

	magnitude := opts.Value
	if magnitude < 0 {
		magnitude = -magnitude
	}
	value, err := decimal.New(big.NewInt(magnitude), opts.Neg)
	if err != nil {
		return aggregator.Summary{}, false, err
	}

	var slothash [32]byte
	nowMs := uint64(time.Now().UnixMilli())

	var sig []byte
	if priv != nil {
		message, _, msgErr := hash.UpdateMessage(q.QueueKey, opts.FeedHash, value, slothash, opts.MaxVariance, opts.MinResponses, opts.TimestampSeconds)
		if msgErr != nil {
			return aggregator.Summary{}, false, msgErr
		}
		sig = signCompact(priv, message)
	} else {
		sig = make([]byte, 65)
	}

	fee := aggregator.FeeTransfer{CoinType: opts.FeeCoinType, Amount: opts.FeeAmount, Payer: opts.FeePayer}
	if err := agg.AdmitUpdate(oracle, sig, value, slothash, opts.TimestampSeconds, nowMs, fee); err != nil {
		return aggregator.Summary{}, false, fmt.Errorf("admit update: %w", err)
	}

	if store != nil {
		record := storage.AggregatorSampleRecord{
			Queue:       q.ID,
			FeedHash:    opts.FeedHash,
			Oracle:      oracle.ID,
			Value:       value,
			TimestampMs: opts.TimestampSeconds * 1000,
		}
		if err := store.InsertSample(ctx, record); err != nil {
			a.Logger.Error().Err(err).Msg("failed to persist aggregator sample")
		}
	}

	summary, ok := agg.Summary()
	return summary, ok, nil
}
