// Package client implements this module's boundary collaborators: RPC
// discovery of a queue's committee, a Crossbar websocket subscriber, and the
// pure request-assembly step feeding internal/submit (spec §6).
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"oraclewatcher/internal/queue"
)

// Discoverer enumerates a queue and its committee from the host chain.
type Discoverer interface {
	FetchQueue(ctx context.Context, queueID queue.ID) (queue.Queue, error)
	FetchOracles(ctx context.Context, queueID queue.ID) ([]queue.Oracle, error)
}

// DiscoveryOptions parameterise the RPC discoverer.
type DiscoveryOptions struct {
	RPCURL  string
	Timeout time.Duration
}

// Discovery reads queue and oracle objects over a generic JSON-RPC 2.0
// transport. The host chain's object-read method names are placeholders;
// only the transport and decode surface belong to this module (spec §6).
type Discovery struct {
	opts      DiscoveryOptions
	logger    zerolog.Logger
	client    *rpc.Client
	clientMux sync.Mutex
}

// NewDiscovery builds a new RPC discoverer.
func NewDiscovery(opts DiscoveryOptions, logger zerolog.Logger) *Discovery {
	return &Discovery{opts: opts, logger: logger.With().Str("component", "discovery").Logger()}
}

type rpcQueueObject struct {
	QueueKey               hexutil.Bytes  `json:"queueKey"`
	Authority              string         `json:"authority"`
	Name                   string         `json:"name"`
	Fee                    hexutil.Uint64 `json:"fee"`
	FeeRecipient           string         `json:"feeRecipient"`
	MinAttestations        hexutil.Uint64 `json:"minAttestations"`
	OracleValidityLengthMs hexutil.Uint64 `json:"oracleValidityLengthMs"`
	GuardianQueueID        hexutil.Bytes  `json:"guardianQueueId"`
	IsGuardian             bool           `json:"isGuardian"`
}

type rpcOracleObject struct {
	OracleID         hexutil.Bytes  `json:"oracleId"`
	OracleKey        hexutil.Bytes  `json:"oracleKey"`
	Secp256k1Key     hexutil.Bytes  `json:"secp256k1Key"`
	MrEnclave        hexutil.Bytes  `json:"mrEnclave"`
	ExpirationTimeMs hexutil.Uint64 `json:"expirationTimeMs"`
}

// FetchQueue reads a queue's configuration.
func (d *Discovery) FetchQueue(ctx context.Context, queueID queue.ID) (queue.Queue, error) {
	c, err := d.getClient(ctx)
	if err != nil {
		return queue.Queue{}, err
	}

	timeout := d.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var raw rpcQueueObject
	if err := c.CallContext(callCtx, &raw, "oracle_getQueue", hexutil.Encode(queueID[:])); err != nil {
		return queue.Queue{}, err
	}

	if len(raw.QueueKey) != 32 {
		return queue.Queue{}, errors.New("discovery: malformed queue key")
	}
	var queueKey [32]byte
	copy(queueKey[:], raw.QueueKey)

	var guardian queue.ID
	if len(raw.GuardianQueueID) == 32 {
		copy(guardian[:], raw.GuardianQueueID)
	}

	q, err := queue.New(queueID, queueKey, queue.Config{
		Authority:              raw.Authority,
		Name:                   raw.Name,
		Fee:                    uint64(raw.Fee),
		FeeRecipient:           raw.FeeRecipient,
		MinAttestations:        uint32(raw.MinAttestations),
		OracleValidityLengthMs: uint64(raw.OracleValidityLengthMs),
		GuardianQueueID:        guardian,
		IsGuardian:             raw.IsGuardian,
	})
	if err != nil {
		return queue.Queue{}, err
	}
	return *q, nil
}

// FetchOracles reads a queue's registered committee.
func (d *Discovery) FetchOracles(ctx context.Context, queueID queue.ID) ([]queue.Oracle, error) {
	c, err := d.getClient(ctx)
	if err != nil {
		return nil, err
	}

	timeout := d.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var raws []rpcOracleObject
	if err := c.CallContext(callCtx, &raws, "oracle_getOracles", hexutil.Encode(queueID[:])); err != nil {
		return nil, err
	}

	oracles := make([]queue.Oracle, 0, len(raws))
	for _, raw := range raws {
		o, err := decodeOracle(queueID, raw)
		if err != nil {
			return nil, err
		}
		oracles = append(oracles, o)
	}
	return oracles, nil
}

func decodeOracle(queueID queue.ID, raw rpcOracleObject) (queue.Oracle, error) {
	if len(raw.OracleID) != 32 || len(raw.OracleKey) != 32 {
		return queue.Oracle{}, errors.New("discovery: malformed oracle id")
	}
	var id queue.ID
	copy(id[:], raw.OracleID)
	var oracleKey [32]byte
	copy(oracleKey[:], raw.OracleKey)

	var secp [64]byte
	copy(secp[:], raw.Secp256k1Key)
	var mrEnclave [32]byte
	copy(mrEnclave[:], raw.MrEnclave)

	return queue.Oracle{
		ID:               id,
		QueueID:          queueID,
		OracleKey:        oracleKey,
		Secp256k1Key:     secp,
		MrEnclave:        mrEnclave,
		ExpirationTimeMs: uint64(raw.ExpirationTimeMs),
	}, nil
}

func (d *Discovery) getClient(ctx context.Context) (*rpc.Client, error) {
	d.clientMux.Lock()
	defer d.clientMux.Unlock()

	if d.client != nil {
		return d.client, nil
	}
	if d.opts.RPCURL == "" {
		return nil, errors.New("discovery: rpc url not configured")
	}

	c, err := rpc.DialContext(ctx, d.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	d.client = c
	return c, nil
}

var _ Discoverer = (*Discovery)(nil)
