package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/submit"
)

// CrossbarOptions parameterise the websocket subscriber.
type CrossbarOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// Crossbar subscribes to the off-chain aggregation service's job-response
// stream. Only the subscribe/decode surface is implemented; the signing
// committee behind the stream is outside this module (spec §1).
type Crossbar struct {
	opts   CrossbarOptions
	logger zerolog.Logger
	conn   *websocket.Conn
}

// NewCrossbar constructs a Crossbar client.
func NewCrossbar(opts CrossbarOptions, logger zerolog.Logger) *Crossbar {
	return &Crossbar{opts: opts, logger: logger.With().Str("component", "crossbar").Logger()}
}

// Connect dials the Crossbar websocket endpoint.
func (c *Crossbar) Connect(ctx context.Context) error {
	header := http.Header{}
	if c.opts.UserAgent != "" {
		header.Set("User-Agent", c.opts.UserAgent)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.requestTimeout()}
	conn, _, err := dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		return fmt.Errorf("crossbar: dial: %w", err)
	}
	c.conn = conn
	return nil
}

// Close tears down the websocket connection.
func (c *Crossbar) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// jobResponse is the Crossbar job-response wire envelope.
type jobResponse struct {
	QueueID          string         `json:"queueId"`
	OracleIDs        []string       `json:"oracleIds"`
	Signatures       []string       `json:"signatures"`
	Feeds            []feedResponse `json:"feeds"`
	Slot             uint64         `json:"slot"`
	TimestampSeconds uint64         `json:"timestampSeconds"`
}

type feedResponse struct {
	FeedID           string `json:"feedId"`
	Value            string `json:"value"`
	Neg              bool   `json:"neg"`
	MinOracleSamples uint8  `json:"minOracleSamples"`
}

// Next blocks for the next job response and decodes it into a
// submit.CommitteeSubmission.
func (c *Crossbar) Next(ctx context.Context) (submit.CommitteeSubmission, error) {
	if c.conn == nil {
		return submit.CommitteeSubmission{}, fmt.Errorf("crossbar: not connected")
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	}

	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		return submit.CommitteeSubmission{}, fmt.Errorf("crossbar: read: %w", err)
	}

	var resp jobResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return submit.CommitteeSubmission{}, fmt.Errorf("crossbar: decode: %w", err)
	}

	return decodeJobResponse(resp)
}

func decodeJobResponse(resp jobResponse) (submit.CommitteeSubmission, error) {
	queueID, err := decodeID(resp.QueueID)
	if err != nil {
		return submit.CommitteeSubmission{}, fmt.Errorf("crossbar: queue id: %w", err)
	}

	oracleIDs := make([]queue.ID, len(resp.OracleIDs))
	for i, raw := range resp.OracleIDs {
		id, err := decodeID(raw)
		if err != nil {
			return submit.CommitteeSubmission{}, fmt.Errorf("crossbar: oracle id[%d]: %w", i, err)
		}
		oracleIDs[i] = id
	}

	signatures := make([][]byte, len(resp.Signatures))
	for i, raw := range resp.Signatures {
		sig, err := decodeBytes(raw)
		if err != nil {
			return submit.CommitteeSubmission{}, fmt.Errorf("crossbar: signature[%d]: %w", i, err)
		}
		signatures[i] = sig
	}

	feeds := make([]submit.FeedInput, len(resp.Feeds))
	for i, f := range resp.Feeds {
		feedID, err := decodeID(f.FeedID)
		if err != nil {
			return submit.CommitteeSubmission{}, fmt.Errorf("crossbar: feed id[%d]: %w", i, err)
		}
		value, ok := new(big.Int).SetString(f.Value, 10)
		if !ok {
			return submit.CommitteeSubmission{}, fmt.Errorf("crossbar: feed value[%d]: malformed", i)
		}
		feeds[i] = submit.FeedInput{
			FeedID:           feedID,
			Value:            value,
			Neg:              f.Neg,
			MinOracleSamples: f.MinOracleSamples,
		}
	}

	return submit.CommitteeSubmission{
		QueueID:          queueID,
		OracleIDs:        oracleIDs,
		Signatures:       signatures,
		Feeds:            feeds,
		Slot:             resp.Slot,
		TimestampSeconds: resp.TimestampSeconds,
	}, nil
}

func (c *Crossbar) requestTimeout() time.Duration {
	if c.opts.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.opts.Timeout
}
