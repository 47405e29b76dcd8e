package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oraclewatcher/internal/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertQuoteSQL = `INSERT INTO quotes (
        queue_id,
        feed_id,
        value,
        timestamp_ms,
        slot,
        oracles
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (queue_id, feed_id) DO UPDATE
    SET
        value        = EXCLUDED.value,
        timestamp_ms = EXCLUDED.timestamp_ms,
        slot         = EXCLUDED.slot,
        oracles      = EXCLUDED.oracles
    WHERE quotes.timestamp_ms < EXCLUDED.timestamp_ms
       OR (quotes.timestamp_ms = EXCLUDED.timestamp_ms AND quotes.slot < EXCLUDED.slot);`

	listQuotesBetweenSQL = `SELECT
        queue_id, feed_id, value, timestamp_ms, slot, oracles, created_at
    FROM quotes
    WHERE feed_id = $1
      AND timestamp_ms >= $2
      AND timestamp_ms < $3
    ORDER BY timestamp_ms;`

	listRecentQuotesSQL = `SELECT
        queue_id, feed_id, value, timestamp_ms, slot, oracles, created_at
    FROM quotes
    WHERE feed_id = $1
    ORDER BY timestamp_ms DESC
    LIMIT $2;`

	countQuotesSQL = `SELECT COUNT(*) FROM quotes;`

	insertEventSQL = `INSERT INTO events (kind, payload) VALUES ($1, $2)
    RETURNING id, kind, payload, created_at;`

	listRecentEventsSQL = `SELECT id, kind, payload, created_at
    FROM events
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteEventsBeforeSQL = `DELETE FROM events WHERE created_at < $1;`

	insertAggregatorSampleSQL = `INSERT INTO aggregator_samples (
        queue_id, feed_hash, oracle_id, value, timestamp_ms
    ) VALUES ($1,$2,$3,$4,$5);`

	listRecentAggregatorSamplesSQL = `SELECT queue_id, feed_hash, oracle_id, value, timestamp_ms, created_at
    FROM aggregator_samples
    WHERE feed_hash = $1
    ORDER BY timestamp_ms DESC
    LIMIT $2;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// QuoteStore defines operations for admitted-quote persistence.
type QuoteStore interface {
	UpsertQuote(ctx context.Context, quote QuoteRecord) error
	ListQuotesBetween(ctx context.Context, feedID [32]byte, from, to time.Time) ([]QuoteRecord, error)
	ListRecentQuotes(ctx context.Context, feedID [32]byte, limit int) ([]QuoteRecord, error)
	CountQuotes(ctx context.Context) (int64, error)
}

// EventStore defines operations for event-log auditing.
type EventStore interface {
	InsertEvent(ctx context.Context, event EventRecord) (EventRecord, error)
	ListRecentEvents(ctx context.Context, limit int) ([]EventRecord, error)
	DeleteEventsBefore(ctx context.Context, olderThan time.Time) error
}

// AggregatorStore defines operations for aggregator sample persistence.
type AggregatorStore interface {
	InsertSample(ctx context.Context, sample AggregatorSampleRecord) error
	ListRecentSamples(ctx context.Context, feedHash [32]byte, limit int) ([]AggregatorSampleRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to quotes, events, and aggregator samples.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock is best-effort; the session-scoped lock releases on disconnect regardless.
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertQuote persists an admitted quote, applying the same
// (timestamp_ms, slot) replacement rule as internal/consumer.Verifier so
// that concurrent writers never regress a feed's stored value.
func (s *Store) UpsertQuote(ctx context.Context, quote QuoteRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	oracles := make([]string, len(quote.Oracles))
	for i, id := range quote.Oracles {
		oracles[i] = hex.EncodeToString(id[:])
	}

	_, execErr := pool.Exec(ctx, upsertQuoteSQL,
		hex.EncodeToString(quote.Queue[:]),
		hex.EncodeToString(quote.FeedID[:]),
		quote.Value.String(),
		quote.TimestampMs,
		quote.Slot,
		oracles,
	)
	if execErr != nil {
		return fmt.Errorf("upsert quote: %w", execErr)
	}
	return nil
}

// ListQuotesBetween lists a feed's quotes admitted within a timestamp window.
func (s *Store) ListQuotesBetween(ctx context.Context, feedID [32]byte, from, to time.Time) ([]QuoteRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listQuotesBetweenSQL, hex.EncodeToString(feedID[:]), from.UnixMilli(), to.UnixMilli())
	if queryErr != nil {
		return nil, fmt.Errorf("list quotes between: %w", queryErr)
	}
	defer rows.Close()

	return scanQuotes(rows)
}

// ListRecentQuotes lists a feed's most recently admitted quotes.
func (s *Store) ListRecentQuotes(ctx context.Context, feedID [32]byte, limit int) ([]QuoteRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentQuotesSQL, hex.EncodeToString(feedID[:]), limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent quotes: %w", queryErr)
	}
	defer rows.Close()

	return scanQuotes(rows)
}

// CountQuotes counts stored quotes.
func (s *Store) CountQuotes(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countQuotesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count quotes: %w", scanErr)
	}
	return count, nil
}

func scanQuotes(rows pgx.Rows) ([]QuoteRecord, error) {
	quotes := make([]QuoteRecord, 0)
	for rows.Next() {
		var (
			queueHex, feedHex, valueStr string
			timestampMs                 uint64
			slot                        uint64
			oracleHexes                 []string
			createdAt                   time.Time
		)
		if err := rows.Scan(&queueHex, &feedHex, &valueStr, &timestampMs, &slot, &oracleHexes, &createdAt); err != nil {
			return nil, err
		}

		rec, err := decodeQuoteRow(queueHex, feedHex, valueStr, timestampMs, slot, oracleHexes, createdAt)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return quotes, nil
}

func decodeQuoteRow(queueHex, feedHex, valueStr string, timestampMs, slot uint64, oracleHexes []string, createdAt time.Time) (QuoteRecord, error) {
	var rec QuoteRecord
	if err := decodeFixed32(queueHex, &rec.Queue); err != nil {
		return QuoteRecord{}, fmt.Errorf("decode queue id: %w", err)
	}
	if err := decodeFixed32(feedHex, &rec.FeedID); err != nil {
		return QuoteRecord{}, fmt.Errorf("decode feed id: %w", err)
	}

	magnitude, ok := new(big.Int).SetString(valueStr, 10)
	if !ok {
		return QuoteRecord{}, fmt.Errorf("parse quote value: %q", valueStr)
	}
	neg := magnitude.Sign() < 0
	magnitude.Abs(magnitude)
	value, err := decimal.New(magnitude, neg)
	if err != nil {
		return QuoteRecord{}, fmt.Errorf("decode quote value: %w", err)
	}

	rec.Value = value
	rec.TimestampMs = timestampMs
	rec.Slot = slot
	rec.CreatedAt = createdAt
	rec.Oracles = make([][32]byte, len(oracleHexes))
	for i, h := range oracleHexes {
		if err := decodeFixed32(h, &rec.Oracles[i]); err != nil {
			return QuoteRecord{}, fmt.Errorf("decode oracle id: %w", err)
		}
	}
	return rec, nil
}

func decodeFixed32(h string, dst *[32]byte) error {
	b, err := hex.DecodeString(h)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(dst[:], b)
	return nil
}

// InsertEvent persists an event-log entry.
func (s *Store) InsertEvent(ctx context.Context, event EventRecord) (EventRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return EventRecord{}, err
	}

	row := pool.QueryRow(ctx, insertEventSQL, event.Kind, []byte(event.Payload))

	var rec EventRecord
	var payload []byte
	if scanErr := row.Scan(&rec.ID, &rec.Kind, &payload, &rec.CreatedAt); scanErr != nil {
		return EventRecord{}, fmt.Errorf("insert event: %w", scanErr)
	}
	rec.Payload = json.RawMessage(payload)
	return rec, nil
}

// ListRecentEvents lists the most recently emitted events.
func (s *Store) ListRecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]EventRecord, 0, limit)
	for rows.Next() {
		var rec EventRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.Kind, &payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Payload = json.RawMessage(payload)
		events = append(events, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// DeleteEventsBefore deletes historical events.
func (s *Store) DeleteEventsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteEventsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete events before: %w", execErr)
	}
	return nil
}

// InsertSample persists an accepted aggregator update.
func (s *Store) InsertSample(ctx context.Context, sample AggregatorSampleRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, execErr := pool.Exec(ctx, insertAggregatorSampleSQL,
		hex.EncodeToString(sample.Queue[:]),
		hex.EncodeToString(sample.FeedHash[:]),
		hex.EncodeToString(sample.Oracle[:]),
		sample.Value.String(),
		sample.TimestampMs,
	)
	if execErr != nil {
		return fmt.Errorf("insert aggregator sample: %w", execErr)
	}
	return nil
}

// ListRecentSamples lists a feed's most recently accepted aggregator updates.
func (s *Store) ListRecentSamples(ctx context.Context, feedHash [32]byte, limit int) ([]AggregatorSampleRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAggregatorSamplesSQL, hex.EncodeToString(feedHash[:]), limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent aggregator samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]AggregatorSampleRecord, 0, limit)
	for rows.Next() {
		var (
			queueHex, feedHex, oracleHex, valueStr string
			timestampMs                            uint64
			createdAt                              time.Time
		)
		if err := rows.Scan(&queueHex, &feedHex, &oracleHex, &valueStr, &timestampMs, &createdAt); err != nil {
			return nil, err
		}

		var rec AggregatorSampleRecord
		if err := decodeFixed32(queueHex, &rec.Queue); err != nil {
			return nil, fmt.Errorf("decode queue id: %w", err)
		}
		if err := decodeFixed32(feedHex, &rec.FeedHash); err != nil {
			return nil, fmt.Errorf("decode feed hash: %w", err)
		}
		if err := decodeFixed32(oracleHex, &rec.Oracle); err != nil {
			return nil, fmt.Errorf("decode oracle id: %w", err)
		}
		magnitude, ok := new(big.Int).SetString(valueStr, 10)
		if !ok {
			return nil, fmt.Errorf("parse aggregator sample value: %q", valueStr)
		}
		neg := magnitude.Sign() < 0
		magnitude.Abs(magnitude)
		value, err := decimal.New(magnitude, neg)
		if err != nil {
			return nil, fmt.Errorf("decode aggregator sample value: %w", err)
		}
		rec.Value = value
		rec.TimestampMs = timestampMs
		rec.CreatedAt = createdAt

		samples = append(samples, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}
