package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crossvenue/arbscan/internal/domain"
)

// TickStore implements domain.TickStore on the ticks table.
type TickStore struct {
	pool *pgxpool.Pool
}

func NewTickStore(pool *pgxpool.Pool) *TickStore {
	return &TickStore{pool: pool}
}

// SaveTicks writes the batch in a single round trip.
func (s *TickStore) SaveTicks(ctx context.Context, ticks []domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	const query = `
		INSERT INTO ticks (venue_id, symbol, bid, ask, price, volume, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	batch := &pgx.Batch{}
	for _, t := range ticks {
		batch.Queue(query, t.VenueID, t.Symbol, t.Bid, t.Ask, t.Price, t.Volume, t.Timestamp)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range ticks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: save ticks: %w", err)
		}
	}
	return nil
}

// QueryRange returns ticks for the symbol in [from, to), oldest first.
func (s *TickStore) QueryRange(ctx context.Context, symbol string, from, to time.Time) ([]domain.Tick, error) {
	const query = `
		SELECT venue_id, symbol, bid, ask, price, volume, observed_at
		FROM ticks
		WHERE symbol = $1 AND observed_at >= $2 AND observed_at < $3
		ORDER BY observed_at ASC`

	rows, err := s.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: query ticks: %w", err)
	}
	defer rows.Close()

	var ticks []domain.Tick
	for rows.Next() {
		var t domain.Tick
		if err := rows.Scan(&t.VenueID, &t.Symbol, &t.Bid, &t.Ask, &t.Price, &t.Volume, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan tick: %w", err)
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate ticks: %w", err)
	}
	return ticks, nil
}

// QueryCandles aggregates ticks into 1-minute OHLCV buckets across venues.
func (s *TickStore) QueryCandles(ctx context.Context, symbol string, from, to time.Time) ([]domain.Candle, error) {
	const query = `
		SELECT
			date_trunc('minute', observed_at) AS bucket,
			(array_agg(price ORDER BY observed_at ASC))[1]  AS open,
			MAX(price)                                      AS high,
			MIN(price)                                      AS low,
			(array_agg(price ORDER BY observed_at DESC))[1] AS close,
			SUM(volume)                                     AS volume
		FROM ticks
		WHERE symbol = $1 AND observed_at >= $2 AND observed_at < $3
		GROUP BY bucket
		ORDER BY bucket ASC`

	rows, err := s.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: query candles: %w", err)
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		c := domain.Candle{Symbol: symbol}
		if err := rows.Scan(&c.Bucket, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("postgres: scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate candles: %w", err)
	}
	return candles, nil
}

// ListBefore returns every tick observed before the cutoff, oldest first. Used
// by the archiver to stage rows for cold storage.
func (s *TickStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.Tick, error) {
	const query = `
		SELECT venue_id, symbol, bid, ask, price, volume, observed_at
		FROM ticks
		WHERE observed_at < $1
		ORDER BY observed_at ASC`

	rows, err := s.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ticks before: %w", err)
	}
	defer rows.Close()

	var ticks []domain.Tick
	for rows.Next() {
		var t domain.Tick
		if err := rows.Scan(&t.VenueID, &t.Symbol, &t.Bid, &t.Ask, &t.Price, &t.Volume, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan tick: %w", err)
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate ticks: %w", err)
	}
	return ticks, nil
}

// DeleteBefore drops ticks older than the cutoff and reports how many went.
func (s *TickStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ticks WHERE observed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete ticks before: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.TickStore = (*TickStore)(nil)
