package domain

import (
	"context"
	"time"
)

// TickStore persists quote history. Implementations must tolerate empty
// batches; ordering within a batch is not significant.
type TickStore interface {
	SaveTicks(ctx context.Context, ticks []Tick) error
	// QueryRange returns ticks for a symbol in [start, end], ordered by time.
	QueryRange(ctx context.Context, symbol string, start, end time.Time) ([]Tick, error)
	// QueryCandles returns 1-minute OHLCV aggregates for a symbol in [start, end].
	QueryCandles(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error)
	// ListBefore and DeleteBefore support archival of aged-out history.
	ListBefore(ctx context.Context, before time.Time) ([]Tick, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OpportunityStore records detected opportunities for later analysis.
type OpportunityStore interface {
	Insert(ctx context.Context, opp Opportunity) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
}

// BlobWriter uploads an archive object. Implemented by the S3 blob package.
type BlobWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
