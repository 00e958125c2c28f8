package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crossvenue/arbscan/internal/domain"
)

// quoteTTL keeps stale venues from lingering in the cache after a restart or
// a dropped venue.
const quoteTTL = 5 * time.Minute

// QuoteCache implements domain.QuoteCache on Redis hashes. Each venue/symbol
// pair is one hash at "quote:{venue}:{symbol}" with bid/ask/last/volume/ts
// fields.
type QuoteCache struct {
	rdb *redis.Client
}

func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(venueID, symbol string) string {
	return "quote:" + venueID + ":" + symbol
}

// SetQuote stores the latest quote for its venue/symbol pair.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote) error {
	key := quoteKey(q.VenueID, q.Symbol)
	fields := map[string]interface{}{
		"bid":    strconv.FormatFloat(q.Bid, 'f', -1, 64),
		"ask":    strconv.FormatFloat(q.Ask, 'f', -1, 64),
		"last":   strconv.FormatFloat(q.Last, 'f', -1, 64),
		"volume": strconv.FormatFloat(q.Volume, 'f', -1, 64),
		"ts":     strconv.FormatInt(q.ObservedAt.UnixNano(), 10),
	}

	pipe := qc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", key, err)
	}
	return nil
}

// GetQuote retrieves the latest quote, or domain.ErrNotFound when the pair
// was never cached or has expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, venueID, symbol string) (domain.Quote, error) {
	key := quoteKey(venueID, symbol)
	vals, err := qc.rdb.HGetAll(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", key, err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, domain.ErrNotFound
	}

	q := domain.Quote{VenueID: venueID, Symbol: symbol}
	if q.Bid, err = strconv.ParseFloat(vals["bid"], 64); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse bid %s: %w", key, err)
	}
	if q.Ask, err = strconv.ParseFloat(vals["ask"], 64); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse ask %s: %w", key, err)
	}
	q.Last, _ = strconv.ParseFloat(vals["last"], 64)
	q.Volume, _ = strconv.ParseFloat(vals["volume"], 64)
	if ts, err := strconv.ParseInt(vals["ts"], 10, 64); err == nil {
		q.ObservedAt = time.Unix(0, ts).UTC()
	}
	return q, nil
}

var _ domain.QuoteCache = (*QuoteCache)(nil)
