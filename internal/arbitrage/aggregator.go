package arbitrage

import (
	"context"
	"log/slog"

	"github.com/crossvenue/arbscan/internal/domain"
)

// VenueConnector is the capability set the aggregator needs from a venue.
// Implementations must be safe to call concurrently for distinct symbols.
type VenueConnector interface {
	Name() string
	FetchTicker(ctx context.Context, symbol string) (domain.Quote, error)
	FetchTransferFees(ctx context.Context, asset string) (domain.FeeFragment, error)
}

// Aggregator collects a best-effort snapshot of quotes from a set of venues.
// It holds no state between calls.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(logger *slog.Logger) *Aggregator {
	return &Aggregator{logger: logger.With(slog.String("component", "aggregator"))}
}

type fetchResult struct {
	quote   domain.Quote
	failure *domain.FetchFailure
}

// Collect issues one fetch per (venue, symbol) pair concurrently and returns
// the union of successful quotes plus the recorded failures. A single fetch
// failure never aborts the batch, and no retries happen here; retry policy,
// if any, belongs to the connector.
//
// When ctx is cancelled, outstanding fetches are abandoned and whatever
// quotes completed so far are returned as a partial snapshot. Output ordering
// is unspecified.
func (a *Aggregator) Collect(ctx context.Context, venues []VenueConnector, symbols []string) ([]domain.Quote, []domain.FetchFailure) {
	total := len(venues) * len(symbols)
	if total == 0 {
		return nil, nil
	}

	// Buffered to the fan-out width so abandoned workers never block on send.
	results := make(chan fetchResult, total)

	for _, v := range venues {
		for _, symbol := range symbols {
			v, symbol := v, symbol
			go func() {
				q, err := v.FetchTicker(ctx, symbol)
				if err != nil {
					results <- fetchResult{failure: &domain.FetchFailure{
						VenueID: v.Name(),
						Symbol:  symbol,
						Err:     err,
					}}
					return
				}
				if q.VenueID == "" {
					q.VenueID = v.Name()
				}
				if q.Symbol == "" {
					q.Symbol = symbol
				}
				results <- fetchResult{quote: q}
			}()
		}
	}

	var quotes []domain.Quote
	var failures []domain.FetchFailure
	for received := 0; received < total; received++ {
		select {
		case r := <-results:
			if r.failure != nil {
				a.logger.Debug("fetch failed",
					slog.String("venue", r.failure.VenueID),
					slog.String("symbol", r.failure.Symbol),
					slog.String("error", r.failure.Err.Error()),
				)
				failures = append(failures, *r.failure)
			} else {
				quotes = append(quotes, r.quote)
			}
		case <-ctx.Done():
			// Drain anything already buffered, then hand back the partial
			// snapshot without waiting for stragglers.
			for {
				select {
				case r := <-results:
					if r.failure != nil {
						failures = append(failures, *r.failure)
					} else {
						quotes = append(quotes, r.quote)
					}
				default:
					a.logger.Warn("collect cancelled",
						slog.Int("quotes", len(quotes)),
						slog.Int("outstanding", total-len(quotes)-len(failures)),
					)
					return quotes, failures
				}
			}
		}
	}
	return quotes, failures
}
