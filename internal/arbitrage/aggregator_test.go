package arbitrage

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/crossvenue/arbscan/internal/domain"
)

type stubVenue struct {
	name   string
	ticker func(ctx context.Context, symbol string) (domain.Quote, error)
	fees   func(ctx context.Context, asset string) (domain.FeeFragment, error)
}

func (s *stubVenue) Name() string { return s.name }

func (s *stubVenue) FetchTicker(ctx context.Context, symbol string) (domain.Quote, error) {
	return s.ticker(ctx, symbol)
}

func (s *stubVenue) FetchTransferFees(ctx context.Context, asset string) (domain.FeeFragment, error) {
	if s.fees == nil {
		return domain.FeeFragment{}, domain.ErrUnsupported
	}
	return s.fees(ctx, asset)
}

func okVenue(name string, bid, ask float64) *stubVenue {
	return &stubVenue{
		name: name,
		ticker: func(_ context.Context, symbol string) (domain.Quote, error) {
			return domain.Quote{Bid: bid, Ask: ask, ObservedAt: time.Now()}, nil
		},
	}
}

func errVenue(name string, err error) *stubVenue {
	return &stubVenue{
		name: name,
		ticker: func(context.Context, string) (domain.Quote, error) {
			return domain.Quote{}, err
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCollectPartialFailure(t *testing.T) {
	boom := errors.New("connection reset")
	venues := []VenueConnector{
		okVenue("a", 99, 100),
		errVenue("b", boom),
		okVenue("c", 101, 102),
	}

	agg := NewAggregator(testLogger())
	quotes, failures := agg.Collect(context.Background(), venues, []string{"BTC/USDT"})

	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(quotes))
	}
	if len(failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(failures))
	}
	f := failures[0]
	if f.VenueID != "b" || f.Symbol != "BTC/USDT" || !errors.Is(f.Err, boom) {
		t.Fatalf("unexpected failure record %+v", f)
	}
}

func TestCollectStampsVenueAndSymbol(t *testing.T) {
	agg := NewAggregator(testLogger())
	quotes, _ := agg.Collect(context.Background(),
		[]VenueConnector{okVenue("a", 99, 100)},
		[]string{"ETH/USDT"},
	)
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if quotes[0].VenueID != "a" || quotes[0].Symbol != "ETH/USDT" {
		t.Fatalf("quote not stamped: %+v", quotes[0])
	}
}

func TestCollectCancellationReturnsPartialSnapshot(t *testing.T) {
	slow := &stubVenue{
		name: "slow",
		ticker: func(context.Context, string) (domain.Quote, error) {
			// Deliberately ignores ctx: the aggregator must not wait for it.
			time.Sleep(5 * time.Second)
			return domain.Quote{Bid: 1, Ask: 2}, nil
		},
	}
	venues := []VenueConnector{
		okVenue("a", 99, 100),
		okVenue("b", 101, 102),
		slow,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	agg := NewAggregator(testLogger())
	start := time.Now()
	quotes, _ := agg.Collect(ctx, venues, []string{"BTC/USDT"})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Collect blocked for %v after cancellation", elapsed)
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes in partial snapshot, want 2", len(quotes))
	}
}

func TestCollectNoRetries(t *testing.T) {
	calls := 0
	v := &stubVenue{
		name: "flaky",
		ticker: func(context.Context, string) (domain.Quote, error) {
			calls++
			return domain.Quote{}, errors.New("timeout")
		},
	}

	agg := NewAggregator(testLogger())
	_, failures := agg.Collect(context.Background(), []VenueConnector{v}, []string{"BTC/USDT"})
	if calls != 1 {
		t.Fatalf("connector called %d times, want 1 (no retries)", calls)
	}
	if len(failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(failures))
	}
}

func TestCollectEmptyInput(t *testing.T) {
	agg := NewAggregator(testLogger())
	quotes, failures := agg.Collect(context.Background(), nil, []string{"BTC/USDT"})
	if len(quotes) != 0 || len(failures) != 0 {
		t.Fatalf("expected empty result, got %d quotes %d failures", len(quotes), len(failures))
	}
}
