package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/crossvenue/arbscan/internal/domain"
)

func TestSimDeterministicWalk(t *testing.T) {
	a := NewSim(SimConfig{Name: "a", Seed: 7})
	b := NewSim(SimConfig{Name: "b", Seed: 7})

	for i := 0; i < 5; i++ {
		qa, err := a.FetchTicker(context.Background(), "BTC/USDT")
		if err != nil {
			t.Fatalf("FetchTicker: %v", err)
		}
		qb, _ := b.FetchTicker(context.Background(), "BTC/USDT")
		if qa.Last != qb.Last {
			t.Fatalf("step %d: same seed diverged: %v vs %v", i, qa.Last, qb.Last)
		}
	}
}

func TestSimSeedsDiverge(t *testing.T) {
	a := NewSim(SimConfig{Name: "a", Seed: 1})
	b := NewSim(SimConfig{Name: "b", Seed: 2})
	qa, _ := a.FetchTicker(context.Background(), "BTC/USDT")
	qb, _ := b.FetchTicker(context.Background(), "BTC/USDT")
	if qa.Last == qb.Last {
		t.Fatal("different seeds produced identical prices")
	}
}

func TestSimQuoteShape(t *testing.T) {
	s := NewSim(SimConfig{Name: "sim-1", SpreadPct: 0.001, Seed: 42})
	q, err := s.FetchTicker(context.Background(), "ETH/USDT")
	if err != nil {
		t.Fatalf("FetchTicker: %v", err)
	}
	if !q.Valid() {
		t.Fatalf("sim produced invalid quote %+v", q)
	}
	if q.VenueID != "sim-1" || q.Symbol != "ETH/USDT" {
		t.Fatalf("quote not stamped: %+v", q)
	}
	if q.Bid >= q.Last || q.Ask <= q.Last {
		t.Fatalf("spread not around mid: bid=%v last=%v ask=%v", q.Bid, q.Last, q.Ask)
	}
}

func TestSimSymbolsWalkIndependently(t *testing.T) {
	s := NewSim(SimConfig{Name: "sim", Seed: 3})
	btc, _ := s.FetchTicker(context.Background(), "BTC/USDT")
	eth, _ := s.FetchTicker(context.Background(), "ETH/USDT")
	if btc.Last == eth.Last {
		t.Fatal("distinct symbols anchored at the same price")
	}
}

func TestSimTransferFees(t *testing.T) {
	s := NewSim(SimConfig{
		Name:           "sim",
		WithdrawalFees: map[string]float64{"BTC": 0.0004},
	})

	frag, err := s.FetchTransferFees(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("FetchTransferFees: %v", err)
	}
	if frag.VenueID != "sim" || frag.Asset != "BTC" || frag.WithdrawalFee != 0.0004 {
		t.Fatalf("unexpected fragment %+v", frag)
	}

	if _, err := s.FetchTransferFees(context.Background(), "XRP"); !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("unknown asset: got %v, want ErrUnsupported", err)
	}
}

func TestSimHonorsCancelledContext(t *testing.T) {
	s := NewSim(SimConfig{Name: "sim"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.FetchTicker(ctx, "BTC/USDT"); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
