package venue

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/crossvenue/arbscan/internal/domain"
)

// SimConfig configures a simulated venue.
type SimConfig struct {
	Name string
	// BasePrice anchors the random walk for every symbol. Per-symbol anchors
	// are derived from it so distinct symbols don't move in lockstep.
	BasePrice float64
	// SpreadPct is the half-spread around the walking mid price.
	SpreadPct float64
	// Seed makes the walk deterministic; two sims with different seeds drift
	// apart, which is what produces opportunities in demo mode.
	Seed int64
	// WithdrawalFees reported through FetchTransferFees, in asset units.
	WithdrawalFees map[string]float64
}

// Sim is a deterministic random-walk venue for demo mode and tests. No
// network, no failures, stable given the same seed and call sequence.
type Sim struct {
	name      string
	spreadPct float64
	fees      map[string]float64

	mu   sync.Mutex
	rng  *rand.Rand
	last map[string]float64
	base float64
}

func NewSim(cfg SimConfig) *Sim {
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = 50_000
	}
	if cfg.SpreadPct <= 0 {
		cfg.SpreadPct = 0.0005
	}
	fees := cfg.WithdrawalFees
	if fees == nil {
		fees = map[string]float64{"BTC": 0.0005, "ETH": 0.005, "SOL": 0.01}
	}
	return &Sim{
		name:      cfg.Name,
		spreadPct: cfg.SpreadPct,
		fees:      fees,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		last:      make(map[string]float64),
		base:      cfg.BasePrice,
	}
}

func (s *Sim) Name() string { return s.name }
func (s *Sim) Kind() Kind   { return KindSim }

// FetchTicker advances the symbol's walk one step and quotes around the new
// mid. Steps are bounded to ±0.3% so demo prices stay plausible.
func (s *Sim) FetchTicker(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}

	s.mu.Lock()
	mid, ok := s.last[symbol]
	if !ok {
		mid = s.anchor(symbol)
	}
	mid *= 1 + (s.rng.Float64()-0.5)*0.006
	s.last[symbol] = mid
	s.mu.Unlock()

	return domain.Quote{
		VenueID:    s.name,
		Symbol:     symbol,
		Bid:        mid * (1 - s.spreadPct),
		Ask:        mid * (1 + s.spreadPct),
		Last:       mid,
		Volume:     100,
		ObservedAt: time.Now().UTC(),
	}, nil
}

// FetchTransferFees serves the configured fee table.
func (s *Sim) FetchTransferFees(ctx context.Context, asset string) (domain.FeeFragment, error) {
	fee, ok := s.fees[asset]
	if !ok {
		return domain.FeeFragment{}, fmt.Errorf("venue: %s: asset %s: %w", s.name, asset, domain.ErrUnsupported)
	}
	return domain.FeeFragment{VenueID: s.name, Asset: asset, WithdrawalFee: fee}, nil
}

// anchor derives a stable per-symbol starting price from the base price, so
// "BTC/USDT" and "ETH/USDT" walk from different levels.
func (s *Sim) anchor(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	// scale factor in [0.1, 1.1)
	return s.base * (0.1 + float64(h.Sum32()%1000)/1000)
}

var _ Connector = (*Sim)(nil)
