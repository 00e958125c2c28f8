package arbitrage

import (
	"sync"

	"github.com/crossvenue/arbscan/internal/domain"
)

// FeeResolver resolves the fee schedule for a venue. Resolution never fails:
// unknown venues get the default schedule.
type FeeResolver interface {
	Resolve(venueID string) domain.FeeSchedule
}

// FeeModel holds the static fee tables: a default schedule and per-venue
// overrides. It is read-only during a scan; MergeFragment may refresh
// withdrawal fees between scans using copy-on-write, so schedules already
// handed out stay stable.
type FeeModel struct {
	mu     sync.RWMutex
	def    domain.FeeSchedule
	venues map[string]domain.FeeSchedule
}

// NewFeeModel builds a FeeModel from a default schedule and per-venue
// overrides. Nil withdrawal maps are normalised to empty ones.
func NewFeeModel(def domain.FeeSchedule, overrides map[string]domain.FeeSchedule) *FeeModel {
	if def.WithdrawalFees == nil {
		def.WithdrawalFees = map[string]float64{}
	}
	venues := make(map[string]domain.FeeSchedule, len(overrides))
	for name, s := range overrides {
		s.VenueID = name
		if s.WithdrawalFees == nil {
			s.WithdrawalFees = map[string]float64{}
		}
		venues[name] = s
	}
	return &FeeModel{def: def, venues: venues}
}

// Resolve returns the fee schedule for the venue, falling back to the default
// schedule (stamped with the requested venue ID) when no explicit entry
// exists. It never fails.
func (m *FeeModel) Resolve(venueID string) domain.FeeSchedule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.venues[venueID]; ok {
		return s
	}
	s := m.def
	s.VenueID = venueID
	return s
}

// MergeFragment folds a venue-reported withdrawal fee into the model. The
// venue's schedule is cloned before writing so schedules resolved earlier are
// unaffected. Venues without an explicit entry get one seeded from the
// default schedule.
func (m *FeeModel) MergeFragment(frag domain.FeeFragment) {
	if frag.VenueID == "" || frag.Asset == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.venues[frag.VenueID]
	if !ok {
		s = m.def
		s.VenueID = frag.VenueID
	}
	fees := make(map[string]float64, len(s.WithdrawalFees)+1)
	for k, v := range s.WithdrawalFees {
		fees[k] = v
	}
	fees[frag.Asset] = frag.WithdrawalFee
	s.WithdrawalFees = fees
	m.venues[frag.VenueID] = s
}

// WithdrawalFee returns the fixed withdrawal fee for the asset, in units of
// the asset, or 0 when the schedule does not specify one.
func WithdrawalFee(s domain.FeeSchedule, asset string) float64 {
	return s.WithdrawalFees[asset]
}
