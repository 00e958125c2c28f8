package domain

// FeeSchedule is the fee model for one venue: a taker rate applied to notional
// on both legs, and fixed withdrawal fees denominated in the withdrawn asset
// (not quote currency; callers convert at the current price).
type FeeSchedule struct {
	VenueID        string
	TakerRate      float64
	WithdrawalFees map[string]float64 // asset symbol -> fixed amount in asset units
}

// FeeFragment is a partial fee schedule reported by a venue connector for a
// single asset, merged into the fee model between scans.
type FeeFragment struct {
	VenueID       string
	Asset         string
	WithdrawalFee float64
}
