package domain

import "time"

// VenuePairResult is the computed economics for one directional
// (buy venue, sell venue) pair. All amounts are in quote currency for one unit
// of the base asset. It is an intermediate result and is never persisted on
// its own.
type VenuePairResult struct {
	BuyPrice      float64
	SellPrice     float64
	BuyFee        float64
	SellFee       float64
	WithdrawalFee float64
	GrossProfit   float64
	TotalFees     float64
	NetProfit     float64
	ProfitPct     float64
}

// Opportunity is a VenuePairResult that passed the profitability filter. The
// scanner creates it, rounds the display fields, and hands it to the caller;
// there is no shared mutable state afterwards.
type Opportunity struct {
	ID         string
	Symbol     string
	BuyVenue   string
	SellVenue  string
	VenuePairResult
	DetectedAt time.Time
}
