package domain

import "time"

// Tick is one persisted quote observation. Ticks are the storage form of
// Quotes; the scanner itself never reads them back.
type Tick struct {
	Timestamp time.Time
	VenueID   string
	Symbol    string
	Price     float64
	Bid       float64
	Ask       float64
	Volume    float64
}

// TickFromQuote converts a scan-cycle quote into its storage form. Price is
// the last trade when the venue reports one, otherwise the mid price.
func TickFromQuote(q Quote) Tick {
	price := q.Last
	if price == 0 && q.Valid() {
		price = (q.Bid + q.Ask) / 2
	}
	return Tick{
		Timestamp: q.ObservedAt,
		VenueID:   q.VenueID,
		Symbol:    q.Symbol,
		Price:     price,
		Bid:       q.Bid,
		Ask:       q.Ask,
		Volume:    q.Volume,
	}
}

// Candle is a 1-minute OHLCV aggregate for one venue/symbol bucket.
type Candle struct {
	Bucket  time.Time
	VenueID string
	Symbol  string
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  float64
}
