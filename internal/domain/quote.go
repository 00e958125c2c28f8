// Package domain holds the core data types shared by the scanner, venue
// connectors, stores, and caches. Types here carry no behaviour beyond
// validation; all I/O lives behind the interfaces in store.go and cache.go.
package domain

import (
	"strings"
	"time"
)

// Quote is one venue's best bid/ask for a symbol at a point in time. Quotes
// are produced per fetch cycle, treated as immutable, and discarded after one
// scan; persistence happens separately as Ticks.
type Quote struct {
	VenueID    string
	Symbol     string
	Bid        float64
	Ask        float64
	Last       float64
	Volume     float64
	ObservedAt time.Time
}

// Valid reports whether the quote is usable for scanning: both sides present,
// positive, and not inverted. Invalid quotes are filtered, never an error.
func (q Quote) Valid() bool {
	return q.Bid > 0 && q.Ask > 0 && q.Bid <= q.Ask
}

// BaseAsset returns the base component of a symbol like "BTC/USDT". A symbol
// without a separator is its own base asset.
func BaseAsset(symbol string) string {
	if i := strings.IndexByte(symbol, '/'); i >= 0 {
		return symbol[:i]
	}
	return symbol
}

// FetchFailure records one venue/symbol fetch that did not produce a quote.
// Failures are observability data, not errors: a scan proceeds with whatever
// quotes did arrive.
type FetchFailure struct {
	VenueID string
	Symbol  string
	Err     error
}
