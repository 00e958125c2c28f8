// Package venue provides the concrete venue connectors: REST and websocket
// centralized exchanges, a Uniswap V3 pool, a Thorchain bridge, and a
// simulator for demo mode and tests. The adapter is selected at construction
// time; callers never inspect the concrete type at runtime.
package venue

import (
	"context"

	"github.com/crossvenue/arbscan/internal/domain"
)

// Kind identifies the connector family.
type Kind string

const (
	KindCEX       Kind = "cex"
	KindCEXStream Kind = "cex_ws"
	KindDEX       Kind = "dex"
	KindBridge    Kind = "bridge"
	KindSim       Kind = "sim"
)

// Connector is a single trading venue the scanner can query. Implementations
// must be safe to call concurrently for distinct symbols. Errors are opaque to
// the caller; only success or failure matters for filtering.
type Connector interface {
	Name() string
	Kind() Kind
	// FetchTicker returns the venue's current best bid/ask for the symbol.
	FetchTicker(ctx context.Context, symbol string) (domain.Quote, error)
	// FetchTransferFees returns the venue-reported withdrawal fee for the
	// asset, or domain.ErrUnsupported when the venue does not expose one.
	FetchTransferFees(ctx context.Context, asset string) (domain.FeeFragment, error)
}
