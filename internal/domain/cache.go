package domain

import "context"

// QuoteCache holds the latest observed quote per venue/symbol for dashboards
// and other external readers. The scanner never reads from it.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote) error
	GetQuote(ctx context.Context, venueID, symbol string) (Quote, error)
}

// SignalBus publishes scan results to external consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
