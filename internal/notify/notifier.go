// Package notify fans alert messages out to operator channels (Telegram,
// Discord). Delivery is best effort: a failing channel never blocks the scan
// loop, and events can be filtered so operators only hear about what they
// subscribed to.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crossvenue/arbscan/internal/domain"
)

// Event types emitted by the scanner.
const (
	EventArbDetected = "arb_detected"
	EventScanError   = "scan_error"
)

// Sender delivers a single formatted message over one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches to all configured senders, filtered by event type.
type Notifier struct {
	senders []Sender
	allowed map[string]struct{} // empty means everything passes
	logger  *slog.Logger
}

// NewNotifier builds a Notifier. events limits which event types Notify
// forwards; an empty list allows all of them.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the message to every sender when the event type passes the
// filter. Sender failures are joined and returned, never fatal to the caller.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.allowed) > 0 {
		if _, ok := n.allowed[event]; !ok {
			n.logger.DebugContext(ctx, "event filtered", slog.String("event", event))
			return nil
		}
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAll bypasses the event filter.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	return errors.Join(errs...)
}

// OpportunityMessage renders an opportunity as an alert title and body.
func OpportunityMessage(o domain.Opportunity) (title, body string) {
	title = fmt.Sprintf("Arbitrage: %s %.4f%%", o.Symbol, o.ProfitPct)
	body = fmt.Sprintf(
		"Buy %s on %s at %.4f\nSell on %s at %.4f\nNet profit %.4f (fees %.4f)",
		o.Symbol, o.BuyVenue, o.BuyPrice, o.SellVenue, o.SellPrice, o.NetProfit, o.TotalFees,
	)
	return title, body
}
