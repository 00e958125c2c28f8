package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/crossvenue/arbscan/internal/domain"
)

type fakeSender struct {
	name string
	err  error
	sent []string
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, title)
	return nil
}

func newTestNotifier(events []string, senders ...Sender) *Notifier {
	return NewNotifier(senders, events, slog.New(slog.DiscardHandler))
}

func TestNotifyEventFilter(t *testing.T) {
	s := &fakeSender{name: "tg"}
	n := newTestNotifier([]string{EventArbDetected}, s)

	if err := n.Notify(context.Background(), EventScanError, "nope", "x"); err != nil {
		t.Fatalf("filtered event returned error: %v", err)
	}
	if err := n.Notify(context.Background(), EventArbDetected, "yes", "x"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0] != "yes" {
		t.Fatalf("sent=%v, want only the allowed event", s.sent)
	}
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	s := &fakeSender{name: "tg"}
	n := newTestNotifier(nil, s)
	if err := n.Notify(context.Background(), "anything", "t", "m"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent=%v, want 1 delivery", s.sent)
	}
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	boom := errors.New("webhook down")
	bad := &fakeSender{name: "discord", err: boom}
	good := &fakeSender{name: "telegram"}
	n := newTestNotifier(nil, bad, good)

	err := n.NotifyAll(context.Background(), "t", "m")
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped sender error", err)
	}
	if len(good.sent) != 1 {
		t.Fatal("healthy sender skipped after earlier failure")
	}
}

func TestOpportunityMessage(t *testing.T) {
	title, body := OpportunityMessage(domain.Opportunity{
		Symbol:    "BTC/USDT",
		BuyVenue:  "binance",
		SellVenue: "kraken",
		VenuePairResult: domain.VenuePairResult{
			BuyPrice:  50000,
			SellPrice: 50850,
			NetProfit: 1.696,
			TotalFees: 0.304,
			ProfitPct: 1.696,
		},
	})
	if !strings.Contains(title, "BTC/USDT") {
		t.Errorf("title %q missing symbol", title)
	}
	for _, want := range []string{"binance", "kraken", "1.6960"} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}
