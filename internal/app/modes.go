package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crossvenue/arbscan/internal/arbitrage"
)

// orchestrator builds the scan orchestrator shared by all modes.
func (a *App) orchestrator(deps *Dependencies) (*arbitrage.Orchestrator, error) {
	connectors := make([]arbitrage.VenueConnector, len(deps.Venues))
	for i, v := range deps.Venues {
		connectors[i] = v
	}

	return arbitrage.NewOrchestrator(
		arbitrage.OrchestratorConfig{
			Symbols:      a.cfg.Symbols,
			ThresholdPct: a.cfg.Scan.ThresholdPct,
			FetchTimeout: a.cfg.Scan.FetchTimeout.Duration,
			RefreshFees:  a.cfg.Scan.RefreshFees,
		},
		arbitrage.OrchestratorDeps{
			Venues:           connectors,
			Fees:             deps.Fees,
			TickStore:        deps.TickStore,
			OpportunityStore: deps.OpportunityStore,
			QuoteCache:       deps.QuoteCache,
			Bus:              deps.Bus,
			Notifier:         deps.Notifier,
			Logger:           a.logger,
		},
	)
}

// ScanMode runs exactly one scan cycle and reports the outcome. Websocket
// venues get a short warm-up so they have something to serve.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	orch, err := a.orchestrator(deps)
	if err != nil {
		return err
	}

	if len(deps.Streams) > 0 {
		streamCtx, stop := context.WithCancel(ctx)
		defer stop()
		for _, s := range deps.Streams {
			go s.Run(streamCtx)
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if a.cfg.Scan.RefreshFees {
		orch.RefreshFees(ctx)
	}

	report, err := orch.RunCycle(ctx)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "scan finished",
		slog.Int("quotes", len(report.Quotes)),
		slog.Int("failures", len(report.Failures)),
		slog.Int("opportunities", len(report.Opportunities)),
		slog.Duration("elapsed", report.Elapsed),
	)
	for _, opp := range report.Opportunities {
		a.logger.InfoContext(ctx, "opportunity",
			slog.String("symbol", opp.Symbol),
			slog.String("buy_venue", opp.BuyVenue),
			slog.String("sell_venue", opp.SellVenue),
			slog.Float64("buy_price", opp.BuyPrice),
			slog.Float64("sell_price", opp.SellPrice),
			slog.Float64("net_profit", opp.NetProfit),
			slog.Float64("profit_pct", opp.ProfitPct),
		)
	}
	return nil
}

// WatchMode runs the scan loop, websocket feeds, and the archiver until the
// context ends.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	orch, err := a.orchestrator(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, s := range deps.Streams {
		g.Go(func() error {
			err := s.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		err := orch.Run(ctx, a.cfg.Scan.Interval.Duration)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			err := deps.Archiver.Run(ctx, time.Hour)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// DemoMode is WatchMode against simulated venues with no external services:
// quotes come from deterministic random walks and results only reach the log.
func (a *App) DemoMode(ctx context.Context, deps *Dependencies) error {
	orch, err := a.orchestrator(deps)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "demo mode: simulated venues, in-memory only")

	err = orch.Run(ctx, a.cfg.Scan.Interval.Duration)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
