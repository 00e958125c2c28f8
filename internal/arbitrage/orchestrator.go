package arbitrage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/crossvenue/arbscan/internal/domain"
	"github.com/crossvenue/arbscan/internal/notify"
)

// OpportunityChannel is the signal-bus channel scan results are published to.
const OpportunityChannel = "opportunities"

// OrchestratorConfig holds the scan-cycle parameters.
type OrchestratorConfig struct {
	Symbols      []string
	ThresholdPct float64
	FetchTimeout time.Duration
	RefreshFees  bool
}

// OrchestratorDeps bundles the collaborators a scan cycle touches. Venues,
// Fees, and Logger are required; the stores, cache, bus, and notifier are
// optional and skipped when nil; market data imperfections and sink failures
// degrade a cycle, never abort it.
type OrchestratorDeps struct {
	Venues           []VenueConnector
	Fees             *FeeModel
	TickStore        domain.TickStore
	OpportunityStore domain.OpportunityStore
	QuoteCache       domain.QuoteCache
	Bus              domain.SignalBus
	Notifier         *notify.Notifier
	Logger           *slog.Logger
}

// Orchestrator drives scan cycles: collect a quote snapshot, persist it, run
// the scanner, and fan results out to the configured sinks. All collaborators
// are injected at construction; there is no ambient state.
type Orchestrator struct {
	cfg      OrchestratorConfig
	venues   []VenueConnector
	fees     *FeeModel
	agg      *Aggregator
	ticks    domain.TickStore
	opps     domain.OpportunityStore
	quotes   domain.QuoteCache
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. It fails only on structurally
// invalid input: no venues, no symbols, or a nil fee model.
func NewOrchestrator(cfg OrchestratorConfig, deps OrchestratorDeps) (*Orchestrator, error) {
	if len(deps.Venues) == 0 {
		return nil, fmt.Errorf("arbitrage: orchestrator: %w: venues", domain.ErrNilInput)
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("arbitrage: orchestrator: %w: symbols", domain.ErrNilInput)
	}
	if deps.Fees == nil {
		return nil, fmt.Errorf("arbitrage: orchestrator: %w: fee model", domain.ErrNilInput)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		venues:   deps.Venues,
		fees:     deps.Fees,
		agg:      NewAggregator(logger),
		ticks:    deps.TickStore,
		opps:     deps.OpportunityStore,
		quotes:   deps.QuoteCache,
		bus:      deps.Bus,
		notifier: deps.Notifier,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}, nil
}

// ScanReport is the outcome of one cycle, handed to the caller as plain data.
type ScanReport struct {
	StartedAt     time.Time
	Elapsed       time.Duration
	Quotes        []domain.Quote
	Failures      []domain.FetchFailure
	Opportunities []domain.Opportunity
}

// RunCycle performs one scan cycle: collect a snapshot within the fetch
// timeout, store ticks and cache quotes best-effort, scan, then record,
// publish, and notify each opportunity.
func (o *Orchestrator) RunCycle(ctx context.Context) (ScanReport, error) {
	started := time.Now()

	fetchCtx := ctx
	if o.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, o.cfg.FetchTimeout)
		defer cancel()
	}
	quotes, failures := o.agg.Collect(fetchCtx, o.venues, o.cfg.Symbols)

	o.sinkQuotes(ctx, quotes)

	opps, err := Scan(quotes, o.fees, o.cfg.ThresholdPct)
	if err != nil {
		return ScanReport{}, fmt.Errorf("arbitrage: run cycle: %w", err)
	}
	for _, opp := range opps {
		o.sinkOpportunity(ctx, opp)
	}

	report := ScanReport{
		StartedAt:     started,
		Elapsed:       time.Since(started),
		Quotes:        quotes,
		Failures:      failures,
		Opportunities: opps,
	}
	o.logger.InfoContext(ctx, "scan cycle complete",
		slog.Int("quotes", len(quotes)),
		slog.Int("failures", len(failures)),
		slog.Int("opportunities", len(opps)),
		slog.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// Run executes scan cycles at the given interval until ctx is cancelled.
// Venue-reported withdrawal fees are refreshed between cycles when enabled.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	o.logger.InfoContext(ctx, "orchestrator started",
		slog.Int("venues", len(o.venues)),
		slog.Int("symbols", len(o.cfg.Symbols)),
		slog.Duration("interval", interval),
	)
	defer o.logger.Info("orchestrator stopped")

	if o.cfg.RefreshFees {
		o.RefreshFees(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := o.RunCycle(ctx); err != nil {
			// Only structurally invalid input reaches here; everything
			// market-data related is absorbed as partial results.
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if o.cfg.RefreshFees {
			o.RefreshFees(ctx)
		}
	}
}

// RefreshFees asks every venue for its withdrawal fee on each scanned base
// asset and merges what it gets into the fee model. Venues that do not expose
// transfer fees are skipped silently.
func (o *Orchestrator) RefreshFees(ctx context.Context) {
	assets := make(map[string]bool, len(o.cfg.Symbols))
	for _, s := range o.cfg.Symbols {
		assets[domain.BaseAsset(s)] = true
	}
	for _, v := range o.venues {
		for asset := range assets {
			frag, err := v.FetchTransferFees(ctx, asset)
			if err != nil {
				o.logger.DebugContext(ctx, "transfer fees unavailable",
					slog.String("venue", v.Name()),
					slog.String("asset", asset),
					slog.String("error", err.Error()),
				)
				continue
			}
			if frag.VenueID == "" {
				frag.VenueID = v.Name()
			}
			o.fees.MergeFragment(frag)
		}
	}
}

func (o *Orchestrator) sinkQuotes(ctx context.Context, quotes []domain.Quote) {
	if len(quotes) == 0 {
		return
	}
	if o.ticks != nil {
		ticks := make([]domain.Tick, 0, len(quotes))
		for _, q := range quotes {
			ticks = append(ticks, domain.TickFromQuote(q))
		}
		if err := o.ticks.SaveTicks(ctx, ticks); err != nil {
			o.logger.WarnContext(ctx, "save ticks failed", slog.String("error", err.Error()))
		}
	}
	if o.quotes != nil {
		for _, q := range quotes {
			if err := o.quotes.SetQuote(ctx, q); err != nil {
				o.logger.WarnContext(ctx, "cache quote failed",
					slog.String("venue", q.VenueID),
					slog.String("symbol", q.Symbol),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (o *Orchestrator) sinkOpportunity(ctx context.Context, opp domain.Opportunity) {
	if o.opps != nil {
		if err := o.opps.Insert(ctx, opp); err != nil {
			o.logger.WarnContext(ctx, "record opportunity failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if o.bus != nil {
		payload, err := json.Marshal(opp)
		if err == nil {
			err = o.bus.Publish(ctx, OpportunityChannel, payload)
		}
		if err != nil {
			o.logger.WarnContext(ctx, "publish opportunity failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if o.notifier != nil {
		title, msg := notify.OpportunityMessage(opp)
		if err := o.notifier.Notify(ctx, notify.EventArbDetected, title, msg); err != nil {
			o.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
		}
	}
}
