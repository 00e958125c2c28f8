package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/crossvenue/arbscan/internal/arbitrage"
	s3blob "github.com/crossvenue/arbscan/internal/blob/s3"
	"github.com/crossvenue/arbscan/internal/cache/redis"
	"github.com/crossvenue/arbscan/internal/config"
	"github.com/crossvenue/arbscan/internal/domain"
	"github.com/crossvenue/arbscan/internal/notify"
	"github.com/crossvenue/arbscan/internal/store/postgres"
	"github.com/crossvenue/arbscan/internal/venue"
)

// Dependencies bundles everything the modes need. Optional members stay nil
// in modes that do not use them; the orchestrator treats nil sinks as absent.
type Dependencies struct {
	Venues  []venue.Connector
	Streams []*venue.Stream // websocket feeds that need their own Run loop
	Fees    *arbitrage.FeeModel

	TickStore        domain.TickStore
	OpportunityStore domain.OpportunityStore
	QuoteCache       domain.QuoteCache
	Bus              domain.SignalBus
	Archiver         *s3blob.Archiver
	Notifier         *notify.Notifier
}

// demo mode runs entirely in-process: no Postgres, Redis, or S3.
func needsExternalServices(mode string) bool {
	return strings.ToLower(mode) != "demo"
}

// Wire builds the concrete dependency graph from configuration. The returned
// cleanup releases connections in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Fees: buildFeeModel(cfg.Fees),
	}

	venues, streams, err := buildVenues(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.Venues = venues
	deps.Streams = streams

	if needsExternalServices(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.TickStore = postgres.NewTickStore(pool)
		deps.OpportunityStore = postgres.NewOpportunityStore(pool)

		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.QuoteCache = redis.NewQuoteCache(redisClient)
		deps.Bus = redis.NewSignalBus(redisClient)

		if cfg.Archive.Enabled {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:  cfg.Archive.Endpoint,
				Region:    cfg.Archive.Region,
				Bucket:    cfg.Archive.Bucket,
				AccessKey: cfg.Archive.AccessKey,
				SecretKey: cfg.Archive.SecretKey,
				UseSSL:    true,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}
			retention := time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour
			deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.TickStore, retention, logger)
		}
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	return deps, cleanup, nil
}

// buildVenues constructs one connector per configured venue. In demo mode
// every venue becomes a simulator seeded by its position, so the demo runs
// with zero network access regardless of what the file configures.
func buildVenues(cfg *config.Config, logger *slog.Logger) ([]venue.Connector, []*venue.Stream, error) {
	demo := strings.ToLower(cfg.Mode) == "demo"

	var (
		venues  []venue.Connector
		streams []*venue.Stream
	)
	for i, vc := range cfg.Venues {
		if demo {
			venues = append(venues, venue.NewSim(venue.SimConfig{
				Name:      vc.Name,
				BasePrice: vc.SimBasePrice,
				SpreadPct: vc.SimSpreadPct,
				Seed:      int64(i + 1),
			}))
			continue
		}

		switch vc.Kind {
		case "cex":
			c, err := venue.NewCEX(vc.Name, vc.Exchange)
			if err != nil {
				return nil, nil, fmt.Errorf("wire: venue %s: %w", vc.Name, err)
			}
			venues = append(venues, c)
		case "cex_ws":
			s, err := venue.NewStream(venue.StreamConfig{
				Name:    vc.Name,
				WsURL:   vc.WsURL,
				Symbols: cfg.Symbols,
				MaxAge:  vc.WsMaxAge.Duration,
				Logger:  logger,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("wire: venue %s: %w", vc.Name, err)
			}
			venues = append(venues, s)
			streams = append(streams, s)
		case "dex":
			d, err := venue.NewDEX(venue.DEXConfig{
				Name:          vc.Name,
				RPCURL:        vc.RPCURL,
				PoolAddress:   vc.PoolAddress,
				Symbol:        vc.PoolSymbol,
				BaseIsToken0:  vc.BaseIsToken0,
				Token0Decimal: vc.Token0Decimal,
				Token1Decimal: vc.Token1Decimal,
				PoolFeePct:    vc.PoolFeePct,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("wire: venue %s: %w", vc.Name, err)
			}
			venues = append(venues, d)
		case "bridge":
			venues = append(venues, venue.NewBridge(venue.BridgeConfig{
				Name:      vc.Name,
				NodeURL:   vc.NodeURL,
				SpreadPct: vc.SpreadPct,
			}))
		case "sim":
			seed := vc.SimSeed
			if seed == 0 {
				seed = int64(i + 1)
			}
			venues = append(venues, venue.NewSim(venue.SimConfig{
				Name:      vc.Name,
				BasePrice: vc.SimBasePrice,
				SpreadPct: vc.SimSpreadPct,
				Seed:      seed,
			}))
		default:
			return nil, nil, fmt.Errorf("wire: venue %s: unknown kind %q", vc.Name, vc.Kind)
		}
	}
	return venues, streams, nil
}

// buildFeeModel maps the static fee config onto the fee model. A venue
// override with a zero taker rate inherits the default rate; zero is
// expressed by omitting the venue from the config entirely and lowering the
// default.
func buildFeeModel(fees config.FeesConfig) *arbitrage.FeeModel {
	def := domain.FeeSchedule{
		TakerRate:      fees.DefaultTakerRate,
		WithdrawalFees: fees.DefaultWithdrawal,
	}

	overrides := make(map[string]domain.FeeSchedule, len(fees.Venues))
	for name, v := range fees.Venues {
		rate := v.TakerRate
		if rate == 0 {
			rate = fees.DefaultTakerRate
		}
		overrides[name] = domain.FeeSchedule{
			VenueID:        name,
			TakerRate:      rate,
			WithdrawalFees: v.Withdrawal,
		}
	}
	return arbitrage.NewFeeModel(def, overrides)
}
