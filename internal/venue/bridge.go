package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/crossvenue/arbscan/internal/domain"
)

const defaultThorNodeURL = "https://thornode.ninerealms.com"

// BridgeConfig configures a Thorchain price/fee source.
type BridgeConfig struct {
	Name string
	// NodeURL is the Thornode REST base URL; defaults to the Nine Realms
	// public node.
	NodeURL string
	// SpreadPct widens the pool's USD price into a synthetic bid/ask.
	// Defaults to 0.002 (0.2%).
	SpreadPct float64
}

// Bridge quotes asset prices from Thorchain pool depths and reports per-chain
// outbound fees as withdrawal fees. Thorchain prices are denominated in USD
// via the protocol's TOR unit, so the connector only serves USD-stable quote
// pairs (BTC/USDT, ETH/USDC, ...).
type Bridge struct {
	name      string
	nodeURL   string
	spreadPct float64
	http      *http.Client
}

func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.NodeURL == "" {
		cfg.NodeURL = defaultThorNodeURL
	}
	if cfg.SpreadPct <= 0 {
		cfg.SpreadPct = 0.002
	}
	return &Bridge{
		name:      cfg.Name,
		nodeURL:   strings.TrimRight(cfg.NodeURL, "/"),
		spreadPct: cfg.SpreadPct,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *Bridge) Name() string { return b.name }
func (b *Bridge) Kind() Kind   { return KindBridge }

type thorPool struct {
	Asset         string `json:"asset"`
	Status        string `json:"status"`
	AssetTorPrice string `json:"asset_tor_price"`
	BalanceAsset  string `json:"balance_asset"`
}

// FetchTicker resolves the pool for the symbol's base asset and derives a
// synthetic bid/ask around its TOR (USD) price.
func (b *Bridge) FetchTicker(ctx context.Context, symbol string) (domain.Quote, error) {
	base, quoteCcy, ok := splitSymbol(symbol)
	if !ok {
		return domain.Quote{}, fmt.Errorf("venue: %s: malformed symbol %q", b.name, symbol)
	}
	switch quoteCcy {
	case "USDT", "USDC", "USD", "TUSD", "DAI":
	default:
		return domain.Quote{}, fmt.Errorf("venue: %s: quote asset %s: %w", b.name, quoteCcy, domain.ErrUnsupported)
	}

	var pools []thorPool
	if err := b.doGET(ctx, "/thorchain/pools", &pools); err != nil {
		return domain.Quote{}, fmt.Errorf("venue: %s: pools: %w", b.name, err)
	}

	for _, p := range pools {
		if !strings.EqualFold(p.Status, "Available") {
			continue
		}
		// Pool assets look like "BTC.BTC" or "ETH.ETH"; match the layer-1
		// asset, not ERC-20 pools like "ETH.USDC-0X...".
		if !strings.EqualFold(p.Asset, base+"."+base) {
			continue
		}
		tor, err := strconv.ParseFloat(p.AssetTorPrice, 64)
		if err != nil || tor <= 0 {
			return domain.Quote{}, fmt.Errorf("venue: %s: pool %s: bad tor price %q", b.name, p.Asset, p.AssetTorPrice)
		}
		price := tor / 1e8
		return domain.Quote{
			VenueID:    b.name,
			Symbol:     symbol,
			Bid:        price * (1 - b.spreadPct),
			Ask:        price * (1 + b.spreadPct),
			Last:       price,
			ObservedAt: time.Now().UTC(),
		}, nil
	}
	return domain.Quote{}, fmt.Errorf("venue: %s: no pool for %s: %w", b.name, base, domain.ErrNotFound)
}

type thorInbound struct {
	Chain       string `json:"chain"`
	OutboundFee string `json:"outbound_fee"`
	Halted      bool   `json:"halted"`
}

// FetchTransferFees maps the chain's outbound fee (in 1e8 base units of the
// chain asset) to a withdrawal fee in asset units.
func (b *Bridge) FetchTransferFees(ctx context.Context, asset string) (domain.FeeFragment, error) {
	var inbound []thorInbound
	if err := b.doGET(ctx, "/thorchain/inbound_addresses", &inbound); err != nil {
		return domain.FeeFragment{}, fmt.Errorf("venue: %s: inbound addresses: %w", b.name, err)
	}
	for _, in := range inbound {
		if !strings.EqualFold(in.Chain, asset) || in.Halted {
			continue
		}
		fee, err := strconv.ParseFloat(in.OutboundFee, 64)
		if err != nil {
			return domain.FeeFragment{}, fmt.Errorf("venue: %s: chain %s: bad outbound fee %q", b.name, in.Chain, in.OutboundFee)
		}
		return domain.FeeFragment{
			VenueID:       b.name,
			Asset:         asset,
			WithdrawalFee: fee / 1e8,
		}, nil
	}
	return domain.FeeFragment{}, fmt.Errorf("venue: %s: asset %s: %w", b.name, asset, domain.ErrUnsupported)
}

func (b *Bridge) doGET(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.nodeURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "arbscan/bridge")
	res, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("http %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(target)
}

var _ Connector = (*Bridge)(nil)
