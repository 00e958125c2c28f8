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

// CEX fetches best bid/ask from a centralized exchange's public book-ticker
// endpoint. Supported exchanges: binance, okx, bybit, gate, kucoin.
type CEX struct {
	name     string
	exchange string
	http     *http.Client
}

// NewCEX creates a REST connector for the given exchange id.
func NewCEX(name, exchange string) (*CEX, error) {
	switch strings.ToLower(exchange) {
	case "binance", "okx", "bybit", "gate", "kucoin":
	default:
		return nil, fmt.Errorf("venue: unsupported exchange %q", exchange)
	}
	return &CEX{
		name:     name,
		exchange: strings.ToLower(exchange),
		http:     &http.Client{Timeout: 8 * time.Second},
	}, nil
}

func (c *CEX) Name() string { return c.name }
func (c *CEX) Kind() Kind   { return KindCEX }

// FetchTransferFees is not available on public endpoints; withdrawal fees for
// CEX venues come from configuration.
func (c *CEX) FetchTransferFees(ctx context.Context, asset string) (domain.FeeFragment, error) {
	return domain.FeeFragment{}, domain.ErrUnsupported
}

// FetchTicker fetches the current best bid/ask for a canonical "BASE/QUOTE"
// symbol.
func (c *CEX) FetchTicker(ctx context.Context, symbol string) (domain.Quote, error) {
	base, quoteCcy, ok := splitSymbol(symbol)
	if !ok {
		return domain.Quote{}, fmt.Errorf("venue: %s: malformed symbol %q", c.name, symbol)
	}

	var (
		q   domain.Quote
		err error
	)
	switch c.exchange {
	case "binance":
		q, err = c.fetchBinance(ctx, base, quoteCcy)
	case "okx":
		q, err = c.fetchOKX(ctx, base, quoteCcy)
	case "bybit":
		q, err = c.fetchBybit(ctx, base, quoteCcy)
	case "gate":
		q, err = c.fetchGate(ctx, base, quoteCcy)
	case "kucoin":
		q, err = c.fetchKucoin(ctx, base, quoteCcy)
	}
	if err != nil {
		return domain.Quote{}, err
	}
	q.VenueID = c.name
	q.Symbol = symbol
	q.ObservedAt = time.Now().UTC()
	return q, nil
}

func splitSymbol(symbol string) (base, quote string, ok bool) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return strings.ToUpper(parts[0]), strings.ToUpper(parts[1]), true
}

func (c *CEX) doGET(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "arbscan/cex")
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("http %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(target)
}

func parsePrice(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func (c *CEX) fetchBinance(ctx context.Context, base, quote string) (domain.Quote, error) {
	url := fmt.Sprintf("https://api.binance.com/api/v3/ticker/bookTicker?symbol=%s%s", base, quote)
	var raw struct {
		BidPrice string `json:"bidPrice"`
		AskPrice string `json:"askPrice"`
	}
	if err := c.doGET(ctx, url, &raw); err != nil {
		return domain.Quote{}, fmt.Errorf("venue: binance: %w", err)
	}
	return domain.Quote{Bid: parsePrice(raw.BidPrice), Ask: parsePrice(raw.AskPrice)}, nil
}

func (c *CEX) fetchOKX(ctx context.Context, base, quote string) (domain.Quote, error) {
	url := fmt.Sprintf("https://www.okx.com/api/v5/market/ticker?instId=%s-%s", base, quote)
	var raw struct {
		Code string `json:"code"`
		Data []struct {
			BidPx  string `json:"bidPx"`
			AskPx  string `json:"askPx"`
			Last   string `json:"last"`
			Vol24h string `json:"vol24h"`
		} `json:"data"`
	}
	if err := c.doGET(ctx, url, &raw); err != nil {
		return domain.Quote{}, fmt.Errorf("venue: okx: %w", err)
	}
	if raw.Code != "0" || len(raw.Data) == 0 {
		return domain.Quote{}, fmt.Errorf("venue: okx: code %s", raw.Code)
	}
	d := raw.Data[len(raw.Data)-1]
	return domain.Quote{
		Bid:    parsePrice(d.BidPx),
		Ask:    parsePrice(d.AskPx),
		Last:   parsePrice(d.Last),
		Volume: parsePrice(d.Vol24h),
	}, nil
}

func (c *CEX) fetchBybit(ctx context.Context, base, quote string) (domain.Quote, error) {
	url := fmt.Sprintf("https://api.bybit.com/v5/market/tickers?category=spot&symbol=%s%s", base, quote)
	var raw struct {
		Result struct {
			List []struct {
				Bid1Price string `json:"bid1Price"`
				Ask1Price string `json:"ask1Price"`
				LastPrice string `json:"lastPrice"`
				Volume24h string `json:"volume24h"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := c.doGET(ctx, url, &raw); err != nil {
		return domain.Quote{}, fmt.Errorf("venue: bybit: %w", err)
	}
	if len(raw.Result.List) == 0 {
		return domain.Quote{}, fmt.Errorf("venue: bybit: empty result")
	}
	d := raw.Result.List[0]
	return domain.Quote{
		Bid:    parsePrice(d.Bid1Price),
		Ask:    parsePrice(d.Ask1Price),
		Last:   parsePrice(d.LastPrice),
		Volume: parsePrice(d.Volume24h),
	}, nil
}

func (c *CEX) fetchGate(ctx context.Context, base, quote string) (domain.Quote, error) {
	url := fmt.Sprintf("https://api.gateio.ws/api/v4/spot/tickers?currency_pair=%s_%s", base, quote)
	var raw []struct {
		HighestBid string `json:"highest_bid"`
		LowestAsk  string `json:"lowest_ask"`
		Last       string `json:"last"`
		BaseVolume string `json:"base_volume"`
	}
	if err := c.doGET(ctx, url, &raw); err != nil {
		return domain.Quote{}, fmt.Errorf("venue: gate: %w", err)
	}
	if len(raw) == 0 {
		return domain.Quote{}, fmt.Errorf("venue: gate: empty result")
	}
	d := raw[0]
	return domain.Quote{
		Bid:    parsePrice(d.HighestBid),
		Ask:    parsePrice(d.LowestAsk),
		Last:   parsePrice(d.Last),
		Volume: parsePrice(d.BaseVolume),
	}, nil
}

func (c *CEX) fetchKucoin(ctx context.Context, base, quote string) (domain.Quote, error) {
	url := fmt.Sprintf("https://api.kucoin.com/api/v1/market/orderbook/level1?symbol=%s-%s", base, quote)
	var raw struct {
		Code string `json:"code"`
		Data struct {
			BestBid string `json:"bestBid"`
			BestAsk string `json:"bestAsk"`
			Price   string `json:"price"`
		} `json:"data"`
	}
	if err := c.doGET(ctx, url, &raw); err != nil {
		return domain.Quote{}, fmt.Errorf("venue: kucoin: %w", err)
	}
	if raw.Code != "200000" {
		return domain.Quote{}, fmt.Errorf("venue: kucoin: code %s", raw.Code)
	}
	return domain.Quote{
		Bid:  parsePrice(raw.Data.BestBid),
		Ask:  parsePrice(raw.Data.BestAsk),
		Last: parsePrice(raw.Data.Price),
	}, nil
}

// Compile-time interface check.
var _ Connector = (*CEX)(nil)
