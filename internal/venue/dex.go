package venue

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/crossvenue/arbscan/internal/domain"
)

// slot0() selector on Uniswap V3 pools.
var slot0Selector = []byte{0x38, 0x50, 0xc7, 0xbd}

// DEXConfig describes a single Uniswap V3 pool to quote from.
type DEXConfig struct {
	Name        string
	RPCURL      string
	PoolAddress string
	// Symbol is the canonical pair this pool serves, e.g. "ETH/USDT".
	Symbol string
	// BaseIsToken0 is true when the pair's base asset is the pool's token0.
	BaseIsToken0  bool
	Token0Decimal int
	Token1Decimal int
	// PoolFeePct widens the mid price into a synthetic bid/ask, e.g. 0.003
	// for a 0.3% pool.
	PoolFeePct float64
}

// DEX reads the spot price of one Uniswap V3 pool over JSON-RPC. The pool has
// no order book, so bid and ask are derived from the mid price and the pool
// fee tier.
type DEX struct {
	cfg    DEXConfig
	pool   common.Address
	client *ethclient.Client
}

// NewDEX dials the RPC endpoint and validates the pool address.
func NewDEX(cfg DEXConfig) (*DEX, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("venue: %s: rpc url required", cfg.Name)
	}
	if !common.IsHexAddress(cfg.PoolAddress) {
		return nil, fmt.Errorf("venue: %s: bad pool address %q", cfg.Name, cfg.PoolAddress)
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("venue: %s: pool symbol required", cfg.Name)
	}
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("venue: %s: dial rpc: %w", cfg.Name, err)
	}
	return &DEX{cfg: cfg, pool: common.HexToAddress(cfg.PoolAddress), client: client}, nil
}

func (d *DEX) Name() string { return d.cfg.Name }
func (d *DEX) Kind() Kind   { return KindDEX }

func (d *DEX) Close() { d.client.Close() }

// FetchTransferFees: on-chain withdrawal cost is gas, not an asset-unit fee
// the pool reports, so fees come from configuration.
func (d *DEX) FetchTransferFees(ctx context.Context, asset string) (domain.FeeFragment, error) {
	return domain.FeeFragment{}, domain.ErrUnsupported
}

// FetchTicker returns a synthetic quote for the pool's pair. Any other symbol
// is unsupported.
func (d *DEX) FetchTicker(ctx context.Context, symbol string) (domain.Quote, error) {
	if symbol != d.cfg.Symbol {
		return domain.Quote{}, fmt.Errorf("venue: %s: symbol %s: %w", d.cfg.Name, symbol, domain.ErrUnsupported)
	}

	out, err := d.client.CallContract(ctx, ethereum.CallMsg{To: &d.pool, Data: slot0Selector}, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("venue: %s: slot0: %w", d.cfg.Name, err)
	}
	if len(out) < 32 {
		return domain.Quote{}, fmt.Errorf("venue: %s: slot0: short return (%d bytes)", d.cfg.Name, len(out))
	}

	sqrtPriceX96 := new(big.Int).SetBytes(out[:32])
	mid := d.midPrice(sqrtPriceX96)
	if mid <= 0 {
		return domain.Quote{}, fmt.Errorf("venue: %s: zero pool price", d.cfg.Name)
	}

	half := d.cfg.PoolFeePct
	return domain.Quote{
		VenueID:    d.cfg.Name,
		Symbol:     symbol,
		Bid:        mid * (1 - half),
		Ask:        mid * (1 + half),
		Last:       mid,
		ObservedAt: time.Now().UTC(),
	}, nil
}

// midPrice converts sqrtPriceX96 into the pair price in quote units per base
// unit: (sqrtPriceX96 / 2^96)^2 scaled by the token decimal difference, then
// inverted when the base asset is token1.
func (d *DEX) midPrice(sqrtPriceX96 *big.Int) float64 {
	sqrt := new(big.Float).SetInt(sqrtPriceX96)
	q96 := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))

	ratio := new(big.Float).Quo(sqrt, q96)
	price := new(big.Float).Mul(ratio, ratio) // token1 per token0, raw units

	scale := new(big.Float).SetFloat64(pow10(d.cfg.Token0Decimal - d.cfg.Token1Decimal))
	price.Mul(price, scale)

	p, _ := price.Float64()
	if p == 0 {
		return 0
	}
	if d.cfg.BaseIsToken0 {
		return p
	}
	return 1 / p
}

func pow10(n int) float64 {
	p := 1.0
	for i := 0; i < n; i++ {
		p *= 10
	}
	for i := 0; i > n; i-- {
		p /= 10
	}
	return p
}

var _ Connector = (*DEX)(nil)
