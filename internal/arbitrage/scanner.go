// Package arbitrage implements the fee-adjusted arbitrage detection core: a
// fee model, a concurrent quote aggregator, a pure pair scanner, and the
// orchestrator that drives one scan cycle.
package arbitrage

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/crossvenue/arbscan/internal/domain"
)

// Scan enumerates every ordered venue pair per symbol, applies the fee model,
// and returns the opportunities whose net-profit percentage strictly exceeds
// thresholdPct.
//
// Invalid quotes (missing or inverted bid/ask) are filtered, symbols with
// fewer than two valid quotes are skipped, and unprofitable pairs are
// discarded; none of that is an error. Scan only fails on structurally
// invalid input. It performs no I/O and holds no state: identical inputs
// produce an identical (possibly reordered) opportunity set.
//
// Both (A,B) and (B,A) are enumerated and may both be reported; fee
// schedules are asymmetric, so the two directions are independently
// meaningful.
func Scan(quotes []domain.Quote, fees FeeResolver, thresholdPct float64) ([]domain.Opportunity, error) {
	if fees == nil {
		return nil, fmt.Errorf("arbitrage: scan: %w: fee resolver", domain.ErrNilInput)
	}

	bySymbol := make(map[string][]domain.Quote)
	var order []string
	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		if _, seen := bySymbol[q.Symbol]; !seen {
			order = append(order, q.Symbol)
		}
		bySymbol[q.Symbol] = append(bySymbol[q.Symbol], q)
	}

	var opps []domain.Opportunity
	for _, symbol := range order {
		group := bySymbol[symbol]
		if len(group) < 2 {
			continue
		}
		base := domain.BaseAsset(symbol)

		for i, buy := range group {
			for j, sell := range group {
				if i == j {
					continue
				}

				buyPrice := buy.Ask
				sellPrice := sell.Bid
				if buyPrice >= sellPrice {
					continue // no raw spread to exploit
				}

				buySched := fees.Resolve(buy.VenueID)
				sellSched := fees.Resolve(sell.VenueID)

				buyFee := buyPrice * buySched.TakerRate
				totalCost := buyPrice + buyFee
				sellFee := sellPrice * sellSched.TakerRate
				netRevenue := sellPrice - sellFee

				// The asset is withdrawn from the buy venue before being
				// sold, so the in-asset withdrawal fee is converted at the
				// buy-side price.
				withdrawalFee := WithdrawalFee(buySched, base) * buyPrice

				netProfit := netRevenue - totalCost - withdrawalFee
				if netProfit <= 0 {
					continue
				}
				profitPct := (netProfit / totalCost) * 100
				if profitPct <= thresholdPct {
					continue
				}

				opps = append(opps, domain.Opportunity{
					ID:        uuid.Must(uuid.NewRandom()).String(),
					Symbol:    symbol,
					BuyVenue:  buy.VenueID,
					SellVenue: sell.VenueID,
					VenuePairResult: domain.VenuePairResult{
						BuyPrice:      round4(buyPrice),
						SellPrice:     round4(sellPrice),
						BuyFee:        round4(buyFee),
						SellFee:       round4(sellFee),
						WithdrawalFee: round4(withdrawalFee),
						GrossProfit:   round4(sellPrice - buyPrice),
						TotalFees:     round4(buyFee + sellFee + withdrawalFee),
						NetProfit:     round4(netProfit),
						ProfitPct:     round4(profitPct),
					},
					DetectedAt: time.Now().UTC(),
				})
			}
		}
	}
	return opps, nil
}

// round4 rounds to the fixed 4-decimal display precision. Filtering above is
// done on full-precision values; rounding is presentation-only.
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
