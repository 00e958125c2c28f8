package arbitrage

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/crossvenue/arbscan/internal/domain"
)

const eps = 1e-9

func feeModel(defTaker float64, overrides map[string]domain.FeeSchedule) *FeeModel {
	return NewFeeModel(domain.FeeSchedule{TakerRate: defTaker}, overrides)
}

func quote(venue, symbol string, bid, ask float64) domain.Quote {
	return domain.Quote{
		VenueID:    venue,
		Symbol:     symbol,
		Bid:        bid,
		Ask:        ask,
		ObservedAt: time.Now(),
	}
}

func TestScanExactArithmetic(t *testing.T) {
	// Venue A: taker 0.001, no withdrawal fee. Venue B: taker 0.002.
	// Buy on A at 100, sell on B at 102.
	fees := feeModel(0, map[string]domain.FeeSchedule{
		"a": {TakerRate: 0.001},
		"b": {TakerRate: 0.002},
	})
	quotes := []domain.Quote{
		quote("a", "X/USDT", 99.9, 100),
		quote("b", "X/USDT", 102, 102.2),
	}

	opps, err := Scan(quotes, fees, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	o := opps[0]
	if o.BuyVenue != "a" || o.SellVenue != "b" {
		t.Fatalf("pair %s->%s, want a->b", o.BuyVenue, o.SellVenue)
	}

	totalCost := 100 + 100*0.001       // 100.1
	netRevenue := 102 - 102*0.002      // 101.796
	netProfit := netRevenue - totalCost // 1.696
	profitPct := netProfit / totalCost * 100

	if math.Abs(o.BuyFee-0.1) > eps {
		t.Errorf("BuyFee=%v want 0.1", o.BuyFee)
	}
	if math.Abs(o.SellFee-0.204) > eps {
		t.Errorf("SellFee=%v want 0.204", o.SellFee)
	}
	if math.Abs(o.NetProfit-round4(netProfit)) > eps {
		t.Errorf("NetProfit=%v want %v", o.NetProfit, round4(netProfit))
	}
	if math.Abs(o.ProfitPct-round4(profitPct)) > eps {
		t.Errorf("ProfitPct=%v want %v", o.ProfitPct, round4(profitPct))
	}
	if math.Abs(o.GrossProfit-2) > eps {
		t.Errorf("GrossProfit=%v want 2", o.GrossProfit)
	}
}

func TestScanWithdrawalFeeConversion(t *testing.T) {
	// 0.0005 BTC withdrawal fee converted at the buy-side price of 50000
	// must cost exactly 25 in quote currency.
	fees := NewFeeModel(domain.FeeSchedule{TakerRate: 0}, map[string]domain.FeeSchedule{
		"a": {TakerRate: 0, WithdrawalFees: map[string]float64{"BTC": 0.0005}},
		"b": {TakerRate: 0},
	})
	quotes := []domain.Quote{
		quote("a", "BTC/USDT", 49990, 50000),
		quote("b", "BTC/USDT", 50100, 50110),
	}

	opps, err := Scan(quotes, fees, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	o := opps[0]
	if math.Abs(o.WithdrawalFee-25) > eps {
		t.Errorf("WithdrawalFee=%v want 25", o.WithdrawalFee)
	}
	if math.Abs(o.NetProfit-75) > eps {
		t.Errorf("NetProfit=%v want 75", o.NetProfit)
	}
}

func TestScanFiltersInvalidQuotes(t *testing.T) {
	fees := feeModel(0, nil)
	quotes := []domain.Quote{
		quote("inverted", "X/USDT", 105, 100), // bid > ask: invalid
		quote("nobid", "X/USDT", 0, 100),      // missing bid: invalid
		quote("noask", "X/USDT", 100, 0),      // missing ask: invalid
		quote("good", "X/USDT", 99, 100),      // only one valid quote left
	}

	opps, err := Scan(quotes, fees, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities from invalid quotes, want 0", len(opps))
	}
}

func TestScanSkipsSymbolWithSingleQuote(t *testing.T) {
	fees := feeModel(0, nil)
	quotes := []domain.Quote{
		quote("a", "X/USDT", 99, 100),
		quote("a2", "Y/USDT", 10, 10.1),
		quote("b2", "Y/USDT", 10.5, 10.6),
	}

	opps, err := Scan(quotes, fees, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, o := range opps {
		if o.Symbol == "X/USDT" {
			t.Fatalf("opportunity emitted for symbol with a single quote")
		}
	}
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1 (Y/USDT)", len(opps))
	}
}

func TestScanNoSelfPairing(t *testing.T) {
	// Three venues with monotone prices: a->b, a->c, b->c are profitable,
	// nothing pairs with itself.
	fees := feeModel(0, nil)
	quotes := []domain.Quote{
		quote("a", "X/USDT", 99.9, 100),
		quote("b", "X/USDT", 102, 103),
		quote("c", "X/USDT", 105, 106),
	}

	opps, err := Scan(quotes, fees, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(opps) != 3 {
		t.Fatalf("got %d opportunities, want 3", len(opps))
	}
	got := map[string]bool{}
	for _, o := range opps {
		if o.BuyVenue == o.SellVenue {
			t.Fatalf("self-paired opportunity %s->%s", o.BuyVenue, o.SellVenue)
		}
		got[o.BuyVenue+"->"+o.SellVenue] = true
	}
	for _, want := range []string{"a->b", "a->c", "b->c"} {
		if !got[want] {
			t.Errorf("missing pair %s", want)
		}
	}
}

func TestScanThresholdIsExclusive(t *testing.T) {
	// Zero fees, buy 100 sell 102: profit percentage is exactly 2.
	fees := feeModel(0, nil)
	quotes := []domain.Quote{
		quote("a", "X/USDT", 99, 100),
		quote("b", "X/USDT", 102, 103),
	}

	opps, err := Scan(quotes, fees, 2.0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(opps) != 0 {
		t.Fatalf("opportunity at exactly the threshold must be excluded, got %d", len(opps))
	}

	opps, err = Scan(quotes, fees, 1.9)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("opportunity above the threshold must be included, got %d", len(opps))
	}
}

func TestScanNetProfitMonotoneInTakerRate(t *testing.T) {
	quotes := []domain.Quote{
		quote("a", "X/USDT", 99, 100),
		quote("b", "X/USDT", 105, 106),
	}

	prev := math.Inf(1)
	for _, rate := range []float64{0, 0.0005, 0.001, 0.002, 0.004} {
		fees := feeModel(0, map[string]domain.FeeSchedule{
			"a": {TakerRate: rate},
			"b": {TakerRate: 0.001},
		})
		opps, err := Scan(quotes, fees, 0)
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if len(opps) != 1 {
			t.Fatalf("got %d opportunities, want 1", len(opps))
		}
		if opps[0].NetProfit >= prev {
			t.Fatalf("net profit %v did not decrease (prev %v) as taker rate rose to %v",
				opps[0].NetProfit, prev, rate)
		}
		prev = opps[0].NetProfit
	}
}

func TestScanIdempotence(t *testing.T) {
	fees := feeModel(0.001, map[string]domain.FeeSchedule{
		"a": {TakerRate: 0.001, WithdrawalFees: map[string]float64{"ETH": 0.005}},
	})
	quotes := []domain.Quote{
		quote("a", "ETH/USDT", 2999, 3000),
		quote("b", "ETH/USDT", 3050, 3051),
		quote("c", "ETH/USDT", 3040, 3042),
	}

	first, err := Scan(quotes, fees, 0.1)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := Scan(quotes, fees, 0.1)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("run sizes differ: %d vs %d", len(first), len(second))
	}
	key := func(o domain.Opportunity) string {
		return o.Symbol + "|" + o.BuyVenue + "|" + o.SellVenue
	}
	a, b := make([]string, 0, len(first)), make([]string, 0, len(second))
	byKey := map[string]domain.VenuePairResult{}
	for _, o := range first {
		a = append(a, key(o))
		byKey[key(o)] = o.VenuePairResult
	}
	for _, o := range second {
		b = append(b, key(o))
		if byKey[key(o)] != o.VenuePairResult {
			t.Fatalf("economics differ between runs for %s", key(o))
		}
	}
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("opportunity sets differ: %v vs %v", a, b)
		}
	}
}

func TestScanNilFeeResolver(t *testing.T) {
	_, err := Scan([]domain.Quote{quote("a", "X/USDT", 99, 100)}, nil, 0)
	if err == nil {
		t.Fatal("want error for nil fee resolver")
	}
}

func TestScanRoundsDisplayFields(t *testing.T) {
	fees := feeModel(0.00123, nil)
	quotes := []domain.Quote{
		quote("a", "X/USDT", 3333.3, 3333.333333),
		quote("b", "X/USDT", 3350.111111, 3351),
	}

	opps, err := Scan(quotes, fees, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	o := opps[0]
	for name, v := range map[string]float64{
		"BuyPrice":      o.BuyPrice,
		"SellPrice":     o.SellPrice,
		"BuyFee":        o.BuyFee,
		"SellFee":       o.SellFee,
		"WithdrawalFee": o.WithdrawalFee,
		"GrossProfit":   o.GrossProfit,
		"TotalFees":     o.TotalFees,
		"NetProfit":     o.NetProfit,
		"ProfitPct":     o.ProfitPct,
	} {
		if v != round4(v) {
			t.Errorf("%s=%v not rounded to 4 decimals", name, v)
		}
	}
}
