package venue

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crossvenue/arbscan/internal/domain"
)

func thornodeStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/thorchain/pools", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"asset":"BTC.BTC","status":"Available","asset_tor_price":"6012345678901","balance_asset":"120000000000"},
			{"asset":"ETH.USDC-0XA0B86991","status":"Available","asset_tor_price":"100000000","balance_asset":"9"},
			{"asset":"DOGE.DOGE","status":"Staged","asset_tor_price":"12000000","balance_asset":"1"}
		]`))
	})
	mux.HandleFunc("/thorchain/inbound_addresses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"chain":"BTC","outbound_fee":"1500","halted":false},
			{"chain":"ETH","outbound_fee":"240000","halted":true}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBridgeFetchTicker(t *testing.T) {
	srv := thornodeStub(t)
	b := NewBridge(BridgeConfig{Name: "thorchain", NodeURL: srv.URL, SpreadPct: 0.002})

	q, err := b.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("FetchTicker: %v", err)
	}
	wantMid := 6012345678901.0 / 1e8
	if math.Abs(q.Last-wantMid) > 1e-6 {
		t.Errorf("mid=%v want %v", q.Last, wantMid)
	}
	if math.Abs(q.Bid-wantMid*0.998) > 1e-6 || math.Abs(q.Ask-wantMid*1.002) > 1e-6 {
		t.Errorf("spread wrong: bid=%v ask=%v mid=%v", q.Bid, q.Ask, q.Last)
	}
	if q.VenueID != "thorchain" || q.Symbol != "BTC/USDT" {
		t.Errorf("quote not stamped: %+v", q)
	}
}

func TestBridgeSkipsStagedAndTokenPools(t *testing.T) {
	srv := thornodeStub(t)
	b := NewBridge(BridgeConfig{Name: "thorchain", NodeURL: srv.URL})

	// DOGE pool exists but is Staged, not Available.
	if _, err := b.FetchTicker(context.Background(), "DOGE/USDT"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("staged pool: got %v, want ErrNotFound", err)
	}
	// USDC token pool must not masquerade as a USDC layer-1 pool.
	if _, err := b.FetchTicker(context.Background(), "USDC/USDT"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("token pool: got %v, want ErrNotFound", err)
	}
}

func TestBridgeRejectsNonUSDQuote(t *testing.T) {
	srv := thornodeStub(t)
	b := NewBridge(BridgeConfig{Name: "thorchain", NodeURL: srv.URL})
	if _, err := b.FetchTicker(context.Background(), "ETH/BTC"); !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
}

func TestBridgeTransferFees(t *testing.T) {
	srv := thornodeStub(t)
	b := NewBridge(BridgeConfig{Name: "thorchain", NodeURL: srv.URL})

	frag, err := b.FetchTransferFees(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("FetchTransferFees: %v", err)
	}
	if frag.WithdrawalFee != 1500.0/1e8 {
		t.Errorf("fee=%v want %v", frag.WithdrawalFee, 1500.0/1e8)
	}

	// Halted chains report no fee.
	if _, err := b.FetchTransferFees(context.Background(), "ETH"); !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("halted chain: got %v, want ErrUnsupported", err)
	}
	if _, err := b.FetchTransferFees(context.Background(), "SOL"); !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("unknown chain: got %v, want ErrUnsupported", err)
	}
}
