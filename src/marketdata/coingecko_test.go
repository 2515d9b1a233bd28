package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCoinGeckoSimplePriceEUR(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		ids := r.URL.Query().Get("ids")
		if !strings.Contains(ids, "bitcoin") || !strings.Contains(ids, "solana") {
			t.Errorf("expected resolved coin ids, got %q", ids)
		}
		if r.URL.Query().Get("vs_currencies") != "eur" {
			t.Errorf("expected eur vs_currency, got %q", r.URL.Query().Get("vs_currencies"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"eur":52000.5},"solana":{"eur":120.25}}`))
	}))
	defer server.Close()

	client := NewCoinGeckoClientForTest(server.URL)
	prices, err := client.SimplePriceEUR(context.Background(), []string{"BTC", "SOL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prices["BTC"] != 52000.5 || prices["SOL"] != 120.25 {
		t.Fatalf("expected prices keyed by original symbol, got %v", prices)
	}
}

func TestCoinGeckoPriceEURMissingSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewCoinGeckoClientForTest(server.URL)
	if _, err := client.PriceEUR(context.Background(), "BTC"); err == nil {
		t.Fatalf("expected error for missing price")
	}
}

func TestCoinGeckoSimplePriceEURNoSymbols(t *testing.T) {
	client := NewCoinGeckoClientForTest("http://unused.invalid")
	prices, err := client.SimplePriceEUR(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 0 {
		t.Fatalf("expected empty result, got %v", prices)
	}
}

func TestCoinID(t *testing.T) {
	if got := CoinID("btc"); got != "bitcoin" {
		t.Errorf("expected bitcoin, got %q", got)
	}
	if got := CoinID("NEWCOIN"); got != "newcoin" {
		t.Errorf("expected lowercase passthrough, got %q", got)
	}
}
