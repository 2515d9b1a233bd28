package services

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/username/trackfolio/src/database"
	"github.com/username/trackfolio/src/marketdata"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/processors"
	"github.com/username/trackfolio/src/utils"
)

type fixedRates map[string]float64

func (f fixedRates) LatestRates() (map[string]float64, string, error) {
	return f, "2024-06-03", nil
}

func TestToEURConvertsPence(t *testing.T) {
	processors.SetRateSource(fixedRates{"GBP": 0.80, "USD": 1.10})

	price, err := toEUR(100, "GBp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 100 pence = 1 GBP = 1.25 EUR at 0.80 GBP per EUR.
	if math.Abs(price-1.25) > 1e-9 {
		t.Fatalf("expected 1.25 EUR, got %f", price)
	}

	same, err := toEUR(42, "EUR")
	if err != nil || same != 42 {
		t.Fatalf("expected EUR passthrough, got %f (%v)", same, err)
	}

	usd, err := toEUR(110, "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(usd-100) > 1e-9 {
		t.Fatalf("expected 100 EUR, got %f", usd)
	}
}

func TestValuePositionsWithCoinGecko(t *testing.T) {
	database.InitDB(filepath.Join(t.TempDir(), "trackfolio_test.db"))
	processors.SetRateSource(nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"eur":50000}}`))
	}))
	defer server.Close()

	svc := NewPriceService(database.DB,
		marketdata.NewYahooClientForTest(server.URL),
		marketdata.NewAlphaVantageClientForTest(server.URL, ""),
		marketdata.NewCoinGeckoClientForTest(server.URL))

	positions := []models.Position{{
		ProductName:  "BTC",
		ISIN:         utils.FabricatePseudoISIN("BTC"),
		IsCrypto:     true,
		Quantity:     decimal.NewFromFloat(0.5),
		CostBasisEUR: decimal.NewFromInt(20000),
	}}

	value, err := svc.ValuePositions(context.Background(), positions)
	if err != nil {
		t.Fatalf("ValuePositions: %v", err)
	}
	if value.PositionCount != 1 {
		t.Fatalf("expected 1 position, got %d", value.PositionCount)
	}
	if value.TotalValueEUR != 25000 {
		t.Errorf("expected market value 25000, got %f", value.TotalValueEUR)
	}
	if value.TotalCostEUR != 20000 || value.UnrealizedEUR != 5000 {
		t.Errorf("unexpected totals: %+v", value)
	}
	if len(value.UnpricedISINs) != 0 {
		t.Errorf("expected every position priced, got %v", value.UnpricedISINs)
	}
	if value.Positions[0].PriceSource != "coingecko" {
		t.Errorf("unexpected price source: %q", value.Positions[0].PriceSource)
	}
}

func TestValuePositionsReportsUnpriced(t *testing.T) {
	database.InitDB(filepath.Join(t.TempDir(), "trackfolio_test.db"))
	processors.SetRateSource(nil)

	// Every provider fails: searches return nothing usable.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quotes":[]}`))
	}))
	defer server.Close()

	svc := NewPriceService(database.DB,
		marketdata.NewYahooClientForTest(server.URL),
		marketdata.NewAlphaVantageClientForTest(server.URL, ""),
		marketdata.NewCoinGeckoClientForTest(server.URL))

	positions := []models.Position{{
		ProductName:  "ACME CORP",
		ISIN:         "US0000000001",
		Quantity:     decimal.NewFromInt(10),
		CostBasisEUR: decimal.NewFromInt(257),
	}}

	value, err := svc.ValuePositions(context.Background(), positions)
	if err != nil {
		t.Fatalf("ValuePositions: %v", err)
	}
	if len(value.UnpricedISINs) != 1 || value.UnpricedISINs[0] != "US0000000001" {
		t.Fatalf("expected unpriced ISIN reported, got %v", value.UnpricedISINs)
	}
	// Cost still counts toward the aggregate even without a live price.
	if value.TotalCostEUR != 257 || value.TotalValueEUR != 0 {
		t.Fatalf("unexpected totals: %+v", value)
	}
}

func TestClosedPositionsAreSkipped(t *testing.T) {
	database.InitDB(filepath.Join(t.TempDir(), "trackfolio_test.db"))

	svc := NewPriceService(database.DB, nil, nil, marketdata.NewCoinGeckoClientForTest("http://unused.invalid"))
	positions := []models.Position{{
		ProductName: "ACME CORP",
		ISIN:        "US0000000001",
		Quantity:    decimal.Zero,
	}}

	value, err := svc.ValuePositions(context.Background(), positions)
	if err != nil {
		t.Fatalf("ValuePositions: %v", err)
	}
	if value.PositionCount != 0 || len(value.Positions) != 0 {
		t.Fatalf("expected closed position skipped, got %+v", value)
	}
}
