package processors

import (
	"errors"
	"math"
	"testing"
	"time"
)

type stubRateSource struct {
	rates map[string]float64
	date  string
	err   error
}

func (s *stubRateSource) LatestRates() (map[string]float64, string, error) {
	return s.rates, s.date, s.err
}

func TestGetExchangeRateLive(t *testing.T) {
	SetRateSource(&stubRateSource{
		rates: map[string]float64{"USD": 1.12, "GBP": 0.84},
		date:  "2024-06-03",
	})

	rate, err := GetExchangeRate("usd", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 1.12 {
		t.Fatalf("expected live rate 1.12, got %f", rate)
	}
}

func TestGetExchangeRateEURIsIdentity(t *testing.T) {
	SetRateSource(nil)
	for _, ccy := range []string{"EUR", "eur", ""} {
		rate, err := GetExchangeRate(ccy, time.Now())
		if err != nil || rate != 1.0 {
			t.Fatalf("expected identity rate for %q, got %f (%v)", ccy, rate, err)
		}
	}
}

func TestGetExchangeRateFallsBackWhenSourceFails(t *testing.T) {
	SetRateSource(&stubRateSource{err: errors.New("boom")})

	rate, err := GetExchangeRate("USD", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 1.09 {
		t.Fatalf("expected static USD fallback 1.09, got %f", rate)
	}

	if _, err := GetExchangeRate("XXX", time.Now()); err == nil {
		t.Fatalf("expected error for a currency missing from every table")
	}
}

func TestGetRateCrossThroughEUR(t *testing.T) {
	SetRateSource(&stubRateSource{
		rates: map[string]float64{"USD": 1.10, "GBP": 0.80},
		date:  "2024-06-03",
	})

	result, err := GetRate("USD", "GBP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.Rate-0.80/1.10) > 1e-12 {
		t.Errorf("expected cross rate %.6f, got %.6f", 0.80/1.10, result.Rate)
	}
	if result.Fallback {
		t.Errorf("expected live rates, fallback flag set")
	}
	if result.Date != "2024-06-03" {
		t.Errorf("expected live reference date, got %q", result.Date)
	}
}

func TestGetRateFallbackFlag(t *testing.T) {
	SetRateSource(&stubRateSource{
		rates: map[string]float64{"USD": 1.10},
		date:  "2024-06-03",
	})

	// SEK is absent from the live set, so the static table fills in.
	result, err := GetRate("USD", "SEK")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Fallback {
		t.Errorf("expected fallback flag when any leg uses the static table")
	}
	if math.Abs(result.Rate-11.3/1.10) > 1e-12 {
		t.Errorf("expected rate %.6f, got %.6f", 11.3/1.10, result.Rate)
	}
}

func TestGetRateSameCurrency(t *testing.T) {
	SetRateSource(nil)
	result, err := GetRate("USD", "USD")
	if err != nil || result.Rate != 1.0 {
		t.Fatalf("expected identity rate, got %f (%v)", result.Rate, err)
	}
}

func TestGetRateRequiresBothCurrencies(t *testing.T) {
	SetRateSource(nil)
	if _, err := GetRate("", "USD"); err == nil {
		t.Fatalf("expected error for missing 'from' currency")
	}
	if _, err := GetRate("USD", ""); err == nil {
		t.Fatalf("expected error for missing 'to' currency")
	}
}
