package processors

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
)

// RateSource provides live EUR-base reference rates. The marketdata package
// supplies the ECB-backed implementation; tests inject stubs.
type RateSource interface {
	LatestRates() (map[string]float64, string, error)
}

const liveRatesCacheKey = "eur_base_rates"

var (
	rateSource RateSource
	rateCache  = cache.New(12*time.Hour, 24*time.Hour)
)

// fallbackRates is the static table used when the live fetch fails or the
// currency is missing from the live set. Values are units per EUR.
var fallbackRates = map[string]float64{
	"USD": 1.09,
	"GBP": 0.85,
	"CHF": 0.94,
	"JPY": 164.0,
	"CAD": 1.48,
	"AUD": 1.63,
	"SEK": 11.3,
	"NOK": 11.6,
	"DKK": 7.46,
	"PLN": 4.31,
}

type cachedRates struct {
	rates map[string]float64
	date  string
}

// SetRateSource wires the live rate provider. Call once at startup.
func SetRateSource(s RateSource) {
	rateSource = s
	rateCache.Delete(liveRatesCacheKey)
}

// GetExchangeRate returns the rate for converting the given currency to EUR
// (units of currency per EUR). Live ECB rates are latest-day only; historical
// dates fall back to the latest rate, then to the static table.
func GetExchangeRate(currency string, date time.Time) (float64, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == "EUR" {
		return 1.0, nil
	}

	if live, ok := getLiveRates(); ok {
		if rate, found := live.rates[currency]; found && rate > 0 {
			return rate, nil
		}
	}

	if rate, found := fallbackRates[currency]; found {
		logger.L.Warn("Using static fallback exchange rate", "currency", currency)
		return rate, nil
	}
	return 0, fmt.Errorf("exchange rate not found for %s", currency)
}

// GetRate resolves a from/to conversion through EUR for the FX endpoint.
func GetRate(from, to string) (models.FXRate, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return models.FXRate{}, fmt.Errorf("both 'from' and 'to' currencies are required")
	}

	result := models.FXRate{From: from, To: to, Date: time.Now().Format("2006-01-02")}
	if from == to {
		result.Rate = 1.0
		return result, nil
	}

	live, liveOK := getLiveRates()
	lookup := func(ccy string) (float64, bool, error) {
		if ccy == "EUR" {
			return 1.0, false, nil
		}
		if liveOK {
			if rate, found := live.rates[ccy]; found && rate > 0 {
				return rate, false, nil
			}
		}
		if rate, found := fallbackRates[ccy]; found {
			return rate, true, nil
		}
		return 0, false, fmt.Errorf("exchange rate not found for %s", ccy)
	}

	fromRate, fromFallback, err := lookup(from)
	if err != nil {
		return models.FXRate{}, err
	}
	toRate, toFallback, err := lookup(to)
	if err != nil {
		return models.FXRate{}, err
	}

	// Rates are units per EUR, so from->to goes through the EUR base.
	result.Rate = toRate / fromRate
	result.Fallback = fromFallback || toFallback
	if liveOK && !result.Fallback {
		result.Date = live.date
	}
	return result, nil
}

func getLiveRates() (cachedRates, bool) {
	if cached, found := rateCache.Get(liveRatesCacheKey); found {
		return cached.(cachedRates), true
	}
	if rateSource == nil {
		return cachedRates{}, false
	}

	rates, date, err := rateSource.LatestRates()
	if err != nil {
		logger.L.Warn("Live exchange rate fetch failed, falling back to static table", "error", err)
		return cachedRates{}, false
	}

	entry := cachedRates{rates: rates, date: date}
	rateCache.Set(liveRatesCacheKey, entry, cache.DefaultExpiration)
	logger.L.Info("Live exchange rates refreshed", "date", date, "currencies", len(rates))
	return entry, true
}
