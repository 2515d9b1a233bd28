package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/marketdata"
	"github.com/username/trackfolio/src/model"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/processors"
	"github.com/username/trackfolio/src/utils"
)

const (
	ckQuote              = "quote_eur_%s" // keyed by ISIN
	quoteCacheExpiration = 15 * time.Minute
)

// PriceService resolves current EUR prices for held instruments. Stocks go
// through Yahoo Finance with Alpha Vantage as fallback; crypto pseudo-ISINs go
// to CoinGecko. Resolved ISIN-to-ticker mappings are persisted so the search
// endpoint is only consulted once per instrument.
type PriceService struct {
	db           *sql.DB
	yahoo        *marketdata.YahooClient
	alphaVantage *marketdata.AlphaVantageClient
	coinGecko    *marketdata.CoinGeckoClient
	quoteCache   *cache.Cache
}

func NewPriceService(db *sql.DB, yahoo *marketdata.YahooClient, alphaVantage *marketdata.AlphaVantageClient, coinGecko *marketdata.CoinGeckoClient) *PriceService {
	return &PriceService{
		db:           db,
		yahoo:        yahoo,
		alphaVantage: alphaVantage,
		coinGecko:    coinGecko,
		quoteCache:   cache.New(quoteCacheExpiration, 2*quoteCacheExpiration),
	}
}

// PricedPosition is a position with its live valuation attached.
type PricedPosition struct {
	models.Position
	PriceEUR       float64 `json:"price_eur"`
	MarketValueEUR float64 `json:"market_value_eur"`
	PriceSource    string  `json:"price_source"`
}

// PortfolioValue is the aggregate served by GET /api/portfolio/value.
type PortfolioValue struct {
	TotalValueEUR float64          `json:"total_value_eur"`
	TotalCostEUR  float64          `json:"total_cost_eur"`
	UnrealizedEUR float64          `json:"unrealized_eur"`
	PositionCount int              `json:"position_count"`
	UnpricedISINs []string         `json:"unpriced_isins,omitempty"`
	Positions     []PricedPosition `json:"positions"`
	AsOf          string           `json:"as_of"`
}

// ValuePositions attaches live EUR prices to the open positions and sums the
// portfolio. Instruments with no resolvable price are reported, not dropped.
func (s *PriceService) ValuePositions(ctx context.Context, positions []models.Position) (*PortfolioValue, error) {
	value := &PortfolioValue{AsOf: time.Now().UTC().Format(time.RFC3339)}

	cryptoPrices := s.cryptoPrices(ctx, positions)

	for _, pos := range positions {
		if !pos.Quantity.IsPositive() {
			continue
		}
		qty, _ := pos.Quantity.Float64()
		costEUR, _ := pos.CostBasisEUR.Float64()

		priced := PricedPosition{Position: pos}
		var priceEUR float64
		var source string
		var err error

		if pos.IsCrypto {
			if p, ok := cryptoPrices[pos.ProductName]; ok {
				priceEUR, source = p, "coingecko"
			} else {
				err = fmt.Errorf("%w: %s", ErrPriceUnavailable, pos.ProductName)
			}
		} else {
			priceEUR, source, err = s.stockPriceEUR(ctx, pos.ISIN, pos.ProductName)
		}

		if err != nil {
			logger.L.Warn("No live price for position", "isin", pos.ISIN, "product", pos.ProductName, "error", err)
			value.UnpricedISINs = append(value.UnpricedISINs, pos.ISIN)
		} else {
			priced.PriceEUR = priceEUR
			priced.MarketValueEUR = qty * priceEUR
			priced.PriceSource = source
			value.TotalValueEUR += priced.MarketValueEUR
		}

		value.TotalCostEUR += costEUR
		value.PositionCount++
		value.Positions = append(value.Positions, priced)
	}

	value.UnrealizedEUR = value.TotalValueEUR - value.TotalCostEUR
	return value, nil
}

// cryptoPrices batches all crypto symbols into one CoinGecko call.
func (s *PriceService) cryptoPrices(ctx context.Context, positions []models.Position) map[string]float64 {
	var symbols []string
	cached := make(map[string]float64)
	for _, pos := range positions {
		if !pos.IsCrypto || !pos.Quantity.IsPositive() {
			continue
		}
		if price, found := s.quoteCache.Get(fmt.Sprintf(ckQuote, pos.ISIN)); found {
			cached[pos.ProductName] = price.(float64)
			continue
		}
		symbols = append(symbols, pos.ProductName)
	}
	if len(symbols) == 0 {
		return cached
	}

	prices, err := s.coinGecko.SimplePriceEUR(ctx, symbols)
	if err != nil {
		logger.L.Warn("CoinGecko batch price fetch failed", "symbols", len(symbols), "error", err)
		return cached
	}
	for symbol, price := range prices {
		cached[symbol] = price
		s.quoteCache.Set(fmt.Sprintf(ckQuote, utils.FabricatePseudoISIN(symbol)), price, cache.DefaultExpiration)
	}
	return cached
}

// stockPriceEUR resolves an ISIN to a ticker, quotes it and converts to EUR.
func (s *PriceService) stockPriceEUR(ctx context.Context, isin, productName string) (float64, string, error) {
	cacheKey := fmt.Sprintf(ckQuote, isin)
	if price, found := s.quoteCache.Get(cacheKey); found {
		return price.(float64), "cache", nil
	}

	mapping, err := s.resolveTicker(ctx, isin, productName)
	if err != nil {
		return 0, "", err
	}

	// Yahoo first; it reports the quote currency alongside the price.
	if quote, err := s.yahoo.GetQuote(ctx, mapping.TickerSymbol); err == nil {
		priceEUR, convErr := toEUR(quote.Price, quote.Currency)
		if convErr == nil {
			s.quoteCache.Set(cacheKey, priceEUR, cache.DefaultExpiration)
			return priceEUR, "yahoo", nil
		}
		logger.L.Warn("Currency conversion failed for Yahoo quote", "isin", isin, "currency", quote.Currency, "error", convErr)
	} else {
		logger.L.Warn("Yahoo quote failed, trying Alpha Vantage", "isin", isin, "ticker", mapping.TickerSymbol, "error", err)
	}

	// Alpha Vantage fallback; the listing currency comes from the stored mapping.
	price, err := s.alphaVantage.GetQuote(ctx, mapping.TickerSymbol)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %s (%s)", ErrPriceUnavailable, isin, mapping.TickerSymbol)
	}
	priceEUR, err := toEUR(price, mapping.Currency)
	if err != nil {
		return 0, "", err
	}
	s.quoteCache.Set(cacheKey, priceEUR, cache.DefaultExpiration)
	return priceEUR, "alphavantage", nil
}

// resolveTicker returns the persisted ISIN-to-ticker mapping, consulting the
// Yahoo search endpoint and storing the result on a miss.
func (s *PriceService) resolveTicker(ctx context.Context, isin, productName string) (model.InstrumentTickerMap, error) {
	mappings, err := model.GetTickerMappings(s.db, []string{isin})
	if err != nil {
		return model.InstrumentTickerMap{}, fmt.Errorf("ticker map lookup failed for %s: %w", isin, err)
	}
	if mapping, found := mappings[isin]; found {
		return mapping, nil
	}

	query := isin
	if query == "" {
		query = productName
	}
	matches, err := s.yahoo.Search(ctx, query)
	if err != nil {
		return model.InstrumentTickerMap{}, fmt.Errorf("ticker search failed for %s: %w", isin, err)
	}

	best := matches[0]
	quote, err := s.yahoo.GetQuote(ctx, best.Symbol)
	if err != nil {
		return model.InstrumentTickerMap{}, fmt.Errorf("quote for resolved ticker %s failed: %w", best.Symbol, err)
	}

	mapping := model.InstrumentTickerMap{
		ISIN:         isin,
		TickerSymbol: best.Symbol,
		Exchange:     sql.NullString{String: best.Exchange, Valid: best.Exchange != ""},
		Currency:     quote.Currency,
	}
	if err := model.UpsertTickerMapping(s.db, mapping); err != nil {
		logger.L.Warn("Failed to persist ticker mapping", "isin", isin, "ticker", best.Symbol, "error", err)
	} else {
		logger.L.Info("Resolved and stored ticker mapping", "isin", isin, "ticker", best.Symbol, "currency", quote.Currency)
	}
	return mapping, nil
}

// TickerForISIN exposes the mapping for the news handler.
func (s *PriceService) TickerForISIN(ctx context.Context, isin string) (string, error) {
	mapping, err := s.resolveTicker(ctx, isin, "")
	if err != nil {
		return "", err
	}
	return mapping.TickerSymbol, nil
}

func toEUR(price float64, currency string) (float64, error) {
	if currency == "" || currency == "EUR" {
		return price, nil
	}
	// London quotes come in pence.
	if currency == "GBp" || currency == "GBX" {
		price /= 100
		currency = "GBP"
	}
	rate, err := processors.GetExchangeRate(currency, time.Now())
	if err != nil {
		return 0, err
	}
	return price / rate, nil
}
