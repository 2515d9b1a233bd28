package services

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/marketdata"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/utils"
)

const (
	ckNews              = "news_%s" // keyed by ISIN
	newsCacheExpiration = 30 * time.Minute
)

// NewsService serves recent headlines with sentiment for a held instrument.
// Crypto pseudo-ISINs are not covered by the news provider.
type NewsService struct {
	alphaVantage *marketdata.AlphaVantageClient
	priceService *PriceService
	newsCache    *cache.Cache
}

func NewNewsService(alphaVantage *marketdata.AlphaVantageClient, priceService *PriceService) *NewsService {
	return &NewsService{
		alphaVantage: alphaVantage,
		priceService: priceService,
		newsCache:    cache.New(newsCacheExpiration, 2*newsCacheExpiration),
	}
}

func (s *NewsService) GetNewsForISIN(ctx context.Context, isin string) ([]models.NewsArticle, error) {
	if utils.IsPseudoISIN(isin) {
		return nil, fmt.Errorf("news is not available for crypto instruments")
	}

	cacheKey := fmt.Sprintf(ckNews, isin)
	if cached, found := s.newsCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for news", "isin", isin)
		return cached.([]models.NewsArticle), nil
	}

	ticker, err := s.priceService.TickerForISIN(ctx, isin)
	if err != nil {
		return nil, fmt.Errorf("could not resolve ticker for %s: %w", isin, err)
	}

	articles, err := s.alphaVantage.GetNews(ctx, ticker, 10)
	if err != nil {
		return nil, err
	}

	s.newsCache.Set(cacheKey, articles, cache.DefaultExpiration)
	return articles, nil
}
