package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/username/trackfolio/src/models"
)

const defaultAlphaVantageURL = "https://www.alphavantage.co"

// AlphaVantageClient is the fallback quote provider and the news source.
type AlphaVantageClient struct {
	client  *Client
	baseURL string
	apiKey  string
}

type alphaVantageQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

type alphaVantageNewsResponse struct {
	Feed []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		TimePublished string `json:"time_published"`
		Summary       string `json:"summary"`
		Source        string `json:"source"`
		TickerSent    []struct {
			Ticker         string `json:"ticker"`
			RelevanceScore string `json:"relevance_score"`
			SentimentLabel string `json:"ticker_sentiment_label"`
		} `json:"ticker_sentiment"`
	} `json:"feed"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

func NewAlphaVantageClient(apiKey string, rps float64, burst int) *AlphaVantageClient {
	return &AlphaVantageClient{
		client:  NewClient("alphavantage", rps, burst),
		baseURL: defaultAlphaVantageURL,
		apiKey:  apiKey,
	}
}

func NewAlphaVantageClientForTest(baseURL, apiKey string) *AlphaVantageClient {
	return &AlphaVantageClient{client: NewClient("alphavantage", 100, 100), baseURL: baseURL, apiKey: apiKey}
}

// GetQuote fetches the latest price for a symbol via GLOBAL_QUOTE. Prices come
// back in the listing currency, which Alpha Vantage does not report; callers
// must resolve the currency themselves (the ticker map stores it).
func (c *AlphaVantageClient) GetQuote(ctx context.Context, symbol string) (float64, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("alphavantage: API key not configured")
	}
	endpoint := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

	var parsed alphaVantageQuoteResponse
	if err := c.client.GetJSON(ctx, endpoint, &parsed); err != nil {
		return 0, err
	}
	if parsed.Note != "" || parsed.Information != "" {
		return 0, fmt.Errorf("alphavantage: API limit or error: %s%s", parsed.Note, parsed.Information)
	}
	if parsed.GlobalQuote.Price == "" {
		return 0, fmt.Errorf("alphavantage: no quote for symbol %s", symbol)
	}

	price, err := strconv.ParseFloat(parsed.GlobalQuote.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("alphavantage: unparseable price %q: %w", parsed.GlobalQuote.Price, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("alphavantage: non-positive price for %s", symbol)
	}
	return price, nil
}

// GetNews fetches recent news with sentiment for a ticker via NEWS_SENTIMENT.
func (c *AlphaVantageClient) GetNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("alphavantage: API key not configured")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	endpoint := fmt.Sprintf("%s/query?function=NEWS_SENTIMENT&tickers=%s&limit=%d&apikey=%s",
		c.baseURL, url.QueryEscape(ticker), limit, url.QueryEscape(c.apiKey))

	var parsed alphaVantageNewsResponse
	if err := c.client.GetJSON(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}
	if parsed.Note != "" || parsed.Information != "" {
		return nil, fmt.Errorf("alphavantage: API limit or error: %s%s", parsed.Note, parsed.Information)
	}

	articles := make([]models.NewsArticle, 0, len(parsed.Feed))
	for _, item := range parsed.Feed {
		article := models.NewsArticle{
			Title:   item.Title,
			URL:     item.URL,
			Source:  item.Source,
			Summary: item.Summary,
		}
		if t, err := time.Parse("20060102T150405", item.TimePublished); err == nil {
			article.PublishedAt = t.Format(time.RFC3339)
		}
		for _, ts := range item.TickerSent {
			if ts.Ticker != ticker {
				continue
			}
			article.Sentiment = ts.SentimentLabel
			if score, err := strconv.ParseFloat(ts.RelevanceScore, 64); err == nil {
				article.RelevanceScore = score
			}
		}
		articles = append(articles, article)
	}
	return articles, nil
}
