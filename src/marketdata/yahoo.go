package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/username/trackfolio/src/logger"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultYahooQuoteURL  = "https://query1.finance.yahoo.com"
	defaultYahooCookieURL = "https://fc.yahoo.com"
	yahooUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36"
)

// YahooClient talks to the Yahoo Finance quote and search endpoints. Quote
// requests require a crumb that Yahoo only hands out alongside a session
// cookie, so the client keeps a cookie jar and refreshes the crumb lazily.
type YahooClient struct {
	client    *Client
	baseURL   string
	cookieURL string

	mu    sync.Mutex
	crumb string
}

type YahooQuote struct {
	Symbol   string
	Price    float64
	Currency string
}

// TickerMatch is one result of an ISIN or name search.
type TickerMatch struct {
	Symbol   string
	Exchange string
	Name     string
}

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
			Currency           string  `json:"currency"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		Exchange  string `json:"exchange"`
		ShortName string `json:"shortname"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

func NewYahooClient(rps float64, burst int) *YahooClient {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar for Yahoo client", "error", err)
	}
	hc := &http.Client{Jar: jar}
	return &YahooClient{
		client:    NewClientWithHTTP("yahoo", rps, burst, hc),
		baseURL:   defaultYahooQuoteURL,
		cookieURL: defaultYahooCookieURL,
	}
}

// NewYahooClientForTest points all endpoints at the given base URL and skips
// the cookie dance against the real cookie host.
func NewYahooClientForTest(baseURL string) *YahooClient {
	return &YahooClient{
		client:    NewClient("yahoo", 100, 100),
		baseURL:   baseURL,
		cookieURL: baseURL,
	}
}

// ensureCrumb obtains a session cookie and the API crumb if we do not hold
// one yet. Must be called with c.mu held.
func (c *YahooClient) ensureCrumb(ctx context.Context) error {
	if c.crumb != "" {
		return nil
	}

	cookieReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cookieURL, nil)
	if err != nil {
		return fmt.Errorf("yahoo: build cookie request: %w", err)
	}
	cookieReq.Header.Set("User-Agent", yahooUserAgent)
	// fc.yahoo.com answers 404 but sets the cookie we need.
	if resp, err := c.client.httpClient.Do(cookieReq); err == nil {
		resp.Body.Close()
	}

	crumbReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return fmt.Errorf("yahoo: build crumb request: %w", err)
	}
	crumbReq.Header.Set("User-Agent", yahooUserAgent)

	resp, err := c.client.Do(crumbReq)
	if err != nil {
		return fmt.Errorf("yahoo: fetch crumb: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo: crumb endpoint returned status %d", resp.StatusCode)
	}

	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	crumb := strings.TrimSpace(string(buf[:n]))
	if crumb == "" || strings.Contains(crumb, "<") {
		return fmt.Errorf("yahoo: received invalid crumb")
	}
	c.crumb = crumb
	logger.L.Debug("Yahoo crumb refreshed")
	return nil
}

// GetQuote fetches the latest market price for a ticker symbol.
func (c *YahooClient) GetQuote(ctx context.Context, symbol string) (YahooQuote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureCrumb(ctx); err != nil {
		return YahooQuote{}, err
	}

	quoteURL := fmt.Sprintf("%s/v7/finance/quote?symbols=%s&crumb=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.crumb))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, quoteURL, nil)
	if err != nil {
		return YahooQuote{}, fmt.Errorf("yahoo: build quote request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return YahooQuote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Crumb went stale; drop it so the next call re-authenticates.
		c.crumb = ""
		return YahooQuote{}, fmt.Errorf("yahoo: quote request unauthorized, crumb invalidated")
	}
	if resp.StatusCode != http.StatusOK {
		return YahooQuote{}, fmt.Errorf("yahoo: quote endpoint returned status %d", resp.StatusCode)
	}

	var parsed yahooQuoteResponse
	if err := decodeJSON(resp, &parsed); err != nil {
		return YahooQuote{}, fmt.Errorf("yahoo: decode quote: %w", err)
	}
	if len(parsed.QuoteResponse.Result) == 0 {
		return YahooQuote{}, fmt.Errorf("yahoo: no quote found for symbol %s", symbol)
	}

	r := parsed.QuoteResponse.Result[0]
	if r.RegularMarketPrice <= 0 {
		return YahooQuote{}, fmt.Errorf("yahoo: symbol %s has no market price", symbol)
	}
	return YahooQuote{Symbol: r.Symbol, Price: r.RegularMarketPrice, Currency: r.Currency}, nil
}

// Search resolves an ISIN or free-text query to candidate ticker symbols.
// Yahoo's search endpoint accepts ISINs directly.
func (c *YahooClient) Search(ctx context.Context, query string) ([]TickerMatch, error) {
	searchURL := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=5&newsCount=0",
		c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo: build search request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: search endpoint returned status %d", resp.StatusCode)
	}

	var parsed yahooSearchResponse
	if err := decodeJSON(resp, &parsed); err != nil {
		return nil, fmt.Errorf("yahoo: decode search: %w", err)
	}

	var matches []TickerMatch
	for _, q := range parsed.Quotes {
		if q.QuoteType != "EQUITY" && q.QuoteType != "ETF" {
			continue
		}
		matches = append(matches, TickerMatch{Symbol: q.Symbol, Exchange: q.Exchange, Name: q.ShortName})
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("yahoo: no ticker found for %q", query)
	}
	return matches, nil
}
