package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAlphaVantageGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") != "GLOBAL_QUOTE" {
			t.Errorf("unexpected function: %q", r.URL.Query().Get("function"))
		}
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Errorf("expected api key forwarded, got %q", r.URL.Query().Get("apikey"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Global Quote":{"01. symbol":"ACME","05. price":"123.4500"}}`))
	}))
	defer server.Close()

	client := NewAlphaVantageClientForTest(server.URL, "test-key")
	price, err := client.GetQuote(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 123.45 {
		t.Fatalf("expected 123.45, got %f", price)
	}
}

func TestAlphaVantageGetQuoteAPILimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	}))
	defer server.Close()

	client := NewAlphaVantageClientForTest(server.URL, "test-key")
	_, err := client.GetQuote(context.Background(), "ACME")
	if err == nil || !strings.Contains(err.Error(), "API limit") {
		t.Fatalf("expected API limit error, got %v", err)
	}
}

func TestAlphaVantageGetQuoteRequiresAPIKey(t *testing.T) {
	client := NewAlphaVantageClientForTest("http://unused.invalid", "")
	if _, err := client.GetQuote(context.Background(), "ACME"); err == nil {
		t.Fatalf("expected error without API key")
	}
}

func TestAlphaVantageGetNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") != "NEWS_SENTIMENT" {
			t.Errorf("unexpected function: %q", r.URL.Query().Get("function"))
		}
		if r.URL.Query().Get("tickers") != "ACME" {
			t.Errorf("unexpected tickers: %q", r.URL.Query().Get("tickers"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"feed":[{
			"title":"ACME beats estimates",
			"url":"https://example.com/a",
			"time_published":"20240603T143000",
			"summary":"Quarterly results above expectations.",
			"source":"Example Wire",
			"ticker_sentiment":[
				{"ticker":"ACME","relevance_score":"0.85","ticker_sentiment_label":"Bullish"},
				{"ticker":"OTHR","relevance_score":"0.10","ticker_sentiment_label":"Neutral"}
			]
		}]}`))
	}))
	defer server.Close()

	client := NewAlphaVantageClientForTest(server.URL, "test-key")
	articles, err := client.GetNews(context.Background(), "ACME", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}

	article := articles[0]
	if article.Title != "ACME beats estimates" || article.Source != "Example Wire" {
		t.Errorf("unexpected article: %+v", article)
	}
	if article.Sentiment != "Bullish" || article.RelevanceScore != 0.85 {
		t.Errorf("expected sentiment for the requested ticker only, got %+v", article)
	}
	if !strings.HasPrefix(article.PublishedAt, "2024-06-03T14:30:00") {
		t.Errorf("unexpected published time: %q", article.PublishedAt)
	}
}
