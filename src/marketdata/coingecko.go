package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient provides EUR spot prices for crypto assets. The free tier
// needs no API key but is aggressively rate limited, hence the shared limiter.
type CoinGeckoClient struct {
	client  *Client
	baseURL string
}

// coinIDs maps common ticker symbols to CoinGecko coin ids. Symbols outside
// this table are tried lowercased as-is, which works for many smaller coins.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"LTC":   "litecoin",
	"XRP":   "ripple",
	"XLM":   "stellar",
	"XMR":   "monero",
	"ADA":   "cardano",
	"DOT":   "polkadot",
	"SOL":   "solana",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"ATOM":  "cosmos",
	"USDT":  "tether",
	"USDC":  "usd-coin",
}

func NewCoinGeckoClient(rps float64, burst int) *CoinGeckoClient {
	return &CoinGeckoClient{client: NewClient("coingecko", rps, burst), baseURL: defaultCoinGeckoURL}
}

func NewCoinGeckoClientForTest(baseURL string) *CoinGeckoClient {
	return &CoinGeckoClient{client: NewClient("coingecko", 100, 100), baseURL: baseURL}
}

// CoinID resolves a ticker symbol to the CoinGecko coin id.
func CoinID(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if id, ok := coinIDs[symbol]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// SimplePriceEUR fetches the current EUR price for the given symbols in one
// batched /simple/price call. The result is keyed by the original symbol.
func (c *CoinGeckoClient) SimplePriceEUR(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	idToSymbol := make(map[string]string, len(symbols))
	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		id := CoinID(s)
		if _, seen := idToSymbol[id]; seen {
			continue
		}
		idToSymbol[id] = strings.ToUpper(strings.TrimSpace(s))
		ids = append(ids, id)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=eur",
		c.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	parsed := make(map[string]map[string]float64)
	if err := c.client.GetJSON(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(parsed))
	for id, quotes := range parsed {
		symbol, ok := idToSymbol[id]
		if !ok {
			continue
		}
		if eur, found := quotes["eur"]; found && eur > 0 {
			prices[symbol] = eur
		}
	}
	return prices, nil
}

// PriceEUR fetches the EUR price for a single symbol.
func (c *CoinGeckoClient) PriceEUR(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.SimplePriceEUR(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	price, ok := prices[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return 0, fmt.Errorf("coingecko: no EUR price for %s", symbol)
	}
	return price, nil
}
