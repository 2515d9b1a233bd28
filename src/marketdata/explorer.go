package marketdata

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

// ExplorerClient queries an Etherscan-compatible blockchain explorer API for
// on-chain wallet balances. Watched wallets are valued alongside exchange
// holdings without the user importing any statement for them.
type ExplorerClient struct {
	client  *Client
	baseURL string
	apiKey  string
}

type explorerBalanceResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// weiPerEther is 10^18, the smallest-unit scale for ETH-like chains.
var weiPerEther = decimal.New(1, 18)

func NewExplorerClient(baseURL, apiKey string, rps float64, burst int) *ExplorerClient {
	return &ExplorerClient{
		client:  NewClient("explorer", rps, burst),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// NativeBalance returns the native coin balance of an address in whole units
// (e.g. ETH, not wei).
func (c *ExplorerClient) NativeBalance(ctx context.Context, address string) (float64, error) {
	if address == "" {
		return 0, fmt.Errorf("explorer: address is required")
	}
	endpoint := fmt.Sprintf("%s?module=account&action=balance&address=%s&tag=latest&apikey=%s",
		c.baseURL, url.QueryEscape(address), url.QueryEscape(c.apiKey))

	var parsed explorerBalanceResponse
	if err := c.client.GetJSON(ctx, endpoint, &parsed); err != nil {
		return 0, err
	}
	if parsed.Status != "1" {
		return 0, fmt.Errorf("explorer: API error for %s: %s", address, parsed.Message)
	}

	wei, err := decimal.NewFromString(parsed.Result)
	if err != nil {
		return 0, fmt.Errorf("explorer: unparseable balance %q: %w", parsed.Result, err)
	}
	balance, _ := wei.Div(weiPerEther).Float64()
	return balance, nil
}
