package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/username/trackfolio/src/models"
)

const defaultFrankfurterURL = "https://api.frankfurter.app"

// FrankfurterClient fetches ECB reference rates from the frankfurter.app API.
// It satisfies the processors.RateSource interface.
type FrankfurterClient struct {
	client  *Client
	baseURL string
}

func NewFrankfurterClient(rps float64, burst int) *FrankfurterClient {
	return &FrankfurterClient{client: NewClient("frankfurter", rps, burst), baseURL: defaultFrankfurterURL}
}

func NewFrankfurterClientForTest(baseURL string) *FrankfurterClient {
	return &FrankfurterClient{client: NewClient("frankfurter", 100, 100), baseURL: baseURL}
}

// LatestRates returns the latest EUR-base rates and their reference date.
func (c *FrankfurterClient) LatestRates() (map[string]float64, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var parsed models.FrankfurterResponse
	if err := c.client.GetJSON(ctx, c.baseURL+"/latest?from=EUR", &parsed); err != nil {
		return nil, "", err
	}
	if len(parsed.Rates) == 0 {
		return nil, "", fmt.Errorf("frankfurter: empty rate table")
	}
	return parsed.Rates, parsed.Date, nil
}
