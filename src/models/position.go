package models

import "github.com/shopspring/decimal"

// Position is the aggregated holding of one instrument, reconstructed from its
// full transaction history using weighted-average cost.
type Position struct {
	ISIN          string          `json:"isin"`
	ProductName   string          `json:"product_name"`
	IsCrypto      bool            `json:"is_crypto"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgCostEUR    decimal.Decimal `json:"avg_cost_eur"`
	CostBasisEUR  decimal.Decimal `json:"cost_basis_eur"`
	RealizedPLEUR decimal.Decimal `json:"realized_pl_eur"`
	Currency      string          `json:"currency"` // trade currency of the underlying
	FirstTrade    string          `json:"first_trade,omitempty"`
	LastTrade     string          `json:"last_trade,omitempty"`
	SplitsApplied int             `json:"splits_applied,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
}

// SaleDetail pairs a sale with the purchase lot(s) it consumed (FIFO), for the
// realized gains report.
type SaleDetail struct {
	SaleDate      string  `json:"sale_date"`
	BuyDate       string  `json:"buy_date"`
	ProductName   string  `json:"product_name"`
	ISIN          string  `json:"isin"`
	Quantity      float64 `json:"quantity"`
	SalePrice     float64 `json:"sale_price"`
	SaleAmount    float64 `json:"sale_amount"`
	SaleCurrency  string  `json:"sale_currency"`
	SaleAmountEUR float64 `json:"sale_amount_eur"`
	BuyPrice      float64 `json:"buy_price"`
	BuyAmount     float64 `json:"buy_amount"`
	BuyCurrency   string  `json:"buy_currency"`
	BuyAmountEUR  float64 `json:"buy_amount_eur"`
	Commission    float64 `json:"commission"`
	Delta         float64 `json:"delta"` // SaleAmountEUR - BuyAmountEUR
}

// PurchaseLot represents a remaining unsold purchase lot.
type PurchaseLot struct {
	BuyDate      string  `json:"buy_date"`
	ProductName  string  `json:"product_name"`
	ISIN         string  `json:"isin"`
	Quantity     float64 `json:"quantity"`
	BuyPrice     float64 `json:"buy_price"`
	BuyAmount    float64 `json:"buy_amount"`
	BuyCurrency  string  `json:"buy_currency"`
	BuyAmountEUR float64 `json:"buy_amount_eur"`
}
