package models

import "time"

// CanonicalTransaction is the unified, intermediate representation of a transaction.
// Each parser is responsible for populating as many of these fields as possible
// directly from the source file, including the initial classification.
type CanonicalTransaction struct {
	// --- Fields to be populated by the Parser ---
	Source             string    `json:"source"`
	TransactionDate    time.Time `json:"transaction_date"`
	ProductName        string    `json:"product_name"`
	ISIN               string    `json:"isin"`
	Quantity           float64   `json:"quantity"`
	Price              float64   `json:"price"`
	Commission         float64   `json:"commission"`
	Currency           string    `json:"currency"`
	OrderID            string    `json:"order_id"`
	RawText            string    `json:"raw_text"`
	SourceAmount       float64   `json:"source_amount"`
	TransactionType    string    `json:"transaction_type"`     // e.g. "STOCK", "CRYPTO", "DIVIDEND", "SPLIT"
	TransactionSubType string    `json:"transaction_sub_type"` // e.g. "TAX", "DEPOSIT", "WITHDRAWAL"
	BuySell            string    `json:"buy_sell"`             // "BUY" or "SELL"
	SplitRatio         float64   `json:"split_ratio"`          // for SPLIT rows: new shares per old share

	// --- Fields filled by the enrichment processor ---
	Amount       float64 `json:"amount"`        // Gross amount in original currency (signed)
	ExchangeRate float64 `json:"exchange_rate"` // Exchange rate to EUR
	AmountEUR    float64 `json:"amount_eur"`    // Final amount in EUR
	CountryCode  string  `json:"country_code"`
	HashID       string  `json:"hash_id"`
}

// ProcessedTransaction represents a transaction after enrichment, as stored in
// the transactions table.
type ProcessedTransaction struct {
	ID                 int64  `json:"id,omitempty"`
	Date               string `json:"date"` // DD-MM-YYYY
	Source             string `json:"source"`
	ProductName        string `json:"product_name"`
	ISIN               string `json:"isin"`
	Quantity           float64
	Price              float64
	TransactionType    string  // STOCK, CRYPTO, DIVIDEND, CASH, FEE, SPLIT
	TransactionSubType string  // TAX, DEPOSIT, WITHDRAWAL, ...
	BuySell            string  // BUY, SELL
	Description        string  // Original description from the source file
	Amount             float64 // Transaction amount in original currency
	Currency           string
	Commission         float64
	OrderID            string
	ExchangeRate       float64 // Exchange rate to EUR
	AmountEUR          float64 // Transaction amount in EUR
	CountryCode        string  `json:"country_code,omitempty"`
	SplitRatio         float64 `json:"split_ratio,omitempty"`
	HashID             string  // dedup hash over date|type|subtype|isin|currency|quantity|price|amount|order id
}

// CashMovement represents a cash deposit or withdrawal.
type CashMovement struct {
	Date      string  `json:"date"`
	Type      string  `json:"type"` // "deposit" or "withdrawal"
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	AmountEUR float64 `json:"amount_eur"`
	OrderID   string  `json:"order_id,omitempty"`
}
