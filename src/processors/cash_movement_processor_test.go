package processors

import (
	"testing"

	"github.com/username/trackfolio/src/models"
)

func TestProcessCashMovements(t *testing.T) {
	txs := []models.ProcessedTransaction{
		{Date: "05-01-2024", TransactionType: "CASH", TransactionSubType: "DEPOSIT", Amount: 1000, Currency: "EUR", AmountEUR: 1000},
		{Date: "20-02-2024", TransactionType: "CASH", TransactionSubType: "WITHDRAWAL", Amount: -250, Currency: "EUR", AmountEUR: -250},
		{Date: "10-01-2024", TransactionType: "STOCK", BuySell: "BUY", Amount: -500, AmountEUR: -500},
	}

	movements := ProcessCashMovements(txs)
	if len(movements) != 2 {
		t.Fatalf("expected 2 cash movements, got %d", len(movements))
	}
	// Newest first.
	if movements[0].Date != "20-02-2024" || movements[0].Type != "withdrawal" {
		t.Errorf("unexpected first movement: %+v", movements[0])
	}
	if movements[1].Date != "05-01-2024" || movements[1].Type != "deposit" {
		t.Errorf("unexpected second movement: %+v", movements[1])
	}
}

func TestProcessDividends(t *testing.T) {
	txs := []models.ProcessedTransaction{
		{Date: "10-03-2023", TransactionType: "DIVIDEND", CountryCode: "840 - United States of America", AmountEUR: 100},
		{Date: "10-03-2023", TransactionType: "DIVIDEND", TransactionSubType: "TAX", CountryCode: "840 - United States of America", AmountEUR: -15},
		{Date: "12-06-2024", TransactionType: "DIVIDEND", CountryCode: "840 - United States of America", AmountEUR: 50},
		{Date: "01-07-2024", TransactionType: "DIVIDEND", AmountEUR: 7},
		{Date: "01-07-2024", TransactionType: "CASH", TransactionSubType: "DEPOSIT", AmountEUR: 500},
	}

	summary := ProcessDividends(txs)
	us2023 := summary["2023"]["840 - United States of America"]
	if us2023.GrossAmt != 100 || us2023.TaxedAmt != -15 {
		t.Errorf("unexpected 2023 US summary: %+v", us2023)
	}
	us2024 := summary["2024"]["840 - United States of America"]
	if us2024.GrossAmt != 50 {
		t.Errorf("unexpected 2024 US summary: %+v", us2024)
	}
	if unknown := summary["2024"]["Unknown"]; unknown.GrossAmt != 7 {
		t.Errorf("expected countryless dividend under Unknown, got %+v", unknown)
	}
	if _, ok := summary["2024"]["Cash"]; ok || len(summary) != 2 {
		t.Errorf("unexpected extra entries in summary: %+v", summary)
	}
}
