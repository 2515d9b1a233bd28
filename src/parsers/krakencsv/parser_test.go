package krakencsv

import (
	"strings"
	"testing"

	"github.com/username/trackfolio/src/utils"
)

const sampleCSV = `txid,ordertxid,pair,time,type,ordertype,price,cost,fee,vol
T1,O1,XXBTZEUR,2024-03-15 10:00:00,buy,limit,40000.0,20000.0,10.0,0.5
T2,O2,SOLEUR,2024-03-16 11:00:00,sell,market,120.0,600.0,1.0,5
T3,O3,FOOBARBAZ,2024-03-17 11:00:00,buy,limit,1.0,1.0,0.0,1
T4,O4,XETHZUSD,2024-03-18 11:00:00,staking,,0,0,0,0
`

func TestParseTradeHistory(t *testing.T) {
	parser := NewParser()
	txs, err := parser.Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions (unknown pair and type skipped), got %d", len(txs))
	}

	btc := txs[0]
	if btc.ProductName != "BTC" || btc.Currency != "EUR" {
		t.Errorf("expected XXBTZEUR decomposed into BTC/EUR, got %q/%q", btc.ProductName, btc.Currency)
	}
	if btc.ISIN != utils.FabricatePseudoISIN("BTC") {
		t.Errorf("expected fabricated pseudo-ISIN, got %q", btc.ISIN)
	}
	if btc.TransactionType != "CRYPTO" || btc.BuySell != "BUY" {
		t.Errorf("unexpected classification: %+v", btc)
	}
	if btc.Quantity != 0.5 || btc.Price != 40000 || btc.SourceAmount != 20000 || btc.Commission != 10 {
		t.Errorf("unexpected trade values: %+v", btc)
	}
	if btc.OrderID != "T1" {
		t.Errorf("expected txid as order id, got %q", btc.OrderID)
	}

	sol := txs[1]
	if sol.ProductName != "SOL" || sol.Currency != "EUR" || sol.BuySell != "SELL" {
		t.Errorf("expected SOLEUR sell, got %+v", sol)
	}
}

func TestParseRequiresKnownColumns(t *testing.T) {
	parser := NewParser()
	_, err := parser.Parse(strings.NewReader("txid,pair,time\nT1,XXBTZEUR,2024-03-15 10:00:00\n"))
	if err == nil || !strings.Contains(err.Error(), "missing required column") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestSplitPair(t *testing.T) {
	tests := []struct {
		pair, symbol, quote string
	}{
		{"XXBTZEUR", "BTC", "EUR"},
		{"XETHZUSD", "ETH", "USD"},
		{"SOLEUR", "SOL", "EUR"},
		{"ADAGBP", "ADA", "GBP"},
		{"NEWCOINZEUR", "NEWCOIN", "EUR"},
	}
	for _, tc := range tests {
		symbol, quote, err := splitPair(tc.pair)
		if err != nil {
			t.Errorf("splitPair(%q): unexpected error: %v", tc.pair, err)
			continue
		}
		if symbol != tc.symbol || quote != tc.quote {
			t.Errorf("splitPair(%q) = %q/%q, want %q/%q", tc.pair, symbol, quote, tc.symbol, tc.quote)
		}
	}

	if _, _, err := splitPair("FOOBARBAZ"); err == nil {
		t.Errorf("expected error for unknown quote suffix")
	}
	if _, _, err := splitPair(""); err == nil {
		t.Errorf("expected error for empty pair")
	}
}
