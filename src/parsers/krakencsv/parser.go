package krakencsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/utils"
)

// KrakenParser implements the parsers.Parser interface for Kraken trade
// history CSV exports. Crypto assets have no real ISIN, so each traded
// symbol gets a fabricated "XC" pseudo-ISIN.
type KrakenParser struct{}

func NewParser() *KrakenParser {
	return &KrakenParser{}
}

// krakenAssets maps Kraken's internal asset codes to common symbols.
var krakenAssets = map[string]string{
	"XXBT": "BTC",
	"XBT":  "BTC",
	"XETH": "ETH",
	"XLTC": "LTC",
	"XXRP": "XRP",
	"XXLM": "XLM",
	"XXMR": "XMR",
	"ADA":  "ADA",
	"DOT":  "DOT",
	"SOL":  "SOL",
}

// krakenQuotes maps Kraken quote-currency suffixes to ISO currency codes.
var krakenQuotes = map[string]string{
	"ZEUR": "EUR",
	"ZUSD": "USD",
	"ZGBP": "GBP",
	"EUR":  "EUR",
	"USD":  "USD",
	"GBP":  "GBP",
}

func (p *KrakenParser) Parse(file io.Reader) ([]models.CanonicalTransaction, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"txid", "pair", "time", "type", "price", "vol"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("kraken parser: missing required column %q", required)
		}
	}

	var canonicalTxs []models.CanonicalTransaction
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		field := func(name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		date, err := time.Parse("2006-01-02 15:04:05", field("time"))
		if err != nil {
			log.Printf("Skipping row due to invalid time: %s", field("time"))
			continue
		}

		symbol, quote, err := splitPair(field("pair"))
		if err != nil {
			log.Printf("Skipping row due to unrecognized pair %q: %v", field("pair"), err)
			continue
		}

		quantity, _ := strconv.ParseFloat(field("vol"), 64)
		price, _ := strconv.ParseFloat(field("price"), 64)
		cost, _ := strconv.ParseFloat(field("cost"), 64)
		fee, _ := strconv.ParseFloat(field("fee"), 64)

		buySell := strings.ToUpper(field("type"))
		if buySell != "BUY" && buySell != "SELL" {
			log.Printf("Skipping row with unknown trade type %q", field("type"))
			continue
		}

		tx := models.CanonicalTransaction{
			Source:          "kraken",
			TransactionDate: date,
			ProductName:     symbol,
			ISIN:            utils.FabricatePseudoISIN(symbol),
			Quantity:        quantity,
			Price:           price,
			Commission:      fee,
			Currency:        quote,
			OrderID:         field("txid"),
			RawText:         fmt.Sprintf("%s %s %s @ %s %s", field("type"), field("vol"), symbol, field("price"), quote),
			SourceAmount:    cost,
			TransactionType: "CRYPTO",
			BuySell:         buySell,
		}
		canonicalTxs = append(canonicalTxs, tx)
	}

	return canonicalTxs, nil
}

// splitPair decomposes a Kraken pair code like "XXBTZEUR" or "SOLEUR" into
// the base symbol and the ISO quote currency.
func splitPair(pair string) (symbol, quote string, err error) {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	if pair == "" {
		return "", "", fmt.Errorf("empty pair")
	}

	for suffix, iso := range krakenQuotes {
		if strings.HasSuffix(pair, suffix) && len(pair) > len(suffix) {
			base := strings.TrimSuffix(pair, suffix)
			if mapped, ok := krakenAssets[base]; ok {
				return mapped, iso, nil
			}
			// Longer suffixes ("ZEUR") take precedence over their plain
			// form ("EUR"); keep looking before falling back.
			if len(suffix) == 4 {
				return base, iso, nil
			}
			symbol, quote = base, iso
		}
	}
	if symbol != "" {
		if mapped, ok := krakenAssets[symbol]; ok {
			symbol = mapped
		}
		return symbol, quote, nil
	}
	return "", "", fmt.Errorf("no known quote currency suffix")
}
