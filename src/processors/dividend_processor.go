package processors

import (
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/utils"
)

// ProcessDividends aggregates dividend transactions into a per-year,
// per-country summary of gross amounts and withheld tax, all in EUR.
// Transactions without a resolvable country (crypto, missing ISIN) are
// grouped under "Unknown".
func ProcessDividends(txs []models.ProcessedTransaction) models.DividendSummary {
	summary := make(models.DividendSummary)

	for _, tx := range txs {
		if tx.TransactionType != "DIVIDEND" {
			continue
		}
		date, err := utils.ParseDate(tx.Date)
		if err != nil {
			continue
		}
		year := date.Format("2006")
		country := tx.CountryCode
		if country == "" {
			country = "Unknown"
		}

		if summary[year] == nil {
			summary[year] = make(map[string]models.DividendCountrySummary)
		}
		entry := summary[year][country]
		if tx.TransactionSubType == "TAX" {
			entry.TaxedAmt += tx.AmountEUR
		} else {
			entry.GrossAmt += tx.AmountEUR
		}
		summary[year][country] = entry
	}

	return summary
}
