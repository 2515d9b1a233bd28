package processors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/utils"
)

type TransactionProcessor struct{}

func NewTransactionProcessor() *TransactionProcessor { return &TransactionProcessor{} }

// Process enriches a list of canonical transactions with universal data.
// It trusts the classification (TransactionType, etc.) provided by the parser.
func (p *TransactionProcessor) Process(txs []models.CanonicalTransaction) []models.ProcessedTransaction {
	var processedTxs []models.ProcessedTransaction
	for _, tx := range txs {
		// 1. Calculate gross amount. The parser has already classified the type.
		if tx.TransactionType == "STOCK" || tx.TransactionType == "CRYPTO" {
			calculatedAmount := tx.Quantity * tx.Price
			if tx.BuySell == "BUY" {
				tx.Amount = -math.Abs(calculatedAmount)
			} else {
				tx.Amount = math.Abs(calculatedAmount)
			}
		} else {
			// For dividends, cash, fees and splits, use the direct signed amount.
			tx.Amount = tx.SourceAmount
		}

		// 2. Enrich with exchange rate.
		rate, err := GetExchangeRate(tx.Currency, tx.TransactionDate)
		if err != nil || rate <= 0 {
			tx.ExchangeRate = 1.0
		} else {
			tx.ExchangeRate = rate
		}

		// 3. Enrich with amount in EUR. Commission reduces proceeds / adds to cost.
		if tx.ExchangeRate > 0 {
			tx.AmountEUR = (tx.Amount - tx.Commission) / tx.ExchangeRate
		}

		// 4. Enrich with country code from the ISIN (empty for pseudo-ISINs).
		tx.CountryCode = utils.GetCountryCodeString(tx.ISIN)

		// 5. Enrich with the dedup hash.
		tx.HashID = GenerateDedupHash(tx)

		processed := models.ProcessedTransaction{
			Date:               tx.TransactionDate.Format(utils.DefaultDateFormat),
			Source:             tx.Source,
			ProductName:        tx.ProductName,
			ISIN:               tx.ISIN,
			Quantity:           tx.Quantity,
			Price:              tx.Price,
			TransactionType:    tx.TransactionType,
			TransactionSubType: tx.TransactionSubType,
			BuySell:            tx.BuySell,
			Description:        tx.RawText,
			Amount:             tx.Amount,
			Currency:           tx.Currency,
			Commission:         tx.Commission,
			OrderID:            tx.OrderID,
			ExchangeRate:       tx.ExchangeRate,
			AmountEUR:          tx.AmountEUR,
			CountryCode:        tx.CountryCode,
			SplitRatio:         tx.SplitRatio,
			HashID:             tx.HashID,
		}
		processedTxs = append(processedTxs, processed)
	}
	return processedTxs
}

// GenerateDedupHash creates the idempotency hash for a transaction from the
// fields that identify it at the broker: date, classification, instrument,
// quantity, price, signed source amount and order reference. Re-importing the
// same statement produces identical hashes and the UNIQUE(user_id, hash_id)
// constraint rejects the rows. Type, sub-type and amount participate so that
// same-day rows carrying no quantity or order id, such as a dividend and its
// tax line or two cash deposits, keep distinct identities.
func GenerateDedupHash(tx models.CanonicalTransaction) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%.8f|%.8f|%.8f|%s",
		tx.TransactionDate.Format("2006-01-02"), tx.TransactionType, tx.TransactionSubType,
		tx.ISIN, tx.Currency, tx.Quantity, tx.Price, tx.SourceAmount, tx.OrderID)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
