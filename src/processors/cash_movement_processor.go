package processors

import (
	"sort"
	"strings"

	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/utils"
)

// ProcessCashMovements extracts deposits and withdrawals from the transaction
// history, newest first.
func ProcessCashMovements(txs []models.ProcessedTransaction) []models.CashMovement {
	var movements []models.CashMovement
	for _, tx := range txs {
		if tx.TransactionType != "CASH" {
			continue
		}
		movement := models.CashMovement{
			Date:      tx.Date,
			Type:      strings.ToLower(tx.TransactionSubType),
			Amount:    tx.Amount,
			Currency:  tx.Currency,
			AmountEUR: tx.AmountEUR,
			OrderID:   tx.OrderID,
		}
		movements = append(movements, movement)
	}

	sort.Slice(movements, func(i, j int) bool {
		di, _ := utils.ParseDate(movements[i].Date)
		dj, _ := utils.ParseDate(movements[j].Date)
		return di.After(dj)
	})
	return movements
}
