package processors

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/utils"
)

// PositionResult is the output of a full position reconstruction pass over a
// user's transaction history.
type PositionResult struct {
	Positions []models.Position    `json:"positions"`
	Sales     []models.SaleDetail  `json:"sales"`
	OpenLots  []models.PurchaseLot `json:"open_lots"`
}

// fifoLot is an internal open purchase lot tracked during replay.
type fifoLot struct {
	date      time.Time
	quantity  float64
	price     float64
	amountEUR float64 // cost in EUR for the full original lot quantity
	origQty   float64
	currency  string
}

// impliedSplitTolerance is the relative tolerance when checking whether a
// price jump between consecutive trades lands on an integer split ratio.
const impliedSplitTolerance = 0.02

// ProcessPositions replays the given transactions in chronological order and
// reconstructs per-instrument positions using weighted-average cost. Sales are
// additionally matched against purchase lots FIFO to produce the realized
// gains detail. Explicit SPLIT transactions rescale the open quantity; price
// jumps that imply an unreported split only raise a warning.
func ProcessPositions(txs []models.ProcessedTransaction) PositionResult {
	byISIN := make(map[string][]models.ProcessedTransaction)
	for _, tx := range txs {
		switch tx.TransactionType {
		case "STOCK", "CRYPTO", "SPLIT":
			key := tx.ISIN
			if key == "" {
				key = tx.ProductName
			}
			byISIN[key] = append(byISIN[key], tx)
		}
	}

	result := PositionResult{}
	for isin, group := range byISIN {
		sortChronologically(group)
		pos, sales, lots := replayInstrument(isin, group)
		result.Positions = append(result.Positions, pos)
		result.Sales = append(result.Sales, sales...)
		result.OpenLots = append(result.OpenLots, lots...)
	}

	sort.Slice(result.Positions, func(i, j int) bool {
		return result.Positions[i].ProductName < result.Positions[j].ProductName
	})
	sort.Slice(result.Sales, func(i, j int) bool {
		di, _ := utils.ParseDate(result.Sales[i].SaleDate)
		dj, _ := utils.ParseDate(result.Sales[j].SaleDate)
		return di.Before(dj)
	})
	sort.Slice(result.OpenLots, func(i, j int) bool {
		return result.OpenLots[i].ProductName < result.OpenLots[j].ProductName
	})
	return result
}

func sortChronologically(txs []models.ProcessedTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		di, erri := utils.ParseDate(txs[i].Date)
		dj, errj := utils.ParseDate(txs[j].Date)
		if erri != nil || errj != nil {
			return txs[i].ID < txs[j].ID
		}
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return txs[i].ID < txs[j].ID
	})
}

func replayInstrument(isin string, txs []models.ProcessedTransaction) (models.Position, []models.SaleDetail, []models.PurchaseLot) {
	pos := models.Position{
		ISIN:     isin,
		IsCrypto: utils.IsPseudoISIN(isin),
	}

	quantity := decimal.Zero
	costBasis := decimal.Zero
	realized := decimal.Zero
	var lots []fifoLot
	var sales []models.SaleDetail
	lastTradePrice := 0.0

	for _, tx := range txs {
		date, err := utils.ParseDate(tx.Date)
		if err != nil {
			logger.L.Warn("Skipping transaction with unparseable date during position replay", "isin", isin, "date", tx.Date)
			continue
		}
		if tx.ProductName != "" {
			pos.ProductName = tx.ProductName
		}
		if tx.Currency != "" && tx.TransactionType != "SPLIT" {
			pos.Currency = tx.Currency
		}
		if pos.FirstTrade == "" {
			pos.FirstTrade = tx.Date
		}
		pos.LastTrade = tx.Date

		switch {
		case tx.TransactionType == "SPLIT":
			if tx.SplitRatio <= 0 {
				pos.Warnings = append(pos.Warnings, fmt.Sprintf("ignored split with invalid ratio on %s", tx.Date))
				continue
			}
			ratio := decimal.NewFromFloat(tx.SplitRatio)
			quantity = quantity.Mul(ratio)
			for i := range lots {
				lots[i].quantity *= tx.SplitRatio
				lots[i].origQty *= tx.SplitRatio
				lots[i].price /= tx.SplitRatio
			}
			if lastTradePrice > 0 {
				lastTradePrice /= tx.SplitRatio
			}
			pos.SplitsApplied++

		case tx.BuySell == "BUY":
			if n := impliedSplitRatio(lastTradePrice, tx.Price); n > 0 {
				pos.Warnings = append(pos.Warnings, fmt.Sprintf("price move on %s implies a %d:1 split not present in the history", tx.Date, n))
			}
			q := decimal.NewFromFloat(tx.Quantity)
			// AmountEUR is negative for buys; the cost added to the basis
			// already includes commission from enrichment.
			cost := decimal.NewFromFloat(-tx.AmountEUR)
			quantity = quantity.Add(q)
			costBasis = costBasis.Add(cost)
			lots = append(lots, fifoLot{
				date:      date,
				quantity:  tx.Quantity,
				origQty:   tx.Quantity,
				price:     tx.Price,
				amountEUR: -tx.AmountEUR,
				currency:  tx.Currency,
			})
			lastTradePrice = tx.Price

		case tx.BuySell == "SELL":
			if n := impliedSplitRatio(lastTradePrice, tx.Price); n > 0 {
				pos.Warnings = append(pos.Warnings, fmt.Sprintf("price move on %s implies a %d:1 split not present in the history", tx.Date, n))
			}
			sellQty := decimal.NewFromFloat(tx.Quantity)
			if sellQty.GreaterThan(quantity) {
				pos.Warnings = append(pos.Warnings, fmt.Sprintf("sell of %s on %s exceeds held quantity %s", sellQty, tx.Date, quantity))
				sellQty = quantity
			}
			if sellQty.IsZero() {
				lastTradePrice = tx.Price
				continue
			}
			avg := costBasis.Div(quantity)
			soldCost := avg.Mul(sellQty)
			proceedsFull := decimal.NewFromFloat(tx.AmountEUR)
			// Scale proceeds if the sell was clamped to the held quantity.
			proceeds := proceedsFull
			if f, _ := sellQty.Float64(); f != tx.Quantity && tx.Quantity > 0 {
				proceeds = proceedsFull.Mul(sellQty).Div(decimal.NewFromFloat(tx.Quantity))
			}
			realized = realized.Add(proceeds.Sub(soldCost))
			costBasis = costBasis.Sub(soldCost)
			quantity = quantity.Sub(sellQty)

			sales = append(sales, consumeLots(&lots, tx, sellQty)...)
			lastTradePrice = tx.Price
		}
	}

	pos.Quantity = quantity
	pos.CostBasisEUR = costBasis
	pos.RealizedPLEUR = realized
	if quantity.IsPositive() {
		pos.AvgCostEUR = costBasis.Div(quantity)
	}

	var open []models.PurchaseLot
	for _, lot := range lots {
		if lot.quantity <= 0 {
			continue
		}
		remainingEUR := lot.amountEUR
		if lot.origQty > 0 {
			remainingEUR = lot.amountEUR * lot.quantity / lot.origQty
		}
		open = append(open, models.PurchaseLot{
			BuyDate:      lot.date.Format(utils.DefaultDateFormat),
			ProductName:  pos.ProductName,
			ISIN:         isin,
			Quantity:     lot.quantity,
			BuyPrice:     lot.price,
			BuyAmount:    lot.quantity * lot.price,
			BuyCurrency:  lot.currency,
			BuyAmountEUR: remainingEUR,
		})
	}
	return pos, sales, open
}

// consumeLots matches a sell against open lots FIFO and emits one SaleDetail
// per consumed lot slice.
func consumeLots(lots *[]fifoLot, tx models.ProcessedTransaction, sellQty decimal.Decimal) []models.SaleDetail {
	remaining, _ := sellQty.Float64()
	totalQty := tx.Quantity
	if totalQty <= 0 {
		return nil
	}

	var details []models.SaleDetail
	for i := range *lots {
		lot := &(*lots)[i]
		if remaining <= 0 {
			break
		}
		if lot.quantity <= 0 {
			continue
		}

		consumed := math.Min(lot.quantity, remaining)
		buyEUR := 0.0
		if lot.origQty > 0 {
			buyEUR = lot.amountEUR * consumed / lot.origQty
		}
		saleEURShare := tx.AmountEUR * consumed / totalQty
		saleAmtShare := tx.Amount * consumed / totalQty

		details = append(details, models.SaleDetail{
			SaleDate:      tx.Date,
			BuyDate:       lot.date.Format(utils.DefaultDateFormat),
			ProductName:   tx.ProductName,
			ISIN:          tx.ISIN,
			Quantity:      consumed,
			SalePrice:     tx.Price,
			SaleAmount:    saleAmtShare,
			SaleCurrency:  tx.Currency,
			SaleAmountEUR: saleEURShare,
			BuyPrice:      lot.price,
			BuyAmount:     consumed * lot.price,
			BuyCurrency:   lot.currency,
			BuyAmountEUR:  buyEUR,
			Commission:    tx.Commission * consumed / totalQty,
			Delta:         saleEURShare - buyEUR,
		})

		lot.quantity -= consumed
		remaining -= consumed
	}
	return details
}

// impliedSplitRatio returns N when the drop from the previous trade price to
// the current one lands within tolerance of an integer N:1 ratio (N >= 2).
// Returns 0 when no split is implied.
func impliedSplitRatio(prevPrice, price float64) int {
	if prevPrice <= 0 || price <= 0 {
		return 0
	}
	ratio := prevPrice / price
	n := math.Round(ratio)
	if n < 2 || n > 100 {
		return 0
	}
	if math.Abs(ratio-n) > impliedSplitTolerance*n {
		return 0
	}
	return int(n)
}
