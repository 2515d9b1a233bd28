package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/trackfolio/src/database"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/parsers"
	"github.com/username/trackfolio/src/processors"
)

const (
	// Long-lived cache for the full position reconstruction
	ckPositionResult = "res_position_result_user_%d"

	// Short-lived, aggregate caches
	ckPortfolioReport = "agg_portfolio_report_user_%d"
	ckDividendSummary = "agg_dividend_summary_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type importServiceImpl struct {
	transactionProcessor *processors.TransactionProcessor
	reportCache          *cache.Cache
}

func NewImportService(transactionProcessor *processors.TransactionProcessor, reportCache *cache.Cache) ImportService {
	return &importServiceImpl{
		transactionProcessor: transactionProcessor,
		reportCache:          reportCache,
	}
}

func (s *importServiceImpl) ProcessImport(fileReader io.Reader, userID int64, source string) (*ImportResult, error) {
	overallStartTime := time.Now()
	logger.L.Info("ProcessImport START", "userID", userID, "source", source)

	parser, err := parsers.GetParser(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownSource, err)
	}

	canonicalTxs, err := parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	newlyProcessedTxs := s.transactionProcessor.Process(canonicalTxs)
	result := &ImportResult{}
	if len(newlyProcessedTxs) == 0 {
		return result, nil
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO transactions (user_id, date, source, product_name, isin, quantity, price, transaction_type, transaction_subtype, buy_sell, description, amount, currency, commission, order_id, exchange_rate, amount_eur, country_code, split_ratio, hash_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, tx := range newlyProcessedTxs {
		_, err := stmt.Exec(userID, tx.Date, tx.Source, tx.ProductName, tx.ISIN, tx.Quantity, tx.Price, tx.TransactionType, tx.TransactionSubType, tx.BuySell, tx.Description, tx.Amount, tx.Currency, tx.Commission, tx.OrderID, tx.ExchangeRate, tx.AmountEUR, tx.CountryCode, tx.SplitRatio, tx.HashID)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate transaction on import", "userID", userID, "hash_id", tx.HashID)
				result.Duplicates++
				continue
			}
			return nil, fmt.Errorf("error inserting transaction (OrderID: %s): %w", tx.OrderID, err)
		}
		result.Imported++
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transactions: %w", err)
	}

	// Next read recalculates everything from the authoritative rows.
	s.InvalidateUserCache(userID)

	logger.L.Info("ProcessImport END", "userID", userID, "imported", result.Imported,
		"duplicates", result.Duplicates, "duration", time.Since(overallStartTime))
	return result, nil
}

// InvalidateUserCache clears all cached reports for a user, forcing a complete rebuild on the next request.
func (s *importServiceImpl) InvalidateUserCache(userID int64) {
	keysToDelete := []string{
		fmt.Sprintf(ckPositionResult, userID),
		fmt.Sprintf(ckPortfolioReport, userID),
		fmt.Sprintf(ckDividendSummary, userID),
	}
	for _, key := range keysToDelete {
		s.reportCache.Delete(key)
	}
	logger.L.Info("Invalidated all caches for user", "userID", userID)
}

// GetPositionResult is the central function populating the position cache on a miss.
func (s *importServiceImpl) GetPositionResult(userID int64) (processors.PositionResult, error) {
	cacheKey := fmt.Sprintf(ckPositionResult, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for position result", "userID", userID)
		return cached.(processors.PositionResult), nil
	}

	logger.L.Info("Cache miss for position result, recalculating from DB", "userID", userID)
	allUserTransactions, err := fetchUserTransactions(userID)
	if err != nil {
		return processors.PositionResult{}, err
	}

	result := processors.ProcessPositions(allUserTransactions)
	s.reportCache.Set(cacheKey, result, cache.NoExpiration)
	return result, nil
}

func (s *importServiceImpl) GetPortfolioReport(userID int64) (*PortfolioReport, error) {
	cacheKey := fmt.Sprintf(ckPortfolioReport, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Info("Cache hit for portfolio report", "userID", userID)
		return cached.(*PortfolioReport), nil
	}
	logger.L.Info("Cache miss for portfolio report, computing...", "userID", userID)

	positionResult, err := s.GetPositionResult(userID)
	if err != nil {
		return nil, err
	}

	allTxns, err := fetchUserTransactions(userID)
	if err != nil {
		return nil, err
	}

	report := &PortfolioReport{
		Positions:     positionResult.Positions,
		OpenLots:      positionResult.OpenLots,
		CashMovements: processors.ProcessCashMovements(allTxns),
		Dividends:     processors.ProcessDividends(allTxns),
	}
	s.reportCache.Set(cacheKey, report, DefaultCacheExpiration)
	return report, nil
}

func (s *importServiceImpl) GetSaleDetails(userID int64) ([]models.SaleDetail, error) {
	result, err := s.GetPositionResult(userID)
	if err != nil {
		return nil, err
	}
	return result.Sales, nil
}

func (s *importServiceImpl) GetDividendSummary(userID int64) (models.DividendSummary, error) {
	cacheKey := fmt.Sprintf(ckDividendSummary, userID)
	if data, found := s.reportCache.Get(cacheKey); found {
		return data.(models.DividendSummary), nil
	}
	userTransactions, err := fetchUserTransactions(userID)
	if err != nil {
		return nil, err
	}
	summary := processors.ProcessDividends(userTransactions)
	s.reportCache.Set(cacheKey, summary, DefaultCacheExpiration)
	return summary, nil
}

func (s *importServiceImpl) GetTransactions(userID int64) ([]models.ProcessedTransaction, error) {
	return fetchUserTransactions(userID)
}

func (s *importServiceImpl) DeleteAllTransactions(userID int64) error {
	_, err := database.DB.Exec(`DELETE FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("error deleting transactions for userID %d: %w", userID, err)
	}
	s.InvalidateUserCache(userID)
	return nil
}

func fetchUserTransactions(userID int64) ([]models.ProcessedTransaction, error) {
	logger.L.Debug("Fetching transactions from DB", "userID", userID)
	rows, err := database.DB.Query(`SELECT id, date, source, product_name, isin, quantity, price, transaction_type, transaction_subtype, buy_sell, description, amount, currency, commission, order_id, exchange_rate, amount_eur, country_code, split_ratio, hash_id FROM transactions WHERE user_id = ? ORDER BY date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for userID %d: %w", userID, err)
	}
	defer rows.Close()

	var transactions []models.ProcessedTransaction
	for rows.Next() {
		var tx models.ProcessedTransaction
		scanErr := rows.Scan(&tx.ID, &tx.Date, &tx.Source, &tx.ProductName, &tx.ISIN, &tx.Quantity, &tx.Price, &tx.TransactionType, &tx.TransactionSubType, &tx.BuySell, &tx.Description, &tx.Amount, &tx.Currency, &tx.Commission, &tx.OrderID, &tx.ExchangeRate, &tx.AmountEUR, &tx.CountryCode, &tx.SplitRatio, &tx.HashID)
		if scanErr != nil {
			return nil, fmt.Errorf("error scanning transaction row for userID %d: %w", userID, scanErr)
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows for userID %d: %w", userID, err)
	}
	logger.L.Info("DB fetch complete.", "userID", userID, "transactionCount", len(transactions))
	return transactions, nil
}
