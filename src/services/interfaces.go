package services

import (
	"errors"
	"io"

	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/processors"
)

var (
	ErrParsingFailed    = errors.New("statement parsing failed")
	ErrUnknownSource    = errors.New("unknown import source")
	ErrPriceUnavailable = errors.New("no price available")
)

// ImportResult summarizes one statement import.
type ImportResult struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
}

// PortfolioReport is the aggregated view served by GET /api/portfolio.
type PortfolioReport struct {
	Positions     []models.Position      `json:"positions"`
	OpenLots      []models.PurchaseLot   `json:"open_lots"`
	CashMovements []models.CashMovement  `json:"cash_movements"`
	Dividends     models.DividendSummary `json:"dividends"`
}

// ImportService ingests broker statements and serves the derived reports.
type ImportService interface {
	ProcessImport(fileReader io.Reader, userID int64, source string) (*ImportResult, error)
	GetTransactions(userID int64) ([]models.ProcessedTransaction, error)
	GetPortfolioReport(userID int64) (*PortfolioReport, error)
	GetPositionResult(userID int64) (processors.PositionResult, error)
	GetSaleDetails(userID int64) ([]models.SaleDetail, error)
	GetDividendSummary(userID int64) (models.DividendSummary, error)
	DeleteAllTransactions(userID int64) error
	InvalidateUserCache(userID int64)
}
