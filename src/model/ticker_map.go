package model

import (
	"database/sql"
	"strings"
	"time"
)

// InstrumentTickerMap caches the resolved ticker for an ISIN so the price
// service does not hit the search endpoint on every valuation.
type InstrumentTickerMap struct {
	ISIN          string
	TickerSymbol  string
	Exchange      sql.NullString
	Currency      string
	CreatedAt     time.Time
	LastCheckedAt sql.NullTime
}

// GetTickerMappings retrieves multiple ISIN-to-ticker mappings in one query,
// keyed by ISIN.
func GetTickerMappings(db *sql.DB, isins []string) (map[string]InstrumentTickerMap, error) {
	mappings := make(map[string]InstrumentTickerMap)
	if len(isins) == 0 {
		return mappings, nil
	}

	query := `SELECT isin, ticker_symbol, exchange, currency, created_at, last_checked_at
		FROM instrument_ticker_map WHERE isin IN (?` + strings.Repeat(",?", len(isins)-1) + `)`

	args := make([]interface{}, len(isins))
	for i, isin := range isins {
		args[i] = isin
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var mapping InstrumentTickerMap
		if err := rows.Scan(&mapping.ISIN, &mapping.TickerSymbol, &mapping.Exchange,
			&mapping.Currency, &mapping.CreatedAt, &mapping.LastCheckedAt); err != nil {
			return nil, err
		}
		mappings[mapping.ISIN] = mapping
	}
	return mappings, rows.Err()
}

// UpsertTickerMapping inserts or refreshes a single ISIN-to-ticker mapping.
func UpsertTickerMapping(db *sql.DB, mapping InstrumentTickerMap) error {
	query := `
		INSERT INTO instrument_ticker_map (isin, ticker_symbol, exchange, currency, last_checked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(isin) DO UPDATE SET
			ticker_symbol = excluded.ticker_symbol,
			exchange = excluded.exchange,
			currency = excluded.currency,
			last_checked_at = excluded.last_checked_at`

	_, err := db.Exec(query, mapping.ISIN, mapping.TickerSymbol, mapping.Exchange, mapping.Currency, time.Now())
	return err
}
