package model

import (
	"database/sql"
	"time"
)

// WatchedWallet is an on-chain address the user tracks alongside imported
// holdings. Balances are fetched live from a blockchain explorer.
type WatchedWallet struct {
	ID        int       `json:"id"`
	UserID    int       `json:"-"`
	Chain     string    `json:"chain"`
	Address   string    `json:"address"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}

func CreateWatchedWallet(db *sql.DB, wallet *WatchedWallet) error {
	wallet.CreatedAt = time.Now()
	res, err := db.Exec(
		`INSERT INTO watched_wallets (user_id, chain, address, symbol, created_at) VALUES (?, ?, ?, ?, ?)`,
		wallet.UserID, wallet.Chain, wallet.Address, wallet.Symbol, wallet.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	wallet.ID = int(id)
	return nil
}

func GetWatchedWallets(db *sql.DB, userID int) ([]WatchedWallet, error) {
	rows, err := db.Query(
		`SELECT id, user_id, chain, address, symbol, created_at FROM watched_wallets WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []WatchedWallet
	for rows.Next() {
		var w WatchedWallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.Chain, &w.Address, &w.Symbol, &w.CreatedAt); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func DeleteWatchedWallet(db *sql.DB, userID, walletID int) error {
	_, err := db.Exec(`DELETE FROM watched_wallets WHERE id = ? AND user_id = ?`, walletID, userID)
	return err
}
