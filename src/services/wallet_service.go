package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/marketdata"
	"github.com/username/trackfolio/src/model"
)

// WalletService values on-chain addresses the user watches. Balances come
// from the configured blockchain explorer, prices from CoinGecko.
type WalletService struct {
	db        *sql.DB
	explorer  *marketdata.ExplorerClient
	coinGecko *marketdata.CoinGeckoClient
}

func NewWalletService(db *sql.DB, explorer *marketdata.ExplorerClient, coinGecko *marketdata.CoinGeckoClient) *WalletService {
	return &WalletService{db: db, explorer: explorer, coinGecko: coinGecko}
}

// WalletBalance is one watched wallet with its live balance and valuation.
type WalletBalance struct {
	model.WatchedWallet
	Balance  float64 `json:"balance"`
	ValueEUR float64 `json:"value_eur"`
	Error    string  `json:"error,omitempty"`
}

func (s *WalletService) AddWallet(userID int, chain, address, symbol string) (*model.WatchedWallet, error) {
	chain = strings.ToLower(strings.TrimSpace(chain))
	address = strings.TrimSpace(address)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if chain == "" || address == "" || symbol == "" {
		return nil, fmt.Errorf("chain, address and symbol are all required")
	}

	wallet := &model.WatchedWallet{UserID: userID, Chain: chain, Address: address, Symbol: symbol}
	if err := model.CreateWatchedWallet(s.db, wallet); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
			return nil, fmt.Errorf("wallet %s on %s is already being watched", address, chain)
		}
		return nil, err
	}
	return wallet, nil
}

func (s *WalletService) RemoveWallet(userID, walletID int) error {
	return model.DeleteWatchedWallet(s.db, userID, walletID)
}

// GetBalances fetches live balances for all watched wallets. A failing wallet
// carries its error instead of sinking the whole response.
func (s *WalletService) GetBalances(ctx context.Context, userID int) ([]WalletBalance, error) {
	wallets, err := model.GetWatchedWallets(s.db, userID)
	if err != nil {
		return nil, err
	}

	balances := make([]WalletBalance, 0, len(wallets))
	for _, wallet := range wallets {
		entry := WalletBalance{WatchedWallet: wallet}

		balance, err := s.explorer.NativeBalance(ctx, wallet.Address)
		if err != nil {
			logger.L.Warn("Wallet balance fetch failed", "address", wallet.Address, "error", err)
			entry.Error = err.Error()
			balances = append(balances, entry)
			continue
		}
		entry.Balance = balance

		price, err := s.coinGecko.PriceEUR(ctx, wallet.Symbol)
		if err != nil {
			logger.L.Warn("Wallet price fetch failed", "symbol", wallet.Symbol, "error", err)
			entry.Error = err.Error()
		} else {
			entry.ValueEUR = balance * price
		}
		balances = append(balances, entry)
	}
	return balances, nil
}
