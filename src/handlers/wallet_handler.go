package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/services"
	"github.com/username/trackfolio/src/utils"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

func (h *WalletHandler) HandleAddWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var requestBody struct {
		Chain   string `json:"chain"`
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	wallet, err := h.walletService.AddWallet(int(userID), requestBody.Chain, requestBody.Address, requestBody.Symbol)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(wallet)
}

func (h *WalletHandler) HandleGetWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	balances, err := h.walletService.GetBalances(r.Context(), int(userID))
	if err != nil {
		logger.L.Error("Failed to fetch wallet balances", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to fetch wallet balances", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balances)
}

func (h *WalletHandler) HandleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	walletID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.SendJSONError(w, "Invalid wallet id", http.StatusBadRequest)
		return
	}

	if err := h.walletService.RemoveWallet(int(userID), walletID); err != nil {
		logger.L.Error("Failed to delete wallet", "userID", userID, "walletID", walletID, "error", err)
		utils.SendJSONError(w, "Failed to delete wallet", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
