package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/services"
	"github.com/username/trackfolio/src/utils"
)

type TransactionHandler struct {
	importService services.ImportService
}

func NewTransactionHandler(service services.ImportService) *TransactionHandler {
	return &TransactionHandler{importService: service}
}

func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	transactions, err := h.importService.GetTransactions(userID)
	if err != nil {
		logger.L.Error("Failed to fetch transactions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to fetch transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []models.ProcessedTransaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

func (h *TransactionHandler) HandleDeleteAllTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if err := h.importService.DeleteAllTransactions(userID); err != nil {
		logger.L.Error("Failed to delete transactions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to delete transactions", http.StatusInternalServerError)
		return
	}

	logger.L.Info("All transactions deleted", "userID", userID)
	w.WriteHeader(http.StatusNoContent)
}
