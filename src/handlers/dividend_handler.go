package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/services"
	"github.com/username/trackfolio/src/utils"
)

type DividendHandler struct {
	importService services.ImportService
}

func NewDividendHandler(service services.ImportService) *DividendHandler {
	return &DividendHandler{importService: service}
}

// HandleGetDividendSummary serves the per-year, per-country dividend totals.
func (h *DividendHandler) HandleGetDividendSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	summary, err := h.importService.GetDividendSummary(userID)
	if err != nil {
		logger.L.Error("Failed to compute dividend summary", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to compute dividend summary", http.StatusInternalServerError)
		return
	}
	if summary == nil {
		summary = models.DividendSummary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
