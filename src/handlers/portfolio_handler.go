package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/services"
	"github.com/username/trackfolio/src/utils"
)

type PortfolioHandler struct {
	importService   services.ImportService
	priceService    *services.PriceService
	snapshotService *services.SnapshotService
}

func NewPortfolioHandler(importService services.ImportService, priceService *services.PriceService, snapshotService *services.SnapshotService) *PortfolioHandler {
	return &PortfolioHandler{
		importService:   importService,
		priceService:    priceService,
		snapshotService: snapshotService,
	}
}

// HandleGetPortfolio serves the reconstructed positions with open lots, cash
// movements and dividend summary. No live prices; see HandleGetPortfolioValue.
func (h *PortfolioHandler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	report, err := h.importService.GetPortfolioReport(userID)
	if err != nil {
		logger.L.Error("Failed to build portfolio report", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to build portfolio report", http.StatusInternalServerError)
		return
	}

	if report.Positions == nil {
		report.Positions = []models.Position{}
	}
	if report.OpenLots == nil {
		report.OpenLots = []models.PurchaseLot{}
	}
	if report.CashMovements == nil {
		report.CashMovements = []models.CashMovement{}
	}
	if report.Dividends == nil {
		report.Dividends = models.DividendSummary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// HandleGetPortfolioValue serves the live-priced valuation of open positions.
func (h *PortfolioHandler) HandleGetPortfolioValue(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	positionResult, err := h.importService.GetPositionResult(userID)
	if err != nil {
		logger.L.Error("Failed to reconstruct positions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to reconstruct positions", http.StatusInternalServerError)
		return
	}

	value, err := h.priceService.ValuePositions(r.Context(), positionResult.Positions)
	if err != nil {
		logger.L.Error("Failed to value portfolio", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to value portfolio", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(value)
}

// HandleGetGains serves the FIFO realized gains detail with ETag support so
// the frontend can poll cheaply.
func (h *PortfolioHandler) HandleGetGains(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	sales, err := h.importService.GetSaleDetails(userID)
	if err != nil {
		logger.L.Error("Failed to compute realized gains", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to compute realized gains", http.StatusInternalServerError)
		return
	}
	if sales == nil {
		sales = []models.SaleDetail{}
	}

	w.Header().Set("Cache-Control", "no-cache, private")
	currentETag, etagErr := utils.GenerateETag(sales)
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("%q", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else {
		logger.L.Warn("Proceeding without ETag check", "userID", userID, "error", etagErr)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sales)
}

// HandleGetHistory serves stored daily snapshots, optionally bounded with
// ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *PortfolioHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	snapshots, err := h.snapshotService.GetHistory(int(userID), from, to)
	if err != nil {
		logger.L.Error("Failed to fetch snapshot history", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to fetch snapshot history", http.StatusInternalServerError)
		return
	}
	if snapshots == nil {
		snapshots = []models.Snapshot{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshots)
}

// HandleTakeSnapshot triggers an on-demand valuation snapshot for the user.
func (h *PortfolioHandler) HandleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	snapshot, err := h.snapshotService.TakeSnapshot(r.Context(), int(userID))
	if err != nil {
		logger.L.Error("On-demand snapshot failed", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to take portfolio snapshot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(snapshot)
}
