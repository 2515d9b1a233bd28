package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/models"
	"github.com/username/trackfolio/src/services"
	"github.com/username/trackfolio/src/utils"
)

type NewsHandler struct {
	newsService *services.NewsService
}

func NewNewsHandler(newsService *services.NewsService) *NewsHandler {
	return &NewsHandler{newsService: newsService}
}

// HandleGetNews serves recent headlines for ?isin=.
func (h *NewsHandler) HandleGetNews(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	isin := r.URL.Query().Get("isin")
	if isin == "" {
		utils.SendJSONError(w, "Missing required 'isin' query parameter", http.StatusBadRequest)
		return
	}

	articles, err := h.newsService.GetNewsForISIN(r.Context(), isin)
	if err != nil {
		logger.L.Warn("News fetch failed", "userID", userID, "isin", isin, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadGateway)
		return
	}
	if articles == nil {
		articles = []models.NewsArticle{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(articles)
}
