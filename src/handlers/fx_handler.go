package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/trackfolio/src/processors"
	"github.com/username/trackfolio/src/utils"
)

// HandleGetFXRate serves a cross rate for ?from=&to=, resolved through the
// EUR base with the static table as fallback.
func HandleGetFXRate(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	rate, err := processors.GetRate(from, to)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rate)
}
