package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/trackfolio/src/config"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/security/validation"
	"github.com/username/trackfolio/src/services"
	"github.com/username/trackfolio/src/utils"
)

type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(service services.ImportService) *ImportHandler {
	return &ImportHandler{importService: service}
}

// HandleImport ingests one broker statement. The source comes from the
// ?source= query parameter (degiro, ibkr, kraken), the file from the "file"
// multipart field.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		utils.SendJSONError(w, "Missing required 'source' query parameter (degiro, ibkr, kraken)", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "userID", userID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		logger.L.Warn("Invalid client-declared file type", "userID", userID, "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		logger.L.Warn("Server-side file content validation failed", "userID", userID, "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.L.Info("File content validated", "userID", userID, "filename", fileHeader.Filename,
		"clientType", clientContentType, "detectedType", detectedContentType)

	result, err := h.importService.ProcessImport(file, userID, source)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownSource):
			utils.SendJSONError(w, fmt.Sprintf("Unknown import source: %v", err), http.StatusBadRequest)
		case errors.Is(err, services.ErrParsingFailed):
			utils.SendJSONError(w, fmt.Sprintf("Error parsing statement file: %v", err), http.StatusBadRequest)
		case errors.Is(err, validation.ErrValidationFailed):
			utils.SendJSONError(w, fmt.Sprintf("File content validation failed: %v", err), http.StatusBadRequest)
		default:
			logger.L.Error("Internal error processing import", "userID", userID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding import result", "userID", userID, "error", err)
	}
}
