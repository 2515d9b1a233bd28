package validation

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/trackfolio/src/logger"
)

// ErrValidationFailed marks errors caused by rejected statement content.
var ErrValidationFailed = errors.New("statement validation failed")

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
// Both CSV (DEGIRO, crypto exchanges) and XML (IBKR Flex Query) statements are accepted.
var AllowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"text/xml":                 true,
	"application/xml":          true,
	"application/vnd.ms-excel": true, // often used for CSV by older Excel
	"text/plain":               true,
	"application/octet-stream": true, // fallback; strict parsing happens later
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": false, // .xlsx
}

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	if allowed, exists := AllowedClientContentTypes[strings.ToLower(contentType)]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for statement upload", contentType)
	}
	return nil
}

// ValidateFileContentByMagicBytes checks the actual file content signature (magic bytes).
// It returns the detected content type and an error if validation fails.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset the read pointer so the actual parser can read the full file.
	_, seekErr := file.Seek(0, io.SeekStart)
	if seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	detectedContentType := http.DetectContentType(buffer[:n])
	detectedContentType = strings.ToLower(strings.Split(detectedContentType, ";")[0])

	allowedDetectedTypes := map[string]bool{
		"text/plain":               true,
		"text/csv":                 true,
		"application/csv":          true,
		"text/xml":                 true,
		"application/xml":          true,
		"application/octet-stream": true,
	}

	if !allowedDetectedTypes[detectedContentType] {
		logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detectedContentType)
		return detectedContentType, fmt.Errorf("detected file content type '%s' is not consistent with a broker statement", detectedContentType)
	}

	logger.L.Debug("File content type (magic bytes) validated", "detectedContentType", detectedContentType)
	return detectedContentType, nil
}
