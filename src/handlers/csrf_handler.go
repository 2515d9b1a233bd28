package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/trackfolio/src/logger"
)

const csrfCookieName = "_csrf_token"

// GetCSRFToken issues a signed double-submit token: the value goes into an
// HttpOnly cookie and is echoed in the response for the client to replay in
// the X-CSRF-Token header.
func GetCSRFToken(authKey []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := generateSignedToken(authKey)
		if err != nil {
			logger.L.Error("Failed to generate CSRF token", "error", err)
			http.Error(w, "Failed to generate CSRF token", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			HttpOnly: true,
			Secure:   false, // behind TLS-terminating proxy in production
			MaxAge:   3600,
		})

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-CSRF-Token", token)
		json.NewEncoder(w).Encode(map[string]string{"csrfToken": token})
	}
}

// CSRFMiddleware enforces the double-submit check on state-changing methods:
// the X-CSRF-Token header must match the cookie, and the token signature must
// verify against the auth key.
func CSRFMiddleware(authKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, err := r.Cookie(csrfCookieName)
			if headerToken != "" && err == nil && headerToken == cookie.Value && verifySignedToken(authKey, headerToken) {
				next.ServeHTTP(w, r)
				return
			}

			logger.L.Warn("CSRF validation failed", "method", r.Method, "path", r.URL.Path)
			http.Error(w, "CSRF token validation failed", http.StatusForbidden)
		})
	}
}

// generateSignedToken returns "payload.signature" with an HMAC-SHA256
// signature over random payload bytes.
func generateSignedToken(authKey []byte) (string, error) {
	payload := make([]byte, 32)
	if _, err := rand.Read(payload); err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + signPayload(authKey, encoded), nil
}

func verifySignedToken(authKey []byte, token string) bool {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return false
	}
	expected := signPayload(authKey, parts[0])
	return hmac.Equal([]byte(expected), []byte(parts[1]))
}

func signPayload(authKey []byte, payload string) string {
	mac := hmac.New(sha256.New, authKey)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
