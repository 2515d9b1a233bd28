package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/username/trackfolio/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

var testAuthKey = []byte("0123456789abcdef0123456789abcdef")

func issueCSRFToken(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	GetCSRFToken(testAuthKey)(rec, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from token endpoint, got %d", rec.Code)
	}

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.CSRFToken == "" {
		t.Fatalf("expected token in response body")
	}
	if header := rec.Header().Get("X-CSRF-Token"); header != body.CSRFToken {
		t.Fatalf("header/body token mismatch: %q vs %q", header, body.CSRFToken)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("expected %s cookie", csrfCookieName)
	}
	if cookie.Value != body.CSRFToken {
		t.Fatalf("cookie/body token mismatch")
	}
	if !cookie.HttpOnly {
		t.Fatalf("expected HttpOnly cookie")
	}
	return cookie, body.CSRFToken
}

func TestCSRFDoubleSubmitRoundtrip(t *testing.T) {
	cookie, token := issueCSRFToken(t)

	protected := CSRFMiddleware(testAuthKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.AddCookie(cookie)
	req.Header.Set("X-CSRF-Token", token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected request with valid token to pass, got %d", rec.Code)
	}
}

func TestCSRFMiddlewareRejections(t *testing.T) {
	cookie, token := issueCSRFToken(t)
	protected := CSRFMiddleware(testAuthKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	// Missing header.
	req := httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 without header, got %d", rec.Code)
	}

	// Missing cookie.
	req = httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.Header.Set("X-CSRF-Token", token)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 without cookie, got %d", rec.Code)
	}

	// Tampered token in both places: matching values but broken signature.
	tampered := token + "x"
	req = httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tampered})
	req.Header.Set("X-CSRF-Token", tampered)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for forged token, got %d", rec.Code)
	}

	// Token signed with a different key.
	otherToken, err := generateSignedToken([]byte("another-key-another-key-another!"))
	if err != nil {
		t.Fatalf("generateSignedToken: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: otherToken})
	req.Header.Set("X-CSRF-Token", otherToken)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for token signed with another key, got %d", rec.Code)
	}
}

func TestCSRFMiddlewareSkipsSafeMethods(t *testing.T) {
	protected := CSRFMiddleware(testAuthKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		req := httptest.NewRequest(method, "/api/portfolio", nil)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected %s to bypass the check, got %d", method, rec.Code)
		}
	}
}

func TestVerifySignedToken(t *testing.T) {
	token, err := generateSignedToken(testAuthKey)
	if err != nil {
		t.Fatalf("generateSignedToken: %v", err)
	}
	if !verifySignedToken(testAuthKey, token) {
		t.Errorf("expected freshly issued token to verify")
	}
	if verifySignedToken(testAuthKey, "no-separator") {
		t.Errorf("expected malformed token to fail")
	}
	if verifySignedToken([]byte("different-key-entirely-0123456789"), token) {
		t.Errorf("expected verification with wrong key to fail")
	}
}
