package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/username/trackfolio/src/config"
	"github.com/username/trackfolio/src/database"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/model"
)

var (
	googleOauthConfig *oauth2.Config
	oauthStateString  string
)

func InitializeGoogleOAuthConfig() {
	googleOauthConfig = &oauth2.Config{
		RedirectURL:  config.Cfg.GoogleRedirectURL,
		ClientID:     config.Cfg.GoogleClientID,
		ClientSecret: config.Cfg.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
	// Per-process random state; single-instance deployment model.
	state := make([]byte, 16)
	if _, err := rand.Read(state); err != nil {
		logger.L.Error("Failed to generate OAuth state", "error", err)
	}
	oauthStateString = base64.RawURLEncoding.EncodeToString(state)
}

func (h *UserHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if googleOauthConfig == nil || googleOauthConfig.ClientID == "" {
		http.Error(w, "Google login is not configured", http.StatusNotImplemented)
		return
	}
	http.Redirect(w, r, googleOauthConfig.AuthCodeURL(oauthStateString), http.StatusTemporaryRedirect)
}

func (h *UserHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("state") != oauthStateString {
		logger.L.Warn("Invalid OAuth state from Google callback")
		http.Redirect(w, r, config.Cfg.FrontendBaseURL+"/signin?error=invalid_state", http.StatusTemporaryRedirect)
		return
	}

	code := r.FormValue("code")
	token, err := googleOauthConfig.Exchange(context.Background(), code)
	if err != nil {
		logger.L.Error("Failed to exchange code for token", "error", err)
		http.Redirect(w, r, config.Cfg.FrontendBaseURL+"/signin?error=token_exchange_failed", http.StatusTemporaryRedirect)
		return
	}

	response, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + url.QueryEscape(token.AccessToken))
	if err != nil {
		logger.L.Error("Failed to get user info from Google", "error", err)
		http.Redirect(w, r, config.Cfg.FrontendBaseURL+"/signin?error=userinfo_failed", http.StatusTemporaryRedirect)
		return
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		http.Redirect(w, r, config.Cfg.FrontendBaseURL+"/signin?error=userinfo_read_failed", http.StatusTemporaryRedirect)
		return
	}

	var googleUser struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Verified bool   `json:"verified_email"`
		ID       string `json:"id"`
	}
	if err := json.Unmarshal(contents, &googleUser); err != nil {
		http.Redirect(w, r, config.Cfg.FrontendBaseURL+"/signin?error=userinfo_parse_failed", http.StatusTemporaryRedirect)
		return
	}
	if !googleUser.Verified {
		http.Redirect(w, r, config.Cfg.FrontendBaseURL+"/signin?error=email_not_verified_by_google", http.StatusTemporaryRedirect)
		return
	}

	user, err := model.GetUserByEmail(database.DB, googleUser.Email)
	if err != nil {
		// First Google login: create the account. The email doubles as the
		// username to guarantee uniqueness.
		newUser := &model.User{
			Username:        googleUser.Email,
			Email:           googleUser.Email,
			AuthProvider:    "google",
			IsEmailVerified: true,
		}
		if err := newUser.CreateUser(database.DB); err != nil {
			logger.L.Error("Failed to create Google user", "error", err)
			http.Redirect(w, r, config.Cfg.FrontendBaseURL+"/signin?error=user_creation_failed", http.StatusTemporaryRedirect)
			return
		}
		user = newUser
	} else if user.AuthProvider == "local" || user.Password != "" {
		logger.L.Warn("Google login attempt for existing local account", "email", user.Email)
		http.Redirect(w, r, config.Cfg.FrontendBaseURL+"/signin?error=email_already_exists_local", http.StatusTemporaryRedirect)
		return
	}

	appToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", user.ID))
	if err != nil {
		logger.L.Error("Failed to generate app token for Google user", "error", err)
		http.Redirect(w, r, config.Cfg.FrontendBaseURL+"/signin?error=token_generation_failed", http.StatusTemporaryRedirect)
		return
	}

	redirectURL := fmt.Sprintf("%s/auth/google/callback?token=%s&user=%s",
		config.Cfg.FrontendBaseURL, appToken, url.QueryEscape(string(contents)))
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}
