package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/username/trackfolio/src/config"
	"github.com/username/trackfolio/src/database"
	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/model"
	"github.com/username/trackfolio/src/security"
	"github.com/username/trackfolio/src/services"
	"github.com/username/trackfolio/src/utils"
)

type UserHandler struct {
	authService  *security.AuthService
	emailService services.EmailService
}

func NewUserHandler(authService *security.AuthService, emailService services.EmailService) *UserHandler {
	return &UserHandler{
		authService:  authService,
		emailService: emailService,
	}
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	credentials.Username = strings.TrimSpace(credentials.Username)
	credentials.Email = strings.TrimSpace(strings.ToLower(credentials.Email))
	if credentials.Username == "" || credentials.Email == "" || len(credentials.Password) < 8 {
		utils.SendJSONError(w, "Username, email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := h.authService.HashPassword(credentials.Password)
	if err != nil {
		utils.SendJSONError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	verificationToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		utils.SendJSONError(w, "Failed to generate verification token", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username:     credentials.Username,
		Email:        credentials.Email,
		Password:     hashedPassword,
		AuthProvider: "local",
		EmailVerificationToken: sql.NullString{
			String: verificationToken, Valid: true,
		},
		EmailVerificationTokenExpiresAt: sql.NullTime{
			Time: time.Now().Add(config.Cfg.VerificationTokenExpiry), Valid: true,
		},
	}

	if err := user.CreateUser(database.DB); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			utils.SendJSONError(w, "Username already exists", http.StatusConflict)
			return
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			utils.SendJSONError(w, "Email already registered", http.StatusConflict)
			return
		}
		logger.L.Error("Failed to create user", "username", credentials.Username, "error", err)
		utils.SendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	if err := h.emailService.SendVerificationEmail(user.Email, user.Username, verificationToken); err != nil {
		logger.L.Error("Failed to send verification email", "userID", user.ID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "User registered successfully. Please check your email to verify your account.",
	})
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByUsername(database.DB, credentials.Username)
	if err != nil {
		logger.L.Warn("Login failed: user lookup", "username", credentials.Username, "error", err)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err := user.CheckPassword(credentials.Password); err != nil {
		logger.L.Warn("Login failed: password mismatch", "username", credentials.Username)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if !user.IsEmailVerified {
		utils.SendJSONError(w, "Email address not verified. Please check your inbox.", http.StatusForbidden)
		return
	}

	accessToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", user.ID))
	if err != nil {
		utils.SendJSONError(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		utils.SendJSONError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		utils.SendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil || requestBody.RefreshToken == "" {
		utils.SendJSONError(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	session, err := model.GetSessionByRefreshToken(database.DB, requestBody.RefreshToken)
	if err != nil {
		logger.L.Warn("Refresh failed: session lookup", "error", err)
		utils.SendJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	newAccessToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", session.UserID))
	if err != nil {
		utils.SendJSONError(w, "Failed to generate new access token", http.StatusInternalServerError)
		return
	}
	if err := model.UpdateSessionToken(database.DB, session.ID, newAccessToken); err != nil {
		utils.SendJSONError(w, "Failed to update session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token":  newAccessToken,
		"refresh_token": session.RefreshToken,
	})
}

func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}

	if err := model.DeleteSessionByToken(database.DB, tokenString); err != nil {
		logger.L.Warn("Logout: failed to delete session", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.SendJSONError(w, "Verification token is required", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByVerificationToken(database.DB, token)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			utils.SendJSONError(w, "Invalid or expired verification token", http.StatusBadRequest)
			return
		}
		utils.SendJSONError(w, "Failed to verify email", http.StatusInternalServerError)
		return
	}

	if err := model.MarkEmailVerified(database.DB, user.ID); err != nil {
		logger.L.Error("Failed to mark email verified", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to verify email", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Email verified", "userID", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Email verified successfully. You can now log in."})
}

func (h *UserHandler) RequestPasswordResetHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil || requestBody.Email == "" {
		utils.SendJSONError(w, "Email is required", http.StatusBadRequest)
		return
	}

	// Always answer 200 so the endpoint cannot be used to probe for accounts.
	respond := func() {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "If an account exists for that email, a password reset link has been sent.",
		})
	}

	user, err := model.GetUserByEmail(database.DB, strings.ToLower(strings.TrimSpace(requestBody.Email)))
	if err != nil {
		logger.L.Info("Password reset requested for unknown email")
		respond()
		return
	}
	if user.AuthProvider != "local" {
		logger.L.Info("Password reset requested for OAuth account", "userID", user.ID)
		respond()
		return
	}

	resetToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		utils.SendJSONError(w, "Failed to generate reset token", http.StatusInternalServerError)
		return
	}
	expiresAt := time.Now().Add(config.Cfg.PasswordResetTokenExpiry)
	if err := model.SetPasswordResetToken(database.DB, user.ID, resetToken, expiresAt); err != nil {
		utils.SendJSONError(w, "Failed to store reset token", http.StatusInternalServerError)
		return
	}

	if err := h.emailService.SendPasswordResetEmail(user.Email, user.Username, resetToken); err != nil {
		logger.L.Error("Failed to send password reset email", "userID", user.ID, "error", err)
	}
	respond()
}

func (h *UserHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if requestBody.Token == "" || len(requestBody.NewPassword) < 8 {
		utils.SendJSONError(w, "Token and a new password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByPasswordResetToken(database.DB, requestBody.Token)
	if err != nil {
		utils.SendJSONError(w, "Invalid or expired reset token", http.StatusBadRequest)
		return
	}

	hashedPassword, err := h.authService.HashPassword(requestBody.NewPassword)
	if err != nil {
		utils.SendJSONError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := model.UpdatePassword(database.DB, user.ID, hashedPassword); err != nil {
		utils.SendJSONError(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Password reset completed", "userID", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Password has been reset. You can now log in."})
}

// HandleCheckUserData tells the frontend whether to show the import wizard or
// the portfolio.
func (h *UserHandler) HandleCheckUserData(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	hasData, err := model.UserHasTransactions(database.DB, int(userID))
	if err != nil {
		logger.L.Error("Failed to check user data", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to check user data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"has_data": hasData})
}
