package model

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID                              int            `json:"id"`
	Username                        string         `json:"username"`
	Email                           string         `json:"email"`
	Password                        string         `json:"-"`
	AuthProvider                    string         `json:"auth_provider"`
	IsEmailVerified                 bool           `json:"is_email_verified"`
	EmailVerificationToken          sql.NullString `json:"-"`
	EmailVerificationTokenExpiresAt sql.NullTime   `json:"-"`
	PasswordResetToken              sql.NullString `json:"-"`
	PasswordResetTokenExpiresAt     sql.NullTime   `json:"-"`
	CreatedAt                       time.Time      `json:"created_at"`
	UpdatedAt                       time.Time      `json:"updated_at"`
}

type Session struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// HashPassword hashes the user's password using bcrypt.
func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a given password with the user's hashed password.
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// CreateUser inserts a new user. The email verification token must already be
// set when local registration requires verification.
func (u *User) CreateUser(db *sql.DB) error {
	if u.AuthProvider == "" {
		u.AuthProvider = "local"
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt

	query := `
	INSERT INTO users (username, password, email, auth_provider, is_email_verified,
		email_verification_token, email_verification_token_expires_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := db.Exec(query, u.Username, u.Password, u.Email, u.AuthProvider, u.IsEmailVerified,
		u.EmailVerificationToken, u.EmailVerificationTokenExpiresAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = int(id)
	return nil
}

const userColumns = `id, username, password, email, auth_provider, is_email_verified,
	email_verification_token, email_verification_token_expires_at,
	password_reset_token, password_reset_token_expires_at, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Email, &user.AuthProvider,
		&user.IsEmailVerified, &user.EmailVerificationToken, &user.EmailVerificationTokenExpiresAt,
		&user.PasswordResetToken, &user.PasswordResetTokenExpiresAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func GetUserByID(db *sql.DB, id int) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func GetUserByVerificationToken(db *sql.DB, token string) (*User, error) {
	return scanUser(db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE email_verification_token = ? AND email_verification_token_expires_at > ?`,
		token, time.Now()))
}

func GetUserByPasswordResetToken(db *sql.DB, token string) (*User, error) {
	return scanUser(db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE password_reset_token = ? AND password_reset_token_expires_at > ?`,
		token, time.Now()))
}

// MarkEmailVerified clears the verification token and flags the user verified.
func MarkEmailVerified(db *sql.DB, userID int) error {
	_, err := db.Exec(
		`UPDATE users SET is_email_verified = TRUE, email_verification_token = NULL,
		 email_verification_token_expires_at = NULL, updated_at = ? WHERE id = ?`,
		time.Now(), userID)
	return err
}

// SetPasswordResetToken stores a fresh reset token with its expiry.
func SetPasswordResetToken(db *sql.DB, userID int, token string, expiresAt time.Time) error {
	_, err := db.Exec(
		`UPDATE users SET password_reset_token = ?, password_reset_token_expires_at = ?, updated_at = ? WHERE id = ?`,
		token, expiresAt, time.Now(), userID)
	return err
}

// UpdatePassword replaces the password hash and invalidates any reset token.
func UpdatePassword(db *sql.DB, userID int, hashedPassword string) error {
	_, err := db.Exec(
		`UPDATE users SET password = ?, password_reset_token = NULL,
		 password_reset_token_expires_at = NULL, updated_at = ? WHERE id = ?`,
		hashedPassword, time.Now(), userID)
	return err
}

// UserHasTransactions reports whether the user has imported anything yet.
func UserHasTransactions(db *sql.DB, userID int) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(1) FROM transactions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateSession inserts a new session into the database.
func CreateSession(db *sql.DB, session *Session) error {
	session.CreatedAt = time.Now()
	_, err := db.Exec(
		`INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.UserID, session.Token, session.RefreshToken, session.UserAgent,
		session.ClientIP, session.IsBlocked, session.ExpiresAt, session.CreatedAt)
	return err
}

// GetSessionByToken retrieves an active, non-blocked session by its access token.
func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	row := db.QueryRow(
		`SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
		 FROM sessions WHERE token = ? AND is_blocked = FALSE AND expires_at > ?`,
		token, time.Now())

	var session Session
	err := row.Scan(&session.ID, &session.UserID, &session.Token, &session.RefreshToken,
		&session.UserAgent, &session.ClientIP, &session.IsBlocked, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("session not found, expired, or blocked")
		}
		return nil, err
	}
	return &session, nil
}

// GetSessionByRefreshToken retrieves a session eligible for token refresh.
func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	row := db.QueryRow(
		`SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
		 FROM sessions WHERE refresh_token = ? AND is_blocked = FALSE AND expires_at > ?`,
		refreshToken, time.Now())

	var session Session
	err := row.Scan(&session.ID, &session.UserID, &session.Token, &session.RefreshToken,
		&session.UserAgent, &session.ClientIP, &session.IsBlocked, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("refresh session not found, expired, or blocked")
		}
		return nil, err
	}
	return &session, nil
}

// UpdateSessionToken swaps in a newly issued access token after a refresh.
func UpdateSessionToken(db *sql.DB, sessionID int, newToken string) error {
	_, err := db.Exec(`UPDATE sessions SET token = ? WHERE id = ?`, newToken, sessionID)
	return err
}

// DeleteSessionByToken removes a session based on the access token. A missing
// session is not an error; logout stays idempotent.
func DeleteSessionByToken(db *sql.DB, token string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}
