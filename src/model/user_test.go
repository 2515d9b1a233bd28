package model

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/username/trackfolio/src/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database.InitDB(filepath.Join(t.TempDir(), "trackfolio_test.db"))
	return database.DB
}

func newTestUser(t *testing.T, db *sql.DB, username string) *User {
	t.Helper()
	user := &User{Username: username, Email: username + "@example.com"}
	if err := user.HashPassword("correct horse battery"); err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := user.CreateUser(db); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	db := setupTestDB(t)
	created := newTestUser(t, db, "alice")

	if created.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if created.AuthProvider != "local" {
		t.Fatalf("expected default auth provider local, got %q", created.AuthProvider)
	}

	byName, err := GetUserByUsername(db, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName.Email != "alice@example.com" {
		t.Errorf("unexpected email: %q", byName.Email)
	}
	if err := byName.CheckPassword("correct horse battery"); err != nil {
		t.Errorf("expected password to verify: %v", err)
	}
	if err := byName.CheckPassword("wrong"); err == nil {
		t.Errorf("expected wrong password to fail")
	}

	if _, err := GetUserByEmail(db, "alice@example.com"); err != nil {
		t.Errorf("GetUserByEmail: %v", err)
	}
	if _, err := GetUserByID(db, created.ID); err != nil {
		t.Errorf("GetUserByID: %v", err)
	}

	if _, err := GetUserByUsername(db, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	db := setupTestDB(t)
	newTestUser(t, db, "alice")

	dup := &User{Username: "alice", Email: "other@example.com", Password: "x"}
	if err := dup.CreateUser(db); err == nil {
		t.Fatalf("expected unique constraint violation")
	}
}

func TestEmailVerificationFlow(t *testing.T) {
	db := setupTestDB(t)

	user := &User{
		Username:               "bob",
		Email:                  "bob@example.com",
		Password:               "hash",
		EmailVerificationToken: sql.NullString{String: "verify-me", Valid: true},
		EmailVerificationTokenExpiresAt: sql.NullTime{
			Time: time.Now().Add(time.Hour), Valid: true,
		},
	}
	if err := user.CreateUser(db); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	found, err := GetUserByVerificationToken(db, "verify-me")
	if err != nil {
		t.Fatalf("GetUserByVerificationToken: %v", err)
	}
	if found.IsEmailVerified {
		t.Fatalf("expected user not yet verified")
	}

	if err := MarkEmailVerified(db, found.ID); err != nil {
		t.Fatalf("MarkEmailVerified: %v", err)
	}
	verified, err := GetUserByID(db, found.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !verified.IsEmailVerified || verified.EmailVerificationToken.Valid {
		t.Fatalf("expected verified user with cleared token, got %+v", verified)
	}

	if _, err := GetUserByVerificationToken(db, "verify-me"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected consumed token to be invalid, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	db := setupTestDB(t)
	user := newTestUser(t, db, "carol")

	if err := SetPasswordResetToken(db, user.ID, "reset-me", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SetPasswordResetToken: %v", err)
	}
	found, err := GetUserByPasswordResetToken(db, "reset-me")
	if err != nil {
		t.Fatalf("GetUserByPasswordResetToken: %v", err)
	}

	var fresh User
	if err := fresh.HashPassword("a brand new secret"); err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := UpdatePassword(db, found.ID, fresh.Password); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	updated, err := GetUserByID(db, found.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if err := updated.CheckPassword("a brand new secret"); err != nil {
		t.Errorf("expected new password to verify: %v", err)
	}
	if updated.PasswordResetToken.Valid {
		t.Errorf("expected reset token cleared after password change")
	}
	if _, err := GetUserByPasswordResetToken(db, "reset-me"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected consumed reset token to be invalid, got %v", err)
	}
}

func TestExpiredResetTokenRejected(t *testing.T) {
	db := setupTestDB(t)
	user := newTestUser(t, db, "dave")

	if err := SetPasswordResetToken(db, user.ID, "stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SetPasswordResetToken: %v", err)
	}
	if _, err := GetUserByPasswordResetToken(db, "stale"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected expired token to be invalid, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	user := newTestUser(t, db, "erin")

	session := &Session{
		UserID:       user.ID,
		Token:        "access-1",
		RefreshToken: "refresh-1",
		UserAgent:    "test-agent",
		ClientIP:     "127.0.0.1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := CreateSession(db, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	byToken, err := GetSessionByToken(db, "access-1")
	if err != nil {
		t.Fatalf("GetSessionByToken: %v", err)
	}
	if byToken.UserID != user.ID || byToken.RefreshToken != "refresh-1" {
		t.Errorf("unexpected session: %+v", byToken)
	}

	if err := UpdateSessionToken(db, byToken.ID, "access-2"); err != nil {
		t.Fatalf("UpdateSessionToken: %v", err)
	}
	if _, err := GetSessionByToken(db, "access-1"); err == nil {
		t.Errorf("expected old access token to be gone")
	}
	refreshed, err := GetSessionByRefreshToken(db, "refresh-1")
	if err != nil {
		t.Fatalf("GetSessionByRefreshToken: %v", err)
	}
	if refreshed.Token != "access-2" {
		t.Errorf("expected rotated access token, got %q", refreshed.Token)
	}

	if err := DeleteSessionByToken(db, "access-2"); err != nil {
		t.Fatalf("DeleteSessionByToken: %v", err)
	}
	if _, err := GetSessionByToken(db, "access-2"); err == nil {
		t.Errorf("expected deleted session to be gone")
	}
	// Logout of an already removed session stays quiet.
	if err := DeleteSessionByToken(db, "access-2"); err != nil {
		t.Errorf("expected idempotent delete, got %v", err)
	}
}

func TestExpiredSessionNotReturned(t *testing.T) {
	db := setupTestDB(t)
	user := newTestUser(t, db, "frank")

	session := &Session{
		UserID:       user.ID,
		Token:        "expired-token",
		RefreshToken: "expired-refresh",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	if err := CreateSession(db, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := GetSessionByToken(db, "expired-token"); err == nil {
		t.Fatalf("expected expired session to be rejected")
	}
	if _, err := GetSessionByRefreshToken(db, "expired-refresh"); err == nil {
		t.Fatalf("expected expired refresh session to be rejected")
	}
}

func TestUserHasTransactions(t *testing.T) {
	db := setupTestDB(t)
	user := newTestUser(t, db, "grace")

	has, err := UserHasTransactions(db, user.ID)
	if err != nil || has {
		t.Fatalf("expected no transactions yet, got %v (%v)", has, err)
	}

	_, err = db.Exec(`INSERT INTO transactions (user_id, date, source, product_name, hash_id)
		VALUES (?, '10-01-2024', 'degiro', 'ACME CORP', 'h1')`, user.ID)
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}

	has, err = UserHasTransactions(db, user.ID)
	if err != nil || !has {
		t.Fatalf("expected transactions present, got %v (%v)", has, err)
	}
}
