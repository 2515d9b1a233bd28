package security

import (
	"testing"
	"time"

	"github.com/username/trackfolio/src/config"
)

func newTestAuthService() *AuthService {
	config.Cfg = &config.AppConfig{AccessTokenExpiry: time.Hour}
	return NewAuthService("a-test-secret-that-is-long-enough-for-hs256")
}

func TestHashAndComparePassword(t *testing.T) {
	a := newTestAuthService()

	hash, err := a.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatalf("expected hashed output")
	}
	if err := a.CompareHashAndPassword(hash, "hunter2hunter2"); err != nil {
		t.Errorf("expected password to match: %v", err)
	}
	if err := a.CompareHashAndPassword(hash, "wrong"); err == nil {
		t.Errorf("expected mismatch error")
	}
}

func TestTokenRoundtrip(t *testing.T) {
	a := newTestAuthService()

	token, err := a.GenerateToken("42")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	sub, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if sub != "42" {
		t.Fatalf("expected subject 42, got %q", sub)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	a := newTestAuthService()
	token, err := a.GenerateToken("42")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other := NewAuthService("a-completely-different-secret-for-hs256!")
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatalf("expected validation with another secret to fail")
	}
	if _, err := a.ValidateToken("not.a.jwt"); err == nil {
		t.Fatalf("expected garbage token to fail")
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	a := newTestAuthService()

	first, err := a.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	second, err := a.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if first == "" || first == second {
		t.Fatalf("expected distinct opaque tokens, got %q and %q", first, second)
	}
}
