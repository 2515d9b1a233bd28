package handlers

import (
	"context"
	"testing"
)

func TestGetUserIDFromContext(t *testing.T) {
	if _, ok := GetUserIDFromContext(context.Background()); ok {
		t.Fatalf("expected no user id on a bare context")
	}

	ctx := context.WithValue(context.Background(), userIDContextKey, int64(7))
	userID, ok := GetUserIDFromContext(ctx)
	if !ok || userID != 7 {
		t.Fatalf("expected user id 7, got %d (%v)", userID, ok)
	}

	// A value of the wrong type is not treated as an authenticated user.
	ctx = context.WithValue(context.Background(), userIDContextKey, "7")
	if _, ok := GetUserIDFromContext(ctx); ok {
		t.Fatalf("expected string value to be rejected")
	}
}
