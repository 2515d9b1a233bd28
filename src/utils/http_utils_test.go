package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestGenerateETag(t *testing.T) {
	data := map[string]int{"a": 1, "b": 2}

	etag, err := GenerateETag(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(etag) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(etag))
	}

	same, _ := GenerateETag(map[string]int{"a": 1, "b": 2})
	if same != etag {
		t.Fatalf("expected identical data to produce identical tags")
	}
	different, _ := GenerateETag(map[string]int{"a": 1, "b": 3})
	if different == etag {
		t.Fatalf("expected changed data to produce a different tag")
	}

	if _, err := GenerateETag(func() {}); err == nil {
		t.Fatalf("expected error for unmarshalable data")
	}
}

func TestSendJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendJSONError(rec, "something broke", 418)

	if rec.Code != 418 {
		t.Fatalf("expected status 418, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "something broke" {
		t.Fatalf("unexpected body: %v", body)
	}
}
