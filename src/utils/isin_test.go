package utils

import (
	"strings"
	"testing"
)

func TestFabricatePseudoISIN(t *testing.T) {
	isin := FabricatePseudoISIN("BTC")

	if len(isin) != 12 {
		t.Fatalf("expected 12 characters, got %d (%q)", len(isin), isin)
	}
	if !strings.HasPrefix(isin, PseudoISINPrefix) {
		t.Fatalf("expected %q prefix, got %q", PseudoISINPrefix, isin)
	}
	last := isin[len(isin)-1]
	if last < '0' || last > '9' {
		t.Fatalf("expected numeric check character, got %q", last)
	}

	if again := FabricatePseudoISIN("BTC"); again != isin {
		t.Fatalf("expected deterministic output, got %q and %q", isin, again)
	}
	if normalized := FabricatePseudoISIN("  btc "); normalized != isin {
		t.Fatalf("expected case and whitespace insensitive output, got %q and %q", isin, normalized)
	}
	if other := FabricatePseudoISIN("ETH"); other == isin {
		t.Fatalf("expected different symbols to map to different identifiers")
	}
}

func TestIsPseudoISIN(t *testing.T) {
	if !IsPseudoISIN(FabricatePseudoISIN("SOL")) {
		t.Fatalf("fabricated identifier not recognized as pseudo-ISIN")
	}
	if IsPseudoISIN("US0378331005") {
		t.Fatalf("real ISIN flagged as pseudo-ISIN")
	}
}

func TestGetCountryCodeString(t *testing.T) {
	tests := []struct {
		isin string
		want string
	}{
		{"US0378331005", "840 - United States of America"},
		{"IE00B4L5Y983", "372 - Ireland"},
		{"PT0000000001", "620 - Portugal"},
		{"ZZ0000000000", "Unknown Code: ZZ"},
		{"U", "Invalid ISIN (Too Short)"},
		{FabricatePseudoISIN("BTC"), ""},
	}
	for _, tc := range tests {
		if got := GetCountryCodeString(tc.isin); got != tc.want {
			t.Errorf("GetCountryCodeString(%q) = %q, want %q", tc.isin, got, tc.want)
		}
	}
}
