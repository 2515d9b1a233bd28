package utils

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"
)

// PseudoISINPrefix marks fabricated identifiers for crypto assets that have
// no real ISIN. "XC" is outside the ISO 3166 alpha-2 country space.
const PseudoISINPrefix = "XC"

type countryInfo struct {
	Numeric string
	Name    string
}

// alpha2Countries covers the markets the supported brokers report ISINs for.
var alpha2Countries = map[string]countryInfo{
	"US": {"840", "United States of America"},
	"GB": {"826", "United Kingdom"},
	"DE": {"276", "Germany"},
	"FR": {"250", "France"},
	"NL": {"528", "Netherlands"},
	"IE": {"372", "Ireland"},
	"LU": {"442", "Luxembourg"},
	"PT": {"620", "Portugal"},
	"ES": {"724", "Spain"},
	"IT": {"380", "Italy"},
	"CH": {"756", "Switzerland"},
	"BE": {"056", "Belgium"},
	"AT": {"040", "Austria"},
	"FI": {"246", "Finland"},
	"SE": {"752", "Sweden"},
	"NO": {"578", "Norway"},
	"DK": {"208", "Denmark"},
	"CA": {"124", "Canada"},
	"JP": {"392", "Japan"},
	"AU": {"036", "Australia"},
	"JE": {"832", "Jersey"},
	"KY": {"136", "Cayman Islands"},
	"BM": {"060", "Bermuda"},
}

// GetCountryCodeString derives a "numeric - name" country string from the
// ISIN's alpha-2 prefix. Pseudo-ISINs have no issuing country.
func GetCountryCodeString(isin string) string {
	if len(isin) < 2 {
		return "Invalid ISIN (Too Short)"
	}
	if IsPseudoISIN(isin) {
		return ""
	}
	alpha2 := strings.ToUpper(isin[:2])
	info, found := alpha2Countries[alpha2]
	if !found {
		return "Unknown Code: " + alpha2
	}
	return fmt.Sprintf("%s - %s", info.Numeric, info.Name)
}

// IsPseudoISIN reports whether the identifier was fabricated for a crypto asset.
func IsPseudoISIN(isin string) bool {
	return strings.HasPrefix(strings.ToUpper(isin), PseudoISINPrefix)
}

// FabricatePseudoISIN builds a deterministic 12-character pseudo-ISIN for a
// crypto symbol: "XC" + 9 base32 characters of SHA-256(symbol) + a numeric
// check character. The same symbol always maps to the same identifier.
func FabricatePseudoISIN(symbol string) string {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	sum := sha256.Sum256([]byte(normalized))
	body := base32.StdEncoding.EncodeToString(sum[:])[:9]

	var checksum int
	for _, c := range PseudoISINPrefix + body {
		checksum += int(c)
	}
	return fmt.Sprintf("%s%s%d", PseudoISINPrefix, body, checksum%10)
}
