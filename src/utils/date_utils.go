package utils

import (
	"fmt"
	"time"
)

// DefaultDateFormat is the storage format for transaction dates (DD-MM-YYYY).
const DefaultDateFormat = "02-01-2006"

// ParseDate parses a date string in the default storage format.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse date %q: %w", dateStr, err)
	}
	return t, nil
}
