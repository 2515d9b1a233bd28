package models

import "time"

// Snapshot is a stored daily total-portfolio valuation, used for historical
// performance charts.
type Snapshot struct {
	ID            string    `json:"id"`
	UserID        int64     `json:"user_id"`
	SnapshotDate  string    `json:"snapshot_date"` // YYYY-MM-DD
	TotalValueEUR float64   `json:"total_value_eur"`
	TotalCostEUR  float64   `json:"total_cost_eur"`
	PositionCount int       `json:"position_count"`
	CreatedAt     time.Time `json:"created_at"`
}
