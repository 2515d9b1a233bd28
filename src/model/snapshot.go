package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/username/trackfolio/src/models"
)

// InsertSnapshot stores one daily valuation row. The UNIQUE(user_id,
// snapshot_date) constraint makes the write idempotent per day: re-running a
// snapshot for the same date replaces the earlier value.
func InsertSnapshot(db *sql.DB, userID int, snapshot *models.Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	snapshot.CreatedAt = time.Now()

	query := `
		INSERT INTO snapshots (id, user_id, snapshot_date, total_value_eur, total_cost_eur, position_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, snapshot_date) DO UPDATE SET
			total_value_eur = excluded.total_value_eur,
			total_cost_eur = excluded.total_cost_eur,
			position_count = excluded.position_count,
			created_at = excluded.created_at`

	_, err := db.Exec(query, snapshot.ID, userID, snapshot.SnapshotDate,
		snapshot.TotalValueEUR, snapshot.TotalCostEUR, snapshot.PositionCount, snapshot.CreatedAt)
	return err
}

// GetSnapshots returns a user's snapshots ordered by date ascending,
// optionally bounded by from/to (inclusive, YYYY-MM-DD).
func GetSnapshots(db *sql.DB, userID int, from, to string) ([]models.Snapshot, error) {
	query := `SELECT id, snapshot_date, total_value_eur, total_cost_eur, position_count, created_at
		FROM snapshots WHERE user_id = ?`
	args := []interface{}{userID}

	if from != "" {
		query += ` AND snapshot_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND snapshot_date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY snapshot_date ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.Snapshot
	for rows.Next() {
		var s models.Snapshot
		if err := rows.Scan(&s.ID, &s.SnapshotDate, &s.TotalValueEUR, &s.TotalCostEUR, &s.PositionCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// GetUserIDsWithTransactions lists users eligible for the scheduled snapshot run.
func GetUserIDsWithTransactions(db *sql.DB) ([]int, error) {
	rows, err := db.Query(`SELECT DISTINCT user_id FROM transactions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
