package model

import (
	"testing"

	"github.com/username/trackfolio/src/models"
)

func TestInsertSnapshotIsIdempotentPerDay(t *testing.T) {
	db := setupTestDB(t)
	user := newTestUser(t, db, "henry")

	first := &models.Snapshot{
		SnapshotDate:  "2024-06-01",
		TotalValueEUR: 1000,
		TotalCostEUR:  800,
		PositionCount: 3,
	}
	if err := InsertSnapshot(db, user.ID, first); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("expected generated snapshot id")
	}

	// A rerun for the same day replaces the earlier value.
	second := &models.Snapshot{
		SnapshotDate:  "2024-06-01",
		TotalValueEUR: 1100,
		TotalCostEUR:  800,
		PositionCount: 3,
	}
	if err := InsertSnapshot(db, user.ID, second); err != nil {
		t.Fatalf("InsertSnapshot rerun: %v", err)
	}

	snapshots, err := GetSnapshots(db, user.ID, "", "")
	if err != nil {
		t.Fatalf("GetSnapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot for the day, got %d", len(snapshots))
	}
	if snapshots[0].TotalValueEUR != 1100 {
		t.Fatalf("expected updated value 1100, got %f", snapshots[0].TotalValueEUR)
	}
}

func TestGetSnapshotsRange(t *testing.T) {
	db := setupTestDB(t)
	user := newTestUser(t, db, "iris")

	for _, date := range []string{"2024-06-01", "2024-06-02", "2024-06-03"} {
		snap := &models.Snapshot{SnapshotDate: date, TotalValueEUR: 1, PositionCount: 1}
		if err := InsertSnapshot(db, user.ID, snap); err != nil {
			t.Fatalf("InsertSnapshot %s: %v", date, err)
		}
	}

	all, err := GetSnapshots(db, user.ID, "", "")
	if err != nil {
		t.Fatalf("GetSnapshots: %v", err)
	}
	if len(all) != 3 || all[0].SnapshotDate != "2024-06-01" || all[2].SnapshotDate != "2024-06-03" {
		t.Fatalf("expected 3 snapshots ordered ascending, got %+v", all)
	}

	bounded, err := GetSnapshots(db, user.ID, "2024-06-02", "2024-06-02")
	if err != nil {
		t.Fatalf("GetSnapshots bounded: %v", err)
	}
	if len(bounded) != 1 || bounded[0].SnapshotDate != "2024-06-02" {
		t.Fatalf("expected the single bounded snapshot, got %+v", bounded)
	}

	other, err := GetSnapshots(db, user.ID+1, "", "")
	if err != nil {
		t.Fatalf("GetSnapshots other user: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no snapshots for another user, got %d", len(other))
	}
}

func TestGetUserIDsWithTransactions(t *testing.T) {
	db := setupTestDB(t)
	active := newTestUser(t, db, "jack")
	newTestUser(t, db, "kate")

	_, err := db.Exec(`INSERT INTO transactions (user_id, date, source, product_name, hash_id)
		VALUES (?, '10-01-2024', 'degiro', 'ACME CORP', 'h1'), (?, '11-01-2024', 'degiro', 'ACME CORP', 'h2')`,
		active.ID, active.ID)
	if err != nil {
		t.Fatalf("insert transactions: %v", err)
	}

	ids, err := GetUserIDsWithTransactions(db)
	if err != nil {
		t.Fatalf("GetUserIDsWithTransactions: %v", err)
	}
	if len(ids) != 1 || ids[0] != active.ID {
		t.Fatalf("expected only the active user, got %v", ids)
	}
}
