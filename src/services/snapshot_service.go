package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/username/trackfolio/src/logger"
	"github.com/username/trackfolio/src/model"
	"github.com/username/trackfolio/src/models"
)

// SnapshotService records daily portfolio valuations and serves the history
// behind GET /api/portfolio/history.
type SnapshotService struct {
	db            *sql.DB
	importService ImportService
	priceService  *PriceService
}

func NewSnapshotService(db *sql.DB, importService ImportService, priceService *PriceService) *SnapshotService {
	return &SnapshotService{db: db, importService: importService, priceService: priceService}
}

// TakeSnapshot values the user's current open positions and stores one row
// for today. Taking it twice on the same day overwrites the earlier row.
func (s *SnapshotService) TakeSnapshot(ctx context.Context, userID int) (*models.Snapshot, error) {
	positionResult, err := s.importService.GetPositionResult(int64(userID))
	if err != nil {
		return nil, err
	}

	value, err := s.priceService.ValuePositions(ctx, positionResult.Positions)
	if err != nil {
		return nil, err
	}

	snapshot := &models.Snapshot{
		SnapshotDate:  time.Now().UTC().Format("2006-01-02"),
		TotalValueEUR: value.TotalValueEUR,
		TotalCostEUR:  value.TotalCostEUR,
		PositionCount: value.PositionCount,
	}
	if err := model.InsertSnapshot(s.db, userID, snapshot); err != nil {
		return nil, err
	}

	logger.L.Info("Portfolio snapshot recorded", "userID", userID,
		"date", snapshot.SnapshotDate, "totalValueEUR", snapshot.TotalValueEUR)
	return snapshot, nil
}

// GetHistory returns snapshots in the optional [from, to] date range.
func (s *SnapshotService) GetHistory(userID int, from, to string) ([]models.Snapshot, error) {
	return model.GetSnapshots(s.db, userID, from, to)
}

// RunScheduler takes a snapshot for every user with data, once at startup
// and then at each tick until the context is cancelled. Meant to run in its
// own goroutine.
func (s *SnapshotService) RunScheduler(ctx context.Context, interval time.Duration) {
	logger.L.Info("Snapshot scheduler started", "interval", interval.String())
	s.snapshotAllUsers(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.L.Info("Snapshot scheduler stopped")
			return
		case <-ticker.C:
			s.snapshotAllUsers(ctx)
		}
	}
}

func (s *SnapshotService) snapshotAllUsers(ctx context.Context) {
	userIDs, err := model.GetUserIDsWithTransactions(s.db)
	if err != nil {
		logger.L.Error("Snapshot scheduler failed to list users", "error", err)
		return
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.TakeSnapshot(ctx, userID); err != nil {
			logger.L.Error("Scheduled snapshot failed", "userID", userID, "error", err)
		}
	}
	logger.L.Info("Scheduled snapshot run complete", "users", len(userIDs))
}
