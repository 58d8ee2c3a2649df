package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/civiclens/permit-crawler/common/db"
)

// CrawlRun is the bookkeeping row written after every crawl, success or not.
type CrawlRun struct {
	ID          uuid.UUID `json:"id"`
	SiteID      string    `json:"site_id"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	PermitCount int       `json:"permit_count"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

type RunStore struct {
	db *db.DB
}

func NewRunStore(database *db.DB) *RunStore {
	return &RunStore{db: database}
}

const insertRunSQL = `
INSERT INTO crawl_runs (id, site_id, success, error, permit_count, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (s *RunStore) Record(ctx context.Context, run CrawlRun) error {
	if run.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate run id: %w", err)
		}
		run.ID = id
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}

	_, err := s.db.Pool.Exec(ctx, insertRunSQL,
		run.ID, run.SiteID, run.Success, run.Error, run.PermitCount,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record crawl run: %w", err)
	}
	return nil
}

const recentRunsSQL = `
SELECT id, site_id, success, error, permit_count, started_at, finished_at
FROM crawl_runs
WHERE site_id = $1
ORDER BY finished_at DESC
LIMIT $2`

// RecentBySite returns the latest runs for one site, newest first.
func (s *RunStore) RecentBySite(ctx context.Context, siteID string, limit int) ([]CrawlRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.Pool.Query(ctx, recentRunsSQL, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("list crawl runs: %w", err)
	}
	defer rows.Close()

	var runs []CrawlRun
	for rows.Next() {
		var run CrawlRun
		err := rows.Scan(&run.ID, &run.SiteID, &run.Success, &run.Error,
			&run.PermitCount, &run.StartedAt, &run.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("scan crawl run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
