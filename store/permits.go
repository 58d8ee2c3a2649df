// Package store persists extracted permit records. Records are upserted by
// their natural key; the same permit number legitimately recurs across
// jurisdictions.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
	"github.com/samber/mo"

	"github.com/civiclens/permit-crawler/common/db"
	"github.com/civiclens/permit-crawler/common/models"
)

type PermitStore struct {
	db *db.DB
}

func NewPermitStore(database *db.DB) *PermitStore {
	return &PermitStore{db: database}
}

const upsertPermitSQL = `
INSERT INTO permits (
	permit_number, city, state, site_id,
	title, description, address, postal_code,
	permit_type, status, valuation,
	applied_date, applied_date_raw, expiration_date,
	source_url, contractor_id, scraped_at
) VALUES (
	$1, $2, $3, $4,
	$5, $6, $7, $8,
	$9, $10, $11,
	$12, $13, $14,
	$15, $16, $17
)
ON CONFLICT (permit_number, city, state) DO UPDATE SET
	site_id = EXCLUDED.site_id,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	address = EXCLUDED.address,
	postal_code = EXCLUDED.postal_code,
	permit_type = EXCLUDED.permit_type,
	status = EXCLUDED.status,
	valuation = COALESCE(EXCLUDED.valuation, permits.valuation),
	applied_date = EXCLUDED.applied_date,
	applied_date_raw = EXCLUDED.applied_date_raw,
	expiration_date = COALESCE(EXCLUDED.expiration_date, permits.expiration_date),
	source_url = EXCLUDED.source_url,
	contractor_id = COALESCE(NULLIF(EXCLUDED.contractor_id, ''), permits.contractor_id),
	scraped_at = EXCLUDED.scraped_at,
	updated_at = now()`

// SaveBatch upserts a crawl's permits in one round trip. Returns how many
// rows were written; a single bad row fails the whole batch so a crawl is
// never half-persisted silently.
func (s *PermitStore) SaveBatch(ctx context.Context, siteID string, permits []models.Permit, scrapedAt time.Time) (int, error) {
	if len(permits) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range permits {
		batch.Queue(upsertPermitSQL,
			p.PermitNumber, p.City, p.State, siteID,
			p.Title, p.Description, p.Address, p.PostalCode,
			p.PermitType, string(p.Status), optFloat(p.Valuation),
			optDate(p.AppliedDate), p.AppliedDateRaw, optTimeDate(p.ExpirationDate),
			p.SourceURL, p.ContractorID, scrapedAt,
		)
	}

	results := s.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for range permits {
		if _, err := results.Exec(); err != nil {
			return written, fmt.Errorf("upsert permit batch: %w", err)
		}
		written++
	}

	log.Debug().Str("site", siteID).Int("written", written).Msg("permit batch persisted")
	return written, nil
}

const listPermitsSQL = `
SELECT permit_number, city, state,
	title, description, address, postal_code,
	permit_type, status, valuation,
	applied_date, applied_date_raw, expiration_date,
	source_url, contractor_id
FROM permits`

// ListFilter narrows a permit listing. Zero values mean no filter.
type ListFilter struct {
	SiteID string
	City   string
	State  string
	Status models.PermitStatus
	Limit  int
}

// List returns permits matching the filter, newest applications first.
func (s *PermitStore) List(ctx context.Context, filter ListFilter) ([]models.Permit, error) {
	query := listPermitsSQL
	var args []any
	var where []string

	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.SiteID != "" {
		add("site_id = $%d", filter.SiteID)
	}
	if filter.City != "" {
		add("city = $%d", filter.City)
	}
	if filter.State != "" {
		add("state = $%d", filter.State)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}

	for i, clause := range where {
		if i == 0 {
			query += "\nWHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += "\nORDER BY applied_date DESC NULLS LAST, permit_number"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf("\nLIMIT $%d", len(args))

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list permits: %w", err)
	}
	defer rows.Close()

	var permits []models.Permit
	for rows.Next() {
		var (
			p          models.Permit
			status     string
			valuation  pgtype.Float8
			applied    pgtype.Date
			expiration pgtype.Date
		)
		err := rows.Scan(
			&p.PermitNumber, &p.City, &p.State,
			&p.Title, &p.Description, &p.Address, &p.PostalCode,
			&p.PermitType, &status, &valuation,
			&applied, &p.AppliedDateRaw, &expiration,
			&p.SourceURL, &p.ContractorID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan permit: %w", err)
		}

		p.Status = models.PermitStatus(status)
		if valuation.Valid {
			p.Valuation = mo.Some(valuation.Float64)
		}
		if applied.Valid {
			p.AppliedDate = applied.Time
		}
		if expiration.Valid {
			p.ExpirationDate = mo.Some(expiration.Time)
		}
		permits = append(permits, p)
	}
	return permits, rows.Err()
}

func optFloat(o mo.Option[float64]) pgtype.Float8 {
	if v, ok := o.Get(); ok {
		return pgtype.Float8{Float64: v, Valid: true}
	}
	return pgtype.Float8{}
}

func optDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func optTimeDate(o mo.Option[time.Time]) pgtype.Date {
	if v, ok := o.Get(); ok {
		return pgtype.Date{Time: v, Valid: true}
	}
	return pgtype.Date{}
}
