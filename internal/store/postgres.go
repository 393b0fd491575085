package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jsrothwell/job-monitor-sub000/internal/model"
)

// Schema for the tables the Postgres store needs. Applied by EnsureSchema;
// safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS companies (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	careers_url   TEXT NOT NULL,
	selector      TEXT NOT NULL DEFAULT '',
	active        BOOLEAN NOT NULL DEFAULT true,
	last_checked  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS job_postings (
	id           UUID PRIMARY KEY,
	company_id   UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	url          TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	status       TEXT NOT NULL,
	first_seen   TIMESTAMPTZ NOT NULL,
	last_seen    TIMESTAMPTZ NOT NULL,
	UNIQUE (company_id, fingerprint)
);

CREATE INDEX IF NOT EXISTS idx_job_postings_company_status
	ON job_postings (company_id, status);
`

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps pool as a Store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the companies and job_postings tables if missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) FindByFingerprint(ctx context.Context, companyID, fingerprint string) (*model.JobPosting, error) {
	var p model.JobPosting
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, company_id, title, url, fingerprint, status, first_seen, last_seen
		 FROM job_postings
		 WHERE company_id = $1 AND fingerprint = $2`,
		companyID, fingerprint,
	).Scan(&p.ID, &p.CompanyID, &p.Title, &p.URL, &p.Fingerprint, &status, &p.FirstSeen, &p.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("findByFingerprint: %w", err)
	}
	p.Status = model.LifecycleStatus(status)
	return &p, nil
}

func (s *Postgres) Upsert(ctx context.Context, p model.JobPosting) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_postings (id, company_id, title, url, fingerprint, status, first_seen, last_seen)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (company_id, fingerprint) DO UPDATE
		 SET last_seen = EXCLUDED.last_seen,
		     status    = 'EXISTING'`,
		p.ID, p.CompanyID, p.Title, p.URL, p.Fingerprint, string(p.Status), p.FirstSeen, p.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("upsert posting: %w", err)
	}
	return nil
}

func (s *Postgres) MarkRemoved(ctx context.Context, companyID string, keep map[string]struct{}) (int64, error) {
	keepList := make([]string, 0, len(keep))
	for fp := range keep {
		keepList = append(keepList, fp)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE job_postings
		 SET status = 'REMOVED'
		 WHERE company_id = $1
		   AND status <> 'REMOVED'
		   AND NOT (fingerprint = ANY($2))`,
		companyID, keepList,
	)
	if err != nil {
		return 0, fmt.Errorf("markRemoved: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Postgres) TouchLastChecked(ctx context.Context, companyID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE companies SET last_checked = $2 WHERE id = $1`,
		companyID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("touchLastChecked: %w", err)
	}
	return nil
}

func (s *Postgres) ListActiveCompanies(ctx context.Context, hint OrderHint) ([]model.Company, error) {
	order := `name ASC`
	if hint == OrderLeastRecentlyChecked {
		order = `last_checked ASC NULLS FIRST`
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, careers_url, selector, active, last_checked
		 FROM companies
		 WHERE active = true
		 ORDER BY `+order,
	)
	if err != nil {
		return nil, fmt.Errorf("listActiveCompanies: %w", err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CareersURL, &c.Selector, &c.Active, &c.LastChecked); err != nil {
			return nil, fmt.Errorf("listActiveCompanies scan: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}
