// Package store persists companies and job postings.
package store

import (
	"context"
	"errors"

	"github.com/jsrothwell/job-monitor-sub000/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// OrderHint tells ListActiveCompanies how to order its result. The monitor
// processes companies in the order supplied, so the hint effectively drives
// scheduling priority.
type OrderHint string

const (
	// OrderLeastRecentlyChecked puts never-checked companies first, then
	// ascending last_checked.
	OrderLeastRecentlyChecked OrderHint = "least_recently_checked"
)

// Store is the durable record of companies and postings. Writes are scoped
// per company; Upsert must be conflict-safe per (company, fingerprint) so
// retried or concurrent runs cannot create duplicate rows.
type Store interface {
	// FindByFingerprint returns the posting with the given fingerprint for
	// the company, or ErrNotFound.
	FindByFingerprint(ctx context.Context, companyID, fingerprint string) (*model.JobPosting, error)

	// Upsert inserts p, or — when (company_id, fingerprint) already exists —
	// refreshes last_seen and sets status to EXISTING, preserving first_seen.
	Upsert(ctx context.Context, p model.JobPosting) error

	// MarkRemoved transitions every posting of the company whose fingerprint
	// is not in keep to REMOVED, returning the number of rows changed.
	MarkRemoved(ctx context.Context, companyID string, keep map[string]struct{}) (int64, error)

	// TouchLastChecked stamps the company's last_checked with now.
	TouchLastChecked(ctx context.Context, companyID string) error

	// ListActiveCompanies returns all active companies in hint order.
	ListActiveCompanies(ctx context.Context, hint OrderHint) ([]model.Company, error)
}
