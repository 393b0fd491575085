// Package model defines the typed records shared across the monitor service.
package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// LifecycleStatus values mirror the posting_status enum in PostgreSQL.
//
// Valid transition graph:
//
//	NEW ──► EXISTING ◄──► REMOVED
//	 │                      ▲
//	 └──────────────────────┘
//
// A posting is never created as REMOVED; it only transitions into it when a
// later successful scrape no longer lists its fingerprint. A REMOVED posting
// whose fingerprint reappears is re-listed as EXISTING, not NEW.
type LifecycleStatus string

const (
	StatusNew      LifecycleStatus = "NEW"
	StatusExisting LifecycleStatus = "EXISTING"
	StatusRemoved  LifecycleStatus = "REMOVED"
)

// ParseLifecycleStatus converts a raw string to a LifecycleStatus, returning
// an error for unknown values.
func ParseLifecycleStatus(s string) (LifecycleStatus, error) {
	st := LifecycleStatus(s)
	switch st {
	case StatusNew, StatusExisting, StatusRemoved:
		return st, nil
	}
	return "", fmt.Errorf("unknown lifecycle status %q", s)
}

// Company is a monitored employer. The core treats it as read-only except
// for the last_checked timestamp, which is refreshed after every attempt.
type Company struct {
	ID          string
	Name        string
	CareersURL  string
	Selector    string // optional custom extraction rule; empty = fallback ladder
	Active      bool
	LastChecked *time.Time
}

// NewCompany validates and constructs a Company. CareersURL must be a
// well-formed absolute http(s) URL — enforced here so no fetch is ever
// attempted against a URL that cannot be resolved against.
func NewCompany(id, name, careersURL, selector string) (Company, error) {
	u, err := url.Parse(strings.TrimSpace(careersURL))
	if err != nil {
		return Company{}, fmt.Errorf("careers_url %q: %w", careersURL, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Company{}, fmt.Errorf("careers_url %q is not an absolute http(s) URL", careersURL)
	}
	return Company{
		ID:         id,
		Name:       name,
		CareersURL: u.String(),
		Selector:   strings.TrimSpace(selector),
		Active:     true,
	}, nil
}

// RawCandidate is an extraction result before filtering and cleaning: the
// trimmed text of a matched element plus its raw, possibly-relative href.
type RawCandidate struct {
	Title string
	Href  string
}

// JobPosting is the persisted unit the rest of the system reasons about.
// Fingerprint is the sole identity key; it is unique per company but may
// repeat across companies (separate rows, separate CompanyID).
type JobPosting struct {
	ID          string
	CompanyID   string
	Title       string
	URL         string
	Fingerprint string
	Status      LifecycleStatus
	FirstSeen   time.Time
	LastSeen    time.Time
}

// CompanyDetail records the outcome of one company inside a monitoring run.
type CompanyDetail struct {
	CompanyID   string        `json:"companyId"`
	CompanyName string        `json:"companyName"`
	Success     bool          `json:"success"`
	NewJobs     int           `json:"newJobs"`
	TotalJobs   int           `json:"totalJobs"`
	Duration    time.Duration `json:"durationNs"`
	Error       string        `json:"error,omitempty"`
	Skipped     bool          `json:"skipped,omitempty"`
}

// RunSummary is the machine-readable result of a full monitoring run.
// A run always produces a summary, even when every company fails.
type RunSummary struct {
	Checked    int             `json:"checked"`
	TotalNew   int             `json:"totalNew"`
	AlertsSent int             `json:"alertsSent"`
	Errors     int             `json:"errors"`
	Timeouts   int             `json:"timeouts"`
	Skipped    int             `json:"skipped"`
	Duration   time.Duration   `json:"durationNs"`
	Message    string          `json:"message,omitempty"`
	Companies  []CompanyDetail `json:"companies"`
}
