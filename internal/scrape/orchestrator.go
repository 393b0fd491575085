// Package scrape drives one company through fetch → extract → diff → persist.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jsrothwell/job-monitor-sub000/internal/extract"
	"github.com/jsrothwell/job-monitor-sub000/internal/fetch"
	"github.com/jsrothwell/job-monitor-sub000/internal/identity"
	"github.com/jsrothwell/job-monitor-sub000/internal/model"
	"github.com/jsrothwell/job-monitor-sub000/internal/store"
)

// OutcomeKind tags the result of scraping one company.
type OutcomeKind string

const (
	OutcomeSuccess  OutcomeKind = "success"
	OutcomeFailure  OutcomeKind = "failure"
	OutcomeTimedOut OutcomeKind = "timed_out"
)

// Outcome is the tagged result of ScrapeOne. Exactly one variant applies:
// Success carries the diff counts, Failure carries a reason, TimedOut
// carries neither.
type Outcome struct {
	Kind          OutcomeKind
	NewPostings   []model.JobPosting
	TotalPostings int
	Reason        string
}

// Orchestrator wires the fetcher, extractor and store together for a single
// company under one deadline.
type Orchestrator struct {
	fetcher   *fetch.Fetcher
	extractor *extract.Extractor
	store     store.Store
	now       func() time.Time
}

// New constructs an Orchestrator.
func New(f *fetch.Fetcher, e *extract.Extractor, s store.Store) *Orchestrator {
	return &Orchestrator{fetcher: f, extractor: e, store: s, now: time.Now}
}

// ScrapeOne processes company within budget: fetch the careers page,
// extract candidates, diff them against the store, persist the result.
//
// The budget bounds fetch + extract + persist together; exceeding it aborts
// the in-flight fetch via context cancellation. The company's last_checked
// is stamped on every outcome, success or not. Errors never escape as
// panics or cross-company failures — every mode maps to an Outcome.
func (o *Orchestrator) ScrapeOne(ctx context.Context, company model.Company, budget time.Duration) Outcome {
	cctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	// Stamp last_checked even when the budget is gone, so a failing
	// company does not dominate least-recently-checked scheduling forever.
	defer func() {
		touchCtx, touchCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer touchCancel()
		if err := o.store.TouchLastChecked(touchCtx, company.ID); err != nil {
			log.Printf("[scrape] touch last_checked for %s: %v", company.Name, err)
		}
	}()

	body, err := o.fetcher.Fetch(cctx, company.CareersURL)
	if err != nil {
		if fetch.IsTimeout(err) {
			return Outcome{Kind: OutcomeTimedOut}
		}
		return Outcome{Kind: OutcomeFailure, Reason: fmt.Sprintf("fetch_failed: %v", err)}
	}

	candidates := o.extractor.Extract(body, company)
	if cctx.Err() != nil {
		return Outcome{Kind: OutcomeTimedOut}
	}

	newPostings, keep, err := o.diffAndPersist(cctx, company, candidates)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Outcome{Kind: OutcomeTimedOut}
		}
		return Outcome{Kind: OutcomeFailure, Reason: fmt.Sprintf("persist_failed: %v", err)}
	}

	if _, err := o.store.MarkRemoved(cctx, company.ID, keep); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Outcome{Kind: OutcomeTimedOut}
		}
		return Outcome{Kind: OutcomeFailure, Reason: fmt.Sprintf("persist_failed: %v", err)}
	}

	return Outcome{
		Kind:          OutcomeSuccess,
		NewPostings:   newPostings,
		TotalPostings: len(keep),
	}
}

// diffAndPersist classifies each candidate as new or existing by
// fingerprint and upserts it. keep collects every fingerprint present in
// this scrape, for the subsequent removal pass.
func (o *Orchestrator) diffAndPersist(
	ctx context.Context,
	company model.Company,
	candidates []extract.Candidate,
) (newPostings []model.JobPosting, keep map[string]struct{}, err error) {
	now := o.now().UTC()
	keep = make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		fp := identity.Fingerprint(c.Title, c.URL)
		if _, dup := keep[fp]; dup {
			continue
		}
		keep[fp] = struct{}{}

		_, lookupErr := o.store.FindByFingerprint(ctx, company.ID, fp)
		switch {
		case lookupErr == nil:
			// Seen before: refresh last_seen, mark EXISTING. The upsert is
			// conflict-safe, so concurrent runs cannot duplicate the row.
			p := model.JobPosting{
				CompanyID:   company.ID,
				Title:       c.Title,
				URL:         c.URL,
				Fingerprint: fp,
				Status:      model.StatusExisting,
				FirstSeen:   now,
				LastSeen:    now,
			}
			if err := o.store.Upsert(ctx, p); err != nil {
				return nil, nil, err
			}

		case errors.Is(lookupErr, store.ErrNotFound):
			p := model.JobPosting{
				CompanyID:   company.ID,
				Title:       c.Title,
				URL:         c.URL,
				Fingerprint: fp,
				Status:      model.StatusNew,
				FirstSeen:   now,
				LastSeen:    now,
			}
			if err := o.store.Upsert(ctx, p); err != nil {
				return nil, nil, err
			}
			newPostings = append(newPostings, p)

		default:
			return nil, nil, lookupErr
		}
	}

	return newPostings, keep, nil
}
