// Package monitor iterates the active company set under a total wall-clock
// budget, isolating per-company failures and aggregating a RunSummary.
package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/jsrothwell/job-monitor-sub000/internal/model"
	"github.com/jsrothwell/job-monitor-sub000/internal/scrape"
)

// Scraper processes one company under a deadline. Implemented by
// scrape.Orchestrator; faked in tests.
type Scraper interface {
	ScrapeOne(ctx context.Context, company model.Company, budget time.Duration) scrape.Outcome
}

// Notifier alerts subscribers about a company's new postings. A notifier
// error means "alert not sent", never a failed scrape.
type Notifier interface {
	NotifyNewPostings(ctx context.Context, company model.Company, postings []model.JobPosting) error
}

// Budgets are the time limits for one monitoring run.
type Budgets struct {
	Total      time.Duration // wall clock for the whole run
	PerCompany time.Duration // fetch + extract + persist for one company
	Pause      time.Duration // politeness delay between companies; 0 disables
}

// Runner executes monitoring runs sequentially, one company at a time.
// Sequential processing is deliberate: it keeps memory bounded and avoids
// hammering many third-party hosts at once.
type Runner struct {
	scraper  Scraper
	notifier Notifier
	now      func() time.Time
}

// NewRunner constructs a Runner. notifier may be nil if no alerting is
// configured.
func NewRunner(s Scraper, n Notifier) *Runner {
	return &Runner{scraper: s, notifier: n, now: time.Now}
}

// Run processes companies in the order supplied (callers supply
// least-recently-checked first). Before each company it checks the total
// budget; once exceeded, the rest are recorded as skipped without being
// scraped. The run always returns a summary — a failing company, a failing
// notifier or even a panicking scrape affects only its own entry.
func (r *Runner) Run(ctx context.Context, companies []model.Company, b Budgets) model.RunSummary {
	start := r.now()
	summary := model.RunSummary{Companies: make([]model.CompanyDetail, 0, len(companies))}

	if len(companies) == 0 {
		summary.Message = "no active companies to check"
		summary.Duration = r.now().Sub(start)
		return summary
	}

	var limiter *rate.Limiter
	if b.Pause > 0 {
		limiter = rate.NewLimiter(rate.Every(b.Pause), 1)
	}

	for _, company := range companies {
		if r.now().Sub(start) >= b.Total {
			summary.Skipped++
			summary.Companies = append(summary.Companies, model.CompanyDetail{
				CompanyID:   company.ID,
				CompanyName: company.Name,
				Skipped:     true,
				Error:       "skipped_due_to_time_limit",
			})
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				// Caller cancelled the run, distinct from budget exhaustion.
				summary.Skipped++
				summary.Companies = append(summary.Companies, model.CompanyDetail{
					CompanyID:   company.ID,
					CompanyName: company.Name,
					Skipped:     true,
					Error:       "skipped_run_cancelled",
				})
				continue
			}
		}

		detail := r.runOne(ctx, company, b.PerCompany, &summary)
		summary.Checked++
		summary.Companies = append(summary.Companies, detail)
	}

	summary.Duration = r.now().Sub(start)
	log.Printf("[monitor] Run complete — checked=%d new=%d alerts=%d errors=%d timeouts=%d skipped=%d in %s",
		summary.Checked, summary.TotalNew, summary.AlertsSent,
		summary.Errors, summary.Timeouts, summary.Skipped, summary.Duration.Round(time.Millisecond))
	return summary
}

// runOne scrapes a single company and folds the outcome into summary. A
// panic inside the scrape is contained here and reported as a failure for
// that company only.
func (r *Runner) runOne(ctx context.Context, company model.Company, budget time.Duration, summary *model.RunSummary) (detail model.CompanyDetail) {
	began := r.now()
	detail = model.CompanyDetail{CompanyID: company.ID, CompanyName: company.Name}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[monitor] Panic while scraping %s: %v", company.Name, rec)
			detail.Success = false
			detail.Error = fmt.Sprintf("panic: %v", rec)
			summary.Errors++
		}
		detail.Duration = r.now().Sub(began)
	}()

	outcome := r.scraper.ScrapeOne(ctx, company, budget)

	switch outcome.Kind {
	case scrape.OutcomeSuccess:
		detail.Success = true
		detail.NewJobs = len(outcome.NewPostings)
		detail.TotalJobs = outcome.TotalPostings
		if len(outcome.NewPostings) > 0 {
			summary.TotalNew += len(outcome.NewPostings)
			r.notify(ctx, company, outcome.NewPostings, summary)
		}

	case scrape.OutcomeTimedOut:
		detail.Error = "timed_out"
		summary.Timeouts++

	case scrape.OutcomeFailure:
		detail.Error = outcome.Reason
		summary.Errors++
	}

	return detail
}

// notify sends the new-postings alert. Notifier failure is logged and
// swallowed — it never affects the error counters or the scrape outcome.
func (r *Runner) notify(ctx context.Context, company model.Company, postings []model.JobPosting, summary *model.RunSummary) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyNewPostings(ctx, company, postings); err != nil {
		log.Printf("[monitor] Notify for %s failed: %v", company.Name, err)
		return
	}
	summary.AlertsSent++
}
