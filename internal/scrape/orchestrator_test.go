package scrape_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jsrothwell/job-monitor-sub000/internal/extract"
	"github.com/jsrothwell/job-monitor-sub000/internal/fetch"
	"github.com/jsrothwell/job-monitor-sub000/internal/model"
	"github.com/jsrothwell/job-monitor-sub000/internal/scrape"
	"github.com/jsrothwell/job-monitor-sub000/internal/store"
)

const budget = 5 * time.Second

func newOrchestrator(s store.Store) *scrape.Orchestrator {
	return scrape.New(fetch.New(0), extract.New(extract.Options{}), s)
}

func addCompany(t *testing.T, mem *store.Memory, careersURL string) model.Company {
	t.Helper()
	c, err := model.NewCompany("", "Acme", careersURL, "")
	if err != nil {
		t.Fatalf("NewCompany: %v", err)
	}
	return mem.AddCompany(c)
}

func servePage(page *atomic.Value) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page.Load().(string))
	}))
}

const threeJobsPage = `<html><body>
	<a href="/">Home</a>
	<a href="/contact">Contact</a>
	<a href="/jobs/1">Backend Engineer</a>
	<a href="/jobs/2">Frontend Engineer</a>
	<a href="/jobs/3">Data Analyst</a>
</body></html>`

// ── Diff semantics ─────────────────────────────────────────────────────────

func TestScrapeOne_FirstRunPersistsNewPostings(t *testing.T) {
	var page atomic.Value
	page.Store(threeJobsPage)
	srv := servePage(&page)
	defer srv.Close()

	mem := store.NewMemory()
	company := addCompany(t, mem, srv.URL+"/careers/")

	out := newOrchestrator(mem).ScrapeOne(context.Background(), company, budget)
	if out.Kind != scrape.OutcomeSuccess {
		t.Fatalf("outcome = %s (%s), want success", out.Kind, out.Reason)
	}
	if len(out.NewPostings) != 3 || out.TotalPostings != 3 {
		t.Fatalf("new=%d total=%d, want 3/3", len(out.NewPostings), out.TotalPostings)
	}
	for _, p := range out.NewPostings {
		if p.Status != model.StatusNew {
			t.Errorf("posting %q status = %s, want NEW", p.Title, p.Status)
		}
	}
}

func TestScrapeOne_SecondRunIsIdempotent(t *testing.T) {
	var page atomic.Value
	page.Store(threeJobsPage)
	srv := servePage(&page)
	defer srv.Close()

	mem := store.NewMemory()
	company := addCompany(t, mem, srv.URL+"/careers/")
	orch := newOrchestrator(mem)

	orch.ScrapeOne(context.Background(), company, budget)
	out := orch.ScrapeOne(context.Background(), company, budget)

	if out.Kind != scrape.OutcomeSuccess {
		t.Fatalf("outcome = %s (%s), want success", out.Kind, out.Reason)
	}
	if len(out.NewPostings) != 0 {
		t.Fatalf("second identical scrape found %d new postings, want 0", len(out.NewPostings))
	}
	for _, p := range mem.PostingsFor(company.ID) {
		if p.Status != model.StatusExisting {
			t.Errorf("posting %q status = %s, want EXISTING", p.Title, p.Status)
		}
	}
}

func TestScrapeOne_VanishedPostingMarkedRemoved(t *testing.T) {
	var page atomic.Value
	page.Store(threeJobsPage)
	srv := servePage(&page)
	defer srv.Close()

	mem := store.NewMemory()
	company := addCompany(t, mem, srv.URL+"/careers/")
	orch := newOrchestrator(mem)

	orch.ScrapeOne(context.Background(), company, budget)

	// The analyst role disappears from the page.
	page.Store(`<html><body>
		<a href="/jobs/1">Backend Engineer</a>
		<a href="/jobs/2">Frontend Engineer</a>
	</body></html>`)

	out := orch.ScrapeOne(context.Background(), company, budget)
	if out.Kind != scrape.OutcomeSuccess {
		t.Fatalf("outcome = %s (%s), want success", out.Kind, out.Reason)
	}
	if out.TotalPostings != 2 {
		t.Fatalf("total = %d, want 2", out.TotalPostings)
	}

	var removed int
	for _, p := range mem.PostingsFor(company.ID) {
		switch p.Title {
		case "Data Analyst":
			if p.Status != model.StatusRemoved {
				t.Errorf("vanished posting status = %s, want REMOVED", p.Status)
			}
			removed++
		default:
			if p.Status != model.StatusExisting {
				t.Errorf("posting %q status = %s, want EXISTING", p.Title, p.Status)
			}
		}
	}
	if removed != 1 {
		t.Fatalf("expected the Data Analyst row to survive as REMOVED")
	}
}

func TestScrapeOne_EmptyPageRemovesEverything(t *testing.T) {
	var page atomic.Value
	page.Store(threeJobsPage)
	srv := servePage(&page)
	defer srv.Close()

	mem := store.NewMemory()
	company := addCompany(t, mem, srv.URL+"/careers/")
	orch := newOrchestrator(mem)

	orch.ScrapeOne(context.Background(), company, budget)
	page.Store(`<html><body><p>No openings right now.</p></body></html>`)

	// A page with no jobs is valid information, not a fault.
	out := orch.ScrapeOne(context.Background(), company, budget)
	if out.Kind != scrape.OutcomeSuccess {
		t.Fatalf("outcome = %s (%s), want success", out.Kind, out.Reason)
	}
	if out.TotalPostings != 0 {
		t.Fatalf("total = %d, want 0", out.TotalPostings)
	}
	for _, p := range mem.PostingsFor(company.ID) {
		if p.Status != model.StatusRemoved {
			t.Errorf("posting %q status = %s, want REMOVED", p.Title, p.Status)
		}
	}
}

// ── Failure modes ──────────────────────────────────────────────────────────

func TestScrapeOne_FetchFailureIsFailureOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	mem := store.NewMemory()
	company := addCompany(t, mem, srv.URL+"/careers/")

	out := newOrchestrator(mem).ScrapeOne(context.Background(), company, budget)
	if out.Kind != scrape.OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", out.Kind)
	}
	if out.Reason == "" {
		t.Error("failure outcome should carry a reason")
	}
}

func TestScrapeOne_SlowServerTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	mem := store.NewMemory()
	company := addCompany(t, mem, srv.URL+"/careers/")

	out := newOrchestrator(mem).ScrapeOne(context.Background(), company, 30*time.Millisecond)
	if out.Kind != scrape.OutcomeTimedOut {
		t.Fatalf("outcome = %s, want timed_out", out.Kind)
	}
}

func TestScrapeOne_TouchesLastCheckedOnEveryOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	mem := store.NewMemory()
	company := addCompany(t, mem, srv.URL+"/careers/")

	newOrchestrator(mem).ScrapeOne(context.Background(), company, budget)

	companies, err := mem.ListActiveCompanies(context.Background(), "")
	if err != nil {
		t.Fatalf("ListActiveCompanies: %v", err)
	}
	if len(companies) != 1 || companies[0].LastChecked == nil {
		t.Fatal("last_checked must be stamped even when the scrape fails")
	}
}
