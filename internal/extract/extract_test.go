package extract_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jsrothwell/job-monitor-sub000/internal/extract"
	"github.com/jsrothwell/job-monitor-sub000/internal/model"
)

func company(t *testing.T, careersURL, sel string) model.Company {
	t.Helper()
	c, err := model.NewCompany("c1", "Acme", careersURL, sel)
	if err != nil {
		t.Fatalf("NewCompany: %v", err)
	}
	return c
}

func newExtractor() *extract.Extractor {
	return extract.New(extract.Options{})
}

func titlesOf(cands []extract.Candidate) []string {
	var out []string
	for _, c := range cands {
		out = append(out, c.Title)
	}
	return out
}

// ── Strategy ladder ────────────────────────────────────────────────────────

func TestExtract_LadderFindsJobHrefAnchors(t *testing.T) {
	page := `<html><body>
		<a href="/">Home</a>
		<a href="/contact">Contact</a>
		<a href="/jobs/1">Backend Engineer</a>
		<a href="/jobs/2">Frontend Engineer</a>
		<a href="/jobs/3">Data Analyst</a>
	</body></html>`

	got := newExtractor().Extract([]byte(page), company(t, "https://x.com/careers/", ""))
	if len(got) != 3 {
		t.Fatalf("Extract returned %v, want exactly the 3 job anchors", titlesOf(got))
	}
}

func TestExtract_CustomSelectorIsExclusive(t *testing.T) {
	// The custom selector matches nothing, yet the page is full of anchors
	// the ladder would find. A configured selector must win outright.
	page := `<html><body>
		<a href="/jobs/1">Backend Engineer</a>
		<a href="/jobs/2">Frontend Engineer</a>
	</body></html>`

	got := newExtractor().Extract([]byte(page), company(t, "https://x.com/careers/", ".does-not-exist"))
	if len(got) != 0 {
		t.Fatalf("custom selector with zero matches must not fall back to the ladder, got %v", titlesOf(got))
	}
}

func TestExtract_CustomSelectorApplied(t *testing.T) {
	page := `<html><body>
		<a class="opening" href="/roles/1">Site Reliability Engineer</a>
		<a href="/jobs/99">Decoy Job Link</a>
	</body></html>`

	got := newExtractor().Extract([]byte(page), company(t, "https://x.com/careers/", ".opening"))
	if len(got) != 1 || got[0].Title != "Site Reliability Engineer" {
		t.Fatalf("Extract = %v, want only the .opening anchor", titlesOf(got))
	}
}

func TestExtract_PlatformOverrideByHost(t *testing.T) {
	page := `<html><body>
		<div class="opening"><a href="/acme/jobs/1">Staff Engineer</a></div>
		<div class="opening"><a href="/acme/jobs/2">Engineering Manager</a></div>
		<a href="/random/job/link">Decoy Anchor Text</a>
	</body></html>`

	got := newExtractor().Extract([]byte(page), company(t, "https://boards.greenhouse.io/acme", ""))
	if len(got) != 2 {
		t.Fatalf("greenhouse override matched %v, want the 2 openings", titlesOf(got))
	}
	if got[0].URL != "https://boards.greenhouse.io/acme/jobs/1" {
		t.Errorf("URL = %s, want resolved against the board host", got[0].URL)
	}
}

func TestExtract_LadderStopsAtMinCandidates(t *testing.T) {
	// The job-href rung yields 2, the career-href rung yields 5. With the
	// default minimum of 5 the career-rung result must be returned.
	careerTitles := []string{
		"Platform Engineer", "Data Scientist", "Product Manager",
		"Account Executive", "Solutions Architect",
	}
	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString(`<a href="/jobs/1">Alpha Role</a><a href="/jobs/2">Beta Role</a>`)
	for i, title := range careerTitles {
		fmt.Fprintf(&sb, `<a href="/careers/%d">%s</a>`, i, title)
	}
	sb.WriteString("</body></html>")

	got := newExtractor().Extract([]byte(sb.String()), company(t, "https://x.com/", ""))
	if len(got) != 5 {
		t.Fatalf("Extract returned %d candidates (%v), want the 5 from the career rung", len(got), titlesOf(got))
	}
	for _, c := range got {
		if strings.HasSuffix(c.Title, "Role") {
			t.Errorf("unexpected candidate %q from an earlier rung", c.Title)
		}
	}
}

func TestExtract_KeepsBestResultWhenNoRungReachesMinimum(t *testing.T) {
	page := `<html><body>
		<a href="/jobs/1">Backend Engineer</a>
		<a href="/jobs/2">Data Analyst</a>
	</body></html>`

	got := newExtractor().Extract([]byte(page), company(t, "https://x.com/", ""))
	if len(got) != 2 {
		t.Fatalf("Extract = %v, want best non-empty rung result", titlesOf(got))
	}
}

func TestExtract_MalformedMarkupDegrades(t *testing.T) {
	page := `<html><body><a href="/jobs/1">Backend Engineer</a><div><span>` // never closed
	got := newExtractor().Extract([]byte(page), company(t, "https://x.com/", ""))
	if len(got) != 1 {
		t.Fatalf("tolerant parse should still find the anchor, got %v", titlesOf(got))
	}
}

func TestExtract_EmptyPageIsEmptySet(t *testing.T) {
	if got := newExtractor().Extract(nil, company(t, "https://x.com/", "")); len(got) != 0 {
		t.Fatalf("empty page produced %v", titlesOf(got))
	}
}

// ── Filtering and normalization ────────────────────────────────────────────

func TestExtract_FiltersNavigationalNoise(t *testing.T) {
	page := `<html><body>
		<a href="/jobs/home">Home</a>
		<a href="/jobs/about">About Us</a>
		<a href="/jobs/privacy">Privacy Policy</a>
		<a href="/jobs/1">Backend Engineer</a>
	</body></html>`

	got := newExtractor().Extract([]byte(page), company(t, "https://x.com/", ""))
	if len(got) != 1 || got[0].Title != "Backend Engineer" {
		t.Fatalf("noise filter kept %v, want [Backend Engineer]", titlesOf(got))
	}
}

func TestExtract_FiltersShortTitles(t *testing.T) {
	page := `<html><body>
		<a href="/jobs/1">Go</a>
		<a href="/jobs/2">QA Engineer</a>
	</body></html>`

	got := newExtractor().Extract([]byte(page), company(t, "https://x.com/", ""))
	if len(got) != 1 || got[0].Title != "QA Engineer" {
		t.Fatalf("short-title filter kept %v", titlesOf(got))
	}
}

func TestExtract_NearDuplicateTitlesCollapse(t *testing.T) {
	page := `<html><body>
		<a href="/jobs/1">Senior Engineer</a>
		<a href="/jobs/2">Senior Engineer </a>
		<a href="/jobs/3">Software Engineer</a>
		<a href="/jobs/4">Senior Software Engineer</a>
	</body></html>`

	got := newExtractor().Extract([]byte(page), company(t, "https://x.com/", ""))
	titles := titlesOf(got)
	if len(got) != 3 {
		t.Fatalf("near-duplicate suppression kept %v, want 3", titles)
	}
	// "Software Engineer" vs "Senior Software Engineer" sit below the
	// threshold and must both survive.
	joined := strings.Join(titles, "|")
	if !strings.Contains(joined, "Software Engineer") || !strings.Contains(joined, "Senior Software Engineer") {
		t.Fatalf("dissimilar titles wrongly collapsed: %v", titles)
	}
}

func TestExtract_CapsInspectedElements(t *testing.T) {
	// 100 valid, mutually dissimilar titles; only the first 20 elements may
	// be inspected.
	levels := []string{"Junior", "Midlevel", "Staff", "Principal", "Lead",
		"Graduate", "Contract", "Founding", "Remote", "Hybrid"}
	roles := []string{"Engineer", "Designer", "Analyst", "Marketer", "Recruiter",
		"Accountant", "Writer", "Researcher", "Strategist", "Technician"}

	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, `<a href="/jobs/%d">%s %s</a>`, i, levels[i%10], roles[i/10])
	}
	sb.WriteString("</body></html>")

	got := newExtractor().Extract([]byte(sb.String()), company(t, "https://x.com/", ""))
	if len(got) != 20 {
		t.Fatalf("extractor should stop at the element cap: got %d candidates", len(got))
	}
}

// ── CleanTitle ─────────────────────────────────────────────────────────────

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Backend   Engineer \n", "Backend Engineer"},
		{"Job: Backend Engineer", "Backend Engineer"},
		{"Position: Data Analyst", "Data Analyst"},
		{"Career: SRE Lead", "SRE Lead"},
		{"Backend Engineer - Apply Now", "Backend Engineer"},
		{"Backend Engineer | Apply", "Backend Engineer"},
		{"Backend Engineer (Remote)", "Backend Engineer (Remote)"},
		{"Backend Engineer (San Francisco Bay Area, California, USA)", "Backend Engineer"},
	}
	for _, c := range cases {
		if got := extract.CleanTitle(c.in); got != c.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// ── ResolveURL ─────────────────────────────────────────────────────────────

func TestResolveURL(t *testing.T) {
	base := "https://x.com/careers/"
	cases := []struct {
		href, want string
	}{
		{"/jobs/42", "https://x.com/jobs/42"},
		{"//cdn.x.com/a", "https://cdn.x.com/a"},
		{"jobs/42", "https://x.com/jobs/42"},
		{"https://y.com/z", "https://y.com/z"},
	}
	for _, c := range cases {
		if got := extract.ResolveURL(base, c.href); got != c.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", base, c.href, got, c.want)
		}
	}
}

func TestResolveURL_UnusableBase(t *testing.T) {
	if got := extract.ResolveURL("not a url", "/jobs/1"); got != "" {
		t.Fatalf("ResolveURL with bad base = %q, want empty", got)
	}
	if got := extract.ResolveURL("not a url", "https://y.com/z"); got != "https://y.com/z" {
		t.Fatalf("absolute href must survive a bad base, got %q", got)
	}
}
