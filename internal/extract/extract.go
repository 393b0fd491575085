// Package extract turns fetched careers-page markup into job candidates.
//
// Extraction is best-effort by design: malformed markup, empty pages and
// selector misses all degrade to a smaller (possibly empty) candidate set,
// never to an error. An empty set is valid information — it is how a page
// that currently lists no jobs looks.
package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"

	"github.com/jsrothwell/job-monitor-sub000/internal/model"
	"github.com/jsrothwell/job-monitor-sub000/internal/selector"
)

// Candidate is a cleaned, absolute-URL extraction result, ready for
// fingerprinting and persistence.
type Candidate struct {
	Title string
	URL   string
}

// PlatformRule maps a careers-page host to a known-good selector for that
// job-board platform. Third-party markup changes silently break these, so
// the table is injectable configuration data rather than core logic.
type PlatformRule struct {
	HostContains string
	Selector     string
}

// DefaultPlatforms covers the common hosted job boards.
var DefaultPlatforms = []PlatformRule{
	{HostContains: "greenhouse.io", Selector: `div.opening a`},
	{HostContains: "lever.co", Selector: `.posting-title`},
	{HostContains: "myworkdayjobs.com", Selector: `a[data-automation-id*="jobTitle"]`},
	{HostContains: "workday.com", Selector: `a[data-automation-id*="jobTitle"]`},
	{HostContains: "bamboohr.com", Selector: `ul[class*="BambooHR-ATS"] a`},
	{HostContains: "ashbyhq.com", Selector: `a[href*="/jobs/"]`},
}

const (
	defaultSimilarityThreshold = 0.90
	defaultMinCandidates       = 5

	// maxElementsInspected bounds per-strategy work on pathological pages.
	maxElementsInspected = 20
)

// Options tunes an Extractor. Zero values select the defaults.
type Options struct {
	SimilarityThreshold float64 // near-duplicate cutoff, 0..1
	LadderMinCandidates int     // stop the fallback ladder at this many hits
	Platforms           []PlatformRule
}

// Extractor runs selector strategies against parsed markup and normalizes
// the results.
type Extractor struct {
	similarity    float64
	minCandidates int
	platforms     []PlatformRule
}

// New constructs an Extractor.
func New(opts Options) *Extractor {
	e := &Extractor{
		similarity:    opts.SimilarityThreshold,
		minCandidates: opts.LadderMinCandidates,
		platforms:     opts.Platforms,
	}
	if e.similarity <= 0 || e.similarity > 1 {
		e.similarity = defaultSimilarityThreshold
	}
	if e.minCandidates <= 0 {
		e.minCandidates = defaultMinCandidates
	}
	if e.platforms == nil {
		e.platforms = DefaultPlatforms
	}
	return e
}

type strategy struct {
	name    string
	matches func(doc *goquery.Document) *goquery.Selection
}

// Extract parses pageBytes and runs the strategy list for company:
//
//  1. A custom company selector is the only strategy tried, and its result
//     is accepted unconditionally, even when empty.
//  2. Otherwise a host match in the platform table supplies the sole
//     strategy.
//  3. Otherwise the generic ladder runs most-specific-first, stopping at
//     the first strategy yielding at least LadderMinCandidates, keeping
//     the best non-empty result if none does.
func (e *Extractor) Extract(pageBytes []byte, company model.Company) []Candidate {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageBytes))
	if err != nil {
		return nil
	}

	if company.Selector != "" {
		q := selector.Translate(company.Selector)
		return e.collect(q.Apply(doc), company.CareersURL)
	}

	if rule, ok := e.platformFor(company.CareersURL); ok {
		q := selector.Translate(rule.Selector)
		return e.collect(q.Apply(doc), company.CareersURL)
	}

	var best []Candidate
	for _, s := range ladder() {
		got := e.collect(s.matches(doc), company.CareersURL)
		if len(got) >= e.minCandidates {
			return got
		}
		if len(got) > len(best) {
			best = got
		}
	}
	return best
}

func (e *Extractor) platformFor(careersURL string) (PlatformRule, bool) {
	u, err := url.Parse(careersURL)
	if err != nil {
		return PlatformRule{}, false
	}
	host := strings.ToLower(u.Hostname())
	for _, rule := range e.platforms {
		if strings.Contains(host, rule.HostContains) {
			return rule, true
		}
	}
	return PlatformRule{}, false
}

// roleNouns drive ladder rung (e): link text naming a concrete role.
var roleNouns = []string{
	"engineer", "developer", "manager", "analyst",
	"designer", "architect", "specialist", "consultant",
}

// ladder returns the generic fallback strategies, most specific first.
func ladder() []strategy {
	return []strategy{
		{name: "href-job", matches: hrefStrategy("job")},
		{name: "href-career", matches: hrefStrategy("career")},
		{name: "href-position", matches: hrefStrategy("position")},
		{name: "class-hint", matches: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find("a[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				class, _ := s.Attr("class")
				class = strings.ToLower(class)
				for _, hint := range []string{"job", "position", "posting", "career"} {
					if strings.Contains(class, hint) {
						return true
					}
				}
				return false
			})
		}},
		{name: "text-role", matches: textStrategy(roleNouns)},
		{name: "text-indicator", matches: textStrategy([]string{"job", "position", "opening"})},
	}
}

// hrefStrategy matches anchors whose href contains word, looks path-like,
// and carries non-trivial link text.
func hrefStrategy(word string) func(doc *goquery.Document) *goquery.Selection {
	return func(doc *goquery.Document) *goquery.Selection {
		return doc.Find(`a[href*="` + word + `"]`).FilterFunction(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			return strings.Contains(href, "/") && len(strings.TrimSpace(s.Text())) >= 4
		})
	}
}

func textStrategy(words []string) func(doc *goquery.Document) *goquery.Selection {
	return func(doc *goquery.Document) *goquery.Selection {
		return doc.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
			text := strings.ToLower(s.Text())
			for _, w := range words {
				if strings.Contains(text, w) {
					return true
				}
			}
			return false
		})
	}
}

// collect walks matched elements (capped), filters noise, cleans titles,
// resolves URLs and suppresses near-duplicate titles.
func (e *Extractor) collect(matched *goquery.Selection, baseURL string) []Candidate {
	var out []Candidate
	var acceptedTitles []string
	seen := make(map[string]struct{})

	matched.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxElementsInspected {
			return false
		}

		raw := model.RawCandidate{
			Title: strings.TrimSpace(s.Text()),
			Href:  firstHref(s),
		}
		if len(raw.Title) < 3 || noiseRe.MatchString(raw.Title) || raw.Href == "" {
			return true
		}

		title := CleanTitle(raw.Title)
		if len(title) < 3 {
			return true
		}

		abs := ResolveURL(baseURL, raw.Href)
		if abs == "" {
			return true
		}

		key := strings.ToLower(title) + "\x00" + abs
		if _, dup := seen[key]; dup {
			return true
		}

		norm := strings.ToLower(strings.TrimSpace(title))
		for _, prev := range acceptedTitles {
			if similarity(norm, prev) >= e.similarity {
				return true
			}
		}

		seen[key] = struct{}{}
		acceptedTitles = append(acceptedTitles, norm)
		out = append(out, Candidate{Title: title, URL: abs})
		return true
	})

	return out
}

// firstHref returns the element's href, or the href of the first anchor it
// contains when the matched element is a wrapper (platform selectors often
// match list items rather than the anchors themselves).
func firstHref(s *goquery.Selection) string {
	if href, ok := s.Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	if href, ok := s.Find("a[href]").First().Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	return ""
}

// noiseRe matches whole-title navigational chrome worth discarding.
var noiseRe = regexp.MustCompile(`(?i)^\s*(home|about(\s+us)?|contact(\s+us)?|login|sign\s?in|search|privacy(\s+policy)?|terms(\s+of\s+\w+)?|cookies?(\s+(policy|settings))?|support)\s*$`)

var (
	spaceRe       = regexp.MustCompile(`\s+`)
	prefixRe      = regexp.MustCompile(`(?i)^(job|position|career)\s*:\s*`)
	applySuffixRe = regexp.MustCompile(`(?i)\s*[-–—|]\s*apply(\s+now)?!?\s*$`)
	parenBlobRe   = regexp.MustCompile(`\s*\([^)]{30,}\)\s*$`)
)

// CleanTitle normalizes a raw link text into a display title: whitespace
// collapsed, "Job:"-style prefixes and "- Apply Now"-style suffixes
// stripped, long trailing parenthetical location blobs removed.
func CleanTitle(raw string) string {
	t := spaceRe.ReplaceAllString(raw, " ")
	t = strings.TrimSpace(t)
	t = prefixRe.ReplaceAllString(t, "")
	t = applySuffixRe.ReplaceAllString(t, "")
	t = parenBlobRe.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// ResolveURL resolves href against base:
//
//	//host/path  → inherit scheme
//	/path        → inherit scheme + host
//	path         → inherit scheme + host, rooted at /
//	absolute     → unchanged
//
// Returns "" when base is unusable and href is not already absolute.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(href, "//"):
		return u.Scheme + ":" + href
	case strings.HasPrefix(href, "/"):
		return u.Scheme + "://" + u.Host + href
	default:
		return u.Scheme + "://" + u.Host + "/" + href
	}
}

// similarity is a normalized levenshtein ratio over 0..1.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
