// Package selector translates the restricted CSS-like selector syntax that
// company records carry into an executable structural query.
//
// Recognized forms, checked in priority order:
//
//	tag[attr*="value"]  attribute-contains (tag optional)
//	[data-x]            bare attribute existence, anchors only
//	.foo                class token on anchors
//	a.foo               class token, tag-constrained
//	.foo bar            tag descendants of a class carrier
//	#foo                elements nested under an id
//	a                   broad job-relevance anchor query
//	anything else       raw pass-through (power-user escape hatch)
//
// Translate is pure and never fails: unrecognized syntax degrades to the
// most specific interpretation still available rather than erroring.
package selector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Query is a compiled structural query ready to run against a parsed page.
type Query struct {
	matcher cascadia.Selector
	filter  func(*goquery.Selection) bool
	source  string
}

// Source returns the selector text the query was translated from.
func (q Query) Source() string { return q.source }

// Apply runs the query against a document and returns the matched elements.
func (q Query) Apply(doc *goquery.Document) *goquery.Selection {
	sel := doc.FindMatcher(q.matcher)
	if q.filter == nil {
		return sel
	}
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return q.filter(s)
	})
}

var (
	attrContainsRe = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9]*)?\[([a-zA-Z][a-zA-Z0-9_-]*)\*=["']?([^"'\]]+)["']?\]$`)
	bareAttrRe     = regexp.MustCompile(`^\[([a-zA-Z][a-zA-Z0-9_-]*)\]$`)
	classRe        = regexp.MustCompile(`^\.([a-zA-Z_-][a-zA-Z0-9_-]*)$`)
	tagClassRe     = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9]*)\.([a-zA-Z_-][a-zA-Z0-9_-]*)$`)
	descendantRe   = regexp.MustCompile(`^\.([a-zA-Z_-][a-zA-Z0-9_-]*) ([a-zA-Z][a-zA-Z0-9]*)$`)
	idRe           = regexp.MustCompile(`^#([a-zA-Z_-][a-zA-Z0-9_-]*)$`)
	plainTagRe     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)
)

// jobIndicators drive the broad anchor query used when no company-specific
// selector is configured.
var jobIndicators = []string{"job", "career", "position"}

// Translate converts a restricted CSS-like selector into a Query.
func Translate(sel string) Query {
	sel = strings.TrimSpace(sel)

	switch {
	case attrContainsRe.MatchString(sel):
		m := attrContainsRe.FindStringSubmatch(sel)
		tag, attr, value := m[1], m[2], m[3]
		if tag == "" {
			tag = "*"
		}
		return compile(fmt.Sprintf(`%s[%s*=%q]`, tag, attr, value), sel)

	case bareAttrRe.MatchString(sel):
		attr := bareAttrRe.FindStringSubmatch(sel)[1]
		return compile(fmt.Sprintf("a[%s]", attr), sel)

	case classRe.MatchString(sel):
		return compile("a"+sel, sel)

	case tagClassRe.MatchString(sel):
		return compile(sel, sel)

	case descendantRe.MatchString(sel):
		return compile(sel, sel)

	case idRe.MatchString(sel):
		return compile(sel+" a", sel)

	case plainTagRe.MatchString(sel):
		return broadJobQuery(sel)

	default:
		// Raw pass-through. If it does not even compile as CSS, fall back
		// to the broad anchor query so Translate still returns something
		// usable.
		if q, ok := tryCompile(sel, sel); ok {
			return q
		}
		return broadJobQuery("")
	}
}

// BroadAnchorQuery returns the generic job-relevance query: anchors whose
// href or text mentions a job indicator word. Used as the last resort when
// a company carries no usable selector.
func BroadAnchorQuery() Query {
	return broadJobQuery("")
}

func broadJobQuery(source string) Query {
	q, _ := tryCompile("a", source)
	q.filter = func(s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		text := s.Text()
		haystack := strings.ToLower(href + " " + text)
		for _, word := range jobIndicators {
			if strings.Contains(haystack, word) {
				return true
			}
		}
		return false
	}
	return q
}

func compile(css, source string) Query {
	if q, ok := tryCompile(css, source); ok {
		return q
	}
	return broadJobQuery(source)
}

func tryCompile(css, source string) (Query, bool) {
	m, err := cascadia.Compile(css)
	if err != nil {
		return Query{}, false
	}
	return Query{matcher: m, source: source}, true
}
