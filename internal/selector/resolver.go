// Package selector locates the DOM region of a career page that holds job
// listings. Resolution order: revalidate the known selector, try the
// platform table for recognized ATS hosts, then fall back to heuristic
// discovery over id/class attributes. Resolution is deterministic for
// identical HTML and has no side effects beyond the page fetch.
package selector

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// jobKeywords is the acceptance vocabulary: a candidate selector is only
// accepted when the combined text of its matches mentions the job domain.
var jobKeywords = []string{
	"job", "career", "position", "posting", "opening", "role", "vacancy", "hiring", "apply",
}

// Resolution is a successful selector lookup.
type Resolution struct {
	Selector string
	Platform string
}

// Resolver resolves CSS selectors for job listing regions.
type Resolver struct {
	fetcher   aggregator.Fetcher
	platforms []Platform
	logger    *zap.Logger
}

// NewResolver builds a Resolver. An empty platform slice falls back to the
// built-in ATS table.
func NewResolver(fetcher aggregator.Fetcher, platforms []Platform, logger *zap.Logger) *Resolver {
	if len(platforms) == 0 {
		platforms = DefaultPlatforms()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{fetcher: fetcher, platforms: platforms, logger: logger}
}

// Resolve fetches pageURL and resolves a listing selector against it.
// Transport failures surface as *aggregator.FetchError; a reachable page
// with no detectable listing section yields aggregator.ErrSelectorNotFound.
func (r *Resolver) Resolve(ctx context.Context, pageURL, knownSelector string) (Resolution, error) {
	resp, err := r.fetcher.Fetch(ctx, aggregator.FetchRequest{URL: pageURL})
	if err != nil {
		return Resolution{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return Resolution{}, fmt.Errorf("parse career page: %w", err)
	}
	return r.ResolveInDocument(doc, pageURL, knownSelector)
}

// ResolveInDocument resolves against an already-parsed document. The
// orchestrator uses this form so the single throttled fetch serves both
// resolution and extraction.
func (r *Resolver) ResolveInDocument(doc *goquery.Document, pageURL, knownSelector string) (Resolution, error) {
	// The known selector is the common case and must stay cheap.
	if knownSelector != "" && accepted(doc, knownSelector) {
		return Resolution{Selector: knownSelector}, nil
	}

	host := hostOf(pageURL)
	if platform := matchPlatform(r.platforms, host); platform != nil {
		for _, sel := range platform.Selectors {
			if accepted(doc, sel) {
				r.logger.Debug("platform selector matched",
					zap.String("platform", platform.Name),
					zap.String("selector", sel),
				)
				return Resolution{Selector: sel, Platform: platform.Name}, nil
			}
		}
		r.logger.Debug("platform selectors stale, falling back to discovery",
			zap.String("platform", platform.Name),
			zap.String("host", host),
		)
	}

	if sel, ok := discover(doc); ok {
		return Resolution{Selector: sel}, nil
	}

	return Resolution{}, aggregator.ErrSelectorNotFound
}

// accepted applies the keyword-content check: the selector must match at
// least one element and the combined text must mention the job domain.
func accepted(doc *goquery.Document, sel string) bool {
	matches := findSafe(doc, sel)
	if matches == nil || matches.Length() == 0 {
		return false
	}
	var combined strings.Builder
	matches.Each(func(_ int, s *goquery.Selection) {
		combined.WriteString(s.Text())
		combined.WriteByte(' ')
	})
	return containsJobKeyword(combined.String())
}

// findSafe guards against selectors that goquery's parser rejects, which
// would otherwise panic.
func findSafe(doc *goquery.Document, sel string) (matches *goquery.Selection) {
	defer func() {
		if recover() != nil {
			matches = nil
		}
	}()
	return doc.Find(sel)
}

func containsJobKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range jobKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var cssIdent = regexp.MustCompile(`^-?[A-Za-z_][A-Za-z0-9_-]*$`)

// discover enumerates elements whose id or class mentions a job keyword
// and synthesizes candidate selectors in document order, preferring #id
// over class chains over bare tag names. The first accepted candidate
// wins, which keeps discovery deterministic.
func discover(doc *goquery.Document) (string, bool) {
	var found string
	seen := make(map[string]struct{})

	doc.Find("[id], [class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		class, _ := s.Attr("class")
		if !containsJobKeyword(id) && !containsJobKeyword(class) {
			return true
		}
		for _, candidate := range candidateSelectors(s, id, class) {
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			if accepted(doc, candidate) {
				found = candidate
				return false
			}
		}
		return true
	})

	return found, found != ""
}

// candidateSelectors orders the ways to address one element: #id, the full
// class chain, then the bare tag name.
func candidateSelectors(s *goquery.Selection, id, class string) []string {
	var out []string
	if id != "" && cssIdent.MatchString(id) {
		out = append(out, "#"+id)
	}
	if classes := classChain(class); classes != "" {
		out = append(out, classes)
	}
	if len(s.Nodes) > 0 && s.Nodes[0].Data != "" {
		out = append(out, s.Nodes[0].Data)
	}
	return out
}

func classChain(class string) string {
	fields := strings.Fields(class)
	var b strings.Builder
	for _, f := range fields {
		if !cssIdent.MatchString(f) {
			continue
		}
		b.WriteByte('.')
		b.WriteString(f)
	}
	return b.String()
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
