// Package title turns raw job-title strings into structured postings
// fields. Parsing is pure, total, and idempotent on its own output: any
// input yields a result, and re-parsing a cleaned title does not invent
// job types or locations that are no longer present.
package title

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

type compiledPattern struct {
	re    *regexp.Regexp
	label string
}

// Normalizer applies the rule tables in a fixed order: job type, location,
// work type, residual cleanup, then classification.
type Normalizer struct {
	jobTypes    []compiledPattern
	locations   []string
	categories  []KeywordRule
	levels      []KeywordRule
	departments []KeywordRule
	skills      []string

	fold transform.Transformer
}

// NewNormalizer compiles the rule tables. Invalid job-type patterns are a
// configuration error and reported up front.
func NewNormalizer(tables Tables) (*Normalizer, error) {
	tables = tables.withDefaults()

	compiled := make([]compiledPattern, 0, len(tables.JobTypes))
	for _, rule := range tables.JobTypes {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile job type pattern %q: %w", rule.Pattern, err)
		}
		compiled = append(compiled, compiledPattern{re: re, label: rule.Label})
	}

	return &Normalizer{
		jobTypes:    compiled,
		locations:   tables.Locations,
		categories:  tables.Categories,
		levels:      tables.Levels,
		departments: tables.Departments,
		skills:      tables.Skills,
		fold:        transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
	}, nil
}

// Parse normalizes a raw job title. It never fails: fields without a table
// match are simply left empty and the raw title is preserved verbatim in
// OriginalTitle.
func (n *Normalizer) Parse(raw string) aggregator.ParsedTitle {
	parsed := aggregator.ParsedTitle{OriginalTitle: raw}

	// Accent and case folding first so "İstanbul" matches "Istanbul".
	working := n.foldMarks(raw)

	working, parsed.JobType = n.extractJobType(working)
	var matchedLocations []string
	working, parsed.Location, matchedLocations = n.extractLocation(working)
	parsed.WorkType = inferWorkType(matchedLocations)

	parsed.CleanedTitle = collapseSeparators(working)

	parsed.Category = firstKeywordMatch(parsed.CleanedTitle, n.categories)
	parsed.Level = firstKeywordMatch(parsed.CleanedTitle, n.levels)
	parsed.Department = firstKeywordMatch(parsed.CleanedTitle, n.departments)
	parsed.Skills = matchSkills(parsed.CleanedTitle, n.skills)

	return parsed
}

// foldMarks strips combining marks so folded tokens compare equal
// regardless of source diacritics (Turkish dotted I included).
func (n *Normalizer) foldMarks(s string) string {
	out, _, err := transform.String(n.fold, s)
	if err != nil {
		return s
	}
	return out
}

// extractJobType applies the ordered pattern table; the first rule that
// matches wins and every occurrence of its pattern is stripped.
func (n *Normalizer) extractJobType(working string) (string, string) {
	for _, rule := range n.jobTypes {
		if !rule.re.MatchString(working) {
			continue
		}
		return rule.re.ReplaceAllString(working, " "), rule.label
	}
	return working, ""
}

// extractLocation walks the ordered location table. The first token found
// becomes the location; all matched tokens are stripped so none leak into
// the cleaned title.
func (n *Normalizer) extractLocation(working string) (string, string, []string) {
	var location string
	var matched []string
	for _, token := range n.locations {
		next, found := stripToken(working, token)
		if !found {
			continue
		}
		working = next
		matched = append(matched, token)
		if location == "" {
			location = token
		}
	}
	return working, location, matched
}

func inferWorkType(matchedLocations []string) aggregator.WorkType {
	for _, token := range matchedLocations {
		switch strings.ToLower(token) {
		case "remote", "worldwide":
			return aggregator.WorkTypeRemote
		case "hybrid":
			return aggregator.WorkTypeHybrid
		case "on-site", "onsite":
			return aggregator.WorkTypeOnSite
		}
	}
	return ""
}

// stripToken removes every case-insensitive, boundary-delimited occurrence
// of token and reports whether any was found.
func stripToken(s, token string) (string, bool) {
	lower := strings.ToLower(s)
	needle := strings.ToLower(token)
	if needle == "" {
		return s, false
	}

	var b strings.Builder
	found := false
	i := 0
	for {
		idx := strings.Index(lower[i:], needle)
		if idx < 0 {
			b.WriteString(s[i:])
			break
		}
		start := i + idx
		end := start + len(needle)
		if boundaryAt(lower, start-1) && boundaryAt(lower, end) {
			found = true
			b.WriteString(s[i:start])
			b.WriteByte(' ')
			i = end
			continue
		}
		b.WriteString(s[i : start+1])
		i = start + 1
	}
	if !found {
		return s, false
	}
	return b.String(), true
}

// boundaryAt reports whether position i is outside the string or holds a
// non-alphanumeric byte, i.e. a token boundary.
func boundaryAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9')
}

var (
	separatorRun = regexp.MustCompile(`(^|\s)[-–—|/•,]+(\s|$)`)
	edgeRun      = regexp.MustCompile(`^[\s\-–—|/•,]+|[\s\-–—|/•,]+$`)
	spaceRun     = regexp.MustCompile(`\s+`)
)

// collapseSeparators removes stray dashes, slashes, and repeated
// whitespace left behind after token stripping. Interior hyphens inside a
// word ("Front-end") are untouched.
func collapseSeparators(s string) string {
	prev := ""
	for prev != s {
		prev = s
		s = separatorRun.ReplaceAllString(s, " ")
	}
	s = edgeRun.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// firstKeywordMatch returns the label of the first rule with a keyword
// present in s, or "" when nothing matches. Rule order is priority order.
func firstKeywordMatch(s string, rules []KeywordRule) string {
	lower := strings.ToLower(s)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if containsToken(lower, strings.ToLower(kw)) {
				return rule.Label
			}
		}
	}
	return ""
}

// matchSkills collects every skill mentioned in s, preserving table order.
func matchSkills(s string, skills []string) []string {
	lower := strings.ToLower(s)
	var out []string
	for _, skill := range skills {
		if containsToken(lower, strings.ToLower(skill)) {
			out = append(out, skill)
		}
	}
	return out
}

// containsToken reports whether needle occurs in haystack delimited by
// non-alphanumeric characters on the alphanumeric edges of the needle.
// Needles that start or end with symbols ("c++") only require a boundary
// on their alphanumeric side.
func containsToken(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	i := 0
	for {
		idx := strings.Index(haystack[i:], needle)
		if idx < 0 {
			return false
		}
		start := i + idx
		end := start + len(needle)
		startOK := !isAlnum(needle[0]) || boundaryAt(haystack, start-1)
		endOK := !isAlnum(needle[len(needle)-1]) || boundaryAt(haystack, end)
		if startOK && endOK {
			return true
		}
		i = start + 1
	}
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
