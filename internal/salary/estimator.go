// Package salary derives compensation ranges. Postings that carry explicit
// salary text are parsed directly; postings without one get an estimate
// aggregated from comparable stored postings.
package salary

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// Estimator finds comparable postings and aggregates their salary bounds.
type Estimator struct {
	store  aggregator.PostingStore
	logger *zap.Logger
}

// NewEstimator builds an Estimator over the posting store.
func NewEstimator(store aggregator.PostingStore, logger *zap.Logger) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{store: store, logger: logger}
}

// FindSimilar selects stored postings with explicit salary bounds whose
// title or category tokens overlap the query title and whose location
// matches (exact, or both remote).
func (e *Estimator) FindSimilar(ctx context.Context, title, location string) ([]aggregator.JobPosting, error) {
	candidates, err := e.store.FindWithSalary(ctx)
	if err != nil {
		return nil, err
	}

	queryTokens := titleTokens(title)
	var similar []aggregator.JobPosting
	for _, posting := range candidates {
		if posting.Salary == nil || posting.IsEstimated {
			continue
		}
		if !titlesOverlap(queryTokens, posting) {
			continue
		}
		if !locationsMatch(location, posting) {
			continue
		}
		similar = append(similar, posting)
	}
	return similar, nil
}

// Estimate aggregates the similar set into a range: arithmetic mean of the
// minimums and of the maximums, majority currency and period. It returns
// nil when no comparables exist; it never fails on empty input.
func (e *Estimator) Estimate(ctx context.Context, title, location string) (*aggregator.SalaryRange, error) {
	similar, err := e.FindSimilar(ctx, title, location)
	if err != nil {
		return nil, err
	}
	if len(similar) == 0 {
		return nil, nil
	}

	var minSum, maxSum float64
	currencies := make(map[string]int)
	periods := make(map[string]int)
	for _, posting := range similar {
		minSum += posting.Salary.Min
		maxSum += posting.Salary.Max
		currencies[posting.Salary.Currency]++
		periods[posting.Salary.Period]++
	}

	n := float64(len(similar))
	estimate := &aggregator.SalaryRange{
		Min:      minSum / n,
		Max:      maxSum / n,
		Currency: majority(currencies),
		Period:   majority(periods),
	}
	e.logger.Debug("salary estimated from comparables",
		zap.String("title", title),
		zap.Int("comparables", len(similar)),
	)
	return estimate, nil
}

// majority picks the most frequent key; ties break lexicographically so
// estimation stays deterministic.
func majority(counts map[string]int) string {
	best := ""
	bestCount := -1
	for key, count := range counts {
		if count > bestCount || (count == bestCount && key < best) {
			best = key
			bestCount = count
		}
	}
	return best
}

var stopwords = map[string]struct{}{
	"and": {}, "the": {}, "of": {}, "for": {}, "with": {}, "a": {}, "an": {},
}

func titleTokens(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// titlesOverlap accepts a candidate when any query token occurs in its
// title (partial match) or equals its normalized category.
func titlesOverlap(queryTokens []string, posting aggregator.JobPosting) bool {
	candidateTitle := strings.ToLower(posting.Title)
	if posting.Parsed.CleanedTitle != "" {
		candidateTitle = strings.ToLower(posting.Parsed.CleanedTitle)
	}
	category := strings.ToLower(posting.Parsed.Category)
	for _, token := range queryTokens {
		if strings.Contains(candidateTitle, token) {
			return true
		}
		if category != "" && token == category {
			return true
		}
	}
	return false
}

// locationsMatch: exact case-insensitive match, both remote, or an empty
// query location (which widens the comparable pool).
func locationsMatch(queryLocation string, posting aggregator.JobPosting) bool {
	if queryLocation == "" {
		return true
	}
	candidate := posting.Parsed.Location
	if strings.EqualFold(queryLocation, candidate) {
		return true
	}
	return isRemote(queryLocation) && (isRemote(candidate) || posting.Parsed.WorkType == aggregator.WorkTypeRemote)
}

func isRemote(location string) bool {
	return strings.EqualFold(location, "remote")
}
