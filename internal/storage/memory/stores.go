// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// CompanyStore serves a fixed set of companies.
type CompanyStore struct {
	mu        sync.RWMutex
	companies []aggregator.Company
}

// NewCompanyStore constructs a CompanyStore with the given companies.
func NewCompanyStore(companies ...aggregator.Company) *CompanyStore {
	return &CompanyStore{companies: companies}
}

// Add appends a company.
func (s *CompanyStore) Add(company aggregator.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies = append(s.companies, company)
}

// ListActiveCompanies returns companies flagged active, in insertion order.
func (s *CompanyStore) ListActiveCompanies(_ context.Context) ([]aggregator.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []aggregator.Company
	for _, c := range s.companies {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

// PostingStore keeps postings keyed by (company, URL).
type PostingStore struct {
	mu       sync.RWMutex
	postings map[string]aggregator.JobPosting
}

// NewPostingStore constructs an empty PostingStore.
func NewPostingStore() *PostingStore {
	return &PostingStore{postings: make(map[string]aggregator.JobPosting)}
}

func postingKey(companyID, url string) string {
	return companyID + "|" + url
}

// UpsertPosting inserts or replaces by the (company, URL) key. Updates
// keep the original CreatedAt.
func (s *PostingStore) UpsertPosting(_ context.Context, posting aggregator.JobPosting) (aggregator.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := postingKey(posting.CompanyID, posting.URL)
	existing, ok := s.postings[key]
	if ok {
		posting.ID = existing.ID
		posting.CreatedAt = existing.CreatedAt
	}
	s.postings[key] = posting
	return aggregator.UpsertResult{Inserted: !ok}, nil
}

// FindWithSalary returns postings that carry salary bounds.
func (s *PostingStore) FindWithSalary(_ context.Context) ([]aggregator.JobPosting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []aggregator.JobPosting
	for _, p := range s.postings {
		if p.Salary != nil {
			out = append(out, p)
		}
	}
	sortPostings(out)
	return out, nil
}

// ListPostings returns up to limit postings, newest first.
func (s *PostingStore) ListPostings(_ context.Context, limit int) ([]aggregator.JobPosting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]aggregator.JobPosting, 0, len(s.postings))
	for _, p := range s.postings {
		out = append(out, p)
	}
	sortPostings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortPostings(postings []aggregator.JobPosting) {
	sort.Slice(postings, func(i, j int) bool {
		if !postings[i].CreatedAt.Equal(postings[j].CreatedAt) {
			return postings[i].CreatedAt.After(postings[j].CreatedAt)
		}
		return postings[i].URL < postings[j].URL
	})
}

// SelectorCache keeps resolved selectors per domain.
type SelectorCache struct {
	mu      sync.RWMutex
	entries map[string]aggregator.SelectorCacheEntry
}

// NewSelectorCache constructs an empty SelectorCache.
func NewSelectorCache() *SelectorCache {
	return &SelectorCache{entries: make(map[string]aggregator.SelectorCacheEntry)}
}

// GetSelector returns the cached entry for a domain.
func (s *SelectorCache) GetSelector(_ context.Context, domain string) (aggregator.SelectorCacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[domain]
	return entry, ok, nil
}

// PutSelector stores an entry keyed by its domain.
func (s *SelectorCache) PutSelector(_ context.Context, entry aggregator.SelectorCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Domain] = entry
	return nil
}

// ErrorLog collects crawl errors append-only.
type ErrorLog struct {
	mu      sync.RWMutex
	entries []aggregator.CrawlError
}

// NewErrorLog constructs an empty ErrorLog.
func NewErrorLog() *ErrorLog {
	return &ErrorLog{}
}

// AppendErrors appends entries in bulk.
func (l *ErrorLog) AppendErrors(_ context.Context, entries []aggregator.CrawlError) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
	return nil
}

// Entries returns a copy of the recorded errors.
func (l *ErrorLog) Entries() []aggregator.CrawlError {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]aggregator.CrawlError, len(l.entries))
	copy(out, l.entries)
	return out
}

// ThrottleStore keeps last-request timestamps per domain.
type ThrottleStore struct {
	mu      sync.RWMutex
	records map[string]time.Time
}

// NewThrottleStore constructs an empty ThrottleStore.
func NewThrottleStore() *ThrottleStore {
	return &ThrottleStore{records: make(map[string]time.Time)}
}

// LastRequest returns the persisted timestamp for a domain.
func (s *ThrottleStore) LastRequest(_ context.Context, domain string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.records[domain]
	return at, ok, nil
}

// SetLastRequest persists the timestamp for a domain.
func (s *ThrottleStore) SetLastRequest(_ context.Context, domain string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[domain] = at
	return nil
}
