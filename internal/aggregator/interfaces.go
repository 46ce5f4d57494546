package aggregator

import (
	"context"
	"time"
)

// CompanyStore reads crawl targets from the persistent store.
type CompanyStore interface {
	ListActiveCompanies(ctx context.Context) ([]Company, error)
}

// UpsertResult reports whether an upsert created a new row or touched an
// existing one, keyed on (company, posting URL).
type UpsertResult struct {
	Inserted bool
}

// PostingStore persists job postings and serves similarity queries for
// salary estimation.
type PostingStore interface {
	UpsertPosting(ctx context.Context, posting JobPosting) (UpsertResult, error)
	FindWithSalary(ctx context.Context) ([]JobPosting, error)
	ListPostings(ctx context.Context, limit int) ([]JobPosting, error)
}

// SelectorCache stores resolved selectors per domain between runs. The
// resolver never writes it; the orchestrator decides what to persist.
type SelectorCache interface {
	GetSelector(ctx context.Context, domain string) (SelectorCacheEntry, bool, error)
	PutSelector(ctx context.Context, entry SelectorCacheEntry) error
}

// ErrorLog appends company-level failures in bulk at the end of a run.
type ErrorLog interface {
	AppendErrors(ctx context.Context, entries []CrawlError) error
}

// ThrottleStore is the key-value backend for persisted last-request
// timestamps. A missing domain returns ok=false with a nil error.
type ThrottleStore interface {
	LastRequest(ctx context.Context, domain string) (time.Time, bool, error)
	SetLastRequest(ctx context.Context, domain string, at time.Time) error
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// HeadlessDetector decides whether a probe response warrants a headless
// re-fetch.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// BlobStore archives raw page snapshots and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Notifier receives the run summary. Fire and forget: failures are logged
// by the caller, never propagated.
type Notifier interface {
	Notify(ctx context.Context, summary RunSummary) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run and posting IDs.
type IDGenerator interface {
	NewID() (string, error)
}
