// Package aggregator defines the core types and interfaces shared across the
// job aggregation pipeline: companies, postings, run summaries, and the
// collaborator contracts the orchestrator is wired with.
package aggregator

import (
	"net/http"
	"time"
)

// Company is a crawl target read from the persistent store. The crawler
// treats companies as read-only except for the cached selector.
type Company struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CareerPage string `json:"career_page"`
	Selector   string `json:"selector,omitempty"`
	IsActive   bool   `json:"is_active"`
}

// WorkType describes where the work happens.
type WorkType string

// Work arrangement values inferred during title normalization.
const (
	WorkTypeRemote WorkType = "remote"
	WorkTypeHybrid WorkType = "hybrid"
	WorkTypeOnSite WorkType = "on-site"
)

// ParsedTitle is the structured output of title normalization. Fields the
// parser could not determine are left empty.
type ParsedTitle struct {
	CleanedTitle  string   `json:"cleaned_title"`
	Category      string   `json:"category,omitempty"`
	Level         string   `json:"level,omitempty"`
	Skills        []string `json:"skills,omitempty"`
	Location      string   `json:"location,omitempty"`
	JobType       string   `json:"job_type,omitempty"`
	WorkType      WorkType `json:"work_type,omitempty"`
	Department    string   `json:"department,omitempty"`
	OriginalTitle string   `json:"original_title"`
}

// SalaryRange holds compensation bounds for a posting or an estimate.
type SalaryRange struct {
	Min      float64 `json:"salary_min"`
	Max      float64 `json:"salary_max"`
	Currency string  `json:"salary_currency"`
	Period   string  `json:"salary_period"`
}

// JobPosting is the persisted output record for one listing. The upsert key
// is (CompanyID, URL). IsEstimated is true exactly when the source page
// carried no salary bounds and the range was derived from comparables.
type JobPosting struct {
	ID          string       `json:"id"`
	CompanyID   string       `json:"company_id"`
	CompanyName string       `json:"company"`
	Title       string       `json:"title"`
	Parsed      ParsedTitle  `json:"parsed"`
	URL         string       `json:"url"`
	Salary      *SalaryRange `json:"salary,omitempty"`
	IsEstimated bool         `json:"is_estimated"`
	Source      string       `json:"source"`
	CreatedAt   time.Time    `json:"created_at"`
}

// RawPosting is a listing as extracted from the DOM, before normalization.
type RawPosting struct {
	Title      string
	URL        string
	SalaryText string
}

// SelectorCacheEntry records a resolved selector for a domain so the next
// run can skip rediscovery.
type SelectorCacheEntry struct {
	Domain     string    `json:"domain"`
	Selector   string    `json:"selector"`
	Platform   string    `json:"platform,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// CrawlError is one append-only error log entry for a failed company step.
type CrawlError struct {
	Company   string    `json:"company"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// RunSummary aggregates one batch run. It is returned even when
// ErrorCount > 0; partial success is a valid terminal state.
type RunSummary struct {
	RunID            string `json:"run_id"`
	TotalJobs        int    `json:"total_jobs"`
	NewJobs          int    `json:"new_jobs"`
	UpdatedJobs      int    `json:"updated_jobs"`
	CompaniesCrawled int    `json:"companies_crawled"`
	ErrorCount       int    `json:"error_count"`
}

// FetchRequest captures everything needed to fetch a career page.
type FetchRequest struct {
	URL           string
	Headers       http.Header
	UseHeadless   bool
	RespectRobots bool
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}
