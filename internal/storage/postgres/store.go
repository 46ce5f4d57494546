// Package postgres provides Postgres-backed persistence for companies,
// postings, selector cache entries, crawl errors, and throttle records.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements the aggregator store interfaces on one pool.
type Store struct {
	pool dbConn
}

// New creates a Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(pool dbConn) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ListActiveCompanies reads crawl targets flagged active.
func (s *Store) ListActiveCompanies(ctx context.Context) ([]aggregator.Company, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, name, career_page, COALESCE(selector, ''), is_active
FROM companies
WHERE is_active = true
ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var companies []aggregator.Company
	for rows.Next() {
		var c aggregator.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CareerPage, &c.Selector, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}

// UpsertPosting inserts or updates by the (company_id, url) unique key and
// reports which happened. The xmax = 0 check distinguishes a fresh insert
// from a conflict update.
func (s *Store) UpsertPosting(ctx context.Context, p aggregator.JobPosting) (aggregator.UpsertResult, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx, `
INSERT INTO job_postings (
	id, company_id, company_name, title, cleaned_title, category, level,
	skills, location, job_type, work_type, department, url,
	salary_min, salary_max, salary_currency, salary_period,
	is_estimated, source, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$20)
ON CONFLICT (company_id, url) DO UPDATE SET
	title = EXCLUDED.title,
	cleaned_title = EXCLUDED.cleaned_title,
	category = EXCLUDED.category,
	level = EXCLUDED.level,
	skills = EXCLUDED.skills,
	location = EXCLUDED.location,
	job_type = EXCLUDED.job_type,
	work_type = EXCLUDED.work_type,
	department = EXCLUDED.department,
	salary_min = EXCLUDED.salary_min,
	salary_max = EXCLUDED.salary_max,
	salary_currency = EXCLUDED.salary_currency,
	salary_period = EXCLUDED.salary_period,
	is_estimated = EXCLUDED.is_estimated,
	source = EXCLUDED.source,
	updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0)`,
		p.ID, p.CompanyID, p.CompanyName, p.Title,
		p.Parsed.CleanedTitle, p.Parsed.Category, p.Parsed.Level,
		p.Parsed.Skills, p.Parsed.Location, p.Parsed.JobType,
		string(p.Parsed.WorkType), p.Parsed.Department, p.URL,
		salaryMin(p.Salary), salaryMax(p.Salary),
		salaryCurrency(p.Salary), salaryPeriod(p.Salary),
		p.IsEstimated, p.Source, p.CreatedAt,
	).Scan(&inserted)
	if err != nil {
		return aggregator.UpsertResult{}, fmt.Errorf("upsert posting: %w", err)
	}
	return aggregator.UpsertResult{Inserted: inserted}, nil
}

// FindWithSalary returns postings carrying explicit or estimated bounds.
func (s *Store) FindWithSalary(ctx context.Context) ([]aggregator.JobPosting, error) {
	rows, err := s.pool.Query(ctx, selectPostings+`
WHERE salary_min IS NOT NULL AND salary_max IS NOT NULL
ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query salaried postings: %w", err)
	}
	defer rows.Close()
	return scanPostings(rows)
}

// ListPostings returns up to limit postings, newest first.
func (s *Store) ListPostings(ctx context.Context, limit int) ([]aggregator.JobPosting, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, selectPostings+`
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query postings: %w", err)
	}
	defer rows.Close()
	return scanPostings(rows)
}

const selectPostings = `
SELECT id, company_id, company_name, title, cleaned_title, category, level,
	skills, location, job_type, work_type, department, url,
	salary_min, salary_max, salary_currency, salary_period,
	is_estimated, source, created_at
FROM job_postings`

func scanPostings(rows pgx.Rows) ([]aggregator.JobPosting, error) {
	var postings []aggregator.JobPosting
	for rows.Next() {
		var p aggregator.JobPosting
		var workType string
		var minV, maxV *float64
		var currency, period *string
		if err := rows.Scan(
			&p.ID, &p.CompanyID, &p.CompanyName, &p.Title,
			&p.Parsed.CleanedTitle, &p.Parsed.Category, &p.Parsed.Level,
			&p.Parsed.Skills, &p.Parsed.Location, &p.Parsed.JobType,
			&workType, &p.Parsed.Department, &p.URL,
			&minV, &maxV, &currency, &period,
			&p.IsEstimated, &p.Source, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		p.Parsed.WorkType = aggregator.WorkType(workType)
		p.Parsed.OriginalTitle = p.Title
		if minV != nil && maxV != nil {
			p.Salary = &aggregator.SalaryRange{Min: *minV, Max: *maxV}
			if currency != nil {
				p.Salary.Currency = *currency
			}
			if period != nil {
				p.Salary.Period = *period
			}
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}
	return postings, nil
}

// GetSelector reads the cached selector for a domain.
func (s *Store) GetSelector(ctx context.Context, domain string) (aggregator.SelectorCacheEntry, bool, error) {
	var entry aggregator.SelectorCacheEntry
	err := s.pool.QueryRow(ctx, `
SELECT domain, selector, COALESCE(platform, ''), resolved_at
FROM selector_cache
WHERE domain = $1`, domain).Scan(&entry.Domain, &entry.Selector, &entry.Platform, &entry.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return aggregator.SelectorCacheEntry{}, false, nil
	}
	if err != nil {
		return aggregator.SelectorCacheEntry{}, false, fmt.Errorf("query selector cache: %w", err)
	}
	return entry, true, nil
}

// PutSelector upserts a resolved selector by domain.
func (s *Store) PutSelector(ctx context.Context, entry aggregator.SelectorCacheEntry) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO selector_cache (domain, selector, platform, resolved_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (domain) DO UPDATE SET
	selector = EXCLUDED.selector,
	platform = EXCLUDED.platform,
	resolved_at = EXCLUDED.resolved_at`,
		entry.Domain, entry.Selector, entry.Platform, entry.ResolvedAt)
	if err != nil {
		return fmt.Errorf("upsert selector cache: %w", err)
	}
	return nil
}

// AppendErrors bulk-inserts crawl error entries.
func (s *Store) AppendErrors(ctx context.Context, entries []aggregator.CrawlError) error {
	for _, entry := range entries {
		_, err := s.pool.Exec(ctx, `
INSERT INTO crawl_errors (company, error, ts)
VALUES ($1, $2, $3)`, entry.Company, entry.Error, entry.Timestamp)
		if err != nil {
			return fmt.Errorf("insert crawl error: %w", err)
		}
	}
	return nil
}

// LastRequest reads the persisted throttle timestamp for a domain.
func (s *Store) LastRequest(ctx context.Context, domain string) (time.Time, bool, error) {
	var at time.Time
	err := s.pool.QueryRow(ctx, `
SELECT last_request FROM throttle_records WHERE domain = $1`, domain).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query throttle record: %w", err)
	}
	return at, true, nil
}

// SetLastRequest upserts the throttle timestamp for a domain.
func (s *Store) SetLastRequest(ctx context.Context, domain string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO throttle_records (domain, last_request)
VALUES ($1, $2)
ON CONFLICT (domain) DO UPDATE SET last_request = EXCLUDED.last_request`,
		domain, at)
	if err != nil {
		return fmt.Errorf("upsert throttle record: %w", err)
	}
	return nil
}

func salaryMin(s *aggregator.SalaryRange) *float64 {
	if s == nil {
		return nil
	}
	return &s.Min
}

func salaryMax(s *aggregator.SalaryRange) *float64 {
	if s == nil {
		return nil
	}
	return &s.Max
}

func salaryCurrency(s *aggregator.SalaryRange) *string {
	if s == nil {
		return nil
	}
	return &s.Currency
}

func salaryPeriod(s *aggregator.SalaryRange) *string {
	if s == nil {
		return nil
	}
	return &s.Period
}
