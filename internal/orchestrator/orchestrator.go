// Package orchestrator drives a full crawl run: it walks the active
// companies, fetches each career page through the throttle, resolves the
// listing selector, extracts and normalizes postings, estimates missing
// salaries, and persists the results. Per-company failures are isolated;
// only company-list and error-log persistence failures abort a run.
package orchestrator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openroles/careers-crawler/internal/aggregator"
	"github.com/openroles/careers-crawler/internal/metrics"
	"github.com/openroles/careers-crawler/internal/salary"
	"github.com/openroles/careers-crawler/internal/selector"
	"github.com/openroles/careers-crawler/internal/throttle"
	"github.com/openroles/careers-crawler/internal/title"
)

// Config holds the settings for one crawl run. It is decoupled from Viper
// so the orchestrator stays testable on its own.
type Config struct {
	Workers int
	// RequestsPerSecond spaces outbound fetches across the whole run.
	// Zero disables the limiter.
	RequestsPerSecond float64
	SnapshotPages     bool
}

// Deps carries the collaborators the orchestrator is wired with. Headless,
// Detector, Blobs, and Notifier are optional.
type Deps struct {
	Companies  aggregator.CompanyStore
	Postings   aggregator.PostingStore
	Selectors  aggregator.SelectorCache
	Errors     aggregator.ErrorLog
	Throttle   *throttle.Throttle
	Fetcher    aggregator.Fetcher
	Headless   aggregator.Fetcher
	Detector   aggregator.HeadlessDetector
	Resolver   *selector.Resolver
	Normalizer *title.Normalizer
	Estimator  *salary.Estimator
	Blobs      aggregator.BlobStore
	Notifier   aggregator.Notifier
	Clock      aggregator.Clock
	IDs        aggregator.IDGenerator
	Logger     *zap.Logger
}

// Orchestrator coordinates one batch crawl at a time.
type Orchestrator struct {
	cfg     Config
	deps    Deps
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New validates the wiring and returns an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Companies == nil:
		return nil, fmt.Errorf("company store is required")
	case deps.Postings == nil:
		return nil, fmt.Errorf("posting store is required")
	case deps.Selectors == nil:
		return nil, fmt.Errorf("selector cache is required")
	case deps.Errors == nil:
		return nil, fmt.Errorf("error log is required")
	case deps.Throttle == nil:
		return nil, fmt.Errorf("throttle is required")
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("resolver is required")
	case deps.Normalizer == nil:
		return nil, fmt.Errorf("normalizer is required")
	case deps.Estimator == nil:
		return nil, fmt.Errorf("estimator is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	case deps.IDs == nil:
		return nil, fmt.Errorf("id generator is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	metrics.Init()
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		limiter: limiter,
		logger:  deps.Logger,
	}, nil
}

// companyResult is the boundary record for one company.
type companyResult struct {
	company   aggregator.Company
	jobs      int
	newJobs   int
	updated   int
	throttled bool
	err       error
}

// Run executes one full crawl and returns its summary. The summary is valid
// even when ErrorCount > 0. Only a failure to read the company list or to
// persist the error log aborts the run.
func (o *Orchestrator) Run(ctx context.Context) (aggregator.RunSummary, error) {
	start := o.deps.Clock.Now()

	runID, err := o.deps.IDs.NewID()
	if err != nil {
		return aggregator.RunSummary{}, fmt.Errorf("generate run id: %w", err)
	}

	companies, err := o.deps.Companies.ListActiveCompanies(ctx)
	if err != nil {
		return aggregator.RunSummary{}, fmt.Errorf("list active companies: %w", err)
	}

	o.logger.Info("crawl run starting",
		zap.String("run_id", runID),
		zap.Int("companies", len(companies)),
		zap.Int("workers", o.cfg.Workers),
	)

	summary := aggregator.RunSummary{RunID: runID}
	var crawlErrors []aggregator.CrawlError

	results := o.crawlAll(ctx, runID, companies)
	for _, res := range results {
		summary.CompaniesCrawled++
		summary.TotalJobs += res.jobs
		summary.NewJobs += res.newJobs
		summary.UpdatedJobs += res.updated

		switch {
		case res.throttled:
			metrics.ObserveCompany("throttled")
		case res.err != nil:
			summary.ErrorCount++
			metrics.ObserveCompany("failed")
			metrics.ObserveError(errorCategory(res.err))
			o.logCompanyError(res.company, res.err)
			crawlErrors = append(crawlErrors, aggregator.CrawlError{
				Company:   res.company.Name,
				Error:     res.err.Error(),
				Timestamp: o.deps.Clock.Now(),
			})
		default:
			metrics.ObserveCompany("crawled")
		}
	}

	if len(crawlErrors) > 0 {
		if err := o.deps.Errors.AppendErrors(ctx, crawlErrors); err != nil {
			return summary, fmt.Errorf("persist error log: %w", err)
		}
	}

	o.notify(ctx, summary)
	metrics.ObserveRunDuration(o.deps.Clock.Now().Sub(start))

	o.logger.Info("crawl run finished",
		zap.String("run_id", runID),
		zap.Int("total_jobs", summary.TotalJobs),
		zap.Int("new_jobs", summary.NewJobs),
		zap.Int("updated_jobs", summary.UpdatedJobs),
		zap.Int("companies_crawled", summary.CompaniesCrawled),
		zap.Int("error_count", summary.ErrorCount),
	)
	return summary, nil
}

// crawlAll fans companies out over the worker pool. Companies sharing a
// domain are grouped into one batch so same-domain requests stay
// sequential; cross-domain batches run concurrently. The stop signal is
// checked between companies, never mid-fetch. After a stop the workers
// keep draining the channel without crawling, so the producer can never
// block on a send with no receiver left.
func (o *Orchestrator) crawlAll(ctx context.Context, runID string, companies []aggregator.Company) []companyResult {
	batches := groupByDomain(companies)

	work := make(chan []aggregator.Company)
	var (
		mu      sync.Mutex
		results []companyResult
		wg      sync.WaitGroup
	)

	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range work {
				for _, company := range batch {
					if ctx.Err() != nil {
						break
					}
					metrics.IncActiveWorkers()
					res := o.crawlCompany(ctx, runID, company)
					metrics.DecActiveWorkers()
					mu.Lock()
					results = append(results, res)
					mu.Unlock()
				}
			}
		}()
	}

	for _, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		select {
		case work <- batch:
		case <-ctx.Done():
		}
	}
	close(work)
	wg.Wait()

	return results
}

// crawlCompany runs the fetch → resolve → extract → normalize → estimate →
// upsert sequence for one company. Every failure is returned to the run
// boundary; nothing is swallowed here.
func (o *Orchestrator) crawlCompany(ctx context.Context, runID string, company aggregator.Company) companyResult {
	res := companyResult{company: company}

	if strings.TrimSpace(company.CareerPage) == "" {
		res.err = aggregator.ErrNoCareerPage
		return res
	}

	domain := hostOf(company.CareerPage)

	if !o.deps.Throttle.CanMakeRequest(ctx, domain) {
		o.logger.Info("skipping company, domain throttled",
			zap.String("company", company.Name),
			zap.String("domain", domain),
		)
		metrics.ObserveThrottleSkip(domain)
		res.throttled = true
		return res
	}

	resp, err := o.fetchPage(ctx, domain, company.CareerPage)
	if err != nil {
		res.err = err
		return res
	}
	metrics.ObserveFetch(company.CareerPage, len(resp.Body))

	o.snapshot(ctx, runID, company, resp.Body)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		res.err = fmt.Errorf("parse career page: %w", err)
		return res
	}

	known := o.knownSelector(ctx, domain, company)

	resolution, err := o.deps.Resolver.ResolveInDocument(doc, company.CareerPage, known)
	if err != nil {
		if errors.Is(err, aggregator.ErrSelectorNotFound) {
			metrics.ObserveSelectorResolution("failed")
		}
		res.err = err
		return res
	}
	o.recordSelector(ctx, domain, known, resolution)

	raws := selector.Extract(doc, resolution.Selector, company.CareerPage)
	for _, raw := range raws {
		posting, err := o.buildPosting(ctx, company, domain, raw)
		if err != nil {
			res.err = err
			return res
		}
		result, err := o.deps.Postings.UpsertPosting(ctx, posting)
		if err != nil {
			res.err = fmt.Errorf("persist posting %q: %w", posting.URL, err)
			return res
		}
		metrics.ObservePosting(result.Inserted)
		res.jobs++
		if result.Inserted {
			res.newJobs++
		} else {
			res.updated++
		}
	}
	return res
}

// fetchPage performs the single throttled fetch for a company, promoting to
// the headless fetcher when the probe looks script-rendered. The throttle
// record is written before the request goes out.
func (o *Orchestrator) fetchPage(ctx context.Context, domain, pageURL string) (aggregator.FetchResponse, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return aggregator.FetchResponse{}, err
		}
	}
	o.deps.Throttle.RecordRequest(ctx, domain)

	resp, err := o.deps.Fetcher.Fetch(ctx, aggregator.FetchRequest{URL: pageURL})
	if err != nil {
		return aggregator.FetchResponse{}, err
	}

	if o.deps.Headless == nil || o.deps.Detector == nil || !o.deps.Detector.ShouldPromote(resp) {
		return resp, nil
	}

	o.logger.Info("promoting to headless fetch", zap.String("url", pageURL))
	rendered, err := o.deps.Headless.Fetch(ctx, aggregator.FetchRequest{URL: pageURL, UseHeadless: true})
	if err != nil {
		// The probe body is still usable; headless is best effort.
		o.logger.Warn("headless fetch failed, using probe body",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return resp, nil
	}
	return rendered, nil
}

// snapshot archives the raw page body. Failures are logged, never fatal.
func (o *Orchestrator) snapshot(ctx context.Context, runID string, company aggregator.Company, body []byte) {
	if !o.cfg.SnapshotPages || o.deps.Blobs == nil {
		return
	}
	urlHash := fmt.Sprintf("%x", sha256.Sum256([]byte(company.CareerPage)))
	objectPath := path.Join("pages", runID, fmt.Sprintf("%s.html", urlHash))
	uri, err := o.deps.Blobs.PutObject(ctx, objectPath, "text/html", body)
	if err != nil {
		o.logger.Warn("failed to archive page snapshot",
			zap.String("company", company.Name),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug("archived page snapshot", zap.String("uri", uri))
}

// knownSelector picks the selector to revalidate first: the company record
// when the ingestion process supplied one, the domain cache otherwise. A
// cache read failure degrades to rediscovery.
func (o *Orchestrator) knownSelector(ctx context.Context, domain string, company aggregator.Company) string {
	if company.Selector != "" {
		return company.Selector
	}
	entry, ok, err := o.deps.Selectors.GetSelector(ctx, domain)
	if err != nil {
		o.logger.Warn("selector cache read failed",
			zap.String("domain", domain),
			zap.Error(err),
		)
		return ""
	}
	if !ok {
		return ""
	}
	return entry.Selector
}

// recordSelector persists a freshly resolved selector so the next run skips
// rediscovery. A cache write failure never fails the company.
func (o *Orchestrator) recordSelector(ctx context.Context, domain, known string, resolution selector.Resolution) {
	switch {
	case known != "" && resolution.Selector == known:
		metrics.ObserveSelectorResolution("cached")
	case resolution.Platform != "":
		metrics.ObserveSelectorResolution("platform")
	default:
		metrics.ObserveSelectorResolution("heuristic")
	}

	entry := aggregator.SelectorCacheEntry{
		Domain:     domain,
		Selector:   resolution.Selector,
		Platform:   resolution.Platform,
		ResolvedAt: o.deps.Clock.Now(),
	}
	if err := o.deps.Selectors.PutSelector(ctx, entry); err != nil {
		o.logger.Warn("failed to persist resolved selector",
			zap.String("domain", domain),
			zap.Error(err),
		)
	}
}

// buildPosting normalizes one raw listing and attaches a salary: parsed
// from the page when present, estimated from comparables otherwise.
func (o *Orchestrator) buildPosting(ctx context.Context, company aggregator.Company, domain string, raw aggregator.RawPosting) (aggregator.JobPosting, error) {
	parsed := o.deps.Normalizer.Parse(raw.Title)

	var (
		salaryRange *aggregator.SalaryRange
		isEstimated bool
	)
	if explicit, ok := salary.ParseText(raw.SalaryText); ok {
		salaryRange = &explicit
	} else {
		estimate, err := o.deps.Estimator.Estimate(ctx, parsed.CleanedTitle, parsed.Location)
		if err != nil {
			// Estimation is best effort; the posting ships without a salary.
			o.logger.Warn("salary estimation failed",
				zap.String("title", parsed.CleanedTitle),
				zap.Error(err),
			)
		} else if estimate != nil {
			salaryRange = estimate
			isEstimated = true
		}
	}

	id, err := o.deps.IDs.NewID()
	if err != nil {
		return aggregator.JobPosting{}, fmt.Errorf("generate posting id: %w", err)
	}

	postingURL := raw.URL
	if postingURL == "" {
		postingURL = company.CareerPage
	}

	return aggregator.JobPosting{
		ID:          id,
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Title:       raw.Title,
		Parsed:      parsed,
		URL:         postingURL,
		Salary:      salaryRange,
		IsEstimated: isEstimated,
		Source:      domain,
		CreatedAt:   o.deps.Clock.Now(),
	}, nil
}

// notify hands the summary to the notifier. Fire and forget: failures are
// logged, never propagated.
func (o *Orchestrator) notify(ctx context.Context, summary aggregator.RunSummary) {
	if o.deps.Notifier == nil {
		return
	}
	if err := o.deps.Notifier.Notify(ctx, summary); err != nil {
		o.logger.Error("failed to deliver run summary",
			zap.String("run_id", summary.RunID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) logCompanyError(company aggregator.Company, err error) {
	fields := []zap.Field{
		zap.String("company", company.Name),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, aggregator.ErrSelectorNotFound):
		// Loud: either no openings or the site was redesigned.
		o.logger.Error("no job listing section found", fields...)
	case aggregator.IsFetchError(err):
		o.logger.Warn("career page unreachable, will retry next run", fields...)
	default:
		o.logger.Error("company crawl failed", fields...)
	}
}

// errorCategory maps an error to its metrics label.
func errorCategory(err error) string {
	switch {
	case errors.Is(err, aggregator.ErrNoCareerPage):
		return "no_career_page"
	case errors.Is(err, aggregator.ErrSelectorNotFound):
		return "selector_not_found"
	case aggregator.IsFetchError(err):
		return "network"
	default:
		return "other"
	}
}

// groupByDomain buckets companies so each batch holds all the companies of
// one domain, preserving input order within and across batches.
func groupByDomain(companies []aggregator.Company) [][]aggregator.Company {
	index := make(map[string]int)
	var batches [][]aggregator.Company
	for _, company := range companies {
		domain := hostOf(company.CareerPage)
		i, ok := index[domain]
		if !ok {
			i = len(batches)
			index[domain] = i
			batches = append(batches, nil)
		}
		batches[i] = append(batches[i], company)
	}
	return batches
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return strings.ToLower(strings.TrimSpace(pageURL))
	}
	return strings.ToLower(u.Hostname())
}
