// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerCompaniesTotal      *prometheus.CounterVec
	crawlerPostingsTotal       *prometheus.CounterVec
	crawlerFetchBytesTotal     *prometheus.CounterVec
	crawlerErrorsTotal         *prometheus.CounterVec
	crawlerThrottleSkipsTotal  *prometheus.CounterVec
	crawlerSelectorResolutions *prometheus.CounterVec
	crawlerRunDurationSeconds  prometheus.Histogram
	crawlerActiveWorkers       prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerCompaniesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_companies_total",
				Help: "Total number of companies crawled, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlerPostingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_postings_total",
				Help: "Total number of postings persisted, labeled by kind (new or updated).",
			},
			[]string{"kind"},
		)

		crawlerFetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_errors_total",
				Help: "Total crawl errors, labeled by category.",
			},
			[]string{"category"},
		)

		crawlerThrottleSkipsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_throttle_skips_total",
				Help: "Companies skipped because the per-domain interval had not elapsed.",
			},
			[]string{"domain"},
		)

		crawlerSelectorResolutions = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_selector_resolutions_total",
				Help: "Selector resolution outcomes, labeled by source (cached, platform, heuristic, failed).",
			},
			[]string{"source"},
		)

		crawlerRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_run_duration_seconds",
				Help:    "Histogram of full crawl run durations.",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of workers currently crawling a company.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCompany increments the per-company outcome counter.
func ObserveCompany(outcome string) {
	crawlerCompaniesTotal.WithLabelValues(outcome).Inc()
}

// ObservePosting counts a persisted posting as new or updated.
func ObservePosting(inserted bool) {
	kind := "updated"
	if inserted {
		kind = "new"
	}
	crawlerPostingsTotal.WithLabelValues(kind).Inc()
}

// ObserveFetch records bytes fetched from a site.
func ObserveFetch(site string, bytesFetched int) {
	if bytesFetched > 0 {
		crawlerFetchBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesFetched))
	}
}

// ObserveError increments the error counter for a category.
func ObserveError(category string) {
	crawlerErrorsTotal.WithLabelValues(category).Inc()
}

// ObserveThrottleSkip counts a company skipped by the request throttle.
func ObserveThrottleSkip(domain string) {
	crawlerThrottleSkipsTotal.WithLabelValues(SanitizeSite(domain)).Inc()
}

// ObserveSelectorResolution records how a selector was obtained.
func ObserveSelectorResolution(source string) {
	crawlerSelectorResolutions.WithLabelValues(source).Inc()
}

// ObserveRunDuration records the duration of a full crawl run.
func ObserveRunDuration(duration time.Duration) {
	crawlerRunDurationSeconds.Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	crawlerActiveWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
