package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/careers", "example.com"},
		{"no scheme", "example.com/careers", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Reset collectors for testing purposes.
	crawlerCompaniesTotal = nil
	crawlerPostingsTotal = nil
	crawlerErrorsTotal = nil
	httpRequestsTotal = nil

	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if crawlerCompaniesTotal == nil || crawlerPostingsTotal == nil ||
		crawlerErrorsTotal == nil || httpRequestsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	crawlerCompaniesTotal.WithLabelValues("crawled").Inc()
	if val := testutil.ToFloat64(crawlerCompaniesTotal); val != 1 {
		t.Errorf("Expected crawlerCompaniesTotal to be 1, got %f", val)
	}
}
