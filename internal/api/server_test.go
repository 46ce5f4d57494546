package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openroles/careers-crawler/internal/aggregator"
	"github.com/openroles/careers-crawler/internal/gate"
	"github.com/openroles/careers-crawler/internal/storage/memory"
)

// memBackend is a map-backed gate backend for handler tests.
type memBackend struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
}

func newMemBackend() *memBackend {
	return &memBackend{
		values: make(map[string]string),
		counts: make(map[string]int64),
	}
}

func (b *memBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.values[key]
	if !ok {
		return "", gate.ErrMiss
	}
	return value, nil
}

func (b *memBackend) Set(_ context.Context, key, value string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

func (b *memBackend) Incr(_ context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[key]++
	return b.counts[key], nil
}

func (b *memBackend) Expire(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

func seedPostings(t *testing.T, store *memory.PostingStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.UpsertPosting(context.Background(), aggregator.JobPosting{
			ID:          string(rune('a' + i)),
			CompanyID:   "acme",
			CompanyName: "Acme",
			Title:       "Software Engineer",
			URL:         "https://acme.example/jobs/" + string(rune('a'+i)),
			Source:      "acme.example",
			CreatedAt:   time.Unix(int64(1700000000+i), 0).UTC(),
		})
		require.NoError(t, err)
	}
}

func newTestServer(g *gate.Gate, store *memory.PostingStore) *Server {
	return NewServer(store, g, NewSummaryHolder(), nil, zap.NewNop(), Config{})
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(nil, memory.NewPostingStore())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListPostingsReturnsStoredPostings(t *testing.T) {
	t.Parallel()

	store := memory.NewPostingStore()
	seedPostings(t, store, 3)
	srv := newTestServer(nil, store)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/postings", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Postings []aggregator.JobPosting `json:"postings"`
		Count    int                     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 3, payload.Count)
	require.Len(t, payload.Postings, 3)
}

func TestListPostingsRejectsBadLimit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(nil, memory.NewPostingStore())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/postings?limit=nope", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPostingsServesFromCache(t *testing.T) {
	t.Parallel()

	store := memory.NewPostingStore()
	seedPostings(t, store, 1)
	g := gate.New(newMemBackend(), gate.Config{RateLimit: 100}, zap.NewNop())
	srv := newTestServer(g, store)

	first := httptest.NewRecorder()
	srv.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/postings", nil))
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := httptest.NewRecorder()
	srv.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/postings", nil))
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "HIT", second.Header().Get("X-Cache"))
	require.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestRateLimitReturns429(t *testing.T) {
	t.Parallel()

	g := gate.New(newMemBackend(), gate.Config{RateLimit: 2}, zap.NewNop())
	srv := newTestServer(g, memory.NewPostingStore())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/runs/latest", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		srv.Handler().ServeHTTP(rec, req)
		require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/latest", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client still passes.
	other := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/runs/latest", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	srv.Handler().ServeHTTP(other, req)
	require.NotEqual(t, http.StatusTooManyRequests, other.Code)
}

func TestLatestRun(t *testing.T) {
	t.Parallel()

	holder := NewSummaryHolder()
	srv := NewServer(memory.NewPostingStore(), nil, holder, nil, zap.NewNop(), Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/latest", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	summary := aggregator.RunSummary{RunID: "run-1", TotalJobs: 5, CompaniesCrawled: 2}
	require.NoError(t, holder.Notify(context.Background(), summary))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got aggregator.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, summary, got)
}

func TestTriggerCrawlWithoutRunner(t *testing.T) {
	t.Parallel()

	srv := newTestServer(nil, memory.NewPostingStore())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/crawl", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
