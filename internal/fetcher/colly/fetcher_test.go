package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "careers-bot/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Open positions</body></html>"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "careers-bot/1.0", Timeout: 5 * time.Second})
	resp, err := f.Fetch(context.Background(), aggregator.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(resp.Body), "Open positions")
	require.Positive(t, resp.Duration)
}

func TestFetch_NonSuccessStatusIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), aggregator.FetchRequest{URL: srv.URL})
	require.Error(t, err)
	require.True(t, aggregator.IsFetchError(err))
}

func TestFetch_ConnectionRefusedIsFetchError(t *testing.T) {
	t.Parallel()

	f := New(Config{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), aggregator.FetchRequest{URL: "http://127.0.0.1:1/careers"})
	require.Error(t, err)
	require.True(t, aggregator.IsFetchError(err))
}
