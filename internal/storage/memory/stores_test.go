package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

func TestPostingStore_UpsertKey(t *testing.T) {
	t.Parallel()

	store := NewPostingStore()
	ctx := context.Background()
	created := time.Unix(100, 0)

	first, err := store.UpsertPosting(ctx, aggregator.JobPosting{
		ID: "p1", CompanyID: "acme", URL: "https://acme.example/jobs/1",
		Title: "Engineer", CreatedAt: created,
	})
	require.NoError(t, err)
	require.True(t, first.Inserted)

	second, err := store.UpsertPosting(ctx, aggregator.JobPosting{
		ID: "p2", CompanyID: "acme", URL: "https://acme.example/jobs/1",
		Title: "Senior Engineer", CreatedAt: time.Unix(200, 0),
	})
	require.NoError(t, err)
	require.False(t, second.Inserted)

	postings, err := store.ListPostings(ctx, 0)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	require.Equal(t, "Senior Engineer", postings[0].Title)
	// Updates keep the original identity and creation time.
	require.Equal(t, "p1", postings[0].ID)
	require.Equal(t, created, postings[0].CreatedAt)

	// Same URL at a different company is a separate posting.
	third, err := store.UpsertPosting(ctx, aggregator.JobPosting{
		ID: "p3", CompanyID: "globex", URL: "https://acme.example/jobs/1",
	})
	require.NoError(t, err)
	require.True(t, third.Inserted)
}

func TestPostingStore_FindWithSalary(t *testing.T) {
	t.Parallel()

	store := NewPostingStore()
	ctx := context.Background()

	_, err := store.UpsertPosting(ctx, aggregator.JobPosting{
		CompanyID: "acme", URL: "u1",
		Salary: &aggregator.SalaryRange{Min: 1, Max: 2, Currency: "USD", Period: "year"},
	})
	require.NoError(t, err)
	_, err = store.UpsertPosting(ctx, aggregator.JobPosting{CompanyID: "acme", URL: "u2"})
	require.NoError(t, err)

	withSalary, err := store.FindWithSalary(ctx)
	require.NoError(t, err)
	require.Len(t, withSalary, 1)
	require.Equal(t, "u1", withSalary[0].URL)
}

func TestCompanyStore_ListActive(t *testing.T) {
	t.Parallel()

	store := NewCompanyStore(
		aggregator.Company{ID: "1", Name: "Acme", IsActive: true},
		aggregator.Company{ID: "2", Name: "Globex", IsActive: false},
	)
	companies, err := store.ListActiveCompanies(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 1)
	require.Equal(t, "Acme", companies[0].Name)
}

func TestSelectorCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cache := NewSelectorCache()
	ctx := context.Background()

	_, ok, err := cache.GetSelector(ctx, "acme.example")
	require.NoError(t, err)
	require.False(t, ok)

	entry := aggregator.SelectorCacheEntry{Domain: "acme.example", Selector: ".posting", Platform: "lever"}
	require.NoError(t, cache.PutSelector(ctx, entry))

	got, ok, err := cache.GetSelector(ctx, "acme.example")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry, got)
}

func TestBlobStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "runs/r1/acme.html", "text/html", []byte("<html/>"))
	require.NoError(t, err)
	require.Equal(t, "mem://runs/r1/acme.html", uri)

	data, ok := store.GetObject("runs/r1/acme.html")
	require.True(t, ok)
	require.Equal(t, []byte("<html/>"), data)
}
