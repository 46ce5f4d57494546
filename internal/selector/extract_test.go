package selector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract_TitlesLinksAndSalary(t *testing.T) {
	t.Parallel()

	html := `<html><body><div class="postings">
<div class="posting">
  <h3 class="posting-title">Senior Backend Engineer</h3>
  <a href="/jobs/backend-123">Apply</a>
  <span class="salary">$120k - $150k / year</span>
</div>
<div class="posting">
  <a href="https://jobs.example.com/jobs/456">Product Manager</a>
</div>
<div class="posting"><span>   </span></div>
</div></body></html>`

	doc := parseHTML(t, html)
	postings := Extract(doc, ".posting", "https://jobs.example.com/acme")

	require.Len(t, postings, 2)

	require.Equal(t, "Senior Backend Engineer", postings[0].Title)
	require.Equal(t, "https://jobs.example.com/jobs/backend-123", postings[0].URL)
	require.Equal(t, "$120k - $150k / year", postings[0].SalaryText)

	require.Equal(t, "Product Manager", postings[1].Title)
	require.Equal(t, "https://jobs.example.com/jobs/456", postings[1].URL)
	require.Empty(t, postings[1].SalaryText)
}

func TestExtract_AnchorNodes(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<a class="job-link" href="/openings/1">Data Analyst — Berlin</a>
<a class="job-link" href="/openings/2">QA Engineer</a>
</body></html>`

	doc := parseHTML(t, html)
	postings := Extract(doc, "a.job-link", "https://example.com/careers")

	require.Len(t, postings, 2)
	require.Equal(t, "Data Analyst — Berlin", postings[0].Title)
	require.Equal(t, "https://example.com/openings/1", postings[0].URL)
	require.Equal(t, "https://example.com/openings/2", postings[1].URL)
}
