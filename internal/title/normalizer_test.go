package title

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(Tables{})
	require.NoError(t, err)
	return n
}

func TestParse_StripsJobTypeAndLocations(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	raw := "SEO Associate (Talent Pool)Remote —Full-time Remote / Philadelphia, PA"
	parsed := n.Parse(raw)

	require.Equal(t, raw, parsed.OriginalTitle)
	require.Contains(t, parsed.CleanedTitle, "SEO Associate")
	require.NotContains(t, parsed.CleanedTitle, "Full-time")
	require.NotContains(t, parsed.CleanedTitle, "Remote")
	require.NotContains(t, parsed.CleanedTitle, "Philadelphia")
	require.Equal(t, "Full-time", parsed.JobType)
	require.Equal(t, "Remote", parsed.Location)
	require.Equal(t, aggregator.WorkTypeRemote, parsed.WorkType)
}

func TestParse_FirstLocationMatchWins(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	parsed := n.Parse("Backend Engineer - Philadelphia, PA / Remote")

	// "Remote" precedes city names in the default table.
	require.Equal(t, "Remote", parsed.Location)
	require.Equal(t, aggregator.WorkTypeRemote, parsed.WorkType)
	require.Equal(t, "Backend Engineer", parsed.CleanedTitle)
}

func TestParse_Classification(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	tests := []struct {
		name     string
		raw      string
		category string
		level    string
		dept     string
		skills   []string
	}{
		{
			name:     "senior engineer with skills",
			raw:      "Senior Go Engineer (Kubernetes, AWS) - Berlin",
			category: "Technology",
			level:    "Senior",
			dept:     "Engineering",
			skills:   []string{"go", "kubernetes", "aws"},
		},
		{
			name:     "lead designer",
			raw:      "Lead Product Designer - Hybrid",
			category: "Design",
			level:    "Lead",
			dept:     "Product",
		},
		{
			name:     "sales no level",
			raw:      "Account Executive",
			category: "Sales",
			dept:     "Sales",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			parsed := n.Parse(tt.raw)
			require.Equal(t, tt.category, parsed.Category)
			require.Equal(t, tt.level, parsed.Level)
			require.Equal(t, tt.dept, parsed.Department)
			require.Equal(t, tt.skills, parsed.Skills)
		})
	}
}

func TestParse_UnicodeFolding(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	parsed := n.Parse("Yazılım Mühendisi - İstanbul")

	require.Equal(t, "Istanbul", parsed.Location)
}

func TestParse_IdempotentOnCleanedOutput(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	titles := []string{
		"SEO Associate (Talent Pool)Remote —Full-time Remote / Philadelphia, PA",
		"Senior Go Engineer (Kubernetes, AWS) - Berlin",
		"Part-time Barista — On-site, Amsterdam",
		"Totally Unclassifiable Gibberish",
		"",
	}

	for _, raw := range titles {
		first := n.Parse(raw)
		second := n.Parse(first.CleanedTitle)

		require.Equal(t, first.CleanedTitle, second.CleanedTitle, "title %q", raw)
		require.Equal(t, first.Category, second.Category, "title %q", raw)
		require.Equal(t, first.Level, second.Level, "title %q", raw)
		// No job type or location may be invented from a cleaned title.
		require.Empty(t, second.JobType, "title %q", raw)
		require.Empty(t, second.Location, "title %q", raw)
	}
}

func TestParse_NoMatchesFallsBackToRawTitle(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	parsed := n.Parse("Chief Vibes Officer")

	require.Equal(t, "Chief Vibes Officer", parsed.CleanedTitle)
	require.Empty(t, parsed.Category)
	require.Empty(t, parsed.Level)
	require.Empty(t, parsed.Location)
	require.Empty(t, parsed.JobType)
	require.Empty(t, parsed.Skills)
}

func TestNewNormalizer_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewNormalizer(Tables{
		JobTypes: []PatternRule{{Pattern: "(", Label: "broken"}},
	})
	require.Error(t, err)
}
