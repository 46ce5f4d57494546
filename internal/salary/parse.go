package salary

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

var (
	rangeRe = regexp.MustCompile(
		`(?i)([$€£])\s*(\d[\d,.]*)\s*(k)?\s*(?:[-–—]|to)\s*[$€£]?\s*(\d[\d,.]*)\s*(k)?` +
			`(?:\s*(?:/|per)\s*(year|yr|annum|month|mo|hour|hr))?`)
	singleRe = regexp.MustCompile(
		`(?i)([$€£])\s*(\d[\d,.]*)\s*(k)?(?:\s*(?:/|per)\s*(year|yr|annum|month|mo|hour|hr))?`)
)

// ExtractText returns the first salary-looking fragment of s, or "".
// Extraction feeds the listing extractor so only compensation text is
// carried on raw postings.
func ExtractText(s string) string {
	if m := rangeRe.FindString(s); m != "" {
		return m
	}
	return singleRe.FindString(s)
}

// ParseText parses an explicit salary fragment into bounds. It reports
// false for text that carries no parsable salary.
func ParseText(s string) (aggregator.SalaryRange, bool) {
	if m := rangeRe.FindStringSubmatch(s); m != nil {
		minV, okMin := parseAmount(m[2], m[3] != "")
		maxV, okMax := parseAmount(m[4], m[5] != "")
		if okMin && okMax {
			return aggregator.SalaryRange{
				Min:      minV,
				Max:      maxV,
				Currency: currencyFor(m[1]),
				Period:   periodFor(m[6]),
			}, true
		}
	}
	if m := singleRe.FindStringSubmatch(s); m != nil {
		v, ok := parseAmount(m[2], m[3] != "")
		if ok {
			return aggregator.SalaryRange{
				Min:      v,
				Max:      v,
				Currency: currencyFor(m[1]),
				Period:   periodFor(m[4]),
			}, true
		}
	}
	return aggregator.SalaryRange{}, false
}

func parseAmount(digits string, thousands bool) (float64, bool) {
	cleaned := strings.ReplaceAll(digits, ",", "")
	cleaned = strings.TrimSuffix(cleaned, ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if thousands {
		v *= 1000
	}
	return v, true
}

func currencyFor(symbol string) string {
	switch symbol {
	case "€":
		return "EUR"
	case "£":
		return "GBP"
	default:
		return "USD"
	}
}

func periodFor(token string) string {
	switch strings.ToLower(token) {
	case "hour", "hr":
		return "hour"
	case "month", "mo":
		return "month"
	default:
		return "year"
	}
}
