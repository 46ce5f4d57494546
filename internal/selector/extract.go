package selector

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/openroles/careers-crawler/internal/aggregator"
	"github.com/openroles/careers-crawler/internal/salary"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Extract pulls raw postings out of the elements matched by sel. Each
// matched node yields at most one posting: title from the most specific
// title-ish child, link from the nearest anchor resolved against baseURL,
// and any salary-looking text fragment.
func Extract(doc *goquery.Document, sel, baseURL string) []aggregator.RawPosting {
	base, _ := url.Parse(baseURL)

	var postings []aggregator.RawPosting
	findSafe(doc, sel).Each(func(_ int, node *goquery.Selection) {
		title := extractTitle(node)
		if title == "" {
			return
		}
		postings = append(postings, aggregator.RawPosting{
			Title:      title,
			URL:        extractLink(node, base),
			SalaryText: salary.ExtractText(node.Text()),
		})
	})
	return postings
}

// extractTitle prefers an explicit title element, then the first anchor,
// then the node's own first text line.
func extractTitle(node *goquery.Selection) string {
	if titled := node.Find(`[class*="title"], h1, h2, h3, h4, h5`).First(); titled.Length() > 0 {
		if t := squash(titled.Text()); t != "" {
			return t
		}
	}
	if anchor := node.Find("a").First(); anchor.Length() > 0 {
		if t := squash(anchor.Text()); t != "" {
			return t
		}
	}
	text := strings.TrimSpace(node.Text())
	if line, _, found := strings.Cut(text, "\n"); found {
		text = line
	}
	return squash(text)
}

// extractLink takes the node's own href when it is an anchor, else the
// first child anchor, resolved absolute.
func extractLink(node *goquery.Selection, base *url.URL) string {
	href, ok := node.Attr("href")
	if !ok {
		href, ok = node.Find("a[href]").First().Attr("href")
	}
	if !ok || href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		return base.ResolveReference(ref).String()
	}
	return ref.String()
}

func squash(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
