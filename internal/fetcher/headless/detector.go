package headless

import (
	"bytes"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// Detector decides when a probe response looks like a client-rendered
// shell whose listings only appear after JavaScript runs.
type Detector struct {
	BodyLengthThreshold int
}

// NewDetector creates a promotion detector. A zero threshold defaults to
// 2 KiB, below which a 200 response is suspicious.
func NewDetector(threshold int) *Detector {
	if threshold == 0 {
		threshold = 2048
	}
	return &Detector{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

// ShouldPromote reports whether a headless re-fetch is warranted.
func (d *Detector) ShouldPromote(resp aggregator.FetchResponse) bool {
	if resp.StatusCode != 200 {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < d.BodyLengthThreshold {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}
