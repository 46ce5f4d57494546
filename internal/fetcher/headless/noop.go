package headless

import (
	"context"
	"errors"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// Noop implements aggregator.Fetcher but always fails, for deployments
// where headless browsing is disabled.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch returns an error since this is a stub implementation.
func (Noop) Fetch(_ context.Context, _ aggregator.FetchRequest) (aggregator.FetchResponse, error) {
	return aggregator.FetchResponse{}, errors.New("headless fetcher not configured")
}
