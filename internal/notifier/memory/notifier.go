// Package memory contains an in-memory notifier for tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// Notifier stores delivered summaries for inspection.
type Notifier struct {
	mu        sync.RWMutex
	summaries []aggregator.RunSummary
}

// New returns a memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Notify records the summary.
func (n *Notifier) Notify(_ context.Context, summary aggregator.RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
	return nil
}

// Summaries returns the recorded deliveries.
func (n *Notifier) Summaries() []aggregator.RunSummary {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]aggregator.RunSummary, len(n.summaries))
	copy(out, n.summaries)
	return out
}
