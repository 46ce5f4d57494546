package api

import (
	"context"
	"sync"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// SummaryHolder retains the most recent run summary for the query API. It
// implements aggregator.Notifier so it can sit in the notifier fanout.
type SummaryHolder struct {
	mu     sync.RWMutex
	latest aggregator.RunSummary
	seen   bool
}

// NewSummaryHolder returns an empty holder.
func NewSummaryHolder() *SummaryHolder {
	return &SummaryHolder{}
}

// Notify stores the summary as the latest.
func (h *SummaryHolder) Notify(_ context.Context, summary aggregator.RunSummary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = summary
	h.seen = true
	return nil
}

// Latest returns the most recent summary and whether one exists yet.
func (h *SummaryHolder) Latest() (aggregator.RunSummary, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.seen
}
