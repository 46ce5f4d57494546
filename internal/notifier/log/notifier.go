// Package log implements a notifier that writes run summaries to the
// structured log. Used when no Pub/Sub topic is configured.
package log

import (
	"context"

	"go.uber.org/zap"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// Notifier logs run summaries at info level.
type Notifier struct {
	logger *zap.Logger
}

// New returns a log Notifier.
func New(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger}
}

// Notify writes the summary as a single structured log entry.
func (n *Notifier) Notify(_ context.Context, summary aggregator.RunSummary) error {
	n.logger.Info("crawl run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("total_jobs", summary.TotalJobs),
		zap.Int("new_jobs", summary.NewJobs),
		zap.Int("updated_jobs", summary.UpdatedJobs),
		zap.Int("companies_crawled", summary.CompaniesCrawled),
		zap.Int("error_count", summary.ErrorCount),
	)
	return nil
}
