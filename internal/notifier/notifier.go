// Package notifier composes run-summary notifiers.
package notifier

import (
	"context"
	"errors"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

type fanout struct {
	targets []aggregator.Notifier
}

// Fanout delivers each summary to every target. Delivery failures are
// joined so the caller can log them together; every target is still
// attempted.
func Fanout(targets ...aggregator.Notifier) aggregator.Notifier {
	return &fanout{targets: targets}
}

func (f *fanout) Notify(ctx context.Context, summary aggregator.RunSummary) error {
	var errs []error
	for _, target := range f.targets {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
