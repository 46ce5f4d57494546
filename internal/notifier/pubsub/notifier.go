// Package pubsub implements a run-summary notifier on Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// Notifier publishes finished run summaries to a topic.
type Notifier struct {
	topic *pubsub.Topic
}

// New creates a Notifier for the provided topic.
func New(topic *pubsub.Topic) *Notifier {
	return &Notifier{topic: topic}
}

// Notify marshals the summary to JSON and publishes it.
func (n *Notifier) Notify(ctx context.Context, summary aggregator.RunSummary) error {
	if n.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id": summary.RunID,
		},
	}
	if _, err := n.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	return nil
}
