package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/lexharvest/docstream/internal/progress"
)

// Publisher pushes terminal job notifications to an external topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// PublisherSink forwards terminal events (done/error/cancelled) to a message
// topic. Publish failures are logged, never propagated: notification delivery
// is best-effort by contract.
type PublisherSink struct {
	publisher Publisher
	topic     string
	logger    *zap.Logger
}

// NewPublisherSink constructs a PublisherSink for the given topic.
func NewPublisherSink(publisher Publisher, topic string, logger *zap.Logger) *PublisherSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublisherSink{publisher: publisher, topic: topic, logger: logger}
}

// Consume publishes every terminal event in the batch.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s.publisher == nil || s.topic == "" {
		return nil
	}
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageDone, progress.StageError, progress.StageCancelled:
		default:
			continue
		}
		payload := map[string]any{
			"job_id":              evt.JobID,
			"owner_id":            evt.OwnerID,
			"source_id":           evt.SourceID,
			"status":              evt.PublicStatus(),
			"message":             evt.Message,
			"documents_found":     evt.DocumentsFound,
			"documents_processed": evt.DocumentsProcessed,
			"timestamp":           evt.TS,
		}
		if evt.Note != "" {
			payload["error"] = evt.Note
		}
		if _, err := s.publisher.Publish(ctx, s.topic, payload); err != nil {
			s.logger.Warn("terminal event publish failed",
				zap.String("job_id", evt.JobID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PublisherSink) Close(context.Context) error {
	return nil
}
