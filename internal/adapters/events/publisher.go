package events

import (
	"context"
	"log/slog"

	"github.com/viralforge/economy-bridge/internal/ports"
)

// LoggingPublisher writes events to the log instead of a broker. It backs local runs
// where no simulator consumer is attached.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	p.logger.InfoContext(ctx, "published event",
		"module", "events.logging_publisher",
		"layer", "adapter",
		"event_type", eventType,
		"partition_key", partitionKey,
		"payload", string(payload),
	)
	return nil
}

var _ ports.EventPublisher = (*LoggingPublisher)(nil)
