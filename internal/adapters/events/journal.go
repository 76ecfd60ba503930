package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/viralforge/economy-bridge/internal/domain"
	"github.com/viralforge/economy-bridge/internal/ports"
)

// LoggingJournal records callbacks in the structured log when no database is configured.
type LoggingJournal struct {
	logger *slog.Logger
}

func NewLoggingJournal(logger *slog.Logger) *LoggingJournal {
	return &LoggingJournal{logger: logger}
}

func (j *LoggingJournal) Record(ctx context.Context, rec domain.CallbackRecord) error {
	j.logger.InfoContext(ctx, "callback processed",
		"module", "events.logging_journal",
		"layer", "adapter",
		"notification_id", rec.NotificationID,
		"region_id", rec.RegionID.String(),
		"callback_method", rec.Method,
		"accepted", rec.Accepted,
		"success", rec.Success,
		"error_code", rec.Error,
		"received_at", rec.ReceivedAt.Format(time.RFC3339Nano),
	)
	return nil
}

var _ ports.CallbackJournal = (*LoggingJournal)(nil)
