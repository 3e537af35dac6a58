package events

import (
	"context"
	"log/slog"

	"github.com/phrazzld/kotoba-api/internal/platform/logger"
)

// LogHandler writes every event to the log at info level. It is the
// default sink for progress events until something consumes them.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(log *slog.Logger) *LogHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LogHandler{logger: log.With(slog.String("component", "event_log"))}
}

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *Event) error {
	log := logger.FromContextOrDefault(ctx, h.logger)
	log.Info("learner event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.String("learner_id", event.LearnerID.String()),
		slog.String("payload", string(event.Payload)))
	return nil
}
