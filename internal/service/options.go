package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/events"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
)

// Options carries the optional collaborators shared by all services.
// Zero fields fall back to defaults.
type Options struct {
	Emitter events.EventEmitter
	Retry   RetryPolicy
	Clock   Clock
	Logger  *slog.Logger
}

// WithDefaults returns o with every unset field filled in.
func (o Options) WithDefaults() Options {
	if o.Emitter == nil {
		o.Emitter = events.Discard
	}
	if o.Retry.Attempts == 0 {
		o.Retry = DefaultRetryPolicy()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Emit publishes an event for learnerID. The learner's progress is already
// saved when services emit, so a failing handler is logged and not returned.
func Emit(
	ctx context.Context,
	emitter events.EventEmitter,
	log *slog.Logger,
	eventType string,
	learnerID uuid.UUID,
	payload any,
	now time.Time,
) {
	log = logger.FromContextOrDefault(ctx, log)

	event, err := events.NewEvent(eventType, learnerID, payload, now)
	if err != nil {
		log.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit event",
			slog.String("event_type", eventType),
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}
