package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/store"
)

// Clock returns the current time. Services take one so tests can pin now.
type Clock func() time.Time

// LearnerDefaults is what a learner's progress is seeded with on first use.
type LearnerDefaults struct {
	Settings        domain.LessonSettings
	SchedulerParams domain.SchedulerParams
}

// LoadProgress returns the learner's progress, creating it from defaults
// when the learner has never interacted before.
func LoadProgress(
	ctx context.Context,
	progress store.ProgressStore,
	learnerID uuid.UUID,
	defaults LearnerDefaults,
	now time.Time,
) (*domain.LearnerProgress, error) {
	initial, err := domain.NewLearnerProgress(learnerID, defaults.Settings, defaults.SchedulerParams, now)
	if err != nil {
		return nil, err
	}
	p, err := progress.GetOrCreateProgress(ctx, learnerID, initial)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return p, nil
}
