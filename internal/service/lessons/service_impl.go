package lessons

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
	allocator "github.com/phrazzld/kotoba-api/internal/domain/lessons"
	"github.com/phrazzld/kotoba-api/internal/events"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
	"github.com/phrazzld/kotoba-api/internal/service"
	"github.com/phrazzld/kotoba-api/internal/store"
)

// Verify interface compliance at compile time
var _ LessonService = (*lessonServiceImpl)(nil)

type lessonServiceImpl struct {
	subjects  store.SubjectStore
	progress  store.ProgressStore
	allocator *allocator.Allocator
	defaults  service.LearnerDefaults
	emitter   events.EventEmitter
	retry     service.RetryPolicy
	clock     service.Clock
	logger    *slog.Logger
}

// NewLessonService creates a LessonService. It panics on nil stores or
// allocator.
func NewLessonService(
	subjects store.SubjectStore,
	progress store.ProgressStore,
	alloc *allocator.Allocator,
	defaults service.LearnerDefaults,
	opts service.Options,
) LessonService {
	if subjects == nil {
		panic("subjects cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}
	if alloc == nil {
		panic("allocator cannot be nil")
	}
	opts = opts.WithDefaults()

	return &lessonServiceImpl{
		subjects:  subjects,
		progress:  progress,
		allocator: alloc,
		defaults:  defaults,
		emitter:   opts.Emitter,
		retry:     opts.Retry,
		clock:     opts.Clock,
		logger:    opts.Logger.With(slog.String("component", "lesson_service")),
	}
}

// GetNextLessons implements LessonService.GetNextLessons.
func (s *lessonServiceImpl) GetNextLessons(
	ctx context.Context,
	learnerID uuid.UUID,
	count int,
) (*LessonBatch, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock()

	var batch *LessonBatch
	var fromLevel int
	err := s.retry.Run(ctx, s.logger, "get_next_lessons", func(ctx context.Context) error {
		p, err := service.LoadProgress(ctx, s.progress, learnerID, s.defaults, now)
		if err != nil {
			return err
		}
		alloc, err := s.allocator.Allocate(ctx, p, s.subjects, count, now)
		if err != nil {
			return err
		}
		if alloc.LevelAdvanced {
			alloc.Progress.UpdatedAt = now.UTC()
			if err := s.progress.SaveProgress(ctx, alloc.Progress, nil); err != nil {
				return err
			}
		}

		fromLevel = p.Level
		batch = &LessonBatch{
			Subjects:       alloc.Subjects,
			RemainingQuota: alloc.RemainingQuota,
			Level:          alloc.Progress.Level,
			LevelAdvanced:  alloc.LevelAdvanced,
		}
		return nil
	})
	if err != nil {
		log.Error("failed to get next lessons",
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
		return nil, wrapError("get_next_lessons", "failed to allocate lessons", err)
	}

	if batch.LevelAdvanced {
		log.Info("learner advanced a level",
			slog.String("learner_id", learnerID.String()),
			slog.Int("level", batch.Level))
		service.Emit(ctx, s.emitter, s.logger, events.TypeLevelAdvanced, learnerID,
			events.LevelAdvancedPayload{FromLevel: fromLevel, ToLevel: batch.Level}, now)
	}

	log.Debug("allocated lessons",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(batch.Subjects)),
		slog.Int("remaining_quota", batch.RemainingQuota))
	return batch, nil
}

// CommitLessons implements LessonService.CommitLessons.
func (s *lessonServiceImpl) CommitLessons(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectIDs []int64,
) (*CommitResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock()

	var commitment *allocator.Commitment
	var fromLevel int
	err := s.retry.Run(ctx, s.logger, "commit_lessons", func(ctx context.Context) error {
		p, err := service.LoadProgress(ctx, s.progress, learnerID, s.defaults, now)
		if err != nil {
			return err
		}
		c, err := s.allocator.Commit(ctx, p, s.subjects, subjectIDs, now)
		if err != nil {
			return err
		}
		if c.Changed() {
			changed := make([]domain.CardKey, len(c.NewCards))
			for i := range c.NewCards {
				changed[i] = c.NewCards[i].Key()
			}
			if err := s.progress.SaveProgress(ctx, c.Progress, changed); err != nil {
				return err
			}
		}
		fromLevel = p.Level
		commitment = c
		return nil
	})
	if err != nil {
		if errors.Is(err, allocator.ErrSubjectNotAvailable) || errors.Is(err, domain.ErrValidation) {
			log.Warn("rejected lesson commit",
				slog.String("learner_id", learnerID.String()),
				slog.Any("subject_ids", subjectIDs),
				slog.String("error", err.Error()))
		} else {
			log.Error("failed to commit lessons",
				slog.String("learner_id", learnerID.String()),
				slog.String("error", err.Error()))
		}
		return nil, wrapError("commit_lessons", "failed to commit lessons", err)
	}

	result := &CommitResult{
		Committed:          allocator.SubjectIDs(commitment.Committed),
		Skipped:            nonNil(commitment.Skipped),
		Cards:              nonNil(commitment.NewCards),
		Level:              commitment.Progress.Level,
		LastLessonPosition: commitment.Progress.LastLessonPosition,
		LevelAdvanced:      commitment.LevelAdvanced,
		RemainingQuota:     commitment.RemainingQuota,
	}

	if len(result.Committed) > 0 {
		log.Info("committed lessons",
			slog.String("learner_id", learnerID.String()),
			slog.Int("committed", len(result.Committed)),
			slog.Int("skipped", len(result.Skipped)),
			slog.Int("remaining_quota", result.RemainingQuota))
		service.Emit(ctx, s.emitter, s.logger, events.TypeLessonsCommitted, learnerID,
			events.LessonsCommittedPayload{
				SubjectIDs:     result.Committed,
				CardCount:      len(result.Cards),
				RemainingQuota: result.RemainingQuota,
			}, now)
	}
	if result.LevelAdvanced {
		service.Emit(ctx, s.emitter, s.logger, events.TypeLevelAdvanced, learnerID,
			events.LevelAdvancedPayload{FromLevel: fromLevel, ToLevel: result.Level}, now)
	}

	return result, nil
}

// GetSettings implements LessonService.GetSettings.
func (s *lessonServiceImpl) GetSettings(ctx context.Context, learnerID uuid.UUID) (*Settings, error) {
	now := s.clock()
	p, err := service.LoadProgress(ctx, s.progress, learnerID, s.defaults, now)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load settings",
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
		return nil, wrapError("get_settings", "failed to load settings", err)
	}
	return s.settingsOf(p, now), nil
}

// UpdateSettings implements LessonService.UpdateSettings.
func (s *lessonServiceImpl) UpdateSettings(
	ctx context.Context,
	learnerID uuid.UUID,
	settings domain.LessonSettings,
) (*Settings, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	now := s.clock()

	var updated *domain.LearnerProgress
	err := s.retry.Run(ctx, s.logger, "update_settings", func(ctx context.Context) error {
		p, err := service.LoadProgress(ctx, s.progress, learnerID, s.defaults, now)
		if err != nil {
			return err
		}
		p.Settings = settings
		p.UpdatedAt = now.UTC()
		if err := s.progress.SaveProgress(ctx, p, nil); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		log.Error("failed to update settings",
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
		return nil, wrapError("update_settings", "failed to update settings", err)
	}

	log.Info("updated lesson settings",
		slog.String("learner_id", learnerID.String()),
		slog.Int("maximum_lessons_per_day", settings.MaximumLessonsPerDay),
		slog.Int("lessons_per_session", settings.LessonsPerSession))
	return s.settingsOf(updated, now), nil
}

func (s *lessonServiceImpl) settingsOf(p *domain.LearnerProgress, now time.Time) *Settings {
	consumed := p.ConsumedOn(s.allocator.Today(now))
	return &Settings{
		LessonSettings: p.Settings,
		Level:          p.Level,
		LessonsToday:   consumed,
		RemainingQuota: max(p.Settings.MaximumLessonsPerDay-consumed, 0),
	}
}

// wrapError passes expected errors through unchanged and wraps anything
// else in a ServiceError.
func wrapError(operation, message string, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, allocator.ErrSubjectNotAvailable),
		errors.Is(err, service.ErrRetriesExhausted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return service.NewServiceError(operation, message, err)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
