package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
)

// ProgressStore persists each learner's progress document: level, lesson
// position, quota, settings, scheduler params and cards.
type ProgressStore interface {
	// GetOrCreateProgress returns the learner's progress, creating and
	// storing defaults when the learner has none yet. Creation is
	// idempotent under concurrent calls.
	GetOrCreateProgress(
		ctx context.Context,
		learnerID uuid.UUID,
		defaults *domain.LearnerProgress,
	) (*domain.LearnerProgress, error)

	// SaveProgress writes progress and the cards named in changed as one
	// atomic update. It succeeds only if the stored version still equals
	// progress.Version, and increments progress.Version on success.
	// Returns ErrConcurrentUpdate on a version mismatch and
	// ErrProgressNotFound if the learner has no record.
	SaveProgress(ctx context.Context, progress *domain.LearnerProgress, changed []domain.CardKey) error
}
