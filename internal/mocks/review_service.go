package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/service/review"
)

// MockReviewService implements review.ReviewService with function fields.
type MockReviewService struct {
	GetNextReviewFn func(ctx context.Context, learnerID uuid.UUID) (*review.ReviewItem, error)
	SubmitReviewFn  func(
		ctx context.Context, learnerID uuid.UUID, subjectID int64, aspect domain.Aspect, reps int, answer string,
	) (*review.ReviewResult, error)
	RecordOutcomeFn func(
		ctx context.Context, learnerID uuid.UUID, subjectID int64, aspect domain.Aspect, reps int,
		outcome domain.Outcome,
	) (*domain.ReviewCard, error)
	GetStatsFn    func(ctx context.Context, learnerID uuid.UUID, subjectID int64) (*review.SubjectStats, error)
	GetSynonymsFn func(ctx context.Context, learnerID uuid.UUID, subjectID int64) ([]string, error)
	SetSynonymsFn func(ctx context.Context, learnerID uuid.UUID, subjectID int64, synonyms []string) ([]string, error)
}

var _ review.ReviewService = (*MockReviewService)(nil)

// GetNextReview implements review.ReviewService.
func (m *MockReviewService) GetNextReview(ctx context.Context, learnerID uuid.UUID) (*review.ReviewItem, error) {
	if m.GetNextReviewFn == nil {
		return nil, ErrNotConfigured
	}
	return m.GetNextReviewFn(ctx, learnerID)
}

// SubmitReview implements review.ReviewService.
func (m *MockReviewService) SubmitReview(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID int64,
	aspect domain.Aspect,
	reps int,
	answer string,
) (*review.ReviewResult, error) {
	if m.SubmitReviewFn == nil {
		return nil, ErrNotConfigured
	}
	return m.SubmitReviewFn(ctx, learnerID, subjectID, aspect, reps, answer)
}

// RecordOutcome implements review.ReviewService.
func (m *MockReviewService) RecordOutcome(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID int64,
	aspect domain.Aspect,
	reps int,
	outcome domain.Outcome,
) (*domain.ReviewCard, error) {
	if m.RecordOutcomeFn == nil {
		return nil, ErrNotConfigured
	}
	return m.RecordOutcomeFn(ctx, learnerID, subjectID, aspect, reps, outcome)
}

// GetStats implements review.ReviewService.
func (m *MockReviewService) GetStats(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID int64,
) (*review.SubjectStats, error) {
	if m.GetStatsFn == nil {
		return nil, ErrNotConfigured
	}
	return m.GetStatsFn(ctx, learnerID, subjectID)
}

// GetSynonyms implements review.ReviewService.
func (m *MockReviewService) GetSynonyms(ctx context.Context, learnerID uuid.UUID, subjectID int64) ([]string, error) {
	if m.GetSynonymsFn == nil {
		return nil, ErrNotConfigured
	}
	return m.GetSynonymsFn(ctx, learnerID, subjectID)
}

// SetSynonyms implements review.ReviewService.
func (m *MockReviewService) SetSynonyms(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID int64,
	synonyms []string,
) ([]string, error) {
	if m.SetSynonymsFn == nil {
		return nil, ErrNotConfigured
	}
	return m.SetSynonymsFn(ctx, learnerID, subjectID, synonyms)
}
