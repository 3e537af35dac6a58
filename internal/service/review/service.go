// Package review provides the review use cases: picking the next due card,
// grading typed answers, rescheduling cards and per-subject statistics.
package review

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/domain/grading"
)

// ReviewService provides methods for reviewing learned subjects using the
// memory scheduler.
type ReviewService interface {
	// GetNextReview returns the card the learner should review next along
	// with everything needed to present and grade it.
	//
	// Returns:
	//   - ErrNoReviewCards when the learner has not started any lessons
	//   - ErrNoCardsDue when the learner has cards but none are due
	GetNextReview(ctx context.Context, learnerID uuid.UUID) (*ReviewItem, error)

	// SubmitReview grades a typed answer for the learner's card and
	// reschedules it with the resulting outcome. reps is the card's Reps as
	// the client saw it in GetNextReview; the review is only recorded while
	// the stored card still has that many repetitions.
	//
	// Returns:
	//   - store.ErrCardNotFound when the learner has no such card
	//   - ErrCardNotDue when the card is not yet eligible for review
	//   - ErrReviewAlreadyRecorded when reps no longer matches the card
	//   - domain.ErrInvalidInput for an empty answer or unknown aspect
	SubmitReview(
		ctx context.Context,
		learnerID uuid.UUID,
		subjectID int64,
		aspect domain.Aspect,
		reps int,
		answer string,
	) (*ReviewResult, error)

	// RecordOutcome reschedules the learner's card with an outcome decided
	// by the client, for example after the learner overrides a typo. reps
	// works as in SubmitReview.
	RecordOutcome(
		ctx context.Context,
		learnerID uuid.UUID,
		subjectID int64,
		aspect domain.Aspect,
		reps int,
		outcome domain.Outcome,
	) (*domain.ReviewCard, error)

	// GetStats returns the learner's cards for one subject.
	GetStats(ctx context.Context, learnerID uuid.UUID, subjectID int64) (*SubjectStats, error)

	// GetSynonyms returns the learner's custom meanings for a subject.
	GetSynonyms(ctx context.Context, learnerID uuid.UUID, subjectID int64) ([]string, error)

	// SetSynonyms replaces the learner's custom meanings for a subject and
	// returns the cleaned list that was stored.
	SetSynonyms(ctx context.Context, learnerID uuid.UUID, subjectID int64, synonyms []string) ([]string, error)
}

// Common error types for ReviewService
var (
	// ErrNoCardsDue indicates that the learner has cards but none is due.
	ErrNoCardsDue = errors.New("no cards due for review")

	// ErrNoReviewCards indicates that the learner has no cards at all.
	ErrNoReviewCards = errors.New("no review cards")

	// ErrCardNotDue indicates an answer for a card that is not yet eligible.
	ErrCardNotDue = errors.New("card is not due for review")

	// ErrReviewAlreadyRecorded indicates an answer for a card that was
	// reviewed since the client fetched it, such as a replayed or
	// concurrent submission of the same answer.
	ErrReviewAlreadyRecorded = errors.New("review already recorded")

	// ErrTooManySynonyms indicates a synonym list over domain.MaxSynonyms.
	ErrTooManySynonyms = errors.New("too many synonyms")
)

// ReviewItem is the next card to review and its context.
type ReviewItem struct {
	Card     domain.ReviewCard `json:"card"`
	Subject  domain.Subject    `json:"subject"`
	Synonyms []string          `json:"synonyms"`
	Siblings []domain.Subject  `json:"siblings"`
	TotalDue int               `json:"total_due"`
}

// ReviewResult is a graded and rescheduled answer.
type ReviewResult struct {
	Grade grading.Result    `json:"grade"`
	Card  domain.ReviewCard `json:"card"`
}

// CardStats is one card of a subject with its current eligibility.
type CardStats struct {
	domain.ReviewCard
	Eligible bool `json:"eligible"`
}

// SubjectStats is the learner's memory state for one subject.
type SubjectStats struct {
	SubjectID int64       `json:"subject_id"`
	Cards     []CardStats `json:"cards"`
}
