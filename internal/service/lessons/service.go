// Package lessons provides the lesson use cases: which subjects a learner
// may start next, committing started subjects, and the learner's lesson
// settings.
package lessons

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
)

// LessonService provides lesson allocation and commits for learners.
type LessonService interface {
	// GetNextLessons returns up to count subjects the learner may start.
	// A count of zero uses the learner's session size. When the daily
	// quota is used up the batch is empty, which is not an error.
	//
	// Nothing about the lessons themselves is written. The learner is
	// created on first use, and a completed level is advanced and saved.
	GetNextLessons(ctx context.Context, learnerID uuid.UUID, count int) (*LessonBatch, error)

	// CommitLessons introduces subjectIDs to the learner, creating their
	// review cards and consuming daily quota. Subjects that already have
	// cards are skipped, so a retried commit is harmless.
	//
	// Returns:
	//   - domain.ErrInvalidInput for empty, non-positive or duplicate IDs
	//   - lessons.ErrSubjectNotAvailable (domain package) when the IDs are
	//     not the next subjects in the curriculum or exceed the quota
	//   - service.ErrRetriesExhausted when concurrent writes keep conflicting
	CommitLessons(ctx context.Context, learnerID uuid.UUID, subjectIDs []int64) (*CommitResult, error)

	// GetSettings returns the learner's lesson settings and today's quota.
	GetSettings(ctx context.Context, learnerID uuid.UUID) (*Settings, error)

	// UpdateSettings replaces the learner's lesson settings.
	UpdateSettings(ctx context.Context, learnerID uuid.UUID, settings domain.LessonSettings) (*Settings, error)
}

// LessonBatch is the answer to a next-lessons query.
type LessonBatch struct {
	Subjects       []domain.Subject `json:"subjects"`
	RemainingQuota int              `json:"remaining_quota"`
	Level          int              `json:"level"`
	LevelAdvanced  bool             `json:"level_advanced"`
}

// CommitResult describes a completed lesson commit.
type CommitResult struct {
	Committed          []int64             `json:"committed"`
	Skipped            []int64             `json:"skipped"`
	Cards              []domain.ReviewCard `json:"cards"`
	Level              int                 `json:"level"`
	LastLessonPosition int                 `json:"last_lesson_position"`
	LevelAdvanced      bool                `json:"level_advanced"`
	RemainingQuota     int                 `json:"remaining_quota"`
}

// Settings is a learner's lesson configuration together with today's usage.
type Settings struct {
	domain.LessonSettings
	Level          int `json:"level"`
	LessonsToday   int `json:"lessons_today"`
	RemainingQuota int `json:"remaining_quota"`
}
