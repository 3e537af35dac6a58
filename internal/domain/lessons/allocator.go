// Package lessons decides which new subjects a learner may start and
// applies lesson commits to the learner's progress. It also owns level
// progression, which is triggered whenever a level's lessons run out.
package lessons

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/kotoba-api/internal/domain"
)

// Curriculum is the read-only view of the content store the allocator needs.
type Curriculum interface {
	// MaxLessonPosition returns the highest lesson position at level, or
	// domain.BeforeFirstPosition when the level has no subjects.
	MaxLessonPosition(ctx context.Context, level int) (int, error)

	// ListByLevel returns every subject at level, in any order.
	ListByLevel(ctx context.Context, level int) ([]domain.Subject, error)
}

// Allocation is the result of a lesson query.
type Allocation struct {
	// Subjects are the subjects offered, sorted by lesson position.
	Subjects []domain.Subject

	// RemainingQuota is how many lessons the learner may still start today.
	RemainingQuota int

	// Today is the quota date the allocation was computed for.
	Today string

	// LevelAdvanced is true when the query crossed into a new level.
	LevelAdvanced bool

	// Progress is a copy of the input with any level advance applied.
	// Nothing is persisted by the allocator.
	Progress *domain.LearnerProgress
}

// Allocator computes lesson allocations. Quota days are calendar days in
// its location.
type Allocator struct {
	location *time.Location
}

// NewAllocator creates an Allocator whose quota resets at midnight in loc.
func NewAllocator(loc *time.Location) *Allocator {
	if loc == nil {
		loc = time.UTC
	}
	return &Allocator{location: loc}
}

// Today returns the quota date of now.
func (a *Allocator) Today(now time.Time) string {
	return now.In(a.location).Format(domain.DateLayout)
}

// Allocate returns up to count subjects the learner may start next.
// A count of zero or less means one session's worth. When the daily quota
// is used up the result is empty, which is not an error.
func (a *Allocator) Allocate(
	ctx context.Context,
	progress *domain.LearnerProgress,
	curriculum Curriculum,
	count int,
	now time.Time,
) (*Allocation, error) {
	work := progress.Clone()
	today := a.Today(now)

	available := work.Settings.MaximumLessonsPerDay - work.ConsumedOn(today)
	if available <= 0 {
		return &Allocation{Subjects: []domain.Subject{}, Today: today, Progress: work}, nil
	}

	advanced, err := a.advanceIfComplete(ctx, work, curriculum)
	if err != nil {
		return nil, err
	}

	pending, err := a.pendingSubjects(ctx, work, curriculum)
	if err != nil {
		return nil, err
	}

	if count <= 0 {
		count = work.Settings.LessonsPerSession
	}
	limit := min(count, available, len(pending))

	return &Allocation{
		Subjects:       pending[:limit],
		RemainingQuota: available,
		Today:          today,
		LevelAdvanced:  advanced,
		Progress:       work,
	}, nil
}

// advanceIfComplete applies level progression to p when its current level
// is exhausted.
func (a *Allocator) advanceIfComplete(
	ctx context.Context,
	p *domain.LearnerProgress,
	curriculum Curriculum,
) (bool, error) {
	maxPosition, err := curriculum.MaxLessonPosition(ctx, p.Level)
	if err != nil {
		return false, fmt.Errorf("failed to get max lesson position for level %d: %w", p.Level, err)
	}
	if !ShouldAdvance(p.LastLessonPosition, maxPosition) {
		return false, nil
	}
	Advance(p)
	return true, nil
}

// pendingSubjects lists subjects at the learner's level that are past the
// last lesson position and not yet carded, sorted by position.
func (a *Allocator) pendingSubjects(
	ctx context.Context,
	p *domain.LearnerProgress,
	curriculum Curriculum,
) ([]domain.Subject, error) {
	subjects, err := curriculum.ListByLevel(ctx, p.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects for level %d: %w", p.Level, err)
	}

	carded := p.CardedSubjects()
	pending := make([]domain.Subject, 0, len(subjects))
	for _, s := range subjects {
		if s.LessonPosition > p.LastLessonPosition && !carded[s.ID] {
			pending = append(pending, s)
		}
	}
	domain.SortSubjects(pending)
	return pending, nil
}
