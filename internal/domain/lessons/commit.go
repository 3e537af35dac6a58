package lessons

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/phrazzld/kotoba-api/internal/domain"
)

// Commitment is the result of applying a lesson commit to a learner.
type Commitment struct {
	// Progress is the updated copy of the learner's progress.
	Progress *domain.LearnerProgress

	// Committed are the subjects introduced by this commit.
	Committed []domain.Subject

	// Skipped are requested subject IDs that already had cards.
	Skipped []int64

	// NewCards are the cards created for Committed.
	NewCards []domain.ReviewCard

	// LevelAdvanced is true when the commit finished a level, either before
	// allocating or after moving the lesson position.
	LevelAdvanced bool

	// RemainingQuota is the quota left today after the commit.
	RemainingQuota int
}

// Changed reports whether the commit modified the learner's progress.
func (c *Commitment) Changed() bool {
	return len(c.Committed) > 0 || c.LevelAdvanced
}

// Commit introduces subjectIDs to the learner. Subjects that already have
// cards are skipped, so replaying a commit is harmless. The remaining IDs
// must be exactly the next subjects Allocate would offer, and the daily
// quota must cover them.
//
// The lesson position advances by the number of subjects committed but
// never stays behind the highest committed position and never moves past
// a subject that is still waiting to be introduced. When no subject of the
// level remains, the position jumps to the level's last position so the
// level completes.
func (a *Allocator) Commit(
	ctx context.Context,
	progress *domain.LearnerProgress,
	curriculum Curriculum,
	subjectIDs []int64,
	now time.Time,
) (*Commitment, error) {
	if err := validateSubjectIDs(subjectIDs); err != nil {
		return nil, err
	}

	carded := progress.CardedSubjects()
	var requested []int64
	var skipped []int64
	for _, id := range subjectIDs {
		if carded[id] {
			skipped = append(skipped, id)
			continue
		}
		requested = append(requested, id)
	}

	if len(requested) == 0 {
		work := progress.Clone()
		today := a.Today(now)
		remaining := max(work.Settings.MaximumLessonsPerDay-work.ConsumedOn(today), 0)
		return &Commitment{Progress: work, Skipped: skipped, RemainingQuota: remaining}, nil
	}

	alloc, err := a.Allocate(ctx, progress, curriculum, len(requested), now)
	if err != nil {
		return nil, err
	}
	if len(alloc.Subjects) < len(requested) {
		return nil, fmt.Errorf("%w: %d requested, %d available", ErrSubjectNotAvailable,
			len(requested), len(alloc.Subjects))
	}

	offered := make(map[int64]bool, len(alloc.Subjects))
	for _, s := range alloc.Subjects {
		offered[s.ID] = true
	}
	for _, id := range requested {
		if !offered[id] {
			return nil, fmt.Errorf("%w: subject %d is not next in the curriculum", ErrSubjectNotAvailable, id)
		}
	}

	work := alloc.Progress
	committed := alloc.Subjects
	newCards := make([]domain.ReviewCard, 0, len(committed)*2)
	for i := range committed {
		cards, err := domain.NewLessonCards(&committed[i], now)
		if err != nil {
			return nil, fmt.Errorf("failed to create cards for subject %d: %w", committed[i].ID, err)
		}
		for _, c := range cards {
			work.PutCard(c)
		}
		newCards = append(newCards, cards...)
	}

	consumed := work.ConsumedOn(alloc.Today) + len(committed)
	work.LessonsToday = domain.LessonsToday{Date: alloc.Today, Count: consumed}

	if err := a.advancePosition(ctx, work, curriculum, committed); err != nil {
		return nil, err
	}

	advanced := alloc.LevelAdvanced
	postAdvanced, err := a.advanceIfComplete(ctx, work, curriculum)
	if err != nil {
		return nil, err
	}
	work.UpdatedAt = now.UTC()

	return &Commitment{
		Progress:       work,
		Committed:      committed,
		Skipped:        skipped,
		NewCards:       newCards,
		LevelAdvanced:  advanced || postAdvanced,
		RemainingQuota: alloc.RemainingQuota - len(committed),
	}, nil
}

// advancePosition moves LastLessonPosition after committed were carded.
func (a *Allocator) advancePosition(
	ctx context.Context,
	p *domain.LearnerProgress,
	curriculum Curriculum,
	committed []domain.Subject,
) error {
	highest := domain.BeforeFirstPosition
	for _, s := range committed {
		highest = max(highest, s.LessonPosition)
	}
	next := max(p.LastLessonPosition+len(committed), highest)

	waiting, err := a.pendingSubjects(ctx, p, curriculum)
	if err != nil {
		return err
	}
	if len(waiting) == 0 {
		maxPosition, err := curriculum.MaxLessonPosition(ctx, p.Level)
		if err != nil {
			return fmt.Errorf("failed to get max lesson position for level %d: %w", p.Level, err)
		}
		p.LastLessonPosition = max(next, maxPosition)
		return nil
	}

	// waiting is sorted, so its first entry has the lowest position.
	p.LastLessonPosition = min(next, waiting[0].LessonPosition-1)
	return nil
}

func validateSubjectIDs(ids []int64) error {
	if len(ids) == 0 {
		return domain.NewValidationError("subject_ids", "must not be empty", domain.ErrInvalidInput)
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return domain.NewValidationError("subject_ids", "must be positive", domain.ErrInvalidInput)
		}
		if seen[id] {
			return domain.NewValidationError("subject_ids", "must not contain duplicates", domain.ErrInvalidInput)
		}
		seen[id] = true
	}
	return nil
}

// SubjectIDs returns the IDs of subjects in ascending order.
func SubjectIDs(subjects []domain.Subject) []int64 {
	ids := make([]int64, len(subjects))
	for i, s := range subjects {
		ids[i] = s.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
