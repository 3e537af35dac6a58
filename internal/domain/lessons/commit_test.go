package lessons

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommit_CreatesCardsAndConsumesQuota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)
	// positions 0..5: radical, kanji, vocabulary, kana_vocabulary, radical, kanji
	curriculum := &fakeCurriculum{subjects: levelSubjects(1, 6, 100)}
	p := newProgress(t)

	c, err := NewAllocator(time.UTC).Commit(ctx, p, curriculum, []int64{101, 100, 102, 103}, now)
	require.NoError(t, err)

	assert.Equal(t, []int64{100, 101, 102, 103}, SubjectIDs(c.Committed))
	// radical 1 + kanji 2 + vocabulary 2 + kana vocabulary 1
	assert.Len(t, c.NewCards, 6)
	assert.Len(t, c.Progress.Cards, 6)
	assert.Nil(t, c.Progress.Card(domain.CardKey{SubjectID: 100, Aspect: domain.AspectReading}))
	assert.NotNil(t, c.Progress.Card(domain.CardKey{SubjectID: 101, Aspect: domain.AspectReading}))
	assert.Nil(t, c.Progress.Card(domain.CardKey{SubjectID: 103, Aspect: domain.AspectReading}))
	for _, card := range c.NewCards {
		assert.Equal(t, domain.CardStateNew, card.State)
		assert.True(t, card.Due.Equal(now))
	}

	assert.Equal(t, 3, c.Progress.LastLessonPosition)
	assert.Equal(t, domain.LessonsToday{Date: "2024-07-01", Count: 4}, c.Progress.LessonsToday)
	assert.Equal(t, 11, c.RemainingQuota)
	assert.True(t, c.Changed())
	assert.Empty(t, p.Cards, "input progress must not be modified")
}

func TestCommit_ReplayIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)
	curriculum := &fakeCurriculum{subjects: levelSubjects(1, 6, 100)}
	a := NewAllocator(time.UTC)

	first, err := a.Commit(ctx, newProgress(t), curriculum, []int64{100, 101}, now)
	require.NoError(t, err)

	replay, err := a.Commit(ctx, first.Progress, curriculum, []int64{100, 101}, now)
	require.NoError(t, err)
	assert.False(t, replay.Changed())
	assert.Equal(t, []int64{100, 101}, replay.Skipped)
	assert.Len(t, replay.Progress.Cards, len(first.Progress.Cards))
	assert.Equal(t, first.Progress.LessonsToday, replay.Progress.LessonsToday)
	assert.Equal(t, first.Progress.LastLessonPosition, replay.Progress.LastLessonPosition)

	// A partially replayed commit only adds the new subject.
	mixed, err := a.Commit(ctx, first.Progress, curriculum, []int64{101, 102}, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{102}, SubjectIDs(mixed.Committed))
	assert.Equal(t, []int64{101}, mixed.Skipped)
	assert.Equal(t, 3, mixed.Progress.LessonsToday.Count)
}

func TestCommit_RejectsSubjectsOutOfOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)
	curriculum := &fakeCurriculum{subjects: append(levelSubjects(1, 6, 100), levelSubjects(2, 3, 200)...)}
	a := NewAllocator(time.UTC)

	_, err := a.Commit(ctx, newProgress(t), curriculum, []int64{102}, now)
	assert.ErrorIs(t, err, ErrSubjectNotAvailable, "skipping ahead is not allowed")

	_, err = a.Commit(ctx, newProgress(t), curriculum, []int64{200}, now)
	assert.ErrorIs(t, err, ErrSubjectNotAvailable, "next level is locked")

	_, err = a.Commit(ctx, newProgress(t), curriculum, []int64{999}, now)
	assert.ErrorIs(t, err, ErrSubjectNotAvailable)
}

func TestCommit_RejectsInvalidInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	curriculum := &fakeCurriculum{subjects: levelSubjects(1, 6, 100)}
	a := NewAllocator(time.UTC)

	for name, ids := range map[string][]int64{
		"empty":     nil,
		"zero":      {0},
		"negative":  {-4},
		"duplicate": {100, 100},
	} {
		_, err := a.Commit(ctx, newProgress(t), curriculum, ids, time.Now())
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}
}

func TestCommit_QuotaExceeded(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)
	curriculum := &fakeCurriculum{subjects: levelSubjects(1, 6, 100)}
	p := newProgress(t)
	p.LessonsToday = domain.LessonsToday{Date: "2024-07-01", Count: 14}

	_, err := NewAllocator(time.UTC).Commit(context.Background(), p, curriculum, []int64{100, 101}, now)
	assert.ErrorIs(t, err, ErrSubjectNotAvailable)
}

func TestCommit_FinishingLevelAdvances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)
	curriculum := &fakeCurriculum{subjects: append(levelSubjects(1, 3, 100), levelSubjects(2, 3, 200)...)}
	a := NewAllocator(time.UTC)

	c, err := a.Commit(ctx, newProgress(t), curriculum, []int64{100, 101, 102}, now)
	require.NoError(t, err)
	assert.True(t, c.LevelAdvanced)
	assert.Equal(t, 2, c.Progress.Level)
	assert.Equal(t, domain.BeforeFirstPosition, c.Progress.LastLessonPosition)

	next, err := a.Allocate(ctx, c.Progress, curriculum, 5, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{200, 201, 202}, SubjectIDs(next.Subjects))
	assert.Equal(t, 12, next.RemainingQuota)
}

func TestCommit_PositionsWithGapsStillCompleteLevel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)
	subjects := []domain.Subject{
		{ID: 1, Type: domain.SubjectTypeRadical, Level: 1, LessonPosition: 0},
		{ID: 2, Type: domain.SubjectTypeKanji, Level: 1, LessonPosition: 5},
		{ID: 3, Type: domain.SubjectTypeVocabulary, Level: 1, LessonPosition: 10},
	}
	curriculum := &fakeCurriculum{subjects: subjects}
	a := NewAllocator(time.UTC)

	c, err := a.Commit(ctx, newProgress(t), curriculum, []int64{1}, now)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Progress.LastLessonPosition)

	c, err = a.Commit(ctx, c.Progress, curriculum, []int64{2}, now)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Progress.LastLessonPosition)

	c, err = a.Commit(ctx, c.Progress, curriculum, []int64{3}, now)
	require.NoError(t, err)
	assert.True(t, c.LevelAdvanced)
	assert.Equal(t, 2, c.Progress.Level)
}

func TestCommit_SharedPositionIsNotLost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)
	subjects := []domain.Subject{
		{ID: 1, Type: domain.SubjectTypeRadical, Level: 1, LessonPosition: 0},
		{ID: 2, Type: domain.SubjectTypeKanji, Level: 1, LessonPosition: 0},
		{ID: 3, Type: domain.SubjectTypeVocabulary, Level: 1, LessonPosition: 1},
	}
	curriculum := &fakeCurriculum{subjects: subjects}
	a := NewAllocator(time.UTC)

	c, err := a.Commit(ctx, newProgress(t), curriculum, []int64{1}, now)
	require.NoError(t, err)

	next, err := a.Allocate(ctx, c.Progress, curriculum, 5, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, SubjectIDs(next.Subjects))
}
