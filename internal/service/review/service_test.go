package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/domain/queue"
	"github.com/phrazzld/kotoba-api/internal/domain/srs"
	"github.com/phrazzld/kotoba-api/internal/events"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
	"github.com/phrazzld/kotoba-api/internal/platform/memory"
	"github.com/phrazzld/kotoba-api/internal/service"
	"github.com/phrazzld/kotoba-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)

var (
	radicalSlide = domain.Subject{
		ID: 5, Type: domain.SubjectTypeRadical, Level: 1, LessonPosition: 0, Characters: "ノ",
		Meanings: []domain.Meaning{{Meaning: "Slide", Primary: true, AcceptedAnswer: true}},
	}
	kanjiPerson = domain.Subject{
		ID: 10, Type: domain.SubjectTypeKanji, Level: 1, LessonPosition: 1, Characters: "人",
		Meanings: []domain.Meaning{{Meaning: "Person", Primary: true, AcceptedAnswer: true}},
		Readings: []domain.Reading{
			{Reading: "じん", Primary: true, AcceptedAnswer: true, Type: "onyomi"},
			{Reading: "にん", AcceptedAnswer: true, Type: "onyomi"},
			{Reading: "ひと", Type: "kunyomi"},
		},
	}
	vocabPerson = domain.Subject{
		ID: 20, Type: domain.SubjectTypeVocabulary, Level: 1, LessonPosition: 2, Characters: "人",
		Meanings: []domain.Meaning{{Meaning: "Person", Primary: true, AcceptedAnswer: true}},
		Readings: []domain.Reading{{Reading: "ひと", Primary: true, AcceptedAnswer: true}},
	}
)

type recordingHandler struct {
	mu     sync.Mutex
	events []*events.Event
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

type fixture struct {
	subjects *memory.SubjectStore
	progress *memory.ProgressStore
	synonyms *memory.SynonymStore
	handler  *recordingHandler
	service  ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, _ := logger.GetTestLogger(t)

	handler := &recordingHandler{}
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(handler)

	subjects := memory.NewSubjectStore(radicalSlide, kanjiPerson, vocabPerson)
	f := &fixture{
		subjects: subjects,
		progress: memory.NewProgressStore(),
		synonyms: memory.NewSynonymStore(subjects),
		handler:  handler,
	}
	f.service = NewReviewService(
		f.subjects,
		f.progress,
		f.synonyms,
		srs.NewDefaultService(),
		queue.DefaultSelector(),
		service.LearnerDefaults{
			Settings:        domain.DefaultLessonSettings(),
			SchedulerParams: srs.DefaultSchedulerParams(),
		},
		service.Options{
			Emitter: emitter,
			Retry:   service.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond},
			Clock:   func() time.Time { return testNow },
			Logger:  log,
		},
	)
	return f
}

// cardsFor returns the lesson cards of subject, all due at due.
func cardsFor(t *testing.T, subject domain.Subject, due time.Time) []domain.ReviewCard {
	t.Helper()
	cards, err := domain.NewLessonCards(&subject, due)
	require.NoError(t, err)
	return cards
}

// seed stores a learner that already owns cards.
func (f *fixture) seed(t *testing.T, cards ...[]domain.ReviewCard) uuid.UUID {
	t.Helper()
	learnerID := uuid.New()
	p, err := domain.NewLearnerProgress(learnerID, domain.DefaultLessonSettings(),
		srs.DefaultSchedulerParams(), testNow.Add(-24*time.Hour))
	require.NoError(t, err)
	for _, set := range cards {
		p.Cards = append(p.Cards, set...)
	}
	_, err = f.progress.GetOrCreateProgress(context.Background(), learnerID, p)
	require.NoError(t, err)
	return learnerID
}

func TestGetNextReview_NoCards(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetNextReview(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoReviewCards)
}

func TestGetNextReview_NothingDue(t *testing.T) {
	f := newFixture(t)
	learnerID := f.seed(t, cardsFor(t, kanjiPerson, testNow.Add(72*time.Hour)))

	_, err := f.service.GetNextReview(context.Background(), learnerID)
	assert.ErrorIs(t, err, ErrNoCardsDue)
}

func TestGetNextReview_ReturnsEarliestCardWithContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := f.seed(t,
		cardsFor(t, kanjiPerson, testNow.Add(-2*time.Hour)),
		cardsFor(t, vocabPerson, testNow.Add(-3*time.Hour)),
		cardsFor(t, radicalSlide, testNow.Add(48*time.Hour)),
	)
	_, err := f.service.SetSynonyms(ctx, learnerID, vocabPerson.ID, []string{"human"})
	require.NoError(t, err)

	item, err := f.service.GetNextReview(ctx, learnerID)
	require.NoError(t, err)

	assert.Equal(t, domain.CardKey{SubjectID: vocabPerson.ID, Aspect: domain.AspectMeaning}, item.Card.Key())
	assert.Equal(t, vocabPerson.ID, item.Subject.ID)
	assert.Equal(t, []string{"human"}, item.Synonyms)
	require.Len(t, item.Siblings, 1)
	assert.Equal(t, kanjiPerson.ID, item.Siblings[0].ID)
	assert.Equal(t, 4, item.TotalDue)

	again, err := f.service.GetNextReview(ctx, learnerID)
	require.NoError(t, err)
	assert.Equal(t, item.Card.Key(), again.Card.Key(), "selection is stable within an instant")
}

func TestGetNextReview_MissingSubject(t *testing.T) {
	f := newFixture(t)
	orphan := domain.Subject{ID: 77, Type: domain.SubjectTypeRadical, Level: 1}
	learnerID := f.seed(t, cardsFor(t, orphan, testNow))

	_, err := f.service.GetNextReview(context.Background(), learnerID)
	assert.ErrorIs(t, err, store.ErrSubjectNotFound)
}

func TestSubmitReview_GoodMeaning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := f.seed(t, cardsFor(t, kanjiPerson, testNow))

	result, err := f.service.SubmitReview(ctx, learnerID, kanjiPerson.ID, domain.AspectMeaning, 0, "  PERSON ")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeGood, result.Grade.Outcome)
	assert.False(t, result.Grade.ConfusedWithSibling)
	assert.Equal(t, domain.CardStateReview, result.Card.State)
	assert.Equal(t, 1, result.Card.Reps)
	assert.Equal(t, 3, result.Card.ScheduledDays)
	assert.True(t, result.Card.Due.Equal(testNow.AddDate(0, 0, 3)))

	stored := f.progress.Snapshot(learnerID).Card(result.Card.Key())
	require.NotNil(t, stored)
	assert.Equal(t, result.Card.Due, stored.Due)
	assert.Equal(t, domain.CardStateNew, f.progress.Snapshot(learnerID).
		Card(domain.CardKey{SubjectID: kanjiPerson.ID, Aspect: domain.AspectReading}).State,
		"only the reviewed card changes")
	assert.Equal(t, 1, f.handler.count())

	_, err = f.service.SubmitReview(ctx, learnerID, kanjiPerson.ID, domain.AspectMeaning, 0, "person")
	assert.ErrorIs(t, err, ErrReviewAlreadyRecorded, "a repeated submission must not grade twice")

	_, err = f.service.SubmitReview(ctx, learnerID, kanjiPerson.ID, domain.AspectMeaning, 1, "person")
	assert.ErrorIs(t, err, ErrCardNotDue)
	assert.Equal(t, 1, f.progress.Snapshot(learnerID).Card(result.Card.Key()).Reps)
}

func TestSubmitReview_SynonymAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := f.seed(t, cardsFor(t, kanjiPerson, testNow))

	_, err := f.service.SetSynonyms(ctx, learnerID, kanjiPerson.ID, []string{"human being"})
	require.NoError(t, err)

	result, err := f.service.SubmitReview(ctx, learnerID, kanjiPerson.ID, domain.AspectMeaning, 0, "Human  Being")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeGood, result.Grade.Outcome)
}

func TestSubmitReview_ReadingConfusedWithSibling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := f.seed(t, cardsFor(t, kanjiPerson, testNow), cardsFor(t, vocabPerson, testNow))

	// The kanji's reading given for the word written with the same kanji.
	result, err := f.service.SubmitReview(ctx, learnerID, vocabPerson.ID, domain.AspectReading, 0, "じん")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeBad, result.Grade.Outcome)
	assert.True(t, result.Grade.ConfusedWithSibling)
	assert.Equal(t, kanjiPerson.ID, result.Grade.SiblingSubjectID)
	assert.False(t, result.Grade.NonAcceptedReading)
	assert.Equal(t, []string{"ひと"}, result.Grade.Expected)

	// Scheduling treats it as any other wrong answer.
	assert.Equal(t, domain.CardStateLearning, result.Card.State)
	assert.Equal(t, 1, result.Card.Lapses)
	assert.True(t, result.Card.Due.Equal(testNow.Add(srs.DefaultNewAgainDelay)))
}

func TestSubmitReview_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := f.seed(t, cardsFor(t, kanjiPerson, testNow))

	tests := []struct {
		name      string
		subjectID int64
		aspect    domain.Aspect
		reps      int
		answer    string
		wantErr   error
	}{
		{"empty answer", kanjiPerson.ID, domain.AspectMeaning, 0, "   ", domain.ErrInvalidInput},
		{"unknown aspect", kanjiPerson.ID, domain.Aspect("writing"), 0, "person", domain.ErrInvalidInput},
		{"zero subject", 0, domain.AspectMeaning, 0, "person", domain.ErrInvalidInput},
		{"unknown subject", 999, domain.AspectMeaning, 0, "person", store.ErrSubjectNotFound},
		{"subject without card", vocabPerson.ID, domain.AspectMeaning, 0, "person", store.ErrCardNotFound},
		{"stale reps", kanjiPerson.ID, domain.AspectMeaning, 1, "person", ErrReviewAlreadyRecorded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SubmitReview(ctx, learnerID, tt.subjectID, tt.aspect, tt.reps, tt.answer)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	for _, card := range f.progress.Snapshot(learnerID).Cards {
		assert.Equal(t, 0, card.Reps, "rejected answers must not change cards")
	}
	assert.Equal(t, 0, f.handler.count())
}

func TestSubmitReview_ConcurrentSubmissionsGradeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := f.seed(t, cardsFor(t, kanjiPerson, testNow))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.SubmitReview(ctx, learnerID, kanjiPerson.ID, domain.AspectMeaning, 0, "person")
		}(i)
	}
	wg.Wait()

	assertGradedOnce(t, errs)
	card := f.progress.Snapshot(learnerID).Card(domain.CardKey{SubjectID: kanjiPerson.ID, Aspect: domain.AspectMeaning})
	assert.Equal(t, 1, card.Reps)
}

// A wrong answer brings the card back within a minute, so it is still
// eligible when the same answer arrives again.
func TestSubmitReview_RepeatedWrongAnswerGradesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := f.seed(t, cardsFor(t, kanjiPerson, testNow))
	key := domain.CardKey{SubjectID: kanjiPerson.ID, Aspect: domain.AspectMeaning}

	result, err := f.service.SubmitReview(ctx, learnerID, kanjiPerson.ID, domain.AspectMeaning, 0, "dog")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeBad, result.Grade.Outcome)
	require.True(t, queue.DefaultSelector().Eligible(&result.Card, testNow))

	_, err = f.service.SubmitReview(ctx, learnerID, kanjiPerson.ID, domain.AspectMeaning, 0, "dog")
	assert.ErrorIs(t, err, ErrReviewAlreadyRecorded)
	_, err = f.service.RecordOutcome(ctx, learnerID, kanjiPerson.ID, domain.AspectMeaning, 0, domain.OutcomeBad)
	assert.ErrorIs(t, err, ErrReviewAlreadyRecorded)

	card := f.progress.Snapshot(learnerID).Card(key)
	assert.Equal(t, 1, card.Reps)
	assert.Equal(t, 1, card.Lapses)
	assert.Equal(t, 1, f.handler.count())

	// Answering the card as fetched again is a new review.
	again, err := f.service.SubmitReview(ctx, learnerID, kanjiPerson.ID, domain.AspectMeaning, card.Reps, "dog")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Card.Reps)
	assert.Equal(t, 2, again.Card.Lapses)
}

func TestSubmitReview_ConcurrentWrongAnswersGradeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := f.seed(t, cardsFor(t, kanjiPerson, testNow))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.SubmitReview(ctx, learnerID, kanjiPerson.ID, domain.AspectReading, 0, "ひと")
		}(i)
	}
	wg.Wait()

	assertGradedOnce(t, errs)
	card := f.progress.Snapshot(learnerID).Card(domain.CardKey{SubjectID: kanjiPerson.ID, Aspect: domain.AspectReading})
	assert.Equal(t, 1, card.Reps)
	assert.Equal(t, 1, card.Lapses)
}

// assertGradedOnce checks that exactly one of the racing submissions was
// recorded and the rest were turned away.
func assertGradedOnce(t *testing.T, errs []error) {
	t.Helper()
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrReviewAlreadyRecorded) || errors.Is(err, service.ErrRetriesExhausted), err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestRecordOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := f.seed(t, cardsFor(t, kanjiPerson, testNow))

	card, err := f.service.RecordOutcome(ctx, learnerID, kanjiPerson.ID, domain.AspectReading, 0, domain.OutcomeBad)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStateLearning, card.State)
	assert.Equal(t, 1, card.Reps)
	assert.Equal(t, 1, card.Lapses)

	_, err = f.service.RecordOutcome(ctx, learnerID, kanjiPerson.ID, domain.AspectReading, 1, domain.Outcome("meh"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Still due a minute later, so the learner can retry right away.
	good, err := f.service.RecordOutcome(ctx, learnerID, kanjiPerson.ID, domain.AspectReading, 1, domain.OutcomeGood)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStateReview, good.State)
	assert.Equal(t, 2, good.Reps)
	assert.Equal(t, 1, good.Lapses)
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := f.seed(t, cardsFor(t, kanjiPerson, testNow), cardsFor(t, vocabPerson, testNow.Add(72*time.Hour)))

	stats, err := f.service.GetStats(ctx, learnerID, kanjiPerson.ID)
	require.NoError(t, err)
	assert.Equal(t, kanjiPerson.ID, stats.SubjectID)
	require.Len(t, stats.Cards, 2)
	for _, c := range stats.Cards {
		assert.True(t, c.Eligible)
		assert.Equal(t, domain.CardStateNew, c.State)
	}

	stats, err = f.service.GetStats(ctx, learnerID, vocabPerson.ID)
	require.NoError(t, err)
	assert.False(t, stats.Cards[0].Eligible)

	_, err = f.service.GetStats(ctx, learnerID, radicalSlide.ID)
	assert.ErrorIs(t, err, store.ErrCardNotFound)

	_, err = f.service.GetStats(ctx, learnerID, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSynonyms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learnerID := uuid.New()

	cleaned, err := f.service.SetSynonyms(ctx, learnerID, kanjiPerson.ID, []string{" human ", "", "human", "folk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"human", "folk"}, cleaned)

	got, err := f.service.GetSynonyms(ctx, learnerID, kanjiPerson.ID)
	require.NoError(t, err)
	assert.Equal(t, cleaned, got)

	_, err = f.service.SetSynonyms(ctx, learnerID, 999, []string{"x"})
	assert.ErrorIs(t, err, store.ErrSubjectNotFound)

	tooMany := make([]string, domain.MaxSynonyms+1)
	for i := range tooMany {
		tooMany[i] = string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	_, err = f.service.SetSynonyms(ctx, learnerID, kanjiPerson.ID, tooMany)
	assert.ErrorIs(t, err, ErrTooManySynonyms)
}

func TestNewReviewService_PanicsOnNilDependencies(t *testing.T) {
	subjects := memory.NewSubjectStore()
	progress := memory.NewProgressStore()
	synonyms := memory.NewSynonymStore(nil)
	scheduler := srs.NewDefaultService()
	defaults := service.LearnerDefaults{}

	assert.Panics(t, func() {
		NewReviewService(nil, progress, synonyms, scheduler, nil, defaults, service.Options{})
	})
	assert.Panics(t, func() {
		NewReviewService(subjects, nil, synonyms, scheduler, nil, defaults, service.Options{})
	})
	assert.Panics(t, func() {
		NewReviewService(subjects, progress, nil, scheduler, nil, defaults, service.Options{})
	})
	assert.Panics(t, func() {
		NewReviewService(subjects, progress, synonyms, nil, nil, defaults, service.Options{})
	})
	assert.NotPanics(t, func() {
		NewReviewService(subjects, progress, synonyms, scheduler, nil, defaults, service.Options{})
	})
}
