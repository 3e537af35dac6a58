package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/domain/grading"
	"github.com/phrazzld/kotoba-api/internal/domain/queue"
	"github.com/phrazzld/kotoba-api/internal/domain/srs"
	"github.com/phrazzld/kotoba-api/internal/events"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
	"github.com/phrazzld/kotoba-api/internal/service"
	"github.com/phrazzld/kotoba-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// Verify interface compliance at compile time
var _ ReviewService = (*reviewServiceImpl)(nil)

type reviewServiceImpl struct {
	subjects  store.SubjectStore
	progress  store.ProgressStore
	synonyms  store.SynonymStore
	scheduler srs.Service
	selector  *queue.Selector
	defaults  service.LearnerDefaults
	emitter   events.EventEmitter
	retry     service.RetryPolicy
	clock     service.Clock
	logger    *slog.Logger
}

// NewReviewService creates a ReviewService. It panics on nil stores or
// scheduler; a nil selector uses queue.DefaultSelector.
func NewReviewService(
	subjects store.SubjectStore,
	progress store.ProgressStore,
	synonyms store.SynonymStore,
	scheduler srs.Service,
	selector *queue.Selector,
	defaults service.LearnerDefaults,
	opts service.Options,
) ReviewService {
	if subjects == nil {
		panic("subjects cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}
	if synonyms == nil {
		panic("synonyms cannot be nil")
	}
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if selector == nil {
		selector = queue.DefaultSelector()
	}
	opts = opts.WithDefaults()

	return &reviewServiceImpl{
		subjects:  subjects,
		progress:  progress,
		synonyms:  synonyms,
		scheduler: scheduler,
		selector:  selector,
		defaults:  defaults,
		emitter:   opts.Emitter,
		retry:     opts.Retry,
		clock:     opts.Clock,
		logger:    opts.Logger.With(slog.String("component", "review_service")),
	}
}

// subjectContext is what grading and presenting a card needs besides the card.
type subjectContext struct {
	subject  *domain.Subject
	synonyms []string
	siblings []domain.Subject
}

// loadSubjectContext fetches the subject with its siblings, and the
// learner's synonyms, concurrently.
func (s *reviewServiceImpl) loadSubjectContext(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID int64,
) (*subjectContext, error) {
	var out subjectContext
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		subject, err := s.subjects.GetByID(gctx, subjectID)
		if err != nil {
			return fmt.Errorf("failed to get subject %d: %w", subjectID, err)
		}
		out.subject = subject
		if subject.Characters == "" {
			out.siblings = []domain.Subject{}
			return nil
		}
		same, err := s.subjects.FindByCharacters(gctx, subject.Characters)
		if err != nil {
			return fmt.Errorf("failed to find siblings of subject %d: %w", subjectID, err)
		}
		out.siblings = make([]domain.Subject, 0, len(same))
		for _, sibling := range same {
			if sibling.ID != subject.ID {
				out.siblings = append(out.siblings, sibling)
			}
		}
		return nil
	})

	g.Go(func() error {
		synonyms, err := s.synonyms.GetSynonyms(gctx, learnerID, subjectID)
		if err != nil {
			return fmt.Errorf("failed to get synonyms for subject %d: %w", subjectID, err)
		}
		out.synonyms = synonyms
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetNextReview implements ReviewService.GetNextReview.
func (s *reviewServiceImpl) GetNextReview(ctx context.Context, learnerID uuid.UUID) (*ReviewItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock()

	p, err := service.LoadProgress(ctx, s.progress, learnerID, s.defaults, now)
	if err != nil {
		log.Error("failed to load progress",
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
		return nil, wrapError("get_next_review", "failed to load progress", err)
	}
	if len(p.Cards) == 0 {
		log.Debug("learner has no review cards", slog.String("learner_id", learnerID.String()))
		return nil, ErrNoReviewCards
	}

	card, ok := s.selector.SelectNextDue(p.Cards, now)
	if !ok {
		log.Debug("no cards due for review", slog.String("learner_id", learnerID.String()))
		return nil, ErrNoCardsDue
	}

	sc, err := s.loadSubjectContext(ctx, learnerID, card.SubjectID)
	if err != nil {
		log.Error("failed to load review context",
			slog.String("learner_id", learnerID.String()),
			slog.String("card", card.Key().String()),
			slog.String("error", err.Error()))
		return nil, wrapError("get_next_review", "failed to load review context", err)
	}

	item := &ReviewItem{
		Card:     *card.Clone(),
		Subject:  *sc.subject,
		Synonyms: sc.synonyms,
		Siblings: sc.siblings,
		TotalDue: s.selector.DueCount(p.Cards, now),
	}

	log.Debug("selected next review",
		slog.String("learner_id", learnerID.String()),
		slog.String("card", card.Key().String()),
		slog.Int("total_due", item.TotalDue))
	return item, nil
}

// SubmitReview implements ReviewService.SubmitReview.
func (s *reviewServiceImpl) SubmitReview(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID int64,
	aspect domain.Aspect,
	reps int,
	answer string,
) (*ReviewResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if err := validateKey(subjectID, aspect); err != nil {
		return nil, err
	}

	sc, err := s.loadSubjectContext(ctx, learnerID, subjectID)
	if err != nil {
		return nil, wrapError("submit_review", "failed to load review context", err)
	}

	var graded *grading.Result
	key := domain.CardKey{SubjectID: subjectID, Aspect: aspect}
	card, err := s.reschedule(ctx, learnerID, key, reps, func(card *domain.ReviewCard) (domain.Outcome, error) {
		result, err := grading.Grade(card, answer, sc.subject, sc.synonyms, sc.siblings)
		if err != nil {
			return "", err
		}
		graded = result
		return result.Outcome, nil
	})
	if err != nil {
		return nil, wrapError("submit_review", "failed to record review", err)
	}

	if graded.ConfusedWithSibling {
		log.Debug("reading confused with sibling",
			slog.String("learner_id", learnerID.String()),
			slog.Int64("subject_id", subjectID),
			slog.Int64("sibling_subject_id", graded.SiblingSubjectID))
	}
	return &ReviewResult{Grade: *graded, Card: *card}, nil
}

// RecordOutcome implements ReviewService.RecordOutcome.
func (s *reviewServiceImpl) RecordOutcome(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID int64,
	aspect domain.Aspect,
	reps int,
	outcome domain.Outcome,
) (*domain.ReviewCard, error) {
	if err := validateKey(subjectID, aspect); err != nil {
		return nil, err
	}
	if !outcome.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidOutcome, outcome)
	}

	key := domain.CardKey{SubjectID: subjectID, Aspect: aspect}
	card, err := s.reschedule(ctx, learnerID, key, reps, func(*domain.ReviewCard) (domain.Outcome, error) {
		return outcome, nil
	})
	if err != nil {
		return nil, wrapError("record_outcome", "failed to record outcome", err)
	}
	return card, nil
}

// reschedule runs one review of the learner's card as an optimistic
// read-modify-write. The card must still have reps repetitions, so each
// fetched card is reviewed at most once whatever its outcome. decide is
// called on every attempt with the current card and returns the outcome to
// apply.
func (s *reviewServiceImpl) reschedule(
	ctx context.Context,
	learnerID uuid.UUID,
	key domain.CardKey,
	reps int,
	decide func(card *domain.ReviewCard) (domain.Outcome, error),
) (*domain.ReviewCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock()

	var next *domain.ReviewCard
	var outcome domain.Outcome
	err := s.retry.Run(ctx, s.logger, "reschedule", func(ctx context.Context) error {
		p, err := service.LoadProgress(ctx, s.progress, learnerID, s.defaults, now)
		if err != nil {
			return err
		}
		card := p.Card(key)
		if card == nil {
			return fmt.Errorf("%w: %s", store.ErrCardNotFound, key)
		}
		if card.Reps != reps {
			return fmt.Errorf("%w: %s has %d reps, expected %d", ErrReviewAlreadyRecorded, key, card.Reps, reps)
		}
		if !s.selector.Eligible(card, now) {
			return fmt.Errorf("%w: %s due at %s", ErrCardNotDue, key, card.Due.Format(time.RFC3339))
		}

		outcome, err = decide(card)
		if err != nil {
			return err
		}
		next, err = s.scheduler.Reschedule(card, outcome, now, p.SchedulerParams)
		if err != nil {
			return err
		}

		p.PutCard(*next)
		p.UpdatedAt = now.UTC()
		return s.progress.SaveProgress(ctx, p, []domain.CardKey{key})
	})
	if err != nil {
		if isExpected(err) {
			log.Warn("rejected review",
				slog.String("learner_id", learnerID.String()),
				slog.String("card", key.String()),
				slog.String("error", err.Error()))
		} else {
			log.Error("failed to reschedule card",
				slog.String("learner_id", learnerID.String()),
				slog.String("card", key.String()),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	log.Info("recorded review",
		slog.String("learner_id", learnerID.String()),
		slog.String("card", key.String()),
		slog.String("outcome", string(outcome)),
		slog.String("state", string(next.State)),
		slog.Time("due", next.Due))
	service.Emit(ctx, s.emitter, s.logger, events.TypeReviewRecorded, learnerID,
		events.ReviewRecordedPayload{
			SubjectID:     key.SubjectID,
			Aspect:        string(key.Aspect),
			Outcome:       string(outcome),
			State:         string(next.State),
			ScheduledDays: next.ScheduledDays,
			Due:           next.Due,
		}, now)
	return next, nil
}

// GetStats implements ReviewService.GetStats.
func (s *reviewServiceImpl) GetStats(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID int64,
) (*SubjectStats, error) {
	if subjectID <= 0 {
		return nil, domain.NewValidationError("subject_id", "must be positive", domain.ErrInvalidInput)
	}
	now := s.clock()

	p, err := service.LoadProgress(ctx, s.progress, learnerID, s.defaults, now)
	if err != nil {
		return nil, wrapError("get_stats", "failed to load progress", err)
	}
	cards := p.CardsForSubject(subjectID)
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: no cards for subject %d", store.ErrCardNotFound, subjectID)
	}

	stats := &SubjectStats{SubjectID: subjectID, Cards: make([]CardStats, len(cards))}
	for i := range cards {
		stats.Cards[i] = CardStats{ReviewCard: cards[i], Eligible: s.selector.Eligible(&cards[i], now)}
	}
	return stats, nil
}

// GetSynonyms implements ReviewService.GetSynonyms.
func (s *reviewServiceImpl) GetSynonyms(ctx context.Context, learnerID uuid.UUID, subjectID int64) ([]string, error) {
	if subjectID <= 0 {
		return nil, domain.NewValidationError("subject_id", "must be positive", domain.ErrInvalidInput)
	}
	synonyms, err := s.synonyms.GetSynonyms(ctx, learnerID, subjectID)
	if err != nil {
		return nil, wrapError("get_synonyms", "failed to get synonyms", err)
	}
	return synonyms, nil
}

// SetSynonyms implements ReviewService.SetSynonyms.
func (s *reviewServiceImpl) SetSynonyms(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectID int64,
	synonyms []string,
) ([]string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if subjectID <= 0 {
		return nil, domain.NewValidationError("subject_id", "must be positive", domain.ErrInvalidInput)
	}
	cleaned := domain.CleanSynonyms(synonyms)
	if len(cleaned) > domain.MaxSynonyms {
		return nil, fmt.Errorf("%w: %d given, at most %d allowed", ErrTooManySynonyms, len(cleaned), domain.MaxSynonyms)
	}

	if err := s.synonyms.SetSynonyms(ctx, learnerID, subjectID, cleaned); err != nil {
		log.Error("failed to set synonyms",
			slog.String("learner_id", learnerID.String()),
			slog.Int64("subject_id", subjectID),
			slog.String("error", err.Error()))
		return nil, wrapError("set_synonyms", "failed to set synonyms", err)
	}

	log.Info("updated synonyms",
		slog.String("learner_id", learnerID.String()),
		slog.Int64("subject_id", subjectID),
		slog.Int("count", len(cleaned)))
	return cleaned, nil
}

func validateKey(subjectID int64, aspect domain.Aspect) error {
	if subjectID <= 0 {
		return domain.NewValidationError("subject_id", "must be positive", domain.ErrInvalidInput)
	}
	if !aspect.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAspect, aspect)
	}
	return nil
}

func isExpected(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, ErrCardNotDue) ||
		errors.Is(err, ErrReviewAlreadyRecorded) ||
		errors.Is(err, ErrTooManySynonyms) ||
		errors.Is(err, service.ErrRetriesExhausted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// wrapError passes expected errors through unchanged and wraps anything
// else in a ServiceError.
func wrapError(operation, message string, err error) error {
	if isExpected(err) {
		return err
	}
	return service.NewServiceError(operation, message, err)
}
