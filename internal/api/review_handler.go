package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/kotoba-api/internal/api/shared"
	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
	"github.com/phrazzld/kotoba-api/internal/service/review"
)

// ReviewHandler handles review, statistics and synonym requests.
type ReviewHandler struct {
	reviewService review.ReviewService
	logger        *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService review.ReviewService, logger *slog.Logger) *ReviewHandler {
	if reviewService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("reviewService cannot be nil for ReviewHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ReviewHandler")
	}
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger.With(slog.String("component", "review_handler")),
	}
}

// GetNextReview handles GET /reviews/next.
// It answers 204 when the learner has cards but none is due.
func (h *ReviewHandler) GetNextReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerID(w, r, log)
	if !ok {
		return
	}

	item, err := h.reviewService.GetNextReview(r.Context(), learnerID)
	if errors.Is(err, review.ErrNoCardsDue) {
		log.Debug("no cards due for review", slog.String("learner_id", learnerID.String()))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get next review")
		return
	}

	log.Debug("next review retrieved",
		slog.String("learner_id", learnerID.String()),
		slog.String("card", item.Card.Key().String()),
		slog.Int("total_due", item.TotalDue))
	shared.RespondWithJSON(w, r, http.StatusOK, item)
}

// SubmitReview handles POST /reviews. The answer is graded on the server
// and the card rescheduled with the result.
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerID(w, r, log)
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	result, err := h.reviewService.SubmitReview(
		r.Context(), learnerID, req.SubjectID, domain.Aspect(req.Aspect), *req.Reps, req.Answer)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit review")
		return
	}

	log.Info("review submitted",
		slog.String("learner_id", learnerID.String()),
		slog.String("card", result.Card.Key().String()),
		slog.String("outcome", string(result.Grade.Outcome)),
		slog.Bool("confused_with_sibling", result.Grade.ConfusedWithSibling),
		slog.Bool("non_accepted_reading", result.Grade.NonAcceptedReading))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// RecordOutcome handles POST /reviews/outcome, for outcomes decided by
// the client.
func (h *ReviewHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerID(w, r, log)
	if !ok {
		return
	}

	var req RecordOutcomeRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	card, err := h.reviewService.RecordOutcome(
		r.Context(), learnerID, req.SubjectID, domain.Aspect(req.Aspect), *req.Reps, domain.Outcome(req.Outcome))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record outcome")
		return
	}

	log.Info("review outcome recorded",
		slog.String("learner_id", learnerID.String()),
		slog.String("card", card.Key().String()),
		slog.String("outcome", req.Outcome))
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// GetSubjectStats handles GET /subjects/{id}/stats.
func (h *ReviewHandler) GetSubjectStats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, subjectID, ok := handleLearnerAndSubject(w, r, "id", log)
	if !ok {
		return
	}

	stats, err := h.reviewService.GetStats(r.Context(), learnerID, subjectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get subject statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// GetSynonyms handles GET /subjects/{id}/synonyms.
func (h *ReviewHandler) GetSynonyms(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, subjectID, ok := handleLearnerAndSubject(w, r, "id", log)
	if !ok {
		return
	}

	synonyms, err := h.reviewService.GetSynonyms(r.Context(), learnerID, subjectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get synonyms")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SynonymsResponse{SubjectID: subjectID, Synonyms: nonNilStrings(synonyms)})
}

// SetSynonyms handles PUT /subjects/{id}/synonyms.
func (h *ReviewHandler) SetSynonyms(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, subjectID, ok := handleLearnerAndSubject(w, r, "id", log)
	if !ok {
		return
	}

	var req SetSynonymsRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	stored, err := h.reviewService.SetSynonyms(r.Context(), learnerID, subjectID, req.Synonyms)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update synonyms")
		return
	}

	log.Info("synonyms updated",
		slog.String("learner_id", learnerID.String()),
		slog.Int64("subject_id", subjectID),
		slog.Int("count", len(stored)))
	shared.RespondWithJSON(w, r, http.StatusOK, SynonymsResponse{SubjectID: subjectID, Synonyms: nonNilStrings(stored)})
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
