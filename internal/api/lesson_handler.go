package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/kotoba-api/internal/api/shared"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
	"github.com/phrazzld/kotoba-api/internal/service/lessons"
)

// MaxLessonBatch bounds the count query parameter of GET /lessons/next.
const MaxLessonBatch = 100

// LessonHandler handles lesson and settings requests.
type LessonHandler struct {
	lessonService lessons.LessonService
	logger        *slog.Logger
}

// NewLessonHandler creates a new LessonHandler.
func NewLessonHandler(lessonService lessons.LessonService, logger *slog.Logger) *LessonHandler {
	if lessonService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("lessonService cannot be nil for LessonHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for LessonHandler")
	}
	return &LessonHandler{
		lessonService: lessonService,
		logger:        logger.With(slog.String("component", "lesson_handler")),
	}
}

// GetNextLessons handles GET /lessons/next?count=N.
// Without count the learner's session size is used.
func (h *LessonHandler) GetNextLessons(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerID(w, r, log)
	if !ok {
		return
	}

	count, err := getQueryInt(r, "count", 0, 1, MaxLessonBatch)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	batch, err := h.lessonService.GetNextLessons(r.Context(), learnerID, count)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get next lessons")
		return
	}

	log.Debug("next lessons retrieved",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(batch.Subjects)),
		slog.Int("remaining_quota", batch.RemainingQuota))
	shared.RespondWithJSON(w, r, http.StatusOK, batch)
}

// CommitLessons handles POST /lessons/commit.
func (h *LessonHandler) CommitLessons(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerID(w, r, log)
	if !ok {
		return
	}

	var req CommitLessonsRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	result, err := h.lessonService.CommitLessons(r.Context(), learnerID, req.SubjectIDs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to commit lessons")
		return
	}

	log.Info("lessons committed",
		slog.String("learner_id", learnerID.String()),
		slog.Int("committed", len(result.Committed)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Bool("level_advanced", result.LevelAdvanced))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// GetSettings handles GET /settings.
func (h *LessonHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerID(w, r, log)
	if !ok {
		return
	}

	settings, err := h.lessonService.GetSettings(r.Context(), learnerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get settings")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, settings)
}

// UpdateSettings handles PUT /settings.
func (h *LessonHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := getLearnerID(w, r, log)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	settings, err := h.lessonService.UpdateSettings(r.Context(), learnerID, req.LessonSettings())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update settings")
		return
	}

	log.Info("lesson settings updated",
		slog.String("learner_id", learnerID.String()),
		slog.Int("maximum_lessons_per_day", settings.MaximumLessonsPerDay),
		slog.Int("lessons_per_session", settings.LessonsPerSession))
	shared.RespondWithJSON(w, r, http.StatusOK, settings)
}
