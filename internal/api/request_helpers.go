package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/api/shared"
	"github.com/phrazzld/kotoba-api/internal/domain"
)

// getLearnerID extracts the authenticated learner from the request context,
// where the authentication middleware put it. It writes a 401 and returns
// false when there is none.
func getLearnerID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	learnerID, ok := shared.LearnerIDFromContext(r.Context())
	if !ok {
		log.Warn("learner ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return uuid.Nil, false
	}
	return learnerID, true
}

// getPathSubjectID parses the positive subject ID path parameter.
func getPathSubjectID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, domain.NewValidationError(paramName, "is required", domain.ErrInvalidInput)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(paramName, "must be a positive integer", domain.ErrInvalidID)
	}
	return id, nil
}

// getQueryInt parses an optional integer query parameter within [min, max].
// A missing parameter yields def.
func getQueryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer", domain.ErrInvalidInput)
	}
	if v < min || v > max {
		return 0, domain.NewValidationError(name,
			"must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max), domain.ErrInvalidInput)
	}
	return v, nil
}

// handleLearnerAndSubject extracts both the learner and the subject path
// parameter, writing an error response when either is missing.
func handleLearnerAndSubject(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (uuid.UUID, int64, bool) {
	learnerID, ok := getLearnerID(w, r, log)
	if !ok {
		return uuid.Nil, 0, false
	}

	subjectID, err := getPathSubjectID(r, paramName)
	if err != nil {
		log.Warn("invalid "+paramName,
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, 0, false
	}
	return learnerID, subjectID, true
}

// decodeAndValidate decodes and validates a JSON body, writing a 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any, log *slog.Logger) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		log.Debug("invalid request format", slog.String("path", r.URL.Path))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}
