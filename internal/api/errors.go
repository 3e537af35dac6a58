package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/kotoba-api/internal/api/shared"
	"github.com/phrazzld/kotoba-api/internal/domain"
	allocator "github.com/phrazzld/kotoba-api/internal/domain/lessons"
	"github.com/phrazzld/kotoba-api/internal/service"
	"github.com/phrazzld/kotoba-api/internal/service/auth"
	"github.com/phrazzld/kotoba-api/internal/service/review"
	"github.com/phrazzld/kotoba-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, review.ErrNoCardsDue):
		return http.StatusNoContent

	case errors.Is(err, review.ErrNoReviewCards),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	case errors.Is(err, review.ErrCardNotDue),
		errors.Is(err, review.ErrReviewAlreadyRecorded),
		errors.Is(err, allocator.ErrSubjectNotAvailable),
		errors.Is(err, service.ErrRetriesExhausted),
		errors.Is(err, store.ErrConcurrentUpdate),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, review.ErrTooManySynonyms),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header required"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Learner not authenticated"

	case errors.Is(err, review.ErrNoReviewCards):
		return "No review cards yet, complete some lessons first"
	case errors.Is(err, review.ErrCardNotDue):
		return "Card is not due for review"
	case errors.Is(err, review.ErrReviewAlreadyRecorded):
		return "Review already recorded"
	case errors.Is(err, review.ErrTooManySynonyms):
		return "Too many synonyms"

	case errors.Is(err, store.ErrSubjectNotFound):
		return "Subject not found"
	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"
	case errors.Is(err, store.ErrProgressNotFound):
		return "Learner progress not found"
	case store.IsNotFoundError(err):
		return "Not found"

	case errors.Is(err, allocator.ErrSubjectNotAvailable):
		return "Subjects are not available for lessons"
	case errors.Is(err, service.ErrRetriesExhausted),
		errors.Is(err, store.ErrConcurrentUpdate):
		return "Concurrent update, please retry"

	case errors.Is(err, domain.ErrInvalidAspect):
		return "Invalid aspect"
	case errors.Is(err, domain.ErrInvalidOutcome):
		return "Invalid outcome"
	case errors.Is(err, domain.ErrValidation):
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return "Invalid " + verr.Field + ": " + verr.Message
		}
		return "Validation error"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, store.ErrStoreUnavailable):
		return "Service temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a request validation failure into a
// message naming the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "Invalid " + fe.Field() + ": " + getValidationTagMessage(fe.Tag())
	}
	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid", "uuid4":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the mapped status and safe message for err.
// defaultMsg replaces the generic message for unexpected errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusConflict {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
