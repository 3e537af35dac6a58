package api

import (
	"time"

	"github.com/phrazzld/kotoba-api/internal/domain"
)

// CommitLessonsRequest is the payload of POST /lessons/commit.
type CommitLessonsRequest struct {
	SubjectIDs []int64 `json:"subject_ids" validate:"required,min=1,max=100,dive,gt=0"`
}

// SubmitReviewRequest is the payload of POST /reviews. Reps echoes the
// card's reps from GET /reviews/next.
type SubmitReviewRequest struct {
	SubjectID int64  `json:"subject_id" validate:"required,gt=0"`
	Aspect    string `json:"aspect"     validate:"required,oneof=meaning reading"`
	Reps      *int   `json:"reps"       validate:"required,gte=0"`
	Answer    string `json:"answer"     validate:"required,max=200"`
}

// RecordOutcomeRequest is the payload of POST /reviews/outcome.
type RecordOutcomeRequest struct {
	SubjectID int64  `json:"subject_id" validate:"required,gt=0"`
	Aspect    string `json:"aspect"     validate:"required,oneof=meaning reading"`
	Reps      *int   `json:"reps"       validate:"required,gte=0"`
	Outcome   string `json:"outcome"    validate:"required,oneof=good bad"`
}

// UpdateSettingsRequest is the payload of PUT /settings. Both fields are
// required; a daily maximum of zero pauses new lessons.
type UpdateSettingsRequest struct {
	MaximumLessonsPerDay *int `json:"maximum_lessons_per_day" validate:"required,gte=0,lte=1000"`
	LessonsPerSession    *int `json:"lessons_per_session"     validate:"required,gte=1,lte=100"`
}

// LessonSettings converts the request to domain settings. Call only after
// validation.
func (r UpdateSettingsRequest) LessonSettings() domain.LessonSettings {
	return domain.LessonSettings{
		MaximumLessonsPerDay: *r.MaximumLessonsPerDay,
		LessonsPerSession:    *r.LessonsPerSession,
	}
}

// SetSynonymsRequest is the payload of PUT /subjects/{id}/synonyms. An
// empty list clears the learner's synonyms.
type SetSynonymsRequest struct {
	Synonyms []string `json:"synonyms" validate:"max=64,dive,max=100"`
}

// SynonymsResponse lists a learner's synonyms for a subject.
type SynonymsResponse struct {
	SubjectID int64    `json:"subject_id"`
	Synonyms  []string `json:"synonyms"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
