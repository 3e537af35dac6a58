package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// BeforeFirstPosition is the LastLessonPosition of a learner who has not
// started any lesson in the current level.
const BeforeFirstPosition = -1

// WeightCount is the length of the scheduler weight vector.
const WeightCount = 19

// Default lesson settings for a new learner.
const (
	DefaultMaximumLessonsPerDay = 15
	DefaultLessonsPerSession    = 5
)

// SchedulerParams is the per-learner tuning of the memory scheduler. It is
// seeded with defaults on first use and persisted unchanged afterwards.
type SchedulerParams struct {
	Weights          []float64 `json:"w"`
	RequestRetention float64   `json:"request_retention"`
	MaximumInterval  int       `json:"maximum_interval"`
}

// Validate checks the weight vector length and value ranges.
func (p SchedulerParams) Validate() error {
	if len(p.Weights) != WeightCount {
		return NewValidationError("weights", "must have 19 entries", ErrInvalidSchedulerParams)
	}
	for _, w := range p.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return NewValidationError("weights", "must be finite", ErrInvalidSchedulerParams)
		}
	}
	if p.RequestRetention <= 0 || p.RequestRetention >= 1 {
		return NewValidationError("request_retention", "must be between 0 and 1", ErrInvalidSchedulerParams)
	}
	if p.MaximumInterval < 1 {
		return NewValidationError("maximum_interval", "must be at least 1", ErrInvalidSchedulerParams)
	}
	return nil
}

// Clone returns a copy that does not share the weight slice.
func (p SchedulerParams) Clone() SchedulerParams {
	out := p
	out.Weights = append([]float64(nil), p.Weights...)
	return out
}

// LessonSettings are the learner-adjustable lesson limits.
type LessonSettings struct {
	MaximumLessonsPerDay int `json:"maximum_lessons_per_day"`
	LessonsPerSession    int `json:"lessons_per_session"`
}

// DefaultLessonSettings returns the settings a new learner starts with.
func DefaultLessonSettings() LessonSettings {
	return LessonSettings{
		MaximumLessonsPerDay: DefaultMaximumLessonsPerDay,
		LessonsPerSession:    DefaultLessonsPerSession,
	}
}

// Validate checks the settings are usable.
func (s LessonSettings) Validate() error {
	if s.MaximumLessonsPerDay < 0 {
		return NewValidationError("maximum_lessons_per_day", "must not be negative", ErrInvalidInput)
	}
	if s.LessonsPerSession < 1 {
		return NewValidationError("lessons_per_session", "must be at least 1", ErrInvalidInput)
	}
	return nil
}

// LessonsToday records how many lessons were consumed on a calendar date.
type LessonsToday struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// DateLayout is the calendar date format used for quota tracking.
const DateLayout = "2006-01-02"

// LearnerProgress is everything the engine tracks for one learner.
type LearnerProgress struct {
	LearnerID          uuid.UUID       `json:"learner_id"`
	Level              int             `json:"level"`
	LastLessonPosition int             `json:"last_lesson_position"`
	Settings           LessonSettings  `json:"settings"`
	LessonsToday       LessonsToday    `json:"lessons_today"`
	SchedulerParams    SchedulerParams `json:"scheduler_params"`
	Cards              []ReviewCard    `json:"cards"`
	Version            int64           `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewLearnerProgress creates the initial progress record for a learner:
// level 1, before the first lesson, with the given settings and params.
func NewLearnerProgress(
	learnerID uuid.UUID,
	settings LessonSettings,
	params SchedulerParams,
	now time.Time,
) (*LearnerProgress, error) {
	if learnerID == uuid.Nil {
		return nil, NewValidationError("learner_id", "cannot be empty", ErrInvalidID)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now = now.UTC()
	return &LearnerProgress{
		LearnerID:          learnerID,
		Level:              1,
		LastLessonPosition: BeforeFirstPosition,
		Settings:           settings,
		SchedulerParams:    params.Clone(),
		Cards:              []ReviewCard{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// Clone returns a deep copy so callers can modify it without affecting
// the stored original.
func (p *LearnerProgress) Clone() *LearnerProgress {
	out := *p
	out.SchedulerParams = p.SchedulerParams.Clone()
	out.Cards = make([]ReviewCard, len(p.Cards))
	for i := range p.Cards {
		out.Cards[i] = *p.Cards[i].Clone()
	}
	return &out
}

// ConsumedOn returns the lessons consumed on the given date; a count
// recorded for any other date is treated as zero.
func (p *LearnerProgress) ConsumedOn(date string) int {
	if p.LessonsToday.Date != date {
		return 0
	}
	return p.LessonsToday.Count
}

// Card returns the learner's card for key, or nil.
func (p *LearnerProgress) Card(key CardKey) *ReviewCard {
	for i := range p.Cards {
		if p.Cards[i].Key() == key {
			return &p.Cards[i]
		}
	}
	return nil
}

// CardsForSubject returns the learner's cards for one subject.
func (p *LearnerProgress) CardsForSubject(subjectID int64) []ReviewCard {
	var out []ReviewCard
	for _, c := range p.Cards {
		if c.SubjectID == subjectID {
			out = append(out, c)
		}
	}
	return out
}

// CardedSubjects returns the set of subject IDs that already have cards.
func (p *LearnerProgress) CardedSubjects() map[int64]bool {
	out := make(map[int64]bool, len(p.Cards))
	for _, c := range p.Cards {
		out[c.SubjectID] = true
	}
	return out
}

// PutCard inserts card or replaces the existing card with the same key.
func (p *LearnerProgress) PutCard(card ReviewCard) {
	for i := range p.Cards {
		if p.Cards[i].Key() == card.Key() {
			p.Cards[i] = card
			return
		}
	}
	p.Cards = append(p.Cards, card)
}
