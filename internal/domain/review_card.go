package domain

import (
	"fmt"
	"time"
)

// Aspect is the dimension of a subject being tested.
type Aspect string

// Review aspects.
const (
	AspectMeaning Aspect = "meaning"
	AspectReading Aspect = "reading"
)

// Valid reports whether a is meaning or reading.
func (a Aspect) Valid() bool {
	return a == AspectMeaning || a == AspectReading
}

// ParseAspect converts a raw string into an Aspect.
func ParseAspect(s string) (Aspect, error) {
	a := Aspect(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAspect, s)
	}
	return a, nil
}

// rank orders meaning before reading when breaking ties.
func (a Aspect) rank() int {
	if a == AspectMeaning {
		return 0
	}
	return 1
}

// Outcome is the graded result of a review.
type Outcome string

// Review outcomes.
const (
	OutcomeGood Outcome = "good"
	OutcomeBad  Outcome = "bad"
)

// Valid reports whether o is good or bad.
func (o Outcome) Valid() bool {
	return o == OutcomeGood || o == OutcomeBad
}

// ParseOutcome converts a raw string into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if !o.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
	return o, nil
}

// CardState is the scheduler state of a review card.
type CardState string

// Card states.
const (
	CardStateNew        CardState = "new"
	CardStateLearning   CardState = "learning"
	CardStateReview     CardState = "review"
	CardStateRelearning CardState = "relearning"
)

// Valid reports whether s is one of the four scheduler states.
func (s CardState) Valid() bool {
	switch s {
	case CardStateNew, CardStateLearning, CardStateReview, CardStateRelearning:
		return true
	}
	return false
}

// CardKey identifies a card within a learner's card set.
type CardKey struct {
	SubjectID int64  `json:"subject_id"`
	Aspect    Aspect `json:"aspect"`
}

// String renders the key for logs.
func (k CardKey) String() string {
	return fmt.Sprintf("%d/%s", k.SubjectID, k.Aspect)
}

// ReviewCard is the memory state of one (subject, aspect) pair for a learner.
type ReviewCard struct {
	SubjectType   SubjectType `json:"subject_type"`
	SubjectID     int64       `json:"subject_id"`
	Aspect        Aspect      `json:"aspect"`
	Due           time.Time   `json:"due"`
	Stability     float64     `json:"stability"`
	Difficulty    float64     `json:"difficulty"`
	ElapsedDays   int         `json:"elapsed_days"`
	ScheduledDays int         `json:"scheduled_days"`
	Reps          int         `json:"reps"`
	Lapses        int         `json:"lapses"`
	State         CardState   `json:"state"`
	LastReview    *time.Time  `json:"last_review,omitempty"`
}

// NewReviewCard creates a card in the New state, due immediately.
// Returns ErrAspectNotApplicable when a reading card is requested for a
// meaning-only subject type.
func NewReviewCard(subject *Subject, aspect Aspect, now time.Time) (*ReviewCard, error) {
	if subject == nil {
		return nil, NewValidationError("subject", "is required", ErrValidation)
	}
	if !subject.Type.Valid() {
		return nil, ErrInvalidSubjectType
	}
	if !aspect.Valid() {
		return nil, ErrInvalidAspect
	}
	if aspect == AspectReading && !subject.Type.HasReading() {
		return nil, fmt.Errorf("%w: %s has no reading", ErrAspectNotApplicable, subject.Type)
	}

	return &ReviewCard{
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
		Aspect:      aspect,
		Due:         now.UTC(),
		State:       CardStateNew,
	}, nil
}

// NewLessonCards creates every card a subject needs when it is introduced:
// a meaning card always, plus a reading card when the type has readings.
func NewLessonCards(subject *Subject, now time.Time) ([]ReviewCard, error) {
	aspects := subject.Type.Aspects()
	cards := make([]ReviewCard, 0, len(aspects))
	for _, aspect := range aspects {
		card, err := NewReviewCard(subject, aspect, now)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, nil
}

// Key returns the card's identity within a learner's card set.
func (c *ReviewCard) Key() CardKey {
	return CardKey{SubjectID: c.SubjectID, Aspect: c.Aspect}
}

// Validate checks that the card is internally consistent.
func (c *ReviewCard) Validate() error {
	if c.SubjectID <= 0 {
		return NewValidationError("subject_id", "must be positive", ErrInvalidID)
	}
	if !c.SubjectType.Valid() {
		return ErrInvalidSubjectType
	}
	if !c.Aspect.Valid() {
		return ErrInvalidAspect
	}
	if c.Aspect == AspectReading && !c.SubjectType.HasReading() {
		return ErrAspectNotApplicable
	}
	if !c.State.Valid() {
		return ErrInvalidCardState
	}
	if c.Stability < 0 || c.Difficulty < 0 {
		return NewValidationError("stability", "and difficulty must not be negative", ErrValidation)
	}
	if c.ElapsedDays < 0 || c.ScheduledDays < 0 || c.Reps < 0 || c.Lapses < 0 {
		return NewValidationError("counters", "must not be negative", ErrValidation)
	}
	return nil
}

// Less orders cards by due time, then subject ID, then aspect.
func (c *ReviewCard) Less(other *ReviewCard) bool {
	if !c.Due.Equal(other.Due) {
		return c.Due.Before(other.Due)
	}
	if c.SubjectID != other.SubjectID {
		return c.SubjectID < other.SubjectID
	}
	return c.Aspect.rank() < other.Aspect.rank()
}

// Clone returns a deep copy of the card.
func (c *ReviewCard) Clone() *ReviewCard {
	out := *c
	if c.LastReview != nil {
		lr := *c.LastReview
		out.LastReview = &lr
	}
	return &out
}
