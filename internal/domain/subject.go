package domain

import (
	"fmt"
	"sort"
)

// SubjectType is the closed set of curriculum item kinds.
type SubjectType string

// Subject types.
const (
	SubjectTypeRadical        SubjectType = "radical"
	SubjectTypeKanji          SubjectType = "kanji"
	SubjectTypeVocabulary     SubjectType = "vocabulary"
	SubjectTypeKanaVocabulary SubjectType = "kana_vocabulary"
)

// SubjectTypes lists every subject type in curriculum order.
var SubjectTypes = []SubjectType{
	SubjectTypeRadical,
	SubjectTypeKanji,
	SubjectTypeVocabulary,
	SubjectTypeKanaVocabulary,
}

// Valid reports whether t is one of the known subject types.
func (t SubjectType) Valid() bool {
	switch t {
	case SubjectTypeRadical, SubjectTypeKanji, SubjectTypeVocabulary, SubjectTypeKanaVocabulary:
		return true
	}
	return false
}

// HasReading reports whether subjects of this type are quizzed on reading.
// Radicals and kana-only vocabulary are meaning-only.
func (t SubjectType) HasReading() bool {
	return t == SubjectTypeKanji || t == SubjectTypeVocabulary
}

// Aspects returns the aspects a subject of this type is reviewed on.
func (t SubjectType) Aspects() []Aspect {
	if t.HasReading() {
		return []Aspect{AspectMeaning, AspectReading}
	}
	return []Aspect{AspectMeaning}
}

// ParseSubjectType converts a raw string into a SubjectType.
func ParseSubjectType(s string) (SubjectType, error) {
	t := SubjectType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSubjectType, s)
	}
	return t, nil
}

// Meaning is one English meaning of a subject.
type Meaning struct {
	Meaning        string `json:"meaning"`
	Primary        bool   `json:"primary"`
	AcceptedAnswer bool   `json:"accepted_answer"`
}

// Reading is one phonetic reading of a subject. Type is the kanji reading
// class (onyomi, kunyomi, nanori) and is empty for vocabulary.
type Reading struct {
	Reading        string `json:"reading"`
	Primary        bool   `json:"primary"`
	AcceptedAnswer bool   `json:"accepted_answer"`
	Type           string `json:"type,omitempty"`
}

// Subject is an immutable curriculum item.
type Subject struct {
	ID             int64       `json:"id"`
	Type           SubjectType `json:"type"`
	Level          int         `json:"level"`
	LessonPosition int         `json:"lesson_position"`
	Characters     string      `json:"characters"`
	Meanings       []Meaning   `json:"meanings"`
	Readings       []Reading   `json:"readings,omitempty"`
}

// Validate checks the fields the engine depends on.
func (s *Subject) Validate() error {
	if s.ID <= 0 {
		return NewValidationError("id", "must be positive", ErrInvalidID)
	}
	if !s.Type.Valid() {
		return NewValidationError("type", "is not a known subject type", ErrInvalidSubjectType)
	}
	if s.Level < 1 {
		return NewValidationError("level", "must be at least 1", ErrValidation)
	}
	if s.LessonPosition < 0 {
		return NewValidationError("lesson_position", "must not be negative", ErrValidation)
	}
	return nil
}

// AcceptedMeanings returns the meanings that count as a correct answer.
func (s *Subject) AcceptedMeanings() []string {
	out := make([]string, 0, len(s.Meanings))
	for _, m := range s.Meanings {
		if m.AcceptedAnswer {
			out = append(out, m.Meaning)
		}
	}
	return out
}

// AcceptedReadings returns the readings that count as a correct answer.
func (s *Subject) AcceptedReadings() []string {
	out := make([]string, 0, len(s.Readings))
	for _, r := range s.Readings {
		if r.AcceptedAnswer {
			out = append(out, r.Reading)
		}
	}
	return out
}

// AllReadings returns every reading of the subject, accepted or not.
func (s *Subject) AllReadings() []string {
	out := make([]string, 0, len(s.Readings))
	for _, r := range s.Readings {
		out = append(out, r.Reading)
	}
	return out
}

// SortSubjects orders subjects by lesson position, then by ID so that
// subjects sharing a position across types have a stable order.
func SortSubjects(subjects []Subject) {
	sort.SliceStable(subjects, func(i, j int) bool {
		if subjects[i].LessonPosition != subjects[j].LessonPosition {
			return subjects[i].LessonPosition < subjects[j].LessonPosition
		}
		return subjects[i].ID < subjects[j].ID
	})
}
