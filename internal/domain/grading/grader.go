// Package grading checks a learner's typed answer against a subject's
// accepted answers.
package grading

import (
	"fmt"
	"strings"

	"github.com/phrazzld/kotoba-api/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Result is the graded answer.
type Result struct {
	Outcome domain.Outcome `json:"outcome"`

	// ConfusedWithSibling is set when a wrong reading is a reading of
	// another subject written with the same characters. It is guidance only
	// and never changes Outcome.
	ConfusedWithSibling bool `json:"confused_with_sibling"`

	// SiblingSubjectID is the sibling whose reading was given.
	SiblingSubjectID int64 `json:"sibling_subject_id,omitempty"`

	// NonAcceptedReading is set when a wrong reading is one the subject
	// lists but does not accept, such as a kanji's kun'yomi when its
	// on'yomi is taught. Guidance only, like ConfusedWithSibling.
	NonAcceptedReading bool `json:"non_accepted_reading"`

	// Expected lists the accepted answers for the aspect.
	Expected []string `json:"expected"`
}

// Grade compares answer with the accepted answers for card's aspect.
// synonyms are the learner's own meanings for the subject and siblings are
// other subjects sharing its characters; both may be nil.
func Grade(
	card *domain.ReviewCard,
	answer string,
	subject *domain.Subject,
	synonyms []string,
	siblings []domain.Subject,
) (*Result, error) {
	if card == nil || subject == nil {
		return nil, domain.NewValidationError("card", "and subject are required", domain.ErrInvalidInput)
	}
	if card.SubjectID != subject.ID {
		return nil, fmt.Errorf("%w: card for subject %d graded against subject %d",
			domain.ErrInvalidInput, card.SubjectID, subject.ID)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, domain.NewValidationError("answer", "cannot be empty", domain.ErrInvalidInput)
	}

	switch card.Aspect {
	case domain.AspectMeaning:
		return gradeMeaning(answer, subject, synonyms), nil
	case domain.AspectReading:
		if !subject.Type.HasReading() {
			return nil, fmt.Errorf("%w: %s has no reading", domain.ErrAspectNotApplicable, subject.Type)
		}
		return gradeReading(answer, subject, siblings), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAspect, card.Aspect)
	}
}

func gradeMeaning(answer string, subject *domain.Subject, synonyms []string) *Result {
	accepted := subject.AcceptedMeanings()
	result := &Result{Outcome: domain.OutcomeBad, Expected: accepted}

	given := NormalizeMeaning(answer)
	for _, candidate := range append(append([]string(nil), accepted...), synonyms...) {
		if NormalizeMeaning(candidate) == given {
			result.Outcome = domain.OutcomeGood
			break
		}
	}
	return result
}

func gradeReading(answer string, subject *domain.Subject, siblings []domain.Subject) *Result {
	accepted := subject.AcceptedReadings()
	result := &Result{Outcome: domain.OutcomeBad, Expected: accepted}

	given := NormalizeReading(answer)
	if containsReading(accepted, given) {
		result.Outcome = domain.OutcomeGood
		return result
	}

	result.NonAcceptedReading = containsReading(subject.AllReadings(), given)
	for i := range siblings {
		sib := &siblings[i]
		if sib.ID == subject.ID || sib.Characters != subject.Characters {
			continue
		}
		if containsReading(sib.AllReadings(), given) {
			result.ConfusedWithSibling = true
			result.SiblingSubjectID = sib.ID
			return result
		}
	}
	return result
}

func containsReading(readings []string, normalized string) bool {
	for _, r := range readings {
		if NormalizeReading(r) == normalized {
			return true
		}
	}
	return false
}

// NormalizeMeaning trims, collapses inner whitespace, folds full-width
// characters and case-folds s.
func NormalizeMeaning(s string) string {
	s = width.Fold.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// NormalizeReading trims s, folds half-width kana to their full-width forms
// and composes the result to NFC so separated voicing marks join their kana.
// Case is preserved.
func NormalizeReading(s string) string {
	s = width.Fold.String(strings.TrimSpace(s))
	return norm.NFC.String(s)
}
