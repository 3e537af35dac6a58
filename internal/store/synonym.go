package store

import (
	"context"

	"github.com/google/uuid"
)

// SynonymStore holds the extra meanings a learner accepts for a subject.
type SynonymStore interface {
	// GetSynonyms returns the learner's synonyms for subjectID, or an empty
	// slice when there are none.
	GetSynonyms(ctx context.Context, learnerID uuid.UUID, subjectID int64) ([]string, error)

	// SetSynonyms replaces the learner's synonyms for subjectID.
	SetSynonyms(ctx context.Context, learnerID uuid.UUID, subjectID int64, synonyms []string) error
}
