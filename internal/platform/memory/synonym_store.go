package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/store"
)

type synonymKey struct {
	learnerID uuid.UUID
	subjectID int64
}

// SynonymStore is an in-memory store.SynonymStore.
type SynonymStore struct {
	mu       sync.RWMutex
	synonyms map[synonymKey][]string
	subjects store.SubjectStore
}

var _ store.SynonymStore = (*SynonymStore)(nil)

// NewSynonymStore creates an empty store. When subjects is non-nil,
// SetSynonyms rejects unknown subject IDs.
func NewSynonymStore(subjects store.SubjectStore) *SynonymStore {
	return &SynonymStore{synonyms: make(map[synonymKey][]string), subjects: subjects}
}

// GetSynonyms implements store.SynonymStore.
func (s *SynonymStore) GetSynonyms(_ context.Context, learnerID uuid.UUID, subjectID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.synonyms[synonymKey{learnerID, subjectID}]...), nil
}

// SetSynonyms implements store.SynonymStore.
func (s *SynonymStore) SetSynonyms(ctx context.Context, learnerID uuid.UUID, subjectID int64, synonyms []string) error {
	if s.subjects != nil {
		if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synonyms[synonymKey{learnerID, subjectID}] = domain.CleanSynonyms(synonyms)
	return nil
}
