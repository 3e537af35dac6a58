package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/store"
)

// ProgressStore is an in-memory, versioned store.ProgressStore. Callers
// always receive and hand over copies, so state never leaks between them.
type ProgressStore struct {
	mu       sync.Mutex
	progress map[uuid.UUID]*domain.LearnerProgress

	// SaveHook, when set, runs before each save under the store lock. Tests
	// use it to inject failures.
	SaveHook func(p *domain.LearnerProgress) error
}

var _ store.ProgressStore = (*ProgressStore)(nil)

// NewProgressStore creates an empty store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{progress: make(map[uuid.UUID]*domain.LearnerProgress)}
}

// GetOrCreateProgress implements store.ProgressStore.
func (s *ProgressStore) GetOrCreateProgress(
	_ context.Context,
	learnerID uuid.UUID,
	defaults *domain.LearnerProgress,
) (*domain.LearnerProgress, error) {
	if defaults == nil || defaults.LearnerID != learnerID {
		return nil, fmt.Errorf("%w: defaults must belong to learner %s", store.ErrInvalidEntity, learnerID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[learnerID]
	if !ok {
		p = defaults.Clone()
		s.progress[learnerID] = p
	}
	return p.Clone(), nil
}

// SaveProgress implements store.ProgressStore.
func (s *ProgressStore) SaveProgress(
	_ context.Context,
	progress *domain.LearnerProgress,
	changed []domain.CardKey,
) error {
	for _, key := range changed {
		card := progress.Card(key)
		if card == nil {
			return fmt.Errorf("%w: %s", store.ErrCardNotFound, key)
		}
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: card %s: %v", store.ErrInvalidEntity, key, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.progress[progress.LearnerID]
	if !ok {
		return store.ErrProgressNotFound
	}
	if current.Version != progress.Version {
		return store.ErrConcurrentUpdate
	}
	if s.SaveHook != nil {
		if err := s.SaveHook(progress); err != nil {
			return err
		}
	}

	next := progress.Clone()
	next.Cards = current.Clone().Cards
	for _, key := range changed {
		next.PutCard(*progress.Card(key).Clone())
	}
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()
	s.progress[progress.LearnerID] = next

	progress.Version = next.Version
	return nil
}

// Snapshot returns a copy of the stored progress, or nil.
func (s *ProgressStore) Snapshot(learnerID uuid.UUID) *domain.LearnerProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.progress[learnerID]; ok {
		return p.Clone()
	}
	return nil
}
