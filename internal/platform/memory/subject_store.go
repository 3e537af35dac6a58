package memory

import (
	"context"
	"sync"

	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/store"
)

// SubjectStore is an in-memory curriculum.
type SubjectStore struct {
	mu       sync.RWMutex
	subjects map[int64]domain.Subject
}

var _ store.SubjectStore = (*SubjectStore)(nil)

// NewSubjectStore creates a store holding subjects.
func NewSubjectStore(subjects ...domain.Subject) *SubjectStore {
	s := &SubjectStore{subjects: make(map[int64]domain.Subject, len(subjects))}
	_ = s.UpsertSubjects(context.Background(), subjects)
	return s
}

// UpsertSubjects adds subjects, replacing any with the same ID.
func (s *SubjectStore) UpsertSubjects(_ context.Context, subjects []domain.Subject) error {
	for i := range subjects {
		if err := subjects[i].Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, subject := range subjects {
		s.subjects[subject.ID] = subject
	}
	return nil
}

// GetByID implements store.SubjectStore.
func (s *SubjectStore) GetByID(_ context.Context, id int64) (*domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subject, ok := s.subjects[id]
	if !ok {
		return nil, store.ErrSubjectNotFound
	}
	return &subject, nil
}

// ListByLevel implements store.SubjectStore.
func (s *SubjectStore) ListByLevel(_ context.Context, level int) ([]domain.Subject, error) {
	return s.filter(func(subject domain.Subject) bool { return subject.Level == level }), nil
}

// MaxLessonPosition implements store.SubjectStore.
func (s *SubjectStore) MaxLessonPosition(_ context.Context, level int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	maxPosition := domain.BeforeFirstPosition
	for _, subject := range s.subjects {
		if subject.Level == level && subject.LessonPosition > maxPosition {
			maxPosition = subject.LessonPosition
		}
	}
	return maxPosition, nil
}

// FindByCharacters implements store.SubjectStore.
func (s *SubjectStore) FindByCharacters(_ context.Context, characters string) ([]domain.Subject, error) {
	if characters == "" {
		return []domain.Subject{}, nil
	}
	return s.filter(func(subject domain.Subject) bool { return subject.Characters == characters }), nil
}

func (s *SubjectStore) filter(keep func(domain.Subject) bool) []domain.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Subject{}
	for _, subject := range s.subjects {
		if keep(subject) {
			out = append(out, subject)
		}
	}
	domain.SortSubjects(out)
	return out
}
