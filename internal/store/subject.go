package store

import (
	"context"

	"github.com/phrazzld/kotoba-api/internal/domain"
)

// SubjectStore is the read-only curriculum. Subjects of every type share
// one ID space, so lookups never need to know the type up front.
type SubjectStore interface {
	// GetByID returns the subject with the given ID.
	// Returns ErrSubjectNotFound if no subject has that ID.
	GetByID(ctx context.Context, id int64) (*domain.Subject, error)

	// ListByLevel returns every subject at level ordered by lesson
	// position and ID. An empty level yields an empty slice.
	ListByLevel(ctx context.Context, level int) ([]domain.Subject, error)

	// MaxLessonPosition returns the highest lesson position at level, or
	// domain.BeforeFirstPosition when the level has no subjects.
	MaxLessonPosition(ctx context.Context, level int) (int, error)

	// FindByCharacters returns every subject written with characters,
	// across all types.
	FindByCharacters(ctx context.Context, characters string) ([]domain.Subject, error)
}
