package mocks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/domain"
	"github.com/phrazzld/kotoba-api/internal/service/lessons"
)

// ErrNotConfigured is returned by a mock method whose function field is nil.
var ErrNotConfigured = errors.New("mock method not configured")

// MockLessonService implements lessons.LessonService with function fields.
type MockLessonService struct {
	GetNextLessonsFn func(ctx context.Context, learnerID uuid.UUID, count int) (*lessons.LessonBatch, error)
	CommitLessonsFn  func(ctx context.Context, learnerID uuid.UUID, subjectIDs []int64) (*lessons.CommitResult, error)
	GetSettingsFn    func(ctx context.Context, learnerID uuid.UUID) (*lessons.Settings, error)
	UpdateSettingsFn func(ctx context.Context, learnerID uuid.UUID, settings domain.LessonSettings) (*lessons.Settings, error)
}

var _ lessons.LessonService = (*MockLessonService)(nil)

// GetNextLessons implements lessons.LessonService.
func (m *MockLessonService) GetNextLessons(
	ctx context.Context,
	learnerID uuid.UUID,
	count int,
) (*lessons.LessonBatch, error) {
	if m.GetNextLessonsFn == nil {
		return nil, ErrNotConfigured
	}
	return m.GetNextLessonsFn(ctx, learnerID, count)
}

// CommitLessons implements lessons.LessonService.
func (m *MockLessonService) CommitLessons(
	ctx context.Context,
	learnerID uuid.UUID,
	subjectIDs []int64,
) (*lessons.CommitResult, error) {
	if m.CommitLessonsFn == nil {
		return nil, ErrNotConfigured
	}
	return m.CommitLessonsFn(ctx, learnerID, subjectIDs)
}

// GetSettings implements lessons.LessonService.
func (m *MockLessonService) GetSettings(ctx context.Context, learnerID uuid.UUID) (*lessons.Settings, error) {
	if m.GetSettingsFn == nil {
		return nil, ErrNotConfigured
	}
	return m.GetSettingsFn(ctx, learnerID)
}

// UpdateSettings implements lessons.LessonService.
func (m *MockLessonService) UpdateSettings(
	ctx context.Context,
	learnerID uuid.UUID,
	settings domain.LessonSettings,
) (*lessons.Settings, error) {
	if m.UpdateSettingsFn == nil {
		return nil, ErrNotConfigured
	}
	return m.UpdateSettingsFn(ctx, learnerID, settings)
}
