package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/kotoba-api/internal/domain"
)

// Common errors
var (
	ErrNilCard = errors.New("review card cannot be nil")
)

// Service defines the interface for memory scheduler operations.
type Service interface {
	// Reschedule returns the card as it stands after a review graded with
	// outcome at now, using the learner's scheduler parameters. The input
	// card is not modified.
	Reschedule(
		card *domain.ReviewCard,
		outcome domain.Outcome,
		now time.Time,
		params domain.SchedulerParams,
	) (*domain.ReviewCard, error)

	// DefaultSchedulerParams returns the weight set a new learner is seeded with.
	DefaultSchedulerParams() domain.SchedulerParams
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new scheduler with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new scheduler with custom parameters
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params cannot be nil", domain.ErrInvalidSchedulerParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{
		params: params,
	}, nil
}

// Reschedule implements Service.
func (s *defaultService) Reschedule(
	card *domain.ReviewCard,
	outcome domain.Outcome,
	now time.Time,
	params domain.SchedulerParams,
) (*domain.ReviewCard, error) {
	if card == nil {
		return nil, ErrNilCard
	}
	if !outcome.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidOutcome, outcome)
	}
	if !card.State.Valid() {
		return nil, domain.ErrInvalidCardState
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return calculateNextCard(card, outcome, now, params, s.params), nil
}

// DefaultSchedulerParams implements Service.
func (s *defaultService) DefaultSchedulerParams() domain.SchedulerParams {
	return s.params.Scheduler.Clone()
}
