package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the learning services.
const (
	TypeLessonsCommitted = "lessons_committed"
	TypeLevelAdvanced    = "level_advanced"
	TypeReviewRecorded   = "review_recorded"
)

// Event is a notification that something changed in a learner's progress.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// LearnerID is the learner whose progress changed
	LearnerID uuid.UUID `json:"learner_id"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// LessonsCommittedPayload is the payload of TypeLessonsCommitted.
type LessonsCommittedPayload struct {
	SubjectIDs     []int64 `json:"subject_ids"`
	CardCount      int     `json:"card_count"`
	RemainingQuota int     `json:"remaining_quota"`
}

// LevelAdvancedPayload is the payload of TypeLevelAdvanced.
type LevelAdvancedPayload struct {
	FromLevel int `json:"from_level"`
	ToLevel   int `json:"to_level"`
}

// ReviewRecordedPayload is the payload of TypeReviewRecorded.
type ReviewRecordedPayload struct {
	SubjectID     int64     `json:"subject_id"`
	Aspect        string    `json:"aspect"`
	Outcome       string    `json:"outcome"`
	State         string    `json:"state"`
	ScheduledDays int       `json:"scheduled_days"`
	Due           time.Time `json:"due"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event for learnerID with the specified type and payload.
func NewEvent(eventType string, learnerID uuid.UUID, payload any, now time.Time) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		LearnerID: learnerID,
		Payload:   payloadBytes,
		CreatedAt: now.UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}

// Discard is an EventEmitter that drops every event.
var Discard EventEmitter = discardEmitter{}

type discardEmitter struct{}

func (discardEmitter) EmitEvent(context.Context, *Event) error { return nil }
