package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AggregateBase provides common aggregate functionality
type AggregateBase struct {
	id            string
	aggregateType string
	version       int
	events        []Event
	applier       func(event interface{}) error
}

// Aggregate is the interface for all aggregates
type Aggregate interface {
	GetID() string
	GetType() string
	GetVersion() int
	GetEvents() []Event
	ClearEvents()
	Apply(event interface{}) error
}

// NewAggregateBase creates a new aggregate base
func NewAggregateBase(aggregateType string, applier func(interface{}) error) *AggregateBase {
	return &AggregateBase{
		id:            uuid.New().String(),
		aggregateType: aggregateType,
		version:       0,
		events:        []Event{},
		applier:       applier,
	}
}

// GetID returns the aggregate ID
func (a *AggregateBase) GetID() string {
	return a.id
}

// SetID sets the aggregate ID
func (a *AggregateBase) SetID(id string) {
	a.id = id
}

// GetType returns the aggregate type
func (a *AggregateBase) GetType() string {
	return a.aggregateType
}

// GetVersion returns the aggregate version
func (a *AggregateBase) GetVersion() int {
	return a.version
}

// GetEvents returns the uncommitted events
func (a *AggregateBase) GetEvents() []Event {
	return a.events
}

// ClearEvents clears the uncommitted events
func (a *AggregateBase) ClearEvents() {
	a.events = []Event{}
}

// IsNew reports whether the aggregate has no history yet
func (a *AggregateBase) IsNew() bool {
	return a.version == 0
}

// Apply applies an event to the aggregate
func (a *AggregateBase) Apply(event interface{}) error {
	if a.applier == nil {
		return fmt.Errorf("applier is not set")
	}

	// Apply the event to update the aggregate state
	if err := a.applier(event); err != nil {
		return fmt.Errorf("failed to apply event: %w", err)
	}

	// Create a new domain event
	domainEvent := Event{
		AggregateID:   a.id,
		AggregateType: a.aggregateType,
		Version:       a.version + 1,
		Timestamp:     time.Now(),
		Data:          event,
	}

	// Set the event type based on the event struct
	switch event.(type) {
	case FormSubmittedEvent:
		domainEvent.Type = FormSubmitted
	case CandidateAcceptedInvitationEvent:
		domainEvent.Type = CandidateAcceptedInvitation
	case CandidateRefusedInvitationEvent:
		domainEvent.Type = CandidateRefusedInvitation
	case CandidateAttendedTrainingEvent:
		domainEvent.Type = CandidateAttendedTraining
	case CandidateAbsentFromTrainingEvent:
		domainEvent.Type = CandidateAbsentFromTraining
	case CandidateObtainedLecturerRightsEvent:
		domainEvent.Type = CandidateObtainedLecturerRights
	case CandidateResignedPermanentlyEvent:
		domainEvent.Type = CandidateResignedPermanently
	case CandidateResignedTemporarilyEvent:
		domainEvent.Type = CandidateResignedTemporarily
	case ContactOccuredEvent:
		domainEvent.Type = ContactOccured
	case EmailSentEvent:
		domainEvent.Type = EmailSent
	case EmailSendingFailedEvent:
		domainEvent.Type = EmailSendingFailed
	default:
		return fmt.Errorf("unknown event type: %T", event)
	}

	// Store the event
	a.events = append(a.events, domainEvent)

	// Increment version
	a.version++

	return nil
}
