package eventstore

import (
	"context"
	"errors"

	"example.com/outreach/services/enrollment/domain"
)

// ErrVersionConflict is returned when a concurrent writer appended to the
// same aggregate first. The caller may reload and retry the whole command.
var ErrVersionConflict = errors.New("aggregate version conflict")

// EventStore is the interface for event storage
type EventStore interface {
	// Save appends an aggregate's uncommitted events to the store
	Save(ctx context.Context, aggregate domain.Aggregate) error

	// Load replays an aggregate from the store
	Load(ctx context.Context, aggregate domain.Aggregate) error

	// Exists checks if an aggregate exists
	Exists(ctx context.Context, aggregateID string) (bool, error)

	// GetUnprocessedEvents gets unprocessed events ordered per aggregate
	GetUnprocessedEvents(ctx context.Context, limit int) ([]domain.Event, error)

	// MarkEventAsProcessed marks an event as processed
	MarkEventAsProcessed(ctx context.Context, eventID string) error

	// MarkEventAsFailed records a processing failure on an event
	MarkEventAsFailed(ctx context.Context, eventID string, reason string) error
}
