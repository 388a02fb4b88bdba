package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/models"
)

// GormEventStore implements EventStore using GORM
type GormEventStore struct {
	db *gorm.DB
}

// NewGormEventStore creates a new GORM event store
func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

// Save appends an aggregate's uncommitted events to the store. The unique
// (aggregate_id, version) index detects concurrent writers: a duplicate key
// on insert surfaces as ErrVersionConflict and nothing is committed.
func (s *GormEventStore) Save(ctx context.Context, aggregate domain.Aggregate) error {
	events := aggregate.GetEvents()
	if len(events) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, event := range events {
			data, err := json.Marshal(event.Data)
			if err != nil {
				return fmt.Errorf("failed to marshal event data: %w", err)
			}

			dbEvent := models.Event{
				EventID:       uuid.New().String(),
				AggregateID:   event.AggregateID,
				AggregateType: event.AggregateType,
				EventType:     event.Type,
				Data:          data,
				Version:       event.Version,
				Timestamp:     event.Timestamp,
				Processed:     false,
			}

			if err := tx.Create(&dbEvent).Error; err != nil {
				if isDuplicateKey(err) {
					return ErrVersionConflict
				}
				return fmt.Errorf("failed to save event: %w", err)
			}

			log.Info().
				Str("aggregateID", event.AggregateID).
				Str("eventType", event.Type).
				Int("version", event.Version).
				Msg("Event saved")
		}
		return nil
	})
	if err != nil {
		return err
	}

	aggregate.ClearEvents()
	return nil
}

// Load replays an aggregate from the store
func (s *GormEventStore) Load(ctx context.Context, aggregate domain.Aggregate) error {
	aggregateID := aggregate.GetID()
	if aggregateID == "" {
		return fmt.Errorf("aggregate ID is empty")
	}

	var dbEvents []models.Event
	if err := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("version ASC").
		Find(&dbEvents).Error; err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	// No events means the aggregate doesn't exist yet
	if len(dbEvents) == 0 {
		return nil
	}

	for _, dbEvent := range dbEvents {
		eventData, err := decodeEventData(dbEvent.EventType, dbEvent.Data)
		if err != nil {
			return err
		}

		if err := aggregate.Apply(eventData); err != nil {
			return fmt.Errorf("failed to apply event: %w", err)
		}
	}

	aggregate.ClearEvents()
	return nil
}

// decodeEventData unmarshals an event row's payload into its typed form
func decodeEventData(eventType string, data []byte) (interface{}, error) {
	var (
		eventData interface{}
		err       error
	)

	switch eventType {
	case domain.FormSubmitted:
		var e domain.FormSubmittedEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	case domain.CandidateAcceptedInvitation:
		var e domain.CandidateAcceptedInvitationEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	case domain.CandidateRefusedInvitation:
		var e domain.CandidateRefusedInvitationEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	case domain.CandidateAttendedTraining:
		var e domain.CandidateAttendedTrainingEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	case domain.CandidateAbsentFromTraining:
		var e domain.CandidateAbsentFromTrainingEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	case domain.CandidateObtainedLecturerRights:
		var e domain.CandidateObtainedLecturerRightsEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	case domain.CandidateResignedPermanently:
		var e domain.CandidateResignedPermanentlyEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	case domain.CandidateResignedTemporarily:
		var e domain.CandidateResignedTemporarilyEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	case domain.ContactOccured:
		var e domain.ContactOccuredEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	case domain.EmailSent:
		var e domain.EmailSentEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	case domain.EmailSendingFailed:
		var e domain.EmailSendingFailedEvent
		err = json.Unmarshal(data, &e)
		eventData = e

	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}
	return eventData, nil
}

// Exists checks if an aggregate exists
func (s *GormEventStore) Exists(ctx context.Context, aggregateID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("aggregate_id = ?", aggregateID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check if aggregate exists: %w", err)
	}

	return count > 0, nil
}

// GetUnprocessedEvents gets unprocessed events. Events of one aggregate are
// ordered by version, not timestamp: the two events of an attendance command
// are stamped microseconds apart and can tie in the database, while versions
// are unique per aggregate.
func (s *GormEventStore) GetUnprocessedEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	var dbEvents []models.Event
	if err := s.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("aggregate_id ASC, version ASC").
		Limit(limit).
		Find(&dbEvents).Error; err != nil {
		return nil, fmt.Errorf("failed to get unprocessed events: %w", err)
	}

	events := make([]domain.Event, len(dbEvents))
	for i, dbEvent := range dbEvents {
		events[i] = domain.Event{
			ID:            dbEvent.EventID,
			AggregateID:   dbEvent.AggregateID,
			AggregateType: dbEvent.AggregateType,
			Type:          dbEvent.EventType,
			Version:       dbEvent.Version,
			Timestamp:     dbEvent.Timestamp,
			Data:          dbEvent.Data,
		}
	}

	return events, nil
}

// MarkEventAsProcessed marks an event as processed and clears any failure
// recorded by an earlier attempt
func (s *GormEventStore) MarkEventAsProcessed(ctx context.Context, eventID string) error {
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processed":  true,
			"error":      nil,
			"updated_at": time.Now(),
		}).Error; err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}

	return nil
}

// MarkEventAsFailed records why processing an event failed
func (s *GormEventStore) MarkEventAsFailed(ctx context.Context, eventID string, reason string) error {
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"error":      &reason,
			"updated_at": time.Now(),
		}).Error; err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}

	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key")
}
