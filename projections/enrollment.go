package projections

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v7"
	"gorm.io/gorm"

	"example.com/outreach/services/enrollment/config"
	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/models"
	"example.com/outreach/services/enrollment/repository"
)

// Constants for index names
const (
	EnrollmentsIndex      = "enrollments"
	EnrollmentEventsIndex = "enrollment-events"
)

// ErrProjectionCorrupted marks upstream data corruption: an event references
// a training or record that cannot be resolved. Retrying cannot fix it, so
// the processor must stop instead of silently drifting from the event
// history.
var ErrProjectionCorrupted = errors.New("projection corrupted")

// EnrollmentProjector incrementally folds enrollment events into the
// denormalized read model and mirrors every row into Elasticsearch
type EnrollmentProjector struct {
	db            *gorm.DB
	elasticClient *elasticsearch.Client
	trainings     repository.TrainingRepository
	cfg           config.Config
}

// NewEnrollmentProjector creates a new enrollment projector
func NewEnrollmentProjector(db *gorm.DB, elasticClient *elasticsearch.Client, trainings repository.TrainingRepository, cfg config.Config) *EnrollmentProjector {
	return &EnrollmentProjector{
		db:            db,
		elasticClient: elasticClient,
		trainings:     trainings,
		cfg:           cfg,
	}
}

// Project applies one event to the read model. Events that do not affect the
// projection (email audit entries) are ignored.
func (p *EnrollmentProjector) Project(ctx context.Context, event domain.Event) error {
	switch event.Type {
	case domain.FormSubmitted:
		return p.projectFormSubmitted(ctx, event)
	case domain.CandidateAcceptedInvitation,
		domain.CandidateRefusedInvitation,
		domain.CandidateAttendedTraining,
		domain.CandidateAbsentFromTraining,
		domain.CandidateObtainedLecturerRights,
		domain.CandidateResignedPermanently,
		domain.CandidateResignedTemporarily,
		domain.ContactOccured:
		return p.projectMutation(ctx, event)
	default:
		return nil
	}
}

// projectFormSubmitted creates (or on re-engagement, re-initializes) the
// read model row
func (p *EnrollmentProjector) projectFormSubmitted(ctx context.Context, event domain.Event) error {
	var data domain.FormSubmittedEvent
	if err := decodeData(event, &data); err != nil {
		return err
	}

	summaries, err := p.resolveSummaries(ctx, data.PreferredTrainingIDs)
	if err != nil {
		return err
	}

	campaign, err := p.trainings.GetCampaignByID(ctx, data.CampaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: campaign %s referenced by event %s", ErrProjectionCorrupted, data.CampaignID, event.ID)
		}
		return fmt.Errorf("failed to resolve campaign: %w", err)
	}

	var rec models.Enrollment
	err = p.db.WithContext(ctx).
		Where("aggregate_id = ?", event.AggregateID).
		First(&rec).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load enrollment record: %w", err)
	}
	created := errors.Is(err, gorm.ErrRecordNotFound)

	if err := InitRecordFromSubmission(&rec, event, data, campaign, summaries); err != nil {
		return err
	}

	if created {
		rec.CreatedAt = event.Timestamp
		if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create enrollment record: %w", err)
		}
	} else {
		if err := p.db.WithContext(ctx).Save(&rec).Error; err != nil {
			return fmt.Errorf("failed to update enrollment record: %w", err)
		}
	}

	return p.indexRecord(ctx, &rec, event)
}

// projectMutation loads the existing row and applies one narrowly scoped
// mutation to it
func (p *EnrollmentProjector) projectMutation(ctx context.Context, event domain.Event) error {
	var rec models.Enrollment
	if err := p.db.WithContext(ctx).
		Where("aggregate_id = ?", event.AggregateID).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: enrollment %s missing for event %s", ErrProjectionCorrupted, event.AggregateID, event.ID)
		}
		return fmt.Errorf("failed to load enrollment record: %w", err)
	}

	if err := MutateRecord(&rec, event); err != nil {
		return err
	}

	if err := p.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to update enrollment record: %w", err)
	}

	return p.indexRecord(ctx, &rec, event)
}

// resolveSummaries builds the denormalized training snippets. An
// unresolvable training ID means the event history references data that no
// longer exists, which is fatal.
func (p *EnrollmentProjector) resolveSummaries(ctx context.Context, trainingIDs []string) ([]models.TrainingSummary, error) {
	trainings, err := p.trainings.GetByIDs(ctx, trainingIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve trainings: %w", err)
	}

	byID := domain.TrainingsByID(trainings)
	summaries := make([]models.TrainingSummary, 0, len(trainingIDs))
	for _, id := range trainingIDs {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: training %s cannot be resolved", ErrProjectionCorrupted, id)
		}
		summaries = append(summaries, models.TrainingSummary{
			TrainingID: t.ID,
			City:       t.City,
			StartsAt:   t.StartsAt,
			EndsAt:     t.EndsAt,
		})
	}
	return summaries, nil
}

// indexRecord mirrors the row and the event into Elasticsearch
func (p *EnrollmentProjector) indexRecord(ctx context.Context, rec *models.Enrollment, event domain.Event) error {
	if p.elasticClient == nil {
		return nil
	}

	recDoc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal enrollment record: %w", err)
	}

	index := FormatIndex(EnrollmentsIndex, p.cfg)
	res, err := p.elasticClient.Index(
		index,
		bytes.NewReader(recDoc),
		p.elasticClient.Index.WithDocumentID(rec.AggregateID),
		p.elasticClient.Index.WithRefresh("true"),
		p.elasticClient.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index enrollment in Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index enrollment in Elasticsearch: %s", res.String())
	}

	eventDoc, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	index = FormatIndex(EnrollmentEventsIndex, p.cfg)
	res, err = p.elasticClient.Index(
		index,
		bytes.NewReader(eventDoc),
		p.elasticClient.Index.WithDocumentID(event.ID),
		p.elasticClient.Index.WithRefresh("true"),
		p.elasticClient.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index event in Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index event in Elasticsearch: %s", res.String())
	}

	return nil
}
