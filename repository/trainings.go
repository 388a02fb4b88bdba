package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/models"
)

// TrainingRepository resolves training and campaign references for command
// validation and projection
type TrainingRepository interface {
	GetByID(ctx context.Context, trainingID string) (domain.Training, error)
	GetByIDs(ctx context.Context, trainingIDs []string) ([]domain.Training, error)
	GetCampaignByID(ctx context.Context, campaignID string) (domain.Campaign, error)
}

// GormTrainingRepository implements TrainingRepository using GORM
type GormTrainingRepository struct {
	db *gorm.DB
}

// NewGormTrainingRepository creates a new training repository
func NewGormTrainingRepository(db *gorm.DB) *GormTrainingRepository {
	return &GormTrainingRepository{db: db}
}

// GetByID resolves a single training
func (r *GormTrainingRepository) GetByID(ctx context.Context, trainingID string) (domain.Training, error) {
	var row models.Training
	if err := r.db.WithContext(ctx).
		Where("training_id = ?", trainingID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Training{}, ErrNotFound
		}
		return domain.Training{}, fmt.Errorf("failed to get training: %w", err)
	}

	return toDomainTraining(row), nil
}

// GetByIDs resolves a set of trainings. Unknown IDs are simply absent from
// the result; callers decide whether a partial resolution is an error.
func (r *GormTrainingRepository) GetByIDs(ctx context.Context, trainingIDs []string) ([]domain.Training, error) {
	if len(trainingIDs) == 0 {
		return nil, nil
	}

	var rows []models.Training
	if err := r.db.WithContext(ctx).
		Where("training_id IN ?", trainingIDs).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get trainings: %w", err)
	}

	trainings := make([]domain.Training, len(rows))
	for i, row := range rows {
		trainings[i] = toDomainTraining(row)
	}
	return trainings, nil
}

// GetCampaignByID resolves a campaign with its open interval
func (r *GormTrainingRepository) GetCampaignByID(ctx context.Context, campaignID string) (domain.Campaign, error) {
	var row models.Campaign
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Campaign{}, ErrNotFound
		}
		return domain.Campaign{}, fmt.Errorf("failed to get campaign: %w", err)
	}

	return domain.Campaign{
		ID:        row.CampaignID,
		EditionID: row.EditionID,
		OpensAt:   row.OpensAt,
		ClosesAt:  row.ClosesAt,
	}, nil
}

func toDomainTraining(row models.Training) domain.Training {
	return domain.Training{
		ID:         row.TrainingID,
		CampaignID: row.CampaignID,
		City:       row.City,
		StartsAt:   row.StartsAt,
		EndsAt:     row.EndsAt,
	}
}
