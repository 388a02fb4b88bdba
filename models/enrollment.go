package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment is the denormalized read model row for one enrollment. It is
// created on form submission, mutated by the projector only, and never
// deleted. Resignation flags are stored raw; effectiveness is derived at
// query time.
type Enrollment struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	AggregateID           string         `gorm:"uniqueIndex" json:"aggregate_id"`
	Version               int            `json:"version"`
	SubmittedAt           time.Time      `json:"submitted_at"`
	Email                 string         `gorm:"index" json:"email"`
	Phone                 string         `json:"phone"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	Region                string         `gorm:"index" json:"region"`
	PreferredCities       []byte         `json:"preferred_cities"`
	CampaignID            string         `gorm:"index" json:"campaign_id"`
	CampaignEditionID     string         `json:"campaign_edition_id"`
	PreferredTrainings    []byte         `json:"preferred_trainings"`
	SelectedTrainingID    *string        `gorm:"index" json:"selected_training_id"`
	SelectedTraining      []byte         `json:"selected_training"`
	InvitationState       string         `gorm:"index" json:"invitation_state"`
	RefusedInvitation     bool           `json:"refused_invitation"`
	ResignedPermanently   bool           `gorm:"index" json:"resigned_permanently"`
	ResignedTemporarily   bool           `gorm:"index" json:"resigned_temporarily"`
	ResignationResumeDate *time.Time     `json:"resignation_resume_date"`
	HasLecturerRights     bool           `gorm:"index" json:"has_lecturer_rights"`
	TrainingResult        *string        `json:"training_result"`
	CanReportUncond       bool           `json:"can_report_unconditionally"`
	CanReportCond         bool           `json:"can_report_conditionally"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// TrainingSummary is the denormalized per-training snippet embedded in the
// read model row as JSON
type TrainingSummary struct {
	TrainingID string    `json:"training_id"`
	City       string    `json:"city"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}
