package models

import (
	"time"

	"gorm.io/gorm"
)

// Training represents a training session in the database
type Training struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TrainingID string         `gorm:"uniqueIndex" json:"training_id"`
	CampaignID string         `gorm:"index" json:"campaign_id"`
	City       string         `gorm:"index" json:"city"`
	Address    string         `json:"address"`
	StartsAt   time.Time      `gorm:"index" json:"starts_at"`
	EndsAt     time.Time      `json:"ends_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// Campaign represents a recruitment campaign in the database
type Campaign struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CampaignID string         `gorm:"uniqueIndex" json:"campaign_id"`
	EditionID  string         `gorm:"index" json:"edition_id"`
	Name       string         `json:"name"`
	OpensAt    time.Time      `json:"opens_at"`
	ClosesAt   time.Time      `json:"closes_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
