package domain

import "time"

// Training is the resolved view of a training session used by command
// validation. Lookup happens in the handlers; the aggregate only reasons
// about the resolved values.
type Training struct {
	ID         string
	CampaignID string
	City       string
	StartsAt   time.Time
	EndsAt     time.Time
}

// Campaign is the resolved view of a recruitment campaign with its open
// interval and edition reference.
type Campaign struct {
	ID        string
	EditionID string
	OpensAt   time.Time
	ClosesAt  time.Time
}

// IsOpenAt reports whether the campaign's open interval contains the instant
func (c Campaign) IsOpenAt(t time.Time) bool {
	return !t.Before(c.OpensAt) && !t.After(c.ClosesAt)
}

// TrainingsByID indexes resolved trainings by their ID
func TrainingsByID(trainings []Training) map[string]Training {
	byID := make(map[string]Training, len(trainings))
	for _, t := range trainings {
		byID[t.ID] = t
	}
	return byID
}

// AnyStartsAfter reports whether at least one training starts strictly after
// the given instant
func AnyStartsAfter(trainings []Training, now time.Time) bool {
	for _, t := range trainings {
		if t.StartsAt.After(now) {
			return true
		}
	}
	return false
}
