package domain

import (
	"time"
)

// EventType constants
const (
	// Enrollment lifecycle events
	FormSubmitted                   = "V1_ENROLLMENT_FORM_SUBMITTED"
	CandidateAcceptedInvitation     = "V1_CANDIDATE_ACCEPTED_TRAINING_INVITATION"
	CandidateRefusedInvitation      = "V1_CANDIDATE_REFUSED_TRAINING_INVITATION"
	CandidateAttendedTraining       = "V1_CANDIDATE_ATTENDED_TRAINING"
	CandidateAbsentFromTraining     = "V1_CANDIDATE_ABSENT_FROM_TRAINING"
	CandidateObtainedLecturerRights = "V1_CANDIDATE_OBTAINED_LECTURER_RIGHTS"
	CandidateResignedPermanently    = "V1_CANDIDATE_RESIGNED_PERMANENTLY"
	CandidateResignedTemporarily    = "V1_CANDIDATE_RESIGNED_TEMPORARILY"
	ContactOccured                  = "V1_CONTACT_OCCURED"

	// Email audit events
	EmailSent          = "V1_EMAIL_SENT"
	EmailSendingFailed = "V1_EMAIL_SENDING_FAILED"
)

// Event represents a domain event
type Event struct {
	ID            string      `json:"id"`
	AggregateID   string      `json:"aggregate_id"`
	AggregateType string      `json:"aggregate_type"`
	Type          string      `json:"type"`
	Version       int         `json:"version"`
	Timestamp     time.Time   `json:"timestamp"`
	Data          interface{} `json:"data"`
}

// Enrollment Events

// FormSubmittedEvent records a candidate submitting the recruitment form.
// It (re)initializes every candidate field and clears prior resignation.
type FormSubmittedEvent struct {
	SubmittedAt          time.Time `json:"submitted_at"`
	Email                string    `json:"email"`
	Phone                string    `json:"phone"`
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	Region               string    `json:"region"`
	PreferredCities      []string  `json:"preferred_cities"`
	PreferredTrainingIDs []string  `json:"preferred_training_ids"`
	CampaignID           string    `json:"campaign_id"`
}

// CandidateAcceptedInvitationEvent records acceptance of a training invitation
type CandidateAcceptedInvitationEvent struct {
	TrainingID string    `json:"training_id"`
	AcceptedBy string    `json:"accepted_by"`
	Time       time.Time `json:"time"`
}

// CandidateRefusedInvitationEvent records refusal of a training invitation
type CandidateRefusedInvitationEvent struct {
	RefusedBy string    `json:"refused_by"`
	Time      time.Time `json:"time"`
}

// CandidateAttendedTrainingEvent records presence at the selected training
type CandidateAttendedTrainingEvent struct {
	TrainingID string    `json:"training_id"`
	RecordedBy string    `json:"recorded_by"`
	Time       time.Time `json:"time"`
}

// CandidateAbsentFromTrainingEvent records absence from an accepted training
type CandidateAbsentFromTrainingEvent struct {
	TrainingID string    `json:"training_id"`
	RecordedBy string    `json:"recorded_by"`
	Time       time.Time `json:"time"`
}

// CandidateObtainedLecturerRightsEvent records the lecturer-rights grant.
// The flag is monotonic: no later event revokes it.
type CandidateObtainedLecturerRightsEvent struct {
	GrantedBy string    `json:"granted_by"`
	Time      time.Time `json:"time"`
}

// CandidateResignedPermanentlyEvent records a permanent resignation
type CandidateResignedPermanentlyEvent struct {
	RecordedBy string    `json:"recorded_by"`
	Time       time.Time `json:"time"`
}

// CandidateResignedTemporarilyEvent records a temporary resignation with an
// optional resume date
type CandidateResignedTemporarilyEvent struct {
	ResumeDate *time.Time `json:"resume_date"`
	RecordedBy string     `json:"recorded_by"`
	Time       time.Time  `json:"time"`
}

// ContactOccuredEvent records a free-text contact-log entry
type ContactOccuredEvent struct {
	Note        string    `json:"note"`
	ContactedBy string    `json:"contacted_by"`
	Time        time.Time `json:"time"`
}

// Email audit events. Pure log entries: neither mutates derived state.

// EmailSentEvent records a successfully delivered reminder email
type EmailSentEvent struct {
	TrainingID string    `json:"training_id"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject"`
	Time       time.Time `json:"time"`
}

// EmailSendingFailedEvent records a failed reminder delivery attempt
type EmailSendingFailedEvent struct {
	TrainingID string    `json:"training_id"`
	Recipient  string    `json:"recipient"`
	Reason     string    `json:"reason"`
	Time       time.Time `json:"time"`
}
