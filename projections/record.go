package projections

import (
	"encoding/json"
	"fmt"

	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/models"
)

// InitRecordFromSubmission (re)initializes a read model row from a form
// submission. Prior resignation, invitation and result state is cleared;
// lecturer rights survive re-engagement.
func InitRecordFromSubmission(rec *models.Enrollment, event domain.Event, data domain.FormSubmittedEvent, campaign domain.Campaign, summaries []models.TrainingSummary) error {
	cities, err := json.Marshal(data.PreferredCities)
	if err != nil {
		return fmt.Errorf("failed to marshal preferred cities: %w", err)
	}
	trainings, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("failed to marshal training summaries: %w", err)
	}

	rec.AggregateID = event.AggregateID
	rec.Version = event.Version
	rec.SubmittedAt = data.SubmittedAt
	rec.Email = data.Email
	rec.Phone = data.Phone
	rec.FirstName = data.FirstName
	rec.LastName = data.LastName
	rec.Region = data.Region
	rec.PreferredCities = cities
	rec.CampaignID = campaign.ID
	rec.CampaignEditionID = campaign.EditionID
	rec.PreferredTrainings = trainings
	rec.SelectedTrainingID = nil
	rec.SelectedTraining = nil
	rec.InvitationState = string(domain.InvitationNotInvited)
	rec.RefusedInvitation = false
	rec.ResignedPermanently = false
	rec.ResignedTemporarily = false
	rec.ResignationResumeDate = nil
	rec.TrainingResult = nil
	rec.UpdatedAt = event.Timestamp

	recomputeReportFlags(rec)
	return nil
}

// MutateRecord applies one non-creating event to an existing row
func MutateRecord(rec *models.Enrollment, event domain.Event) error {
	switch event.Type {
	case domain.CandidateAcceptedInvitation:
		var data domain.CandidateAcceptedInvitationEvent
		if err := decodeData(event, &data); err != nil {
			return err
		}
		summary, err := findSummary(rec, data.TrainingID)
		if err != nil {
			return fmt.Errorf("%w: %v for event %s", ErrProjectionCorrupted, err, event.ID)
		}
		selectedDoc, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to marshal selected training: %w", err)
		}
		id := data.TrainingID
		rec.SelectedTrainingID = &id
		rec.SelectedTraining = selectedDoc
		rec.InvitationState = string(domain.InvitationAccepted)
		rec.RefusedInvitation = false
		// Acceptance re-engages the candidate
		rec.ResignedPermanently = false
		rec.ResignedTemporarily = false
		rec.ResignationResumeDate = nil

	case domain.CandidateRefusedInvitation:
		rec.InvitationState = string(domain.InvitationRefused)
		rec.RefusedInvitation = true
		rec.SelectedTrainingID = nil
		rec.SelectedTraining = nil

	case domain.CandidateAttendedTraining:
		result := string(domain.ResultPresent)
		rec.TrainingResult = &result

	case domain.CandidateAbsentFromTraining:
		result := string(domain.ResultAbsent)
		rec.TrainingResult = &result

	case domain.CandidateObtainedLecturerRights:
		rec.HasLecturerRights = true
		if rec.TrainingResult != nil && *rec.TrainingResult == string(domain.ResultPresent) {
			result := string(domain.ResultPresentAndLecturer)
			rec.TrainingResult = &result
		}

	case domain.CandidateResignedPermanently:
		rec.ResignedPermanently = true
		rec.ResignedTemporarily = false
		rec.ResignationResumeDate = nil
		rec.SelectedTrainingID = nil
		rec.SelectedTraining = nil

	case domain.CandidateResignedTemporarily:
		var data domain.CandidateResignedTemporarilyEvent
		if err := decodeData(event, &data); err != nil {
			return err
		}
		rec.ResignedPermanently = false
		rec.ResignedTemporarily = true
		rec.ResignationResumeDate = data.ResumeDate
		rec.SelectedTrainingID = nil
		rec.SelectedTraining = nil

	case domain.ContactOccured:
		// Notes live in the event history only; just track the version

	default:
		return nil
	}

	rec.Version = event.Version
	rec.UpdatedAt = event.Timestamp
	recomputeReportFlags(rec)
	return nil
}

// recomputeReportFlags refreshes the two cached authorization-style flags so
// list screens never need a full replay
func recomputeReportFlags(rec *models.Enrollment) {
	resultSet := rec.TrainingResult != nil
	resigned := rec.ResignedPermanently || rec.ResignedTemporarily

	rec.CanReportUncond = rec.InvitationState == string(domain.InvitationAccepted) &&
		!resultSet && !resigned
	rec.CanReportCond = !resultSet && !rec.ResignedPermanently
}

// findSummary resolves a training snippet from the row's embedded preferred
// summaries
func findSummary(rec *models.Enrollment, trainingID string) (models.TrainingSummary, error) {
	var summaries []models.TrainingSummary
	if err := json.Unmarshal(rec.PreferredTrainings, &summaries); err != nil {
		return models.TrainingSummary{}, fmt.Errorf("failed to unmarshal training summaries: %w", err)
	}
	for _, s := range summaries {
		if s.TrainingID == trainingID {
			return s, nil
		}
	}
	return models.TrainingSummary{}, fmt.Errorf("training %s not among preferred summaries", trainingID)
}

// decodeData unmarshals the event payload whether it arrives as raw bytes
// from the store or as the typed struct from an in-process apply
func decodeData(event domain.Event, target interface{}) error {
	switch d := event.Data.(type) {
	case []byte:
		if err := json.Unmarshal(d, target); err != nil {
			return fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return nil
	case json.RawMessage:
		if err := json.Unmarshal(d, target); err != nil {
			return fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return nil
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return nil
	}
}
