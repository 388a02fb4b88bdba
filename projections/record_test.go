package projections

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/models"
)

var projBase = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func projCampaign() domain.Campaign {
	return domain.Campaign{
		ID:        "camp-1",
		EditionID: "edition-2025",
		OpensAt:   projBase.Add(-30 * 24 * time.Hour),
		ClosesAt:  projBase.Add(30 * 24 * time.Hour),
	}
}

func projTrainings() []domain.Training {
	return []domain.Training{
		{
			ID:         "tr-1",
			CampaignID: "camp-1",
			City:       "Warsaw",
			StartsAt:   projBase.Add(10 * 24 * time.Hour),
			EndsAt:     projBase.Add(10*24*time.Hour + 8*time.Hour),
		},
		{
			ID:         "tr-2",
			CampaignID: "camp-1",
			City:       "Krakow",
			StartsAt:   projBase.Add(14 * 24 * time.Hour),
			EndsAt:     projBase.Add(14*24*time.Hour + 8*time.Hour),
		},
	}
}

func projSummaries(trainings []domain.Training) []models.TrainingSummary {
	summaries := make([]models.TrainingSummary, len(trainings))
	for i, t := range trainings {
		summaries[i] = models.TrainingSummary{
			TrainingID: t.ID,
			City:       t.City,
			StartsAt:   t.StartsAt,
			EndsAt:     t.EndsAt,
		}
	}
	return summaries
}

// submitEvents drives the aggregate through its commands and returns the row
// initialized from the submission event plus the remaining event stream
func projectedRow(t *testing.T, aggregate *domain.EnrollmentAggregate) *models.Enrollment {
	t.Helper()

	events := aggregate.GetEvents()
	require.NotEmpty(t, events)
	require.Equal(t, domain.FormSubmitted, events[0].Type)

	var data domain.FormSubmittedEvent
	raw, err := json.Marshal(events[0].Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &data))

	rec := &models.Enrollment{}
	require.NoError(t, InitRecordFromSubmission(rec, events[0], data, projCampaign(), projSummaries(projTrainings())))

	for _, event := range events[1:] {
		require.NoError(t, MutateRecord(rec, event))
	}
	return rec
}

func newSubmittedAggregate(t *testing.T) *domain.EnrollmentAggregate {
	t.Helper()
	aggregate := domain.NewEnrollmentAggregate("enr-1")
	form := domain.SubmissionForm{
		Email:                "jan.kowalski@example.com",
		Phone:                "+48123456789",
		FirstName:            "Jan",
		LastName:             "Kowalski",
		Region:               "Mazowieckie",
		PreferredCities:      []string{"Warsaw", "Krakow"},
		PreferredTrainingIDs: []string{"tr-1", "tr-2"},
	}
	require.NoError(t, aggregate.SubmitForm(form, projTrainings(), projCampaign(), projBase))
	return aggregate
}

func TestInitRecordFromSubmission(t *testing.T) {
	aggregate := newSubmittedAggregate(t)
	rec := projectedRow(t, aggregate)

	require.Equal(t, "enr-1", rec.AggregateID)
	require.Equal(t, 1, rec.Version)
	require.Equal(t, "jan.kowalski@example.com", rec.Email)
	require.Equal(t, "camp-1", rec.CampaignID)
	require.Equal(t, "edition-2025", rec.CampaignEditionID)
	require.Equal(t, string(domain.InvitationNotInvited), rec.InvitationState)
	require.Nil(t, rec.SelectedTrainingID)
	require.Nil(t, rec.TrainingResult)
	require.False(t, rec.CanReportUncond)
	require.True(t, rec.CanReportCond)

	var summaries []models.TrainingSummary
	require.NoError(t, json.Unmarshal(rec.PreferredTrainings, &summaries))
	require.Len(t, summaries, 2)
	require.Equal(t, "Warsaw", summaries[0].City)
}

func TestResubmissionReinitializesRow(t *testing.T) {
	aggregate := newSubmittedAggregate(t)
	trainings := projTrainings()
	require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", projBase))
	rec := projectedRow(t, aggregate)
	require.NotNil(t, rec.SelectedTrainingID)

	// Re-engagement: project a fresh submission onto the same row
	var data domain.FormSubmittedEvent
	event := domain.Event{
		ID:          "ev-next",
		AggregateID: "enr-1",
		Type:        domain.FormSubmitted,
		Version:     rec.Version + 1,
		Timestamp:   projBase.Add(48 * time.Hour),
	}
	data.SubmittedAt = projBase.Add(48 * time.Hour)
	data.Email = "jan.kowalski@example.com"
	data.FirstName = "Jan"
	data.LastName = "Kowalski"
	data.PreferredTrainingIDs = []string{"tr-2"}

	rec.HasLecturerRights = true
	require.NoError(t, InitRecordFromSubmission(rec, event, data, projCampaign(), projSummaries(projTrainings()[1:])))

	require.Nil(t, rec.SelectedTrainingID)
	require.Equal(t, string(domain.InvitationNotInvited), rec.InvitationState)
	require.False(t, rec.ResignedPermanently)
	require.False(t, rec.ResignedTemporarily)
	// Lecturer rights survive re-engagement
	require.True(t, rec.HasLecturerRights)
}

func TestMutateRecordAcceptance(t *testing.T) {
	aggregate := newSubmittedAggregate(t)
	trainings := projTrainings()
	require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", projBase))

	rec := projectedRow(t, aggregate)

	require.Equal(t, string(domain.InvitationAccepted), rec.InvitationState)
	require.NotNil(t, rec.SelectedTrainingID)
	require.Equal(t, "tr-1", *rec.SelectedTrainingID)

	var selected models.TrainingSummary
	require.NoError(t, json.Unmarshal(rec.SelectedTraining, &selected))
	require.Equal(t, "Warsaw", selected.City)
}

func TestMutateRecordUnknownSelectedTrainingIsCorruption(t *testing.T) {
	aggregate := newSubmittedAggregate(t)
	rec := projectedRow(t, aggregate)

	event := domain.Event{
		ID:      "ev-bad",
		Type:    domain.CandidateAcceptedInvitation,
		Version: rec.Version + 1,
		Data: domain.CandidateAcceptedInvitationEvent{
			TrainingID: "tr-unknown",
			AcceptedBy: "coordinator",
			Time:       projBase,
		},
	}

	err := MutateRecord(rec, event)
	require.ErrorIs(t, err, ErrProjectionCorrupted)
}

func TestMutateRecordResignations(t *testing.T) {
	t.Run("temporary then permanent", func(t *testing.T) {
		aggregate := newSubmittedAggregate(t)
		resume := projBase.Add(7 * 24 * time.Hour)
		require.NoError(t, aggregate.RecordResignation(domain.ResignationTemporary, &resume, "coordinator", projBase))
		require.NoError(t, aggregate.RecordResignation(domain.ResignationPermanent, nil, "coordinator", projBase))

		rec := projectedRow(t, aggregate)
		require.True(t, rec.ResignedPermanently)
		require.False(t, rec.ResignedTemporarily)
		require.Nil(t, rec.ResignationResumeDate)
	})

	t.Run("acceptance clears resignation", func(t *testing.T) {
		aggregate := newSubmittedAggregate(t)
		trainings := projTrainings()
		resume := projBase.Add(7 * 24 * time.Hour)
		require.NoError(t, aggregate.RecordResignation(domain.ResignationTemporary, &resume, "coordinator", projBase))
		require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", projBase))

		rec := projectedRow(t, aggregate)
		require.False(t, rec.ResignedPermanently)
		require.False(t, rec.ResignedTemporarily)
		require.Nil(t, rec.ResignationResumeDate)
	})
}

func TestMutateRecordLecturerRights(t *testing.T) {
	aggregate := newSubmittedAggregate(t)
	trainings := projTrainings()
	afterEnd := trainings[0].EndsAt.Add(time.Hour)
	require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", projBase))
	require.NoError(t, aggregate.RecordTrainingResults(domain.ResultPresentAndLecturer, trainings[0], "trainer", afterEnd))

	rec := projectedRow(t, aggregate)
	require.True(t, rec.HasLecturerRights)
	require.NotNil(t, rec.TrainingResult)
	require.Equal(t, string(domain.ResultPresentAndLecturer), *rec.TrainingResult)
}

// TestProjectionAgreement replays command-generated event streams through the
// projection mutators and checks the cached flags against the aggregate's own
// predicates.
func TestProjectionAgreement(t *testing.T) {
	trainings := projTrainings()
	afterEnd := trainings[0].EndsAt.Add(time.Hour)
	resume := projBase.Add(7 * 24 * time.Hour)

	scenarios := []struct {
		name  string
		drive func(t *testing.T, a *domain.EnrollmentAggregate)
	}{
		{
			name:  "submission only",
			drive: func(t *testing.T, a *domain.EnrollmentAggregate) {},
		},
		{
			name: "accepted",
			drive: func(t *testing.T, a *domain.EnrollmentAggregate) {
				require.NoError(t, a.AcceptTrainingInvitation(trainings[0], trainings, "c", projBase))
			},
		},
		{
			name: "refused",
			drive: func(t *testing.T, a *domain.EnrollmentAggregate) {
				require.NoError(t, a.RefuseTrainingInvitation(trainings, "c", projBase))
			},
		},
		{
			name: "refused then accepted",
			drive: func(t *testing.T, a *domain.EnrollmentAggregate) {
				require.NoError(t, a.RefuseTrainingInvitation(trainings, "c", projBase))
				require.NoError(t, a.AcceptTrainingInvitation(trainings[1], trainings, "c", projBase))
			},
		},
		{
			name: "attended",
			drive: func(t *testing.T, a *domain.EnrollmentAggregate) {
				require.NoError(t, a.AcceptTrainingInvitation(trainings[0], trainings, "c", projBase))
				require.NoError(t, a.RecordTrainingResults(domain.ResultPresent, trainings[0], "tr", afterEnd))
			},
		},
		{
			name: "absent",
			drive: func(t *testing.T, a *domain.EnrollmentAggregate) {
				require.NoError(t, a.AcceptTrainingInvitation(trainings[0], trainings, "c", projBase))
				require.NoError(t, a.RecordTrainingResults(domain.ResultAbsent, trainings[0], "tr", afterEnd))
			},
		},
		{
			name: "lecturer",
			drive: func(t *testing.T, a *domain.EnrollmentAggregate) {
				require.NoError(t, a.AcceptTrainingInvitation(trainings[0], trainings, "c", projBase))
				require.NoError(t, a.RecordTrainingResults(domain.ResultPresentAndLecturer, trainings[0], "tr", afterEnd))
			},
		},
		{
			name: "temporary resignation",
			drive: func(t *testing.T, a *domain.EnrollmentAggregate) {
				require.NoError(t, a.AcceptTrainingInvitation(trainings[0], trainings, "c", projBase))
				require.NoError(t, a.RecordResignation(domain.ResignationTemporary, &resume, "c", projBase))
			},
		},
		{
			name: "permanent resignation",
			drive: func(t *testing.T, a *domain.EnrollmentAggregate) {
				require.NoError(t, a.RecordResignation(domain.ResignationPermanent, nil, "c", projBase))
			},
		},
		{
			name: "contact log only",
			drive: func(t *testing.T, a *domain.EnrollmentAggregate) {
				require.NoError(t, a.RecordContact("left voicemail", "c", projBase))
			},
		},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			aggregate := newSubmittedAggregate(t)
			sc.drive(t, aggregate)

			rec := projectedRow(t, aggregate)

			require.Equal(t, aggregate.GetVersion(), rec.Version)
			require.Equal(t, string(aggregate.State.Invitation), rec.InvitationState)
			require.Equal(t, aggregate.State.HasLecturerRights, rec.HasLecturerRights)
			require.Equal(t, aggregate.CanReportTrainingResultsUnconditionally(), rec.CanReportUncond)
			require.Equal(t, aggregate.CanReportTrainingResultsConditionally(), rec.CanReportCond)

			resigned := aggregate.State.Resignation
			require.Equal(t, resigned == domain.ResignationPermanent, rec.ResignedPermanently)
			require.Equal(t, resigned == domain.ResignationTemporary, rec.ResignedTemporarily)

			if aggregate.State.SelectedTrainingID == "" {
				require.Nil(t, rec.SelectedTrainingID)
			} else {
				require.NotNil(t, rec.SelectedTrainingID)
				require.Equal(t, aggregate.State.SelectedTrainingID, *rec.SelectedTrainingID)
			}
		})
	}
}

// TestProjectionAgreementRandomSequences walks the aggregate through random
// command sequences; rejected commands are simply skipped. Whatever event
// stream comes out must fold to the same flags in the projection.
func TestProjectionAgreementRandomSequences(t *testing.T) {
	trainings := projTrainings()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		aggregate := newSubmittedAggregate(t)
		now := projBase

		steps := 3 + rng.Intn(8)
		for s := 0; s < steps; s++ {
			// Time moves forward irregularly so some commands land before
			// and some after the training window
			now = now.Add(time.Duration(rng.Intn(72)) * time.Hour)

			switch rng.Intn(6) {
			case 0:
				_ = aggregate.AcceptTrainingInvitation(trainings[rng.Intn(2)], trainings, "c", now)
			case 1:
				_ = aggregate.RefuseTrainingInvitation(trainings, "c", now)
			case 2:
				results := []domain.TrainingResult{domain.ResultAbsent, domain.ResultPresent, domain.ResultPresentAndLecturer}
				_ = aggregate.RecordTrainingResults(results[rng.Intn(3)], trainings[rng.Intn(2)], "tr", now)
			case 3:
				_ = aggregate.RecordResignation(domain.ResignationPermanent, nil, "c", now)
			case 4:
				resume := now.Add(time.Duration(rng.Intn(14)) * 24 * time.Hour)
				_ = aggregate.RecordResignation(domain.ResignationTemporary, &resume, "c", now)
			case 5:
				_ = aggregate.RecordContact("note", "c", now)
			}
		}

		rec := projectedRow(t, aggregate)

		require.Equal(t, aggregate.GetVersion(), rec.Version)
		require.Equal(t, string(aggregate.State.Invitation), rec.InvitationState)
		require.Equal(t, aggregate.State.HasLecturerRights, rec.HasLecturerRights)
		require.Equal(t, aggregate.State.Resignation == domain.ResignationPermanent, rec.ResignedPermanently)
		require.Equal(t, aggregate.State.Resignation == domain.ResignationTemporary, rec.ResignedTemporarily)
		require.Equal(t, aggregate.CanReportTrainingResultsUnconditionally(), rec.CanReportUncond)
		require.Equal(t, aggregate.CanReportTrainingResultsConditionally(), rec.CanReportCond)
	}
}

// Raw-bytes payloads must decode the same as in-process typed payloads
func TestDecodeDataFromRawBytes(t *testing.T) {
	aggregate := newSubmittedAggregate(t)
	trainings := projTrainings()
	require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", projBase))

	events := aggregate.GetEvents()
	rec := &models.Enrollment{}

	var data domain.FormSubmittedEvent
	raw, err := json.Marshal(events[0].Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &data))
	require.NoError(t, InitRecordFromSubmission(rec, events[0], data, projCampaign(), projSummaries(trainings)))

	// Round-trip the acceptance event through JSON as the store would
	stored := events[1]
	payload, err := json.Marshal(stored.Data)
	require.NoError(t, err)
	stored.Data = payload

	require.NoError(t, MutateRecord(rec, stored))
	require.NotNil(t, rec.SelectedTrainingID)
	require.Equal(t, "tr-1", *rec.SelectedTrainingID)
}
