package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testCampaign() Campaign {
	return Campaign{
		ID:        "camp-1",
		EditionID: "edition-2025",
		OpensAt:   testBase.Add(-30 * 24 * time.Hour),
		ClosesAt:  testBase.Add(30 * 24 * time.Hour),
	}
}

func testTrainings() []Training {
	return []Training{
		{
			ID:         "tr-1",
			CampaignID: "camp-1",
			City:       "Warsaw",
			StartsAt:   testBase.Add(10 * 24 * time.Hour),
			EndsAt:     testBase.Add(10*24*time.Hour + 8*time.Hour),
		},
		{
			ID:         "tr-2",
			CampaignID: "camp-1",
			City:       "Krakow",
			StartsAt:   testBase.Add(14 * 24 * time.Hour),
			EndsAt:     testBase.Add(14*24*time.Hour + 8*time.Hour),
		},
	}
}

func testForm() SubmissionForm {
	return SubmissionForm{
		Email:                "jan.kowalski@example.com",
		Phone:                "+48123456789",
		FirstName:            "Jan",
		LastName:             "Kowalski",
		Region:               "Mazowieckie",
		PreferredCities:      []string{"Warsaw", "Krakow"},
		PreferredTrainingIDs: []string{"tr-1", "tr-2"},
	}
}

func submittedAggregate(t *testing.T) *EnrollmentAggregate {
	t.Helper()
	aggregate := NewEnrollmentAggregate("enr-1")
	err := aggregate.SubmitForm(testForm(), testTrainings(), testCampaign(), testBase)
	require.NoError(t, err)
	return aggregate
}

func TestSubmitForm(t *testing.T) {
	aggregate := submittedAggregate(t)

	require.Equal(t, 1, aggregate.GetVersion())
	require.Equal(t, "jan.kowalski@example.com", aggregate.State.Email)
	require.Equal(t, "camp-1", aggregate.State.CampaignID)
	require.Equal(t, InvitationNotInvited, aggregate.State.Invitation)
	require.Equal(t, ResultUnset, aggregate.State.TrainingResult)

	events := aggregate.GetEvents()
	require.Len(t, events, 1)
	require.Equal(t, FormSubmitted, events[0].Type)
}

func requireValidationError(t *testing.T, err error) {
	t.Helper()
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func requireNotFoundError(t *testing.T, err error) {
	t.Helper()
	var notFoundErr *NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func requireDomainError(t *testing.T, err error) {
	t.Helper()
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
}

func TestSubmitFormValidation(t *testing.T) {
	trainings := testTrainings()
	campaign := testCampaign()

	tests := []struct {
		name   string
		mutate func(*SubmissionForm, *[]Training, *Campaign, *time.Time)
		check  func(*testing.T, error)
	}{
		{
			name: "missing email",
			mutate: func(f *SubmissionForm, _ *[]Training, _ *Campaign, _ *time.Time) {
				f.Email = ""
			},
			check: requireValidationError,
		},
		{
			name: "no preferred trainings",
			mutate: func(f *SubmissionForm, tr *[]Training, _ *Campaign, _ *time.Time) {
				f.PreferredTrainingIDs = nil
				*tr = nil
			},
			check: requireValidationError,
		},
		{
			name: "unknown training",
			mutate: func(f *SubmissionForm, _ *[]Training, _ *Campaign, _ *time.Time) {
				f.PreferredTrainingIDs = []string{"tr-1", "tr-missing"}
			},
			check: requireNotFoundError,
		},
		{
			name: "cross-campaign trainings",
			mutate: func(_ *SubmissionForm, tr *[]Training, _ *Campaign, _ *time.Time) {
				(*tr)[1].CampaignID = "camp-other"
			},
			check: requireDomainError,
		},
		{
			name: "campaign closed",
			mutate: func(_ *SubmissionForm, _ *[]Training, c *Campaign, _ *time.Time) {
				c.ClosesAt = testBase.Add(-time.Hour)
			},
			check: requireDomainError,
		},
		{
			name: "training already started",
			mutate: func(_ *SubmissionForm, tr *[]Training, _ *Campaign, now *time.Time) {
				*now = (*tr)[0].StartsAt
			},
			check: requireDomainError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			form := testForm()
			trs := make([]Training, len(trainings))
			copy(trs, trainings)
			camp := campaign
			now := testBase
			tc.mutate(&form, &trs, &camp, &now)

			aggregate := NewEnrollmentAggregate("enr-1")
			err := aggregate.SubmitForm(form, trs, camp, now)
			tc.check(t, err)
			require.Equal(t, 0, aggregate.GetVersion())
			require.Empty(t, aggregate.GetEvents())
		})
	}
}

func TestAcceptTrainingInvitation(t *testing.T) {
	aggregate := submittedAggregate(t)
	trainings := testTrainings()

	err := aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, InvitationAccepted, aggregate.State.Invitation)
	require.Equal(t, "tr-1", aggregate.State.SelectedTrainingID)
}

func TestAcceptRejectsNonPreferredTraining(t *testing.T) {
	aggregate := submittedAggregate(t)
	trainings := testTrainings()
	other := Training{ID: "tr-99", CampaignID: "camp-1", StartsAt: testBase.Add(48 * time.Hour)}

	err := aggregate.AcceptTrainingInvitation(other, trainings, "coordinator", testBase)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestAcceptRejectsStartedTraining(t *testing.T) {
	aggregate := submittedAggregate(t)
	trainings := testTrainings()

	err := aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", trainings[0].StartsAt)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
}

func TestAcceptClearsResignation(t *testing.T) {
	aggregate := submittedAggregate(t)
	trainings := testTrainings()
	resume := testBase.Add(3 * 24 * time.Hour)

	require.NoError(t, aggregate.RecordResignation(ResignationTemporary, &resume, "coordinator", testBase))
	require.Equal(t, ResignationTemporary, aggregate.State.Resignation)

	err := aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, ResignationNone, aggregate.State.Resignation)
	require.Nil(t, aggregate.State.ResignationResumeDate)
}

func TestRefuseTrainingInvitation(t *testing.T) {
	aggregate := submittedAggregate(t)
	trainings := testTrainings()

	err := aggregate.RefuseTrainingInvitation(trainings, "coordinator", testBase)
	require.NoError(t, err)
	require.Equal(t, InvitationRefused, aggregate.State.Invitation)
	require.Empty(t, aggregate.State.SelectedTrainingID)
}

func TestRefuseAfterSelectedTrainingPassed(t *testing.T) {
	aggregate := submittedAggregate(t)
	trainings := testTrainings()

	require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))

	err := aggregate.RefuseTrainingInvitation(trainings, "coordinator", trainings[0].StartsAt.Add(time.Minute))
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Contains(t, err.Error(), "already passed")
}

func TestRecordTrainingResults(t *testing.T) {
	trainings := testTrainings()
	afterEnd := trainings[0].EndsAt.Add(time.Hour)

	t.Run("present", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))

		err := aggregate.RecordTrainingResults(ResultPresent, trainings[0], "trainer", afterEnd)
		require.NoError(t, err)
		require.Equal(t, ResultPresent, aggregate.State.TrainingResult)
		require.False(t, aggregate.State.HasLecturerRights)
	})

	t.Run("present and lecturer emits two events", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))
		aggregate.ClearEvents()

		err := aggregate.RecordTrainingResults(ResultPresentAndLecturer, trainings[0], "trainer", afterEnd)
		require.NoError(t, err)
		require.Equal(t, ResultPresentAndLecturer, aggregate.State.TrainingResult)
		require.True(t, aggregate.State.HasLecturerRights)

		events := aggregate.GetEvents()
		require.Len(t, events, 2)
		require.Equal(t, CandidateAttendedTraining, events[0].Type)
		require.Equal(t, CandidateObtainedLecturerRights, events[1].Type)
	})

	t.Run("absence requires acceptance", func(t *testing.T) {
		aggregate := submittedAggregate(t)

		err := aggregate.RecordTrainingResults(ResultAbsent, trainings[0], "trainer", afterEnd)
		var domainErr *DomainError
		require.ErrorAs(t, err, &domainErr)
	})

	t.Run("absence after acceptance", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))

		err := aggregate.RecordTrainingResults(ResultAbsent, trainings[0], "trainer", afterEnd)
		require.NoError(t, err)
		require.Equal(t, ResultAbsent, aggregate.State.TrainingResult)
	})

	t.Run("training not ended yet", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))

		err := aggregate.RecordTrainingResults(ResultPresent, trainings[0], "trainer", trainings[0].EndsAt)
		var domainErr *DomainError
		require.ErrorAs(t, err, &domainErr)
	})

	t.Run("unknown result", func(t *testing.T) {
		aggregate := submittedAggregate(t)

		err := aggregate.RecordTrainingResults("MAYBE", trainings[0], "trainer", afterEnd)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
	})
}

func TestLecturerRightsSurviveResubmission(t *testing.T) {
	aggregate := submittedAggregate(t)
	trainings := testTrainings()
	afterEnd := trainings[0].EndsAt.Add(time.Hour)

	require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))
	require.NoError(t, aggregate.RecordTrainingResults(ResultPresentAndLecturer, trainings[0], "trainer", afterEnd))
	require.NoError(t, aggregate.RecordResignation(ResignationPermanent, nil, "coordinator", afterEnd))

	// A later campaign re-engages the candidate
	later := afterEnd.Add(24 * time.Hour)
	nextCampaign := Campaign{
		ID:        "camp-2",
		EditionID: "edition-2026",
		OpensAt:   later.Add(-time.Hour),
		ClosesAt:  later.Add(30 * 24 * time.Hour),
	}
	nextTrainings := []Training{
		{ID: "tr-3", CampaignID: "camp-2", City: "Gdansk", StartsAt: later.Add(7 * 24 * time.Hour), EndsAt: later.Add(7*24*time.Hour + 8*time.Hour)},
	}
	form := testForm()
	form.PreferredTrainingIDs = []string{"tr-3"}

	require.NoError(t, aggregate.SubmitForm(form, nextTrainings, nextCampaign, later))

	require.True(t, aggregate.State.HasLecturerRights)
	require.Equal(t, ResignationNone, aggregate.State.Resignation)
	require.Equal(t, InvitationNotInvited, aggregate.State.Invitation)
	require.Equal(t, ResultUnset, aggregate.State.TrainingResult)
	require.Equal(t, "camp-2", aggregate.State.CampaignID)
}

func TestResignationMutualExclusivity(t *testing.T) {
	aggregate := submittedAggregate(t)
	resume := testBase.Add(7 * 24 * time.Hour)

	require.NoError(t, aggregate.RecordResignation(ResignationTemporary, &resume, "coordinator", testBase))
	require.Equal(t, ResignationTemporary, aggregate.State.Resignation)
	require.NotNil(t, aggregate.State.ResignationResumeDate)

	require.NoError(t, aggregate.RecordResignation(ResignationPermanent, nil, "coordinator", testBase))
	require.Equal(t, ResignationPermanent, aggregate.State.Resignation)
	require.Nil(t, aggregate.State.ResignationResumeDate)

	require.NoError(t, aggregate.RecordResignation(ResignationTemporary, &resume, "coordinator", testBase))
	require.Equal(t, ResignationTemporary, aggregate.State.Resignation)
	require.NotNil(t, aggregate.State.ResignationResumeDate)
}

func TestResignationResumeDateValidation(t *testing.T) {
	aggregate := submittedAggregate(t)

	yesterday := testBase.Add(-24 * time.Hour)
	err := aggregate.RecordResignation(ResignationTemporary, &yesterday, "coordinator", testBase)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)

	// Same calendar date passes even when the instant is earlier in the day
	earlierToday := testBase.Add(-time.Hour)
	require.NoError(t, aggregate.RecordResignation(ResignationTemporary, &earlierToday, "coordinator", testBase))
}

func TestHasResignedEffectively(t *testing.T) {
	trainings := testTrainings()

	t.Run("permanent always holds", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.RecordResignation(ResignationPermanent, nil, "coordinator", testBase))
		require.True(t, aggregate.HasResignedEffectively(testBase.Add(100*365*24*time.Hour)))
	})

	t.Run("temporary without resume date holds", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.RecordResignation(ResignationTemporary, nil, "coordinator", testBase))
		require.True(t, aggregate.HasResignedEffectively(testBase.Add(100*365*24*time.Hour)))
	})

	t.Run("temporary holds through the resume date", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		resume := testBase.Add(5 * 24 * time.Hour)
		require.NoError(t, aggregate.RecordResignation(ResignationTemporary, &resume, "coordinator", testBase))

		require.True(t, aggregate.HasResignedEffectively(resume))
		require.True(t, aggregate.HasResignedEffectively(resume.Add(-24*time.Hour)))
		require.False(t, aggregate.HasResignedEffectively(resume.Add(24*time.Hour)))
	})

	t.Run("no resignation", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.False(t, aggregate.HasResignedEffectively(trainings[0].StartsAt))
	})
}

func TestCanSendTrainingReminder(t *testing.T) {
	trainings := testTrainings()
	training := trainings[0]
	within := training.StartsAt.Add(-2 * time.Hour)

	t.Run("eligible", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(training, trainings, "coordinator", testBase))
		require.NoError(t, aggregate.CanSendTrainingReminder(training, within))
	})

	t.Run("not accepted", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.Error(t, aggregate.CanSendTrainingReminder(training, within))
	})

	t.Run("accepted for a different training", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[1], trainings, "coordinator", testBase))
		require.Error(t, aggregate.CanSendTrainingReminder(training, within))
	})

	t.Run("more than 24 hours remain", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(training, trainings, "coordinator", testBase))
		require.Error(t, aggregate.CanSendTrainingReminder(training, training.StartsAt.Add(-25*time.Hour)))
	})

	t.Run("training already started", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(training, trainings, "coordinator", testBase))
		require.Error(t, aggregate.CanSendTrainingReminder(training, training.StartsAt))
	})

	t.Run("resigned since acceptance", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(training, trainings, "coordinator", testBase))
		require.NoError(t, aggregate.RecordResignation(ResignationPermanent, nil, "coordinator", testBase))
		require.Error(t, aggregate.CanSendTrainingReminder(training, within))
	})
}

func TestReportCapabilityFlags(t *testing.T) {
	trainings := testTrainings()
	afterEnd := trainings[0].EndsAt.Add(time.Hour)

	t.Run("after acceptance", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))
		require.True(t, aggregate.CanReportTrainingResultsUnconditionally())
		require.True(t, aggregate.CanReportTrainingResultsConditionally())
	})

	t.Run("after refusal", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.RefuseTrainingInvitation(trainings, "coordinator", testBase))
		require.False(t, aggregate.CanReportTrainingResultsUnconditionally())
		require.True(t, aggregate.CanReportTrainingResultsConditionally())
	})

	t.Run("after result recorded", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))
		require.NoError(t, aggregate.RecordTrainingResults(ResultPresent, trainings[0], "trainer", afterEnd))
		require.False(t, aggregate.CanReportTrainingResultsUnconditionally())
		require.False(t, aggregate.CanReportTrainingResultsConditionally())
	})

	t.Run("after permanent resignation", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))
		require.NoError(t, aggregate.RecordResignation(ResignationPermanent, nil, "coordinator", testBase))
		require.False(t, aggregate.CanReportTrainingResultsUnconditionally())
		require.False(t, aggregate.CanReportTrainingResultsConditionally())
	})

	t.Run("after temporary resignation", func(t *testing.T) {
		aggregate := submittedAggregate(t)
		require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))
		resume := testBase.Add(3 * 24 * time.Hour)
		require.NoError(t, aggregate.RecordResignation(ResignationTemporary, &resume, "coordinator", testBase))
		require.False(t, aggregate.CanReportTrainingResultsUnconditionally())
		require.True(t, aggregate.CanReportTrainingResultsConditionally())
	})
}

func TestReplayDeterminism(t *testing.T) {
	trainings := testTrainings()
	afterEnd := trainings[0].EndsAt.Add(time.Hour)

	aggregate := submittedAggregate(t)
	require.NoError(t, aggregate.RecordContact("left voicemail", "coordinator", testBase))
	require.NoError(t, aggregate.AcceptTrainingInvitation(trainings[0], trainings, "coordinator", testBase))
	require.NoError(t, aggregate.RecordTrainingResults(ResultPresentAndLecturer, trainings[0], "trainer", afterEnd))
	require.NoError(t, aggregate.RecordResignation(ResignationPermanent, nil, "coordinator", afterEnd))

	events := aggregate.GetEvents()
	require.Len(t, events, 6)

	replayed := NewEnrollmentAggregate(aggregate.GetID())
	for _, event := range events {
		require.NoError(t, replayed.Apply(event.Data))
	}

	require.Equal(t, aggregate.GetVersion(), replayed.GetVersion())
	require.Equal(t, aggregate.State, replayed.State)
}

func TestContactLogIsAppendOnly(t *testing.T) {
	aggregate := submittedAggregate(t)

	require.NoError(t, aggregate.RecordContact("first call", "coordinator", testBase))
	require.NoError(t, aggregate.RecordContact("second call", "coordinator", testBase.Add(time.Hour)))

	err := aggregate.RecordContact("", "coordinator", testBase)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	require.Len(t, aggregate.State.Notes, 2)
	require.Equal(t, "first call", aggregate.State.Notes[0].Note)
	require.Equal(t, "second call", aggregate.State.Notes[1].Note)
}
