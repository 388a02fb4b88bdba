package domain

import (
	"time"
)

// InvitationState tracks whether/which training a candidate is committed to
type InvitationState string

const (
	InvitationNotInvited InvitationState = "NOT_INVITED"
	InvitationRefused    InvitationState = "REFUSED"
	InvitationAccepted   InvitationState = "ACCEPTED"
)

// TrainingResult is the recorded outcome of the selected training
type TrainingResult string

const (
	ResultUnset              TrainingResult = ""
	ResultAbsent             TrainingResult = "ABSENT"
	ResultPresent            TrainingResult = "PRESENT"
	ResultPresentAndLecturer TrainingResult = "PRESENT_AND_LECTURER"
)

// ResignationKind distinguishes the mutually exclusive resignation states
type ResignationKind string

const (
	ResignationNone      ResignationKind = ""
	ResignationPermanent ResignationKind = "PERMANENT"
	ResignationTemporary ResignationKind = "TEMPORARY"
)

// ContactNote is one entry of the append-only contact log
type ContactNote struct {
	Note        string
	ContactedBy string
	Time        time.Time
}

// SubmissionForm carries the candidate data of a recruitment form
type SubmissionForm struct {
	Email                string
	Phone                string
	FirstName            string
	LastName             string
	Region               string
	PreferredCities      []string
	PreferredTrainingIDs []string
}

// EnrollmentState represents the state of an enrollment. Fields are a cache
// of the fold over events; the event history is the source of truth.
type EnrollmentState struct {
	SubmittedAt           time.Time
	Email                 string
	Phone                 string
	FirstName             string
	LastName              string
	Region                string
	PreferredCities       []string
	PreferredTrainingIDs  []string
	CampaignID            string
	Notes                 []ContactNote
	Resignation           ResignationKind
	ResignationResumeDate *time.Time
	HasLecturerRights     bool
	Invitation            InvitationState
	SelectedTrainingID    string
	TrainingResult        TrainingResult
}

// EnrollmentAggregate is the aggregate for a candidate enrollment
type EnrollmentAggregate struct {
	*AggregateBase
	State EnrollmentState
}

// NewEnrollmentAggregate creates a new enrollment aggregate
func NewEnrollmentAggregate(id string) *EnrollmentAggregate {
	aggregate := &EnrollmentAggregate{
		State: EnrollmentState{
			Invitation: InvitationNotInvited,
		},
	}

	base := NewAggregateBase("enrollment", aggregate.applyEvent)
	base.SetID(id)
	aggregate.AggregateBase = base

	return aggregate
}

// applyEvent applies an event to the enrollment aggregate
func (a *EnrollmentAggregate) applyEvent(event interface{}) error {
	switch e := event.(type) {
	case FormSubmittedEvent:
		a.State.SubmittedAt = e.SubmittedAt
		a.State.Email = e.Email
		a.State.Phone = e.Phone
		a.State.FirstName = e.FirstName
		a.State.LastName = e.LastName
		a.State.Region = e.Region
		a.State.PreferredCities = e.PreferredCities
		a.State.PreferredTrainingIDs = e.PreferredTrainingIDs
		a.State.CampaignID = e.CampaignID
		// Re-engagement clears resignation and restarts the invitation
		// cycle; lecturer rights survive.
		a.State.Resignation = ResignationNone
		a.State.ResignationResumeDate = nil
		a.State.Invitation = InvitationNotInvited
		a.State.SelectedTrainingID = ""
		a.State.TrainingResult = ResultUnset

	case CandidateAcceptedInvitationEvent:
		a.State.Resignation = ResignationNone
		a.State.ResignationResumeDate = nil
		a.State.Invitation = InvitationAccepted
		a.State.SelectedTrainingID = e.TrainingID

	case CandidateRefusedInvitationEvent:
		a.State.Invitation = InvitationRefused
		a.State.SelectedTrainingID = ""

	case CandidateAttendedTrainingEvent:
		a.State.TrainingResult = ResultPresent

	case CandidateAbsentFromTrainingEvent:
		a.State.TrainingResult = ResultAbsent

	case CandidateObtainedLecturerRightsEvent:
		a.State.HasLecturerRights = true
		if a.State.TrainingResult == ResultPresent {
			a.State.TrainingResult = ResultPresentAndLecturer
		}

	case CandidateResignedPermanentlyEvent:
		a.State.Resignation = ResignationPermanent
		a.State.ResignationResumeDate = nil
		a.State.SelectedTrainingID = ""

	case CandidateResignedTemporarilyEvent:
		a.State.Resignation = ResignationTemporary
		a.State.ResignationResumeDate = e.ResumeDate
		a.State.SelectedTrainingID = ""

	case ContactOccuredEvent:
		a.State.Notes = append(a.State.Notes, ContactNote{
			Note:        e.Note,
			ContactedBy: e.ContactedBy,
			Time:        e.Time,
		})

	case EmailSentEvent, EmailSendingFailedEvent:
		// Audit entries only
	}

	return nil
}

// SubmitForm validates and records a recruitment form submission. The caller
// resolves the requested training IDs and the owning campaign; the aggregate
// reasons over the resolved values only.
func (a *EnrollmentAggregate) SubmitForm(form SubmissionForm, trainings []Training, campaign Campaign, now time.Time) error {
	if form.Email == "" {
		return NewValidationError("email", "email is required")
	}
	if form.FirstName == "" {
		return NewValidationError("first_name", "first name is required")
	}
	if form.LastName == "" {
		return NewValidationError("last_name", "last name is required")
	}
	if len(form.PreferredTrainingIDs) == 0 {
		return NewValidationError("preferred_training_ids", "at least one preferred training is required")
	}

	byID := TrainingsByID(trainings)
	for _, id := range form.PreferredTrainingIDs {
		if _, ok := byID[id]; !ok {
			return NewNotFoundError("training", id)
		}
	}
	if len(trainings) != len(form.PreferredTrainingIDs) {
		return NewValidationError("preferred_training_ids", "resolved trainings do not match the requested IDs")
	}

	for _, t := range trainings {
		if t.CampaignID != campaign.ID {
			return NewDomainError("preferred trainings must all belong to one campaign")
		}
	}
	if !campaign.IsOpenAt(now) {
		return NewDomainError("campaign is not open for submissions")
	}
	for _, t := range trainings {
		if !t.StartsAt.After(now) {
			return NewDomainError("preferred trainings must start in the future")
		}
	}

	return a.Apply(FormSubmittedEvent{
		SubmittedAt:          now,
		Email:                form.Email,
		Phone:                form.Phone,
		FirstName:            form.FirstName,
		LastName:             form.LastName,
		Region:               form.Region,
		PreferredCities:      form.PreferredCities,
		PreferredTrainingIDs: form.PreferredTrainingIDs,
		CampaignID:           campaign.ID,
	})
}

// AcceptTrainingInvitation records that the candidate accepted the
// invitation for one concrete training.
func (a *EnrollmentAggregate) AcceptTrainingInvitation(requested Training, preferred []Training, acceptedBy string, now time.Time) error {
	if a.IsNew() {
		return NewNotFoundError("enrollment", a.GetID())
	}
	if !a.CanAcceptTrainingInvitation(preferred, now) {
		return NewDomainError("no preferred training remains in the future")
	}
	if !a.isPreferred(requested.ID) {
		return NewValidationError("training_id", "training is not among the candidate's preferred trainings")
	}
	if !requested.StartsAt.After(now) {
		return NewDomainError("training has already started")
	}

	return a.Apply(CandidateAcceptedInvitationEvent{
		TrainingID: requested.ID,
		AcceptedBy: acceptedBy,
		Time:       now,
	})
}

// RefuseTrainingInvitation records that the candidate refused the invitation
func (a *EnrollmentAggregate) RefuseTrainingInvitation(preferred []Training, refusedBy string, now time.Time) error {
	if a.IsNew() {
		return NewNotFoundError("enrollment", a.GetID())
	}
	if a.State.SelectedTrainingID != "" {
		selected, ok := TrainingsByID(preferred)[a.State.SelectedTrainingID]
		if !ok {
			return NewNotFoundError("training", a.State.SelectedTrainingID)
		}
		if !selected.StartsAt.After(now) {
			return NewDomainError("selected training has already passed")
		}
	}
	if !a.CanAcceptTrainingInvitation(preferred, now) {
		return NewDomainError("no preferred training remains in the future")
	}

	return a.Apply(CandidateRefusedInvitationEvent{
		RefusedBy: refusedBy,
		Time:      now,
	})
}

// RecordTrainingResults records attendance for a finished training. A result
// of present-and-lecturer emits the attendance event plus the lecturer-rights
// grant in the same command; validation completes before either is applied.
func (a *EnrollmentAggregate) RecordTrainingResults(result TrainingResult, training Training, recordedBy string, now time.Time) error {
	if a.IsNew() {
		return NewNotFoundError("enrollment", a.GetID())
	}
	if result != ResultAbsent && result != ResultPresent && result != ResultPresentAndLecturer {
		return NewValidationError("result", "unknown training result")
	}
	if !a.isPreferred(training.ID) {
		return NewValidationError("training_id", "training is not among the candidate's preferred trainings")
	}
	if !training.EndsAt.Before(now) {
		return NewDomainError("training has not ended yet")
	}
	if result == ResultAbsent && a.State.Invitation != InvitationAccepted {
		return NewDomainError("cannot record absence without prior acceptance")
	}

	if result == ResultAbsent {
		return a.Apply(CandidateAbsentFromTrainingEvent{
			TrainingID: training.ID,
			RecordedBy: recordedBy,
			Time:       now,
		})
	}

	if err := a.Apply(CandidateAttendedTrainingEvent{
		TrainingID: training.ID,
		RecordedBy: recordedBy,
		Time:       now,
	}); err != nil {
		return err
	}
	if result == ResultPresentAndLecturer {
		return a.Apply(CandidateObtainedLecturerRightsEvent{
			GrantedBy: recordedBy,
			Time:      now,
		})
	}
	return nil
}

// RecordResignation records a permanent or temporary resignation
func (a *EnrollmentAggregate) RecordResignation(kind ResignationKind, resumeDate *time.Time, recordedBy string, now time.Time) error {
	if a.IsNew() {
		return NewNotFoundError("enrollment", a.GetID())
	}

	switch kind {
	case ResignationPermanent:
		return a.Apply(CandidateResignedPermanentlyEvent{
			RecordedBy: recordedBy,
			Time:       now,
		})
	case ResignationTemporary:
		if resumeDate != nil && DateOf(*resumeDate).Before(DateOf(now)) {
			return NewDomainError("resume date cannot be earlier than today")
		}
		return a.Apply(CandidateResignedTemporarilyEvent{
			ResumeDate: resumeDate,
			RecordedBy: recordedBy,
			Time:       now,
		})
	default:
		return NewValidationError("kind", "unknown resignation kind")
	}
}

// RecordContact appends a free-form contact-log entry
func (a *EnrollmentAggregate) RecordContact(note, contactedBy string, now time.Time) error {
	if a.IsNew() {
		return NewNotFoundError("enrollment", a.GetID())
	}
	if note == "" {
		return NewValidationError("note", "note is required")
	}

	return a.Apply(ContactOccuredEvent{
		Note:        note,
		ContactedBy: contactedBy,
		Time:        now,
	})
}

// CanSendTrainingReminder is the pure eligibility guard evaluated right
// before a reminder email goes out. It mutates nothing; the caller records
// the delivery outcome as an audit event.
func (a *EnrollmentAggregate) CanSendTrainingReminder(training Training, now time.Time) error {
	if a.IsNew() {
		return NewNotFoundError("enrollment", a.GetID())
	}
	if a.State.Invitation != InvitationAccepted || a.State.SelectedTrainingID != training.ID {
		return NewDomainError("candidate is not invited to this training")
	}
	// Resignation may have happened between scheduling and fire time, so the
	// guard checks effectiveness at both instants.
	if a.HasResignedEffectively(training.StartsAt) || a.HasResignedEffectively(now) {
		return NewDomainError("candidate has effectively resigned")
	}
	if !training.StartsAt.After(now) {
		return NewDomainError("training has already started")
	}
	if training.StartsAt.Sub(now) > 24*time.Hour {
		return NewDomainError("more than 24 hours remain before the training")
	}
	return nil
}

// HasResignedEffectively reports whether the candidate counts as resigned at
// the given instant. Temporary resignations hold up to and including the
// resume date, compared at calendar-date granularity.
func (a *EnrollmentAggregate) HasResignedEffectively(t time.Time) bool {
	switch a.State.Resignation {
	case ResignationPermanent:
		return true
	case ResignationTemporary:
		if a.State.ResignationResumeDate == nil {
			return true
		}
		return !DateOf(*a.State.ResignationResumeDate).Before(DateOf(t))
	default:
		return false
	}
}

// CanAcceptTrainingInvitation reports whether any preferred training still
// starts strictly in the future
func (a *EnrollmentAggregate) CanAcceptTrainingInvitation(preferred []Training, now time.Time) bool {
	return AnyStartsAfter(preferred, now)
}

// CanReportTrainingResultsUnconditionally reports whether a training result
// may be recorded without further checks: accepted invitation, no result
// yet, no standing resignation.
func (a *EnrollmentAggregate) CanReportTrainingResultsUnconditionally() bool {
	return a.State.Invitation == InvitationAccepted &&
		a.State.TrainingResult == ResultUnset &&
		a.State.Resignation == ResignationNone
}

// CanReportTrainingResultsConditionally reports whether a result could still
// be recorded at all: none recorded yet and the candidate has not resigned
// permanently.
func (a *EnrollmentAggregate) CanReportTrainingResultsConditionally() bool {
	return a.State.TrainingResult == ResultUnset &&
		a.State.Resignation != ResignationPermanent
}

func (a *EnrollmentAggregate) isPreferred(trainingID string) bool {
	for _, id := range a.State.PreferredTrainingIDs {
		if id == trainingID {
			return true
		}
	}
	return false
}
