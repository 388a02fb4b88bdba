package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/email"
	"example.com/outreach/services/enrollment/eventstore"
	"example.com/outreach/services/enrollment/repository"
	"example.com/outreach/services/enrollment/utils"
)

// Command structs
type SubmitFormCommand struct {
	AggregateID          string   `json:"aggregate_id"`
	Email                string   `json:"email" validate:"required,email"`
	Phone                string   `json:"phone"`
	FirstName            string   `json:"first_name" validate:"required"`
	LastName             string   `json:"last_name" validate:"required"`
	Region               string   `json:"region"`
	PreferredCities      []string `json:"preferred_cities"`
	PreferredTrainingIDs []string `json:"preferred_training_ids" validate:"required,min=1"`
}

type AcceptInvitationCommand struct {
	AggregateID string `json:"aggregate_id" validate:"required"`
	TrainingID  string `json:"training_id" validate:"required"`
	AcceptedBy  string `json:"accepted_by"`
}

type RefuseInvitationCommand struct {
	AggregateID string `json:"aggregate_id" validate:"required"`
	RefusedBy   string `json:"refused_by"`
}

type RecordTrainingResultsCommand struct {
	AggregateID string `json:"aggregate_id" validate:"required"`
	TrainingID  string `json:"training_id" validate:"required"`
	Result      string `json:"result" validate:"required"`
	RecordedBy  string `json:"recorded_by"`
}

type RecordResignationCommand struct {
	AggregateID string     `json:"aggregate_id" validate:"required"`
	Kind        string     `json:"kind" validate:"required"`
	ResumeDate  *time.Time `json:"resume_date"`
	RecordedBy  string     `json:"recorded_by"`
}

type RecordContactCommand struct {
	AggregateID string `json:"aggregate_id" validate:"required"`
	Note        string `json:"note" validate:"required"`
	ContactedBy string `json:"contacted_by"`
}

type SendTrainingReminderCommand struct {
	AggregateID string `json:"aggregate_id" validate:"required"`
	TrainingID  string `json:"training_id" validate:"required"`
}

// ReminderScheduler schedules a named one-shot task at an absolute instant
type ReminderScheduler interface {
	ScheduleAt(at time.Time, name string, task func(ctx context.Context)) error
}

// EnrollmentHandler handles all enrollment-related commands
type EnrollmentHandler struct {
	store     eventstore.EventStore
	trainings repository.TrainingRepository
	clock     domain.Clock
	scheduler ReminderScheduler
	sender    email.Sender
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(
	store eventstore.EventStore,
	trainings repository.TrainingRepository,
	clock domain.Clock,
	scheduler ReminderScheduler,
	sender email.Sender,
) *EnrollmentHandler {
	return &EnrollmentHandler{
		store:     store,
		trainings: trainings,
		clock:     clock,
		scheduler: scheduler,
		sender:    sender,
	}
}

// HandleSubmitForm records a recruitment form submission. Submitting again
// for an existing enrollment is legal re-engagement.
func (h *EnrollmentHandler) HandleSubmitForm(ctx context.Context, cmd SubmitFormCommand) error {
	log.Info().Str("aggregateID", cmd.AggregateID).Msg("Handling SubmitForm command")

	if err := utils.ValidateStruct(cmd); err != nil {
		return domain.NewValidationError(utils.FirstValidationField(err), err.Error())
	}

	aggregate := domain.NewEnrollmentAggregate(cmd.AggregateID)
	if err := h.store.Load(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to load aggregate: %w", err)
	}

	trainings, err := h.trainings.GetByIDs(ctx, cmd.PreferredTrainingIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve trainings: %w", err)
	}

	var campaign domain.Campaign
	if len(trainings) > 0 {
		campaign, err = h.trainings.GetCampaignByID(ctx, trainings[0].CampaignID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NewNotFoundError("campaign", trainings[0].CampaignID)
			}
			return fmt.Errorf("failed to resolve campaign: %w", err)
		}
	}

	form := domain.SubmissionForm{
		Email:                cmd.Email,
		Phone:                cmd.Phone,
		FirstName:            cmd.FirstName,
		LastName:             cmd.LastName,
		Region:               cmd.Region,
		PreferredCities:      cmd.PreferredCities,
		PreferredTrainingIDs: cmd.PreferredTrainingIDs,
	}
	if err := aggregate.SubmitForm(form, trainings, campaign, h.clock.Now()); err != nil {
		return err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to save aggregate: %w", err)
	}

	return nil
}

// HandleAcceptInvitation records an accepted training invitation and
// schedules the reminder for 24 hours before the training starts.
func (h *EnrollmentHandler) HandleAcceptInvitation(ctx context.Context, cmd AcceptInvitationCommand) error {
	log.Info().Str("aggregateID", cmd.AggregateID).Msg("Handling AcceptInvitation command")

	if err := utils.ValidateStruct(cmd); err != nil {
		return domain.NewValidationError(utils.FirstValidationField(err), err.Error())
	}

	aggregate := domain.NewEnrollmentAggregate(cmd.AggregateID)
	if err := h.store.Load(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to load aggregate: %w", err)
	}
	if aggregate.IsNew() {
		return domain.NewNotFoundError("enrollment", cmd.AggregateID)
	}

	requested, err := h.trainings.GetByID(ctx, cmd.TrainingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewNotFoundError("training", cmd.TrainingID)
		}
		return fmt.Errorf("failed to resolve training: %w", err)
	}

	preferred, err := h.trainings.GetByIDs(ctx, aggregate.State.PreferredTrainingIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve preferred trainings: %w", err)
	}

	if err := aggregate.AcceptTrainingInvitation(requested, preferred, cmd.AcceptedBy, h.clock.Now()); err != nil {
		return err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to save aggregate: %w", err)
	}

	h.scheduleReminder(cmd.AggregateID, requested)
	return nil
}

// HandleRefuseInvitation records a refused training invitation
func (h *EnrollmentHandler) HandleRefuseInvitation(ctx context.Context, cmd RefuseInvitationCommand) error {
	log.Info().Str("aggregateID", cmd.AggregateID).Msg("Handling RefuseInvitation command")

	if err := utils.ValidateStruct(cmd); err != nil {
		return domain.NewValidationError(utils.FirstValidationField(err), err.Error())
	}

	aggregate := domain.NewEnrollmentAggregate(cmd.AggregateID)
	if err := h.store.Load(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to load aggregate: %w", err)
	}
	if aggregate.IsNew() {
		return domain.NewNotFoundError("enrollment", cmd.AggregateID)
	}

	preferred, err := h.trainings.GetByIDs(ctx, aggregate.State.PreferredTrainingIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve preferred trainings: %w", err)
	}

	if err := aggregate.RefuseTrainingInvitation(preferred, cmd.RefusedBy, h.clock.Now()); err != nil {
		return err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to save aggregate: %w", err)
	}

	return nil
}

// HandleRecordTrainingResults records attendance once a training has ended.
// A present-and-lecturer result appends the attendance and lecturer-rights
// events in one Save, so both commit or neither does.
func (h *EnrollmentHandler) HandleRecordTrainingResults(ctx context.Context, cmd RecordTrainingResultsCommand) error {
	log.Info().Str("aggregateID", cmd.AggregateID).Msg("Handling RecordTrainingResults command")

	if err := utils.ValidateStruct(cmd); err != nil {
		return domain.NewValidationError(utils.FirstValidationField(err), err.Error())
	}

	aggregate := domain.NewEnrollmentAggregate(cmd.AggregateID)
	if err := h.store.Load(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to load aggregate: %w", err)
	}
	if aggregate.IsNew() {
		return domain.NewNotFoundError("enrollment", cmd.AggregateID)
	}

	training, err := h.trainings.GetByID(ctx, cmd.TrainingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewNotFoundError("training", cmd.TrainingID)
		}
		return fmt.Errorf("failed to resolve training: %w", err)
	}

	if err := aggregate.RecordTrainingResults(domain.TrainingResult(cmd.Result), training, cmd.RecordedBy, h.clock.Now()); err != nil {
		return err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to save aggregate: %w", err)
	}

	return nil
}

// HandleRecordResignation records a permanent or temporary resignation
func (h *EnrollmentHandler) HandleRecordResignation(ctx context.Context, cmd RecordResignationCommand) error {
	log.Info().Str("aggregateID", cmd.AggregateID).Msg("Handling RecordResignation command")

	if err := utils.ValidateStruct(cmd); err != nil {
		return domain.NewValidationError(utils.FirstValidationField(err), err.Error())
	}

	aggregate := domain.NewEnrollmentAggregate(cmd.AggregateID)
	if err := h.store.Load(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to load aggregate: %w", err)
	}
	if aggregate.IsNew() {
		return domain.NewNotFoundError("enrollment", cmd.AggregateID)
	}

	if err := aggregate.RecordResignation(domain.ResignationKind(cmd.Kind), cmd.ResumeDate, cmd.RecordedBy, h.clock.Now()); err != nil {
		return err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to save aggregate: %w", err)
	}

	return nil
}

// HandleRecordContact appends a contact-log entry
func (h *EnrollmentHandler) HandleRecordContact(ctx context.Context, cmd RecordContactCommand) error {
	log.Info().Str("aggregateID", cmd.AggregateID).Msg("Handling RecordContact command")

	if err := utils.ValidateStruct(cmd); err != nil {
		return domain.NewValidationError(utils.FirstValidationField(err), err.Error())
	}

	aggregate := domain.NewEnrollmentAggregate(cmd.AggregateID)
	if err := h.store.Load(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to load aggregate: %w", err)
	}
	if aggregate.IsNew() {
		return domain.NewNotFoundError("enrollment", cmd.AggregateID)
	}

	if err := aggregate.RecordContact(cmd.Note, cmd.ContactedBy, h.clock.Now()); err != nil {
		return err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to save aggregate: %w", err)
	}

	return nil
}
