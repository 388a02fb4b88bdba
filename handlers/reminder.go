package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/email"
	"example.com/outreach/services/enrollment/repository"
	"example.com/outreach/services/enrollment/utils"
)

// reminderLead is how long before a training start the reminder goes out
const reminderLead = 24 * time.Hour

// scheduleReminder registers the one-shot reminder job for an accepted
// training. Scheduling failures are logged, never fatal: the command has
// already committed and eligibility is re-validated at fire time anyway.
func (h *EnrollmentHandler) scheduleReminder(aggregateID string, training domain.Training) {
	if h.scheduler == nil {
		return
	}

	at := training.StartsAt.Add(-reminderLead)
	name := fmt.Sprintf("training-reminder:%s:%s", aggregateID, training.ID)
	cmd := SendTrainingReminderCommand{
		AggregateID: aggregateID,
		TrainingID:  training.ID,
	}

	err := h.scheduler.ScheduleAt(at, name, func(ctx context.Context) {
		if err := h.HandleSendTrainingReminder(ctx, cmd); err != nil {
			log.Error().Err(err).
				Str("aggregateID", aggregateID).
				Str("trainingID", training.ID).
				Msg("Training reminder failed")
		}
	})
	if err != nil {
		log.Error().Err(err).
			Str("aggregateID", aggregateID).
			Str("trainingID", training.ID).
			Msg("Failed to schedule training reminder")
	}
}

// HandleSendTrainingReminder re-validates reminder eligibility at fire time,
// sends the email, and appends the delivery outcome as an audit event. An
// ineligible candidate (resigned or refused since scheduling) is a normal
// outcome, not an error.
func (h *EnrollmentHandler) HandleSendTrainingReminder(ctx context.Context, cmd SendTrainingReminderCommand) error {
	log.Info().Str("aggregateID", cmd.AggregateID).Msg("Handling SendTrainingReminder command")

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

	now := h.clock.Now()
	if err := aggregate.CanSendTrainingReminder(training, now); err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			log.Info().
				Str("aggregateID", cmd.AggregateID).
				Str("trainingID", cmd.TrainingID).
				Str("reason", domainErr.Message).
				Msg("Skipping training reminder")
			return nil
		}
		return err
	}

	msg := email.Message{
		To:      aggregate.State.Email,
		Subject: fmt.Sprintf("Reminder: your training in %s starts soon", training.City),
		Body: fmt.Sprintf(
			"Hi %s, this is a reminder that your training in %s starts at %s.",
			aggregate.State.FirstName, training.City,
			training.StartsAt.Format(time.RFC1123),
		),
	}

	var auditEvent interface{}
	if sendErr := h.sender.Send(ctx, msg); sendErr != nil {
		log.Error().Err(sendErr).Str("aggregateID", cmd.AggregateID).Msg("Reminder email delivery failed")
		auditEvent = domain.EmailSendingFailedEvent{
			TrainingID: training.ID,
			Recipient:  msg.To,
			Reason:     sendErr.Error(),
			Time:       now,
		}
	} else {
		auditEvent = domain.EmailSentEvent{
			TrainingID: training.ID,
			Recipient:  msg.To,
			Subject:    msg.Subject,
			Time:       now,
		}
	}

	if err := aggregate.Apply(auditEvent); err != nil {
		return fmt.Errorf("failed to apply audit event: %w", err)
	}
	if err := h.store.Save(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to save aggregate: %w", err)
	}

	return nil
}
