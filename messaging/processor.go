package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/handlers"
)

// Command type definitions
const (
	SubmitForm            = "SubmitForm"
	AcceptInvitation      = "AcceptInvitation"
	RefuseInvitation      = "RefuseInvitation"
	RecordTrainingResults = "RecordTrainingResults"
	RecordResignation     = "RecordResignation"
	RecordContact         = "RecordContact"
	SendTrainingReminder  = "SendTrainingReminder"
)

// AzureBusMessage is the common message structure
type AzureBusMessage struct {
	CommandType string          `json:"commandType"`
	Data        json.RawMessage `json:"data"`
}

type MessageProcessor interface {
	ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error
}

type Processor struct {
	enrollmentHandler *handlers.EnrollmentHandler
}

func NewProcessor(enrollmentHandler *handlers.EnrollmentHandler) *Processor {
	return &Processor{
		enrollmentHandler: enrollmentHandler,
	}
}

func (p *Processor) ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error {
	var msg AzureBusMessage
	if err := json.Unmarshal(message.Body, &msg); err != nil {
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	log.Info().Str("commandType", msg.CommandType).Msg("Processing message")

	err := p.dispatch(ctx, msg)
	if err != nil && isTerminal(err) {
		// Rejected commands are not retryable. Log and complete the
		// message so it does not poison the queue.
		log.Warn().Err(err).Str("commandType", msg.CommandType).Msg("Command rejected")
		return nil
	}

	return err
}

func (p *Processor) dispatch(ctx context.Context, msg AzureBusMessage) error {
	switch msg.CommandType {
	case SubmitForm:
		var cmd handlers.SubmitFormCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return err
		}
		return p.enrollmentHandler.HandleSubmitForm(ctx, cmd)

	case AcceptInvitation:
		var cmd handlers.AcceptInvitationCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return err
		}
		return p.enrollmentHandler.HandleAcceptInvitation(ctx, cmd)

	case RefuseInvitation:
		var cmd handlers.RefuseInvitationCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return err
		}
		return p.enrollmentHandler.HandleRefuseInvitation(ctx, cmd)

	case RecordTrainingResults:
		var cmd handlers.RecordTrainingResultsCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return err
		}
		return p.enrollmentHandler.HandleRecordTrainingResults(ctx, cmd)

	case RecordResignation:
		var cmd handlers.RecordResignationCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return err
		}
		return p.enrollmentHandler.HandleRecordResignation(ctx, cmd)

	case RecordContact:
		var cmd handlers.RecordContactCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return err
		}
		return p.enrollmentHandler.HandleRecordContact(ctx, cmd)

	case SendTrainingReminder:
		var cmd handlers.SendTrainingReminderCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return err
		}
		return p.enrollmentHandler.HandleSendTrainingReminder(ctx, cmd)

	default:
		return fmt.Errorf("unsupported command type: %s", msg.CommandType)
	}
}

// isTerminal reports whether a command failure would repeat on redelivery
func isTerminal(err error) bool {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var domainErr *domain.DomainError

	return errors.As(err, &validationErr) ||
		errors.As(err, &notFoundErr) ||
		errors.As(err, &domainErr)
}
