package projections

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/outreach/services/enrollment/domain"
)

// EventSource is the slice of the event store the processor consumes
type EventSource interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]domain.Event, error)
	MarkEventAsProcessed(ctx context.Context, eventID string) error
	MarkEventAsFailed(ctx context.Context, eventID string, reason string) error
}

// Projector folds a single event into the read model
type Projector interface {
	Project(ctx context.Context, event domain.Event) error
}

// EventProcessor polls the event store and feeds unprocessed events to the
// projector in per-aggregate append order
type EventProcessor struct {
	source             EventSource
	projector          Projector
	batchSize          int
	processingInterval time.Duration
	running            bool
	mutex              sync.Mutex
	stopChan           chan struct{}
	fatalChan          chan error
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(source EventSource, projector Projector) *EventProcessor {
	return &EventProcessor{
		source:             source,
		projector:          projector,
		batchSize:          100,
		processingInterval: 5 * time.Second,
		running:            false,
		stopChan:           make(chan struct{}),
		fatalChan:          make(chan error, 1),
	}
}

// Start starts the event processor
func (p *EventProcessor) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running {
		return
	}

	p.running = true
	go p.processEvents()
}

// Stop stops the event processor. Closing the channel instead of sending on
// it keeps Stop from blocking when the loop already exited through the fatal
// path.
func (p *EventProcessor) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.running {
		return
	}

	p.running = false
	close(p.stopChan)
}

// Fatal delivers the error that halted the processor, if any. Projection
// corruption is non-retryable: the worker should exit and page someone.
func (p *EventProcessor) Fatal() <-chan error {
	return p.fatalChan
}

// processEvents processes events in a loop
func (p *EventProcessor) processEvents() {
	ticker := time.NewTicker(p.processingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.processBatch(); err != nil {
				if errors.Is(err, ErrProjectionCorrupted) {
					log.Error().Err(err).Msg("Projection corrupted, halting event processor")
					p.fatalChan <- err
					return
				}
				log.Error().Err(err).Msg("Failed to process event batch")
			}
		case <-p.stopChan:
			return
		}
	}
}

// processBatch processes a batch of events. When an event fails, the rest of
// that aggregate's events are held back until the failed one succeeds on a
// later tick, so the read model never folds events out of order.
func (p *EventProcessor) processBatch() error {
	ctx := context.Background()

	events, err := p.source.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	log.Info().Msgf("Processing %d events", len(events))

	blocked := make(map[string]bool)
	for _, event := range events {
		if blocked[event.AggregateID] {
			continue
		}

		if err := p.processEvent(ctx, event); err != nil {
			if markErr := p.source.MarkEventAsFailed(ctx, event.ID, err.Error()); markErr != nil {
				log.Error().Err(markErr).Str("event_id", event.ID).Msg("Failed to record event failure")
			}

			if errors.Is(err, ErrProjectionCorrupted) {
				return err
			}

			log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to process event")
			blocked[event.AggregateID] = true
			continue
		}

		if err := p.source.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to mark event as processed")
			blocked[event.AggregateID] = true
		}
	}

	return nil
}

// processEvent processes a single event
func (p *EventProcessor) processEvent(ctx context.Context, event domain.Event) error {
	switch event.AggregateType {
	case "enrollment":
		return p.projector.Project(ctx, event)
	default:
		log.Warn().Str("aggregate_type", event.AggregateType).Msg("Unknown aggregate type")
		return nil
	}
}
