package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// GocronScheduler fires one-shot tasks at absolute instants. Reminder jobs
// re-validate their eligibility at fire time, so a task firing after a
// restart or slightly late is harmless.
type GocronScheduler struct {
	scheduler gocron.Scheduler
}

// NewGocronScheduler creates and starts a gocron-backed scheduler
func NewGocronScheduler() (*GocronScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	s.Start()
	return &GocronScheduler{scheduler: s}, nil
}

// ScheduleAt registers a one-shot task at the given instant. Instants in the
// past fire immediately.
func (s *GocronScheduler) ScheduleAt(at time.Time, name string, task func(ctx context.Context)) error {
	if !at.After(time.Now()) {
		go task(context.Background())
		return nil
	}

	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(func() {
			log.Info().Str("job", name).Time("at", at).Msg("Firing scheduled job")
			task(context.Background())
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	log.Info().Str("job", name).Time("at", at).Msg("Job scheduled")
	return nil
}

// Shutdown stops the scheduler and drops pending jobs
func (s *GocronScheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}
