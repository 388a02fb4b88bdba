package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/outreach/services/enrollment/eventstore"
	"example.com/outreach/services/enrollment/models"
	"example.com/outreach/services/enrollment/projections"
	"example.com/outreach/services/enrollment/repository"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the projection worker",
	Long:  `Start the background worker that projects enrollment events into the read model and the search index`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	log.Info().Msg("Starting worker")

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DBSource), &gorm.Config{})
	if err != nil {
		return err
	}

	// Auto migrate tables
	if cfg.EnableMigrations {
		err = db.AutoMigrate(&models.Event{}, &models.Enrollment{}, &models.Training{}, &models.Campaign{})
		if err != nil {
			return err
		}
	}

	// Initialize Elasticsearch client
	esClient, err := projections.NewElasticsearchClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch, continuing without search indexing")
		esClient = nil
	}

	if esClient != nil {
		if err := projections.EnsureIndices(esClient, cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to ensure Elasticsearch indices")
		}
	}

	// Initialize training repository
	trainingRepo := repository.NewGormTrainingRepository(db)

	// Initialize projector and event processor
	store := eventstore.NewGormEventStore(db)
	projector := projections.NewEnrollmentProjector(db, esClient, trainingRepo, cfg)
	processor := projections.NewEventProcessor(store, projector)

	g.Go(func() error {
		processor.Start()

		select {
		case err := <-processor.Fatal():
			// A corrupted projection means the read model can no longer
			// be trusted. Stop the worker instead of looping on the
			// same event.
			log.Error().Err(err).Msg("Projection halted")
			return err
		case <-ctx.Done():
			processor.Stop()
			return nil
		}
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
