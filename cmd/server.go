package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/outreach/services/enrollment/api"
	"example.com/outreach/services/enrollment/cache"
	"example.com/outreach/services/enrollment/domain"
	"example.com/outreach/services/enrollment/email"
	"example.com/outreach/services/enrollment/eventstore"
	"example.com/outreach/services/enrollment/handlers"
	"example.com/outreach/services/enrollment/messaging"
	"example.com/outreach/services/enrollment/models"
	"example.com/outreach/services/enrollment/projections"
	"example.com/outreach/services/enrollment/queries"
	"example.com/outreach/services/enrollment/repository"
	"example.com/outreach/services/enrollment/scheduler"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Run:   runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) {
	log.Info().Msg("Starting server")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DBSource), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Auto migrate tables
	if cfg.EnableMigrations {
		err = db.AutoMigrate(&models.Event{}, &models.Enrollment{}, &models.Training{}, &models.Campaign{})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	// Initialize event store
	eventStore := eventstore.NewGormEventStore(db)

	// Initialize training repository
	trainingRepo := repository.NewGormTrainingRepository(db)

	// Initialize reminder scheduler
	reminderScheduler, err := scheduler.NewGocronScheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}

	// Initialize email sender
	sender := email.NewLogSender(cfg.EmailFromAddress)

	// Initialize command handler
	enrollmentHandler := handlers.NewEnrollmentHandler(eventStore, trainingRepo, domain.SystemClock{}, reminderScheduler, sender)

	// Initialize Elasticsearch client for search queries
	esClient, err := projections.NewElasticsearchClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch, search disabled")
		esClient = nil
	}

	// Initialize Redis cache for summary queries
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis, caching disabled")
		redisCache = nil
	}

	// Initialize query handler
	enrollmentQueries := queries.NewEnrollmentQueries(db, eventStore, trainingRepo, esClient, redisCache, cfg, domain.SystemClock{})

	// Start command queue consumer when Service Bus is configured
	if cfg.AzureQueueConnStr != "" {
		azureClient, err := messaging.NewAzureClient(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Azure Service Bus")
		}

		msgProcessor := messaging.NewProcessor(enrollmentHandler)

		go func() {
			if err := azureClient.StartConsumers(cfg.AzureCommandsQueueName, msgProcessor); err != nil {
				log.Fatal().Err(err).Msg("Failed to start commands queue consumer")
			}
		}()
	}

	// Initialize server
	server := api.NewServer(cfg, db, enrollmentHandler, enrollmentQueries)

	// Start HTTP server
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server gracefully
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := reminderScheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Scheduler forced to shutdown")
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}

	log.Info().Msg("Server exited properly")
}
