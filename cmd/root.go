package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/outreach/services/enrollment/config"
	"example.com/outreach/services/enrollment/domain"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "enrollment-service",
	Short: "Volunteer lecturer enrollment service using event sourcing",
	Long:  `A service for managing volunteer lecturer enrollments using event sourcing and CQRS pattern`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func initConfig() {
	var err error

	if cfgFile != "" {
		// Use config file from the flag
		config.SetConfigFile(cfgFile)
	}

	cfg, err = config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging()
	setupReportingTimezone()
}

func setupLogging() {
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch cfg.LogLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// setupReportingTimezone fixes the calendar used for resignation resume
// dates. All instances must agree on it or date comparisons drift across
// midnight boundaries.
func setupReportingTimezone() {
	loc, err := time.LoadLocation(cfg.ReportingTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.ReportingTimezone).Msg("Invalid reporting timezone")
	}
	domain.SetReportingLocation(loc)
}
