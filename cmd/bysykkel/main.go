// Package main provides the bysykkel command, which prints live bike and
// dock availability for a configured set of bike-share stations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bysykkel/bysykkel/internal/availability"
	"github.com/bysykkel/bysykkel/internal/config"
	"github.com/bysykkel/bysykkel/internal/gbfs"
	"github.com/bysykkel/bysykkel/internal/logging"
	"github.com/bysykkel/bysykkel/internal/report"
	"github.com/bysykkel/bysykkel/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "bysykkel"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "bysykkel:", err)
		os.Exit(1)
	}

	if err := newRootCmd(config.FromEnv(), os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "bysykkel:", err)
		os.Exit(1) //nolint:gocritic // stop only releases the signal handler
	}
}

func newRootCmd(settings config.Settings, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bysykkel",
		Short: "Show free bikes and docks for your stations",
		Long: `Fetches the GBFS station_information and station_status feeds of a
bike-share network and prints one line per configured station:

  Sentrum: 5 sykler, 10 stativ`,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), settings, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&settings.StationsFile, "config", "c", settings.StationsFile, "stations file (JSON or YAML)")
	flags.StringVar(&settings.InformationURL, "information-url", settings.InformationURL, "station_information.json URL")
	flags.StringVar(&settings.StatusURL, "status-url", settings.StatusURL, "station_status.json URL")
	flags.StringVar(&settings.ClientIdentifier, "client-identifier", settings.ClientIdentifier, "value of the Client-Identifier request header")
	flags.DurationVar(&settings.Timeout, "timeout", settings.Timeout, "per-request timeout")
	flags.StringVar(&settings.LogLevel, "log-level", settings.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&settings.LogFormat, "log-format", settings.LogFormat, "log format (console, json)")
	flags.StringVar(&settings.LogFile, "log-file", settings.LogFile, "also write JSON logs to this rotated file")

	return cmd
}

func run(ctx context.Context, settings config.Settings, stdout, stderr io.Writer) error {
	logger, logCloser, err := logging.New(logging.Config{
		ServiceName: serviceName,
		Version:     Version,
		Level:       settings.LogLevel,
		Format:      settings.LogFormat,
		File:        settings.LogFile,
		Output:      stderr,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	logger = logger.With().Str("run_id", uuid.NewString()).Logger()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    settings.Environment,
		OTLPEndpoint:   settings.OTLPEndpoint,
		Enabled:        settings.OTelEnabled,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	stations, err := config.LoadStations(settings.StationsFile)
	if err != nil {
		return err
	}

	logger.Debug().
		Str("config", settings.StationsFile).
		Int("stations", len(stations)).
		Str("information_url", settings.InformationURL).
		Str("status_url", settings.StatusURL).
		Msg("fetching availability")

	client := gbfs.NewClient(gbfs.ClientConfig{
		InformationURL:   settings.InformationURL,
		StatusURL:        settings.StatusURL,
		ClientIdentifier: settings.ClientIdentifier,
		Timeout:          settings.Timeout,
		Logger:           logger,
	})

	svc, err := availability.NewService(availability.ServiceConfig{
		Fetcher: client,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create availability service: %w", err)
	}

	rows, err := svc.Availability(ctx, availability.NewAllowList(stations))
	if err != nil {
		return err
	}

	return report.NewReporter(stdout).Report(rows)
}
