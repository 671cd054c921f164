package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sboros/pimsync/internal/exchange"
	"github.com/sboros/pimsync/internal/google"
	"github.com/sboros/pimsync/internal/instrumentation"
	"github.com/sboros/pimsync/internal/logging"
	"github.com/sboros/pimsync/internal/retry"
	"github.com/sboros/pimsync/internal/syncer"
)

func newSyncCmd() *cobra.Command {
	var (
		exchangeConfig string
		sourceName     string
		googleConfig   string
		targetName     string
		logFile        string
		logLevel       string
		pastDays       int
		futureDays     int
		watchSeconds   int
		dryRun         bool
		metricsEnabled bool
		compareFields  string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize an Exchange calendar into a Google calendar",
		Long: `Run a one-way synchronization pass from an Office 365 (Exchange)
calendar to a Google calendar.

Events from the source calendar within the sync window are mirrored into
the target calendar. Mirrored copies are tagged with a private extended
property, so the tool only ever updates or deletes events it created
itself; everything else in the target calendar is left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := logging.Setup(logFile, logLevel)
			if err != nil {
				return err
			}
			defer closeLog() //nolint:errcheck

			provider, err := instrumentation.NewProvider("pimsync", version, metricsEnabled)
			if err != nil {
				return err
			}
			defer provider.Shutdown(context.Background()) //nolint:errcheck

			fields, err := syncer.ParseFields(compareFields)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			policy := retry.DefaultPolicy()

			source, err := exchange.NewClient(ctx, exchangeConfig, sourceName,
				logging.WithProvider(logger, "exchange"), policy)
			if err != nil {
				return fmt.Errorf("failed to create Exchange client: %w", err)
			}

			target, err := google.NewCalendarClient(ctx, googleConfig, targetName,
				logging.WithProvider(logger, "google"), policy)
			if err != nil {
				return fmt.Errorf("failed to create Google Calendar client: %w", err)
			}

			s := syncer.New(source, target, syncer.Options{
				Logger:   logger,
				Fields:   fields,
				DryRun:   dryRun,
				Recorder: provider.Metrics(),
			})

			runOnce := func() error {
				now := time.Now().UTC()
				window := syncer.Window{
					Start: now.AddDate(0, 0, -pastDays),
					End:   now.AddDate(0, 0, futureDays),
				}
				_, err := s.Run(ctx, window)
				return err
			}

			if watchSeconds <= 0 {
				return runOnce()
			}

			// Periodic mode keeps going after a failed pass; the next
			// tick re-reads both calendars from scratch anyway.
			interval := time.Duration(watchSeconds) * time.Second
			logger.Info("watching for changes", slog.Duration("interval", interval))
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := runOnce(); err != nil {
					logger.Error("sync pass failed", logging.Err(err))
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().StringVarP(&exchangeConfig, "exchange", "e", "o365_oauth.json", "Exchange (Office 365) config file")
	cmd.Flags().StringVarP(&sourceName, "source", "s", "Calendar", "Source calendar name in Exchange")
	cmd.Flags().StringVarP(&googleConfig, "google", "g", "google_oauth.json", "Google config file")
	cmd.Flags().StringVarP(&targetName, "target", "t", "primary", "Target calendar name in Google")
	cmd.Flags().StringVarP(&logFile, "log", "l", "calendar_sync.log", "Log file name (empty disables the file log)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().IntVar(&pastDays, "past", 7, "Sync window: days into the past")
	cmd.Flags().IntVar(&futureDays, "future", 28, "Sync window: days into the future")
	cmd.Flags().IntVar(&watchSeconds, "watch", 0, "Re-run every N seconds (0 runs once and exits)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the plan without writing to the target calendar")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics", false, "Emit OpenTelemetry metrics to stdout on exit")
	cmd.Flags().StringVar(&compareFields, "compare", "", "Comma-separated fields compared for update detection (default: all)")
	return cmd
}
