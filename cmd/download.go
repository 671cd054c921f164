package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sboros/pimsync/internal/instrumentation"
	"github.com/sboros/pimsync/internal/logging"
	"github.com/sboros/pimsync/internal/retry"
	"github.com/sboros/pimsync/internal/youtube"
)

func newDownloadCmd() *cobra.Command {
	var (
		googleConfig   string
		playlistName   string
		dir            string
		archiveFile    string
		logFile        string
		logLevel       string
		watchSeconds   int
		removeItems    bool
		metricsEnabled bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download videos added to a YouTube playlist",
		Long: `Watch a playlist of the authenticated YouTube account and download
every new video with yt-dlp. Downloaded video ids are recorded in an
archive file, so videos are fetched at most once; with --remove the
playlist acts as a queue and entries disappear after download.`,
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

			ctx := cmd.Context()
			client, err := youtube.NewClient(ctx, googleConfig, logger, retry.DefaultPolicy())
			if err != nil {
				return err
			}

			playlistID, err := client.PlaylistByName(ctx, playlistName)
			if err != nil {
				return err
			}

			if archiveFile == "" {
				archiveFile = filepath.Join(dir, ".pimsync-archive")
			}
			archive, err := youtube.OpenArchive(archiveFile)
			if err != nil {
				return err
			}
			downloader := youtube.NewDownloader(dir, archive, logger)

			runOnce := func() error {
				items, err := client.Items(ctx, playlistID)
				if err != nil {
					return err
				}
				logger.Debug("fetched playlist items", logging.Count(len(items)))

				for _, item := range items {
					downloaded, err := downloader.Download(ctx, item)
					if err != nil {
						return err
					}
					if !downloaded {
						continue
					}
					provider.Metrics().RecordDownload(ctx)
					if removeItems {
						if err := client.Remove(ctx, item.ID); err != nil {
							return err
						}
						logger.Debug("removed playlist item", slog.String("video", item.VideoID))
					}
				}
				return nil
			}

			if watchSeconds <= 0 {
				return runOnce()
			}

			interval := time.Duration(watchSeconds) * time.Second
			logger.Info("watching playlist", slog.String("playlist", playlistName), slog.Duration("interval", interval))
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := runOnce(); err != nil {
					logger.Error("download pass failed", logging.Err(err))
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().StringVarP(&googleConfig, "google", "g", "google_oauth.json", "Google config file")
	cmd.Flags().StringVarP(&playlistName, "playlist", "p", "Download", "Playlist name to watch")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Download directory")
	cmd.Flags().StringVar(&archiveFile, "archive", "", "Archive file of downloaded video ids (default: <dir>/.pimsync-archive)")
	cmd.Flags().StringVarP(&logFile, "log", "l", "youtube_dl.log", "Log file name (empty disables the file log)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().IntVar(&watchSeconds, "watch", 0, "Re-check the playlist every N seconds (0 runs once and exits)")
	cmd.Flags().BoolVar(&removeItems, "remove", false, "Remove playlist entries after successful download")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics", false, "Emit OpenTelemetry metrics to stdout on exit")
	return cmd
}
