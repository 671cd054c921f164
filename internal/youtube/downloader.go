package youtube

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// DefaultCommand is the downloader invocation; the watch URL is appended.
var DefaultCommand = []string{"yt-dlp", "-S", "ext:mp4:m4a"}

// Archive is an append-only file of downloaded video ids, one per line.
// It makes download runs idempotent.
type Archive struct {
	path string
	seen map[string]bool
}

// OpenArchive loads the archive at path; a missing file is an empty archive.
func OpenArchive(path string) (*Archive, error) {
	a := &Archive{path: path, seen: make(map[string]bool)}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			a.seen[id] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", path, err)
	}
	return a, nil
}

// Contains reports whether a video id is already archived.
func (a *Archive) Contains(videoID string) bool {
	return a.seen[videoID]
}

// Add records a video id, appending it to the archive file immediately so
// an interrupted run does not re-download completed videos.
func (a *Archive) Add(videoID string) error {
	if a.seen[videoID] {
		return nil
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", a.path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, videoID); err != nil {
		return fmt.Errorf("failed to append to archive %s: %w", a.path, err)
	}
	a.seen[videoID] = true
	return nil
}

// Downloader runs the external download command for new playlist items.
type Downloader struct {
	Dir     string
	Archive *Archive
	Command []string
	Logger  *slog.Logger

	// run is injectable for tests; nil means executing the command.
	run func(ctx context.Context, dir string, args []string) error
}

// NewDownloader creates a Downloader writing into dir.
func NewDownloader(dir string, archive *Archive, logger *slog.Logger) *Downloader {
	return &Downloader{
		Dir:     dir,
		Archive: archive,
		Command: DefaultCommand,
		Logger:  logger,
	}
}

// Download fetches one playlist item unless it is already archived.
// It returns true when the video was actually downloaded.
func (d *Downloader) Download(ctx context.Context, item Item) (bool, error) {
	if d.Archive.Contains(item.VideoID) {
		d.Logger.Debug("video already downloaded", slog.String("video", item.VideoID))
		return false, nil
	}

	args := append(append([]string{}, d.Command...), item.URL())
	d.Logger.Info("downloading video",
		slog.String("video", item.VideoID),
		slog.String("title", item.Title),
	)

	runner := d.run
	if runner == nil {
		runner = runCommand
	}
	if err := runner(ctx, d.Dir, args); err != nil {
		return false, fmt.Errorf("download of %s failed: %w", item.VideoID, err)
	}
	if err := d.Archive.Add(item.VideoID); err != nil {
		return false, err
	}
	return true, nil
}

func runCommand(ctx context.Context, dir string, args []string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
