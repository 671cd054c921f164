package youtube

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.txt")

	archive, err := OpenArchive(path)
	require.NoError(t, err)
	assert.False(t, archive.Contains("abc123"))

	require.NoError(t, archive.Add("abc123"))
	require.NoError(t, archive.Add("def456"))
	require.NoError(t, archive.Add("abc123"), "re-adding is a no-op")

	// A fresh open sees all persisted ids.
	reopened, err := OpenArchive(path)
	require.NoError(t, err)
	assert.True(t, reopened.Contains("abc123"))
	assert.True(t, reopened.Contains("def456"))
	assert.False(t, reopened.Contains("zzz"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123\ndef456\n", string(data))
}

func TestDownloaderSkipsArchived(t *testing.T) {
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "archive.txt"))
	require.NoError(t, err)
	require.NoError(t, archive.Add("abc123"))

	d := NewDownloader(t.TempDir(), archive, slog.New(slog.NewTextHandler(io.Discard, nil)))
	calls := 0
	d.run = func(context.Context, string, []string) error {
		calls++
		return nil
	}

	downloaded, err := d.Download(context.Background(), Item{VideoID: "abc123"})
	require.NoError(t, err)
	assert.False(t, downloaded)
	assert.Zero(t, calls)
}

func TestDownloaderRunsCommandAndArchives(t *testing.T) {
	dir := t.TempDir()
	archive, err := OpenArchive(filepath.Join(dir, "archive.txt"))
	require.NoError(t, err)

	d := NewDownloader(dir, archive, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var gotArgs []string
	var gotDir string
	d.run = func(_ context.Context, dir string, args []string) error {
		gotDir = dir
		gotArgs = args
		return nil
	}

	downloaded, err := d.Download(context.Background(), Item{VideoID: "abc123", Title: "A talk"})
	require.NoError(t, err)
	assert.True(t, downloaded)
	assert.True(t, archive.Contains("abc123"))
	assert.Equal(t, dir, gotDir)
	assert.Equal(t,
		[]string{"yt-dlp", "-S", "ext:mp4:m4a", "https://www.youtube.com/watch?v=abc123"},
		gotArgs)
}

func TestDownloaderFailureIsNotArchived(t *testing.T) {
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "archive.txt"))
	require.NoError(t, err)

	d := NewDownloader(t.TempDir(), archive, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.run = func(context.Context, string, []string) error {
		return errors.New("exit status 1")
	}

	_, err = d.Download(context.Background(), Item{VideoID: "abc123"})
	require.Error(t, err)
	assert.False(t, archive.Contains("abc123"), "failed downloads must be retried next run")
}

func TestItemURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", Item{VideoID: "abc123"}.URL())
}
