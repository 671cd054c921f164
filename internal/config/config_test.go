package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	ClientID     string   `json:"client_id"`
	Scopes       []string `json:"scopes,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "google.json")
	original := testConfig{
		ClientID: "client-123",
		Scopes:   []string{"https://www.googleapis.com/auth/calendar"},
	}
	require.NoError(t, Save(path, original))

	// Token refresh rewrites the file with the new refresh token.
	original.RefreshToken = "refreshed"
	require.NoError(t, Save(path, original))

	var loaded testConfig
	require.NoError(t, Load(path, &loaded))
	assert.Equal(t, original, loaded)
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, Save(path, testConfig{ClientID: "x"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadMissingFile(t *testing.T) {
	var v testConfig
	err := Load(filepath.Join(t.TempDir(), "absent.json"), &v)
	require.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	var v testConfig
	err := Load(path, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	assert.True(t, Exists(path))
	assert.False(t, Exists(filepath.Join(dir, "absent.json")))
	assert.False(t, Exists(dir), "directories are not config files")
}
