package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "last", cfg.Attribution)
	assert.Equal(t, VideoTitlesAuto, cfg.VideoTitles)
	assert.False(t, cfg.DeleteUploads())
	assert.False(t, cfg.HasSpotifyCredentials())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SHAREVAULT_PORT", "9090")
	t.Setenv("SHAREVAULT_MODE", "PROD")
	t.Setenv("SHAREVAULT_CONCURRENCY", "3")
	t.Setenv("SHAREVAULT_REQUEST_TIMEOUT", "2s")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("YOUTUBE_API_KEY", "key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.DeleteUploads())
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.HasSpotifyCredentials())
	assert.Equal(t, "key", cfg.YouTube.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "sharevault.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\nattribution: first\nweb_relay: https://relay.example/?\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "first", cfg.Attribution)
	assert.Equal(t, "https://relay.example/?", cfg.WebRelay)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{Concurrency: 1, RequestTimeout: time.Second, Attribution: "last", VideoTitles: VideoTitlesAuto}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.Concurrency = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Attribution = "middle"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.VideoTitles = VideoTitlesDataAPI
	assert.Error(t, bad.Validate(), "dataapi without a key")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.Unsetenv("SHAREVAULT_LOG_LEVEL"))
	t.Cleanup(func() { os.Unsetenv("SHAREVAULT_LOG_LEVEL") })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SHAREVAULT_LOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MalformedDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NOT-A-KEY=value\n"), 0o600))

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".env")
}
