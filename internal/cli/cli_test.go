package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharevault/internal/config"
	"sharevault/internal/enricher"
	"sharevault/internal/fetch"
	"sharevault/internal/models"
)

const chat = "[01/02/24, 10:00] Alice: https://example.invalid/a\n" +
	"[01/02/24, 10:01] Bob: https://example.invalid/b\n"

// isolate keeps the host environment and working directory out of config.Load.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, env := range []string{"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "YOUTUBE_API_KEY", config.ConfigPathEnv} {
		t.Setenv(env, "")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat.txt"), []byte(chat), 0o600))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestAnalyseCommand_JSON(t *testing.T) {
	isolate(t)

	out, err := run(t, "analyse", "chat.txt", "--no-spotify", "--no-youtube", "--no-general")
	require.NoError(t, err)

	var links []models.EnrichedLink
	require.NoError(t, json.Unmarshal([]byte(out), &links))
	assert.Equal(t, []models.EnrichedLink{
		{URL: "https://example.invalid/a", User: "Alice", Timestamp: "01/02/24, 10:00", Type: "website"},
		{URL: "https://example.invalid/b", User: "Bob", Timestamp: "01/02/24, 10:01", Type: "website"},
	}, links)
}

func TestAnalyseCommand_CSVToFile(t *testing.T) {
	dir := isolate(t)

	_, err := run(t, "analyse", "chat.txt", "--format", "csv", "--output", "links.csv", "--no-spotify", "--no-youtube", "--no-general")
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "links.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestAnalyseCommand_Errors(t *testing.T) {
	isolate(t)

	_, err := run(t, "analyse", "missing.txt")
	assert.Error(t, err)

	_, err = run(t, "analyse", "chat.txt", "--format", "pdf")
	assert.Error(t, err)

	_, err = run(t, "analyse")
	assert.Error(t, err)
}

func TestNewTitleSource(t *testing.T) {
	client := fetch.New(fetch.Options{})

	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"auto without key", config.Config{VideoTitles: config.VideoTitlesAuto}, "oembed"},
		{"auto with key", config.Config{VideoTitles: config.VideoTitlesAuto, YouTube: config.YouTubeConfig{APIKey: "k"}}, "data_api"},
		{"player", config.Config{VideoTitles: config.VideoTitlesPlayer}, "player"},
		{"oembed", config.Config{VideoTitles: config.VideoTitlesOEmbed, YouTube: config.YouTubeConfig{APIKey: "k"}}, "oembed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := newTitleSource(tt.cfg, client)
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Name())
		})
	}

	_, err := newTitleSource(config.Config{VideoTitles: "nope"}, client)
	assert.Error(t, err)
}

func TestNewMusicEnricher(t *testing.T) {
	client := fetch.New(fetch.Options{})
	deps := enricher.Deps{}

	e := newMusicEnricher(context.Background(), config.Config{}, client, deps)
	assert.Equal(t, "spotify_oembed", e.Name())

	e = newMusicEnricher(context.Background(), config.Config{Spotify: config.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}}, client, deps)
	assert.Equal(t, "spotify", e.Name())
}
