package enricher

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"sharevault/internal/fetch"
	"sharevault/internal/metrics"
	"sharevault/internal/models"
)

const SpotifyOEmbedEndpoint = "https://open.spotify.com/oembed"

// titleSplit separates "Song - Artist" style oEmbed titles.
var titleSplit = regexp.MustCompile(`\s+[-–—]\s+`)

type oEmbedResponse struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// SpotifyOEmbed resolves music links without credentials, one request per URL.
type SpotifyOEmbed struct {
	client   *fetch.Client
	endpoint string
	deps     Deps
}

func NewSpotifyOEmbed(client *fetch.Client, endpoint string, deps Deps) *SpotifyOEmbed {
	if endpoint == "" {
		endpoint = SpotifyOEmbedEndpoint
	}
	return &SpotifyOEmbed{client: client, endpoint: endpoint, deps: deps.withDefaults("enricher.spotify_oembed")}
}

func (s *SpotifyOEmbed) Name() string { return "spotify_oembed" }

func (s *SpotifyOEmbed) Enrich(ctx context.Context, links []models.ClassifiedLink) map[string]models.Metadata {
	music := filter(links, models.ProviderType.IsMusic)
	out := newResults()

	err := s.deps.Pool.Run(ctx, len(music), func(ctx context.Context, i int) {
		l := music[i]
		var resp oEmbedResponse
		if err := s.client.GetJSON(ctx, s.endpoint+"?url="+url.QueryEscape(l.URL), &resp); err != nil {
			s.deps.Log.WithField("url", l.URL).WithError(err).Warn("oembed lookup failed")
			s.deps.Metrics.IncrementLookup(s.Name(), metrics.OutcomeFailure)
			return
		}
		if resp.Title == "" {
			s.deps.Metrics.IncrementLookup(s.Name(), metrics.OutcomeMiss)
			return
		}

		meta := models.Metadata{
			Name:     resp.Title,
			Type:     l.Type.String(),
			ImageURL: resp.ThumbnailURL,
		}
		if l.Type == models.TypeTrack {
			meta.Name, meta.Artists = splitTrackTitle(resp.Title)
		}
		out.set(l.URL, meta)
		s.deps.Metrics.IncrementLookup(s.Name(), metrics.OutcomeHit)
	})
	logRunError(s.deps.Log, "oembed", err)
	return out.m
}

// splitTrackTitle returns the song and artist parts of "Song - Artist".
// Titles without a separator are returned whole with no artist.
func splitTrackTitle(title string) (string, string) {
	parts := titleSplit.Split(strings.TrimSpace(title), 2)
	if len(parts) != 2 {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}
