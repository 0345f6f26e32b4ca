package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"sharevault/internal/config"
	"sharevault/internal/enricher"
	"sharevault/internal/fetch"
	"sharevault/internal/metrics"
	"sharevault/internal/parser"
	"sharevault/internal/pipeline"
	"sharevault/internal/workpool"
)

// newAnalyser assembles the pipeline and its enrichers from cfg. ctx scopes
// the music provider token source and should outlive every analysis.
func newAnalyser(ctx context.Context, cfg config.Config, log logrus.FieldLogger, m metrics.Metrics) (*pipeline.Analyser, error) {
	attribution, err := parser.ParseAttribution(cfg.Attribution)
	if err != nil {
		return nil, err
	}

	client := fetch.New(fetch.Options{
		RatePerSecond: cfg.RatePerSecond,
		Timeout:       cfg.RequestTimeout,
	})
	deps := enricher.Deps{Log: log, Pool: workpool.New(cfg.Concurrency), Metrics: m}

	music := newMusicEnricher(ctx, cfg, client, deps)
	titles, err := newTitleSource(cfg, client)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"music":       music.Name(),
		"video":       titles.Name(),
		"attribution": attribution.String(),
		"concurrency": cfg.Concurrency,
	}).Debug("analyser configured")

	return pipeline.New(pipeline.Deps{
		Attribution: attribution,
		Music:       music,
		Video:       enricher.NewVideo(titles, deps),
		Web:         enricher.NewWeb(client, cfg.WebRelay, deps),
		Log:         log,
		Metrics:     m,
	}), nil
}

func newMusicEnricher(ctx context.Context, cfg config.Config, client *fetch.Client, deps enricher.Deps) enricher.Enricher {
	if !cfg.HasSpotifyCredentials() {
		return enricher.NewSpotifyOEmbed(client, "", deps)
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return enricher.NewSpotifyAPI(spotify.New(creds.Client(ctx)), cfg.RequestTimeout, deps)
}

func newTitleSource(cfg config.Config, client *fetch.Client) (enricher.TitleSource, error) {
	source := cfg.VideoTitles
	if source == config.VideoTitlesAuto {
		source = config.VideoTitlesOEmbed
		if cfg.YouTube.APIKey != "" {
			source = config.VideoTitlesDataAPI
		}
	}

	switch source {
	case config.VideoTitlesDataAPI:
		return &enricher.DataAPITitles{Client: client, APIKey: cfg.YouTube.APIKey}, nil
	case config.VideoTitlesOEmbed:
		return &enricher.OEmbedTitles{Client: client}, nil
	case config.VideoTitlesPlayer:
		return enricher.NewPlayerTitles(&http.Client{}, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown video_titles source %q", cfg.VideoTitles)
	}
}
