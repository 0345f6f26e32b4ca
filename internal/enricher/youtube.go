package enricher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kkdai/youtube/v2"

	"sharevault/internal/fetch"
	"sharevault/internal/metrics"
	"sharevault/internal/models"
)

const (
	YouTubeDataAPIEndpoint = "https://www.googleapis.com/youtube/v3/videos"
	YouTubeOEmbedEndpoint  = "https://www.youtube.com/oembed"
)

var ErrVideoNotFound = errors.New("video not found")

// ThumbnailURL is the default-size still for a video id.
func ThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/default.jpg"
}

// TitleSource looks up the title of a single video.
type TitleSource interface {
	Name() string
	Title(ctx context.Context, videoID, link string) (string, error)
}

// Video resolves video links. A failed title lookup still yields a usable
// entry named after the URL.
type Video struct {
	titles TitleSource
	deps   Deps
}

func NewVideo(titles TitleSource, deps Deps) *Video {
	return &Video{titles: titles, deps: deps.withDefaults("enricher.video")}
}

func (v *Video) Name() string { return "youtube" }

func (v *Video) Enrich(ctx context.Context, links []models.ClassifiedLink) map[string]models.Metadata {
	videos := filter(links, func(t models.ProviderType) bool { return t == models.TypeVideo })
	out := newResults()

	err := v.deps.Pool.Run(ctx, len(videos), func(ctx context.Context, i int) {
		l := videos[i]
		meta := models.Metadata{
			Name:     l.URL,
			Type:     models.TypeVideo.String(),
			ImageURL: ThumbnailURL(l.ProviderID),
		}

		title, err := v.titles.Title(ctx, l.ProviderID, l.URL)
		switch {
		case err != nil:
			v.deps.Log.WithField("url", l.URL).WithField("source", v.titles.Name()).WithError(err).Warn("video title lookup failed")
			v.deps.Metrics.IncrementLookup(v.Name(), metrics.OutcomeFallback)
		case title == "":
			v.deps.Metrics.IncrementLookup(v.Name(), metrics.OutcomeFallback)
		default:
			meta.Name = title
			v.deps.Metrics.IncrementLookup(v.Name(), metrics.OutcomeHit)
		}
		out.set(l.URL, meta)
	})
	logRunError(v.deps.Log, "video", err)
	return out.m
}

// DataAPITitles queries the YouTube Data API v3.
type DataAPITitles struct {
	Client   *fetch.Client
	APIKey   string
	Endpoint string
}

func (d *DataAPITitles) Name() string { return "data_api" }

func (d *DataAPITitles) Title(ctx context.Context, videoID, _ string) (string, error) {
	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = YouTubeDataAPIEndpoint
	}
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("id", videoID)
	q.Set("key", d.APIKey)

	var resp struct {
		Items []struct {
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := d.Client.GetJSON(ctx, endpoint+"?"+q.Encode(), &resp); err != nil {
		return "", fmt.Errorf("data api %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("data api %s: %w", videoID, ErrVideoNotFound)
	}
	return resp.Items[0].Snippet.Title, nil
}

// OEmbedTitles queries the public oEmbed endpoint and needs no key.
type OEmbedTitles struct {
	Client   *fetch.Client
	Endpoint string
}

func (o *OEmbedTitles) Name() string { return "oembed" }

func (o *OEmbedTitles) Title(ctx context.Context, _, link string) (string, error) {
	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = YouTubeOEmbedEndpoint
	}
	var resp oEmbedResponse
	if err := o.Client.GetJSON(ctx, endpoint+"?url="+url.QueryEscape(link)+"&format=json", &resp); err != nil {
		return "", fmt.Errorf("oembed %s: %w", link, err)
	}
	return resp.Title, nil
}

// PlayerTitles reads the watch page player response through kkdai/youtube.
type PlayerTitles struct {
	client  youtube.Client
	timeout time.Duration
}

func NewPlayerTitles(httpClient *http.Client, timeout time.Duration) *PlayerTitles {
	return &PlayerTitles{client: youtube.Client{HTTPClient: httpClient}, timeout: timeout}
}

func (p *PlayerTitles) Name() string { return "player" }

func (p *PlayerTitles) Title(ctx context.Context, videoID, _ string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	video, err := p.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("player %s: %w", videoID, err)
	}
	return video.Title, nil
}
