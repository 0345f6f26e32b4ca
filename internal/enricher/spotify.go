package enricher

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"

	"sharevault/internal/metrics"
	"sharevault/internal/models"
)

const (
	maxTracksPerRequest  = 50
	maxArtistsPerRequest = 50
	maxAlbumsPerRequest  = 20

	// playlistFields skips the embedded first page of tracks.
	playlistFields = "name,images"
)

// SpotifyClient is the part of *spotify.Client used for lookups.
type SpotifyClient interface {
	GetTracks(ctx context.Context, ids []spotify.ID, opts ...spotify.RequestOption) ([]*spotify.FullTrack, error)
	GetAlbums(ctx context.Context, ids []spotify.ID, opts ...spotify.RequestOption) ([]*spotify.FullAlbum, error)
	GetArtists(ctx context.Context, ids ...spotify.ID) ([]*spotify.FullArtist, error)
	GetPlaylist(ctx context.Context, playlistID spotify.ID, opts ...spotify.RequestOption) (*spotify.FullPlaylist, error)
}

// SpotifyAPI resolves music links through the Web API, batching ids where the
// API allows it.
type SpotifyAPI struct {
	client  SpotifyClient
	timeout time.Duration
	deps    Deps
}

func NewSpotifyAPI(client SpotifyClient, timeout time.Duration, deps Deps) *SpotifyAPI {
	return &SpotifyAPI{client: client, timeout: timeout, deps: deps.withDefaults("enricher.spotify")}
}

func (s *SpotifyAPI) Name() string { return "spotify" }

// idIndex maps a provider id to every link URL that referenced it.
type idIndex struct {
	ids  []spotify.ID
	urls map[spotify.ID][]string
}

func (x *idIndex) add(id spotify.ID, url string) {
	if x.urls == nil {
		x.urls = make(map[spotify.ID][]string)
	}
	if _, ok := x.urls[id]; !ok {
		x.ids = append(x.ids, id)
	}
	x.urls[id] = append(x.urls[id], url)
}

func (s *SpotifyAPI) Enrich(ctx context.Context, links []models.ClassifiedLink) map[string]models.Metadata {
	byType := map[models.ProviderType]*idIndex{}
	for _, l := range filter(links, models.ProviderType.IsMusic) {
		idx, ok := byType[l.Type]
		if !ok {
			idx = &idIndex{}
			byType[l.Type] = idx
		}
		idx.add(spotify.ID(l.ProviderID), l.URL)
	}

	type job struct {
		typ models.ProviderType
		idx *idIndex
	}
	var jobs []job
	for _, typ := range []models.ProviderType{models.TypeTrack, models.TypeAlbum, models.TypePlaylist, models.TypeArtist} {
		if idx, ok := byType[typ]; ok {
			jobs = append(jobs, job{typ, idx})
		}
	}

	out := newResults()
	err := s.deps.Pool.Run(ctx, len(jobs), func(ctx context.Context, i int) {
		j := jobs[i]
		switch j.typ {
		case models.TypeTrack:
			out.merge(s.getTracks(ctx, j.idx))
		case models.TypeAlbum:
			out.merge(s.getAlbums(ctx, j.idx))
		case models.TypePlaylist:
			out.merge(s.getPlaylists(ctx, j.idx))
		case models.TypeArtist:
			out.merge(s.getArtists(ctx, j.idx))
		}
	})
	logRunError(s.deps.Log, "spotify", err)
	return out.m
}

func (s *SpotifyAPI) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *SpotifyAPI) getTracks(ctx context.Context, idx *idIndex) map[string]models.Metadata {
	ret := map[string]models.Metadata{}

	for _, chunk := range chunkIDs(idx.ids, maxTracksPerRequest) {
		callCtx, cancel := s.callContext(ctx)
		tracks, err := s.client.GetTracks(callCtx, chunk)
		cancel()
		if err != nil {
			s.lookupFailed("track", chunk, err)
			continue
		}

		// Responses are positional; relinked tracks may carry a different id.
		for i, id := range chunk {
			if i >= len(tracks) || tracks[i] == nil {
				s.lookupMissed("track", id)
				continue
			}
			t := tracks[i]
			meta := models.Metadata{
				Name:     t.Name,
				Artists:  joinArtists(t.Artists),
				Type:     models.TypeTrack.String(),
				ImageURL: firstImage(t.Album.Images),
			}
			s.store(ret, idx.urls[id], meta)
		}
	}

	return ret
}

func (s *SpotifyAPI) getAlbums(ctx context.Context, idx *idIndex) map[string]models.Metadata {
	ret := map[string]models.Metadata{}

	for _, chunk := range chunkIDs(idx.ids, maxAlbumsPerRequest) {
		callCtx, cancel := s.callContext(ctx)
		albums, err := s.client.GetAlbums(callCtx, chunk)
		cancel()
		if err != nil {
			s.lookupFailed("album", chunk, err)
			continue
		}

		for i, id := range chunk {
			if i >= len(albums) || albums[i] == nil {
				s.lookupMissed("album", id)
				continue
			}
			a := albums[i]
			meta := models.Metadata{
				Name:     a.Name,
				Artists:  joinArtists(a.Artists),
				Type:     models.TypeAlbum.String(),
				ImageURL: firstImage(a.Images),
			}
			s.store(ret, idx.urls[id], meta)
		}
	}

	return ret
}

func (s *SpotifyAPI) getArtists(ctx context.Context, idx *idIndex) map[string]models.Metadata {
	ret := map[string]models.Metadata{}

	for _, chunk := range chunkIDs(idx.ids, maxArtistsPerRequest) {
		callCtx, cancel := s.callContext(ctx)
		artists, err := s.client.GetArtists(callCtx, chunk...)
		cancel()
		if err != nil {
			s.lookupFailed("artist", chunk, err)
			continue
		}

		for i, id := range chunk {
			if i >= len(artists) || artists[i] == nil {
				s.lookupMissed("artist", id)
				continue
			}
			a := artists[i]
			meta := models.Metadata{
				Name:     a.Name,
				Type:     models.TypeArtist.String(),
				ImageURL: firstImage(a.Images),
			}
			s.store(ret, idx.urls[id], meta)
		}
	}

	return ret
}

// getPlaylists has no batch endpoint, so it issues one call per id.
func (s *SpotifyAPI) getPlaylists(ctx context.Context, idx *idIndex) map[string]models.Metadata {
	ret := map[string]models.Metadata{}

	for _, id := range idx.ids {
		callCtx, cancel := s.callContext(ctx)
		p, err := s.client.GetPlaylist(callCtx, id, spotify.Fields(playlistFields))
		cancel()
		if err != nil {
			s.lookupFailed("playlist", []spotify.ID{id}, err)
			continue
		}
		if p == nil {
			s.lookupMissed("playlist", id)
			continue
		}
		meta := models.Metadata{
			Name:     p.Name,
			Type:     models.TypePlaylist.String(),
			ImageURL: firstImage(p.Images),
		}
		s.store(ret, idx.urls[id], meta)
	}

	return ret
}

func (s *SpotifyAPI) store(ret map[string]models.Metadata, urls []string, meta models.Metadata) {
	for _, u := range urls {
		ret[u] = meta
		s.deps.Metrics.IncrementLookup(s.Name(), metrics.OutcomeHit)
	}
}

func (s *SpotifyAPI) lookupFailed(kind string, ids []spotify.ID, err error) {
	s.deps.Log.WithFields(logrus.Fields{"kind": kind, "ids": len(ids)}).WithError(err).Warn("spotify lookup failed")
	for range ids {
		s.deps.Metrics.IncrementLookup(s.Name(), metrics.OutcomeFailure)
	}
}

func (s *SpotifyAPI) lookupMissed(kind string, id spotify.ID) {
	s.deps.Log.WithFields(logrus.Fields{"kind": kind, "id": id}).Warn("spotify returned no item")
	s.deps.Metrics.IncrementLookup(s.Name(), metrics.OutcomeMiss)
}

func chunkIDs(ids []spotify.ID, size int) [][]spotify.ID {
	var chunks [][]spotify.ID
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[i:end])
	}
	return chunks
}

func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
