package models

import (
	"encoding/json"
	"fmt"
)

// ProviderType is the closed set of resource kinds a link can resolve to.
type ProviderType int

const (
	TypeUnknown ProviderType = iota
	TypeTrack
	TypeAlbum
	TypePlaylist
	TypeArtist
	TypeVideo
	TypeWebsite
)

var providerTypeNames = map[ProviderType]string{
	TypeUnknown:  "unknown",
	TypeTrack:    "track",
	TypeAlbum:    "album",
	TypePlaylist: "playlist",
	TypeArtist:   "artist",
	TypeVideo:    "video",
	TypeWebsite:  "website",
}

func (t ProviderType) String() string {
	if name, ok := providerTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseProviderType maps a path segment such as "track" to its ProviderType.
func ParseProviderType(s string) (ProviderType, bool) {
	for t, name := range providerTypeNames {
		if name == s {
			return t, true
		}
	}
	return TypeUnknown, false
}

// IsMusic reports whether t is one of the music-provider resource kinds.
func (t ProviderType) IsMusic() bool {
	switch t {
	case TypeTrack, TypeAlbum, TypePlaylist, TypeArtist:
		return true
	}
	return false
}

func (t ProviderType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ProviderType) UnmarshalText(b []byte) error {
	parsed, ok := ParseProviderType(string(b))
	if !ok {
		return fmt.Errorf("unknown provider type %q", b)
	}
	*t = parsed
	return nil
}

// Message is one timestamped entry of a transcript.
type Message struct {
	Timestamp string
	Body      string
}

// RawLink is a distinct URL with the sender and timestamp it is attributed to.
type RawLink struct {
	URL       string `json:"url"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
}

type ClassifiedLink struct {
	RawLink
	Type       ProviderType `json:"type"`
	ProviderID string       `json:"provider_id,omitempty"`
}

// Metadata is what an enricher knows about a single URL. Empty fields are absent.
type Metadata struct {
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Artists  string `json:"artists,omitempty"`
}

// EnrichedLink is the final record handed to callers.
type EnrichedLink struct {
	URL       string `json:"url"`
	User      string `json:"user,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type,omitempty"`
	Artists   string `json:"artists,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Apply shallow-merges m into the link; set fields in m win.
func (l *EnrichedLink) Apply(m Metadata) {
	if m.Name != "" {
		l.Name = m.Name
	}
	if m.Type != "" {
		l.Type = m.Type
	}
	if m.Artists != "" {
		l.Artists = m.Artists
	}
	if m.ImageURL != "" {
		l.ImageURL = m.ImageURL
	}
}

// UploadResponse is the body returned by the upload endpoint.
type UploadResponse struct {
	FileContents []EnrichedLink `json:"file_contents"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// MarshalJSON keeps file_contents an array even when no links were found.
func (r UploadResponse) MarshalJSON() ([]byte, error) {
	links := r.FileContents
	if links == nil {
		links = []EnrichedLink{}
	}
	return json.Marshal(struct {
		FileContents []EnrichedLink `json:"file_contents"`
	}{links})
}
