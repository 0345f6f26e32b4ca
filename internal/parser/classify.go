package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"sharevault/internal/models"
)

var (
	spotifyPattern = regexp.MustCompile(`^https://open\.spotify\.com/(?:intl-[A-Za-z-]+/)?([a-z]+)/([^?#/\s]+)`)
	youtubePattern = regexp.MustCompile(`(?:youtu\.be/|youtube\.com/(?:v/|watch\?v=|embed/|shorts/))([\w-]{11})`)
	videoIDPattern = regexp.MustCompile(`^[\w-]{11}$`)
)

// providerRule recognises one provider family. owns decides whether a URL
// belongs to the family at all; parse extracts the resource type and id.
type providerRule struct {
	name      string
	owns      func(host string) bool
	parse     func(raw string) (models.ProviderType, string, bool)
	normalize func(raw string) string
}

var providerRules = []providerRule{
	{
		name:      "spotify",
		owns:      func(host string) bool { return strings.Contains(host, "spotify") },
		parse:     parseSpotify,
		normalize: stripQuery,
	},
	{
		name:  "youtube",
		owns:  func(host string) bool { return strings.Contains(host, "youtu") },
		parse: parseYouTube,
	},
}

// Classifier routes URLs to provider families. It never performs I/O.
type Classifier struct {
	log logrus.FieldLogger
}

func NewClassifier(logger logrus.FieldLogger) *Classifier {
	return &Classifier{log: logger.WithField("component", "classifier")}
}

// Normalize applies the owning provider's canonical form, if any.
func (c *Classifier) Normalize(raw string) string {
	if r := ruleFor(raw); r != nil && r.normalize != nil {
		return r.normalize(raw)
	}
	return raw
}

// Classify attaches a provider type and id. URLs owned by a provider but not in
// one of its known shapes come back as TypeUnknown; everything else is a website.
func (c *Classifier) Classify(link models.RawLink) models.ClassifiedLink {
	out := models.ClassifiedLink{RawLink: link, Type: models.TypeWebsite}

	r := ruleFor(link.URL)
	if r == nil {
		return out
	}

	typ, id, ok := r.parse(link.URL)
	if !ok {
		c.log.WithFields(logrus.Fields{"url": link.URL, "provider": r.name}).Warn("could not parse provider URL")
		out.Type = models.TypeUnknown
		return out
	}
	out.Type = typ
	out.ProviderID = id
	return out
}

// ClassifyAll classifies every link, preserving order.
func (c *Classifier) ClassifyAll(links []models.RawLink) []models.ClassifiedLink {
	out := make([]models.ClassifiedLink, 0, len(links))
	for _, l := range links {
		out = append(out, c.Classify(l))
	}
	return out
}

func ruleFor(raw string) *providerRule {
	host := hostOf(raw)
	if host == "" {
		return nil
	}
	for i := range providerRules {
		if providerRules[i].owns(host) {
			return &providerRules[i]
		}
	}
	return nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func parseSpotify(raw string) (models.ProviderType, string, bool) {
	m := spotifyPattern.FindStringSubmatch(raw)
	if m == nil {
		return models.TypeUnknown, "", false
	}
	typ, ok := models.ParseProviderType(m[1])
	if !ok || !typ.IsMusic() {
		return models.TypeUnknown, "", false
	}
	return typ, m[2], true
}

// YouTubeVideoID returns the 11 character video id of a YouTube URL.
func YouTubeVideoID(raw string) (string, bool) {
	if m := youtubePattern.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	// watch URLs where v is not the first query parameter
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Hostname(), "youtube.com") || u.Path != "/watch" {
		return "", false
	}
	if v := u.Query().Get("v"); videoIDPattern.MatchString(v) {
		return v, true
	}
	return "", false
}

func parseYouTube(raw string) (models.ProviderType, string, bool) {
	id, ok := YouTubeVideoID(raw)
	if !ok {
		return models.TypeUnknown, "", false
	}
	return models.TypeVideo, id, true
}

func stripQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}
