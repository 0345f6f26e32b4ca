package parser

import (
	"fmt"
	"regexp"
	"strings"

	"sharevault/internal/models"
	"sharevault/internal/ordered"
)

// Attribution decides which message a repeated URL is credited to.
type Attribution int

const (
	// LastWins credits the latest message that shared the URL.
	LastWins Attribution = iota
	// FirstWins keeps the earliest sender and timestamp.
	FirstWins
)

func (a Attribution) String() string {
	if a == FirstWins {
		return "first"
	}
	return "last"
}

func ParseAttribution(s string) (Attribution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last":
		return LastWins, nil
	case "first":
		return FirstWins, nil
	default:
		return LastWins, fmt.Errorf("unknown attribution policy %q", s)
	}
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

const trailingPunctuation = `.,)]}"';:`

// LinkExtractor pulls distinct URLs out of messages.
type LinkExtractor struct {
	Attribution Attribution
	// Classifier supplies provider-specific URL normalisation; nil keeps URLs as found.
	Classifier *Classifier
}

// Extract returns one RawLink per distinct normalised URL, keyed by URL in
// first-seen order. Messages without a "sender:" prefix are skipped.
func (e LinkExtractor) Extract(messages []models.Message) *ordered.Map[string, models.RawLink] {
	links := ordered.New[string, models.RawLink]()

	for _, msg := range messages {
		colon := strings.Index(msg.Body, ":")
		if colon == -1 {
			continue
		}
		user := strings.TrimSpace(msg.Body[:colon])
		content := strings.TrimSpace(msg.Body[colon+1:])
		timestamp := trimTimestamp(msg.Timestamp)

		for _, found := range urlPattern.FindAllString(content, -1) {
			url := trimURL(found)
			if e.Classifier != nil {
				url = e.Classifier.Normalize(url)
			}
			if url == "" {
				continue
			}
			if e.Attribution == FirstWins && links.Has(url) {
				continue
			}
			links.Set(url, models.RawLink{URL: url, User: user, Timestamp: timestamp})
		}
	}

	return links
}

// trimURL drops a single trailing punctuation character picked up from prose.
func trimURL(u string) string {
	if u == "" {
		return u
	}
	if strings.ContainsRune(trailingPunctuation, rune(u[len(u)-1])) {
		return u[:len(u)-1]
	}
	return u
}
