package enricher

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sharevault/internal/fetch"
	"sharevault/internal/metrics"
	"sharevault/internal/models"
)

const maxPageBytes = 1 << 20

// Web resolves generic links from the page <title>, optionally through a
// relay that takes the escaped target URL as a suffix.
type Web struct {
	client *fetch.Client
	relay  string
	deps   Deps
}

func NewWeb(client *fetch.Client, relay string, deps Deps) *Web {
	return &Web{client: client, relay: relay, deps: deps.withDefaults("enricher.web")}
}

func (w *Web) Name() string { return "web" }

func (w *Web) Enrich(ctx context.Context, links []models.ClassifiedLink) map[string]models.Metadata {
	sites := filter(links, func(t models.ProviderType) bool { return t == models.TypeWebsite })
	out := newResults()

	err := w.deps.Pool.Run(ctx, len(sites), func(ctx context.Context, i int) {
		l := sites[i]
		title, err := w.title(ctx, l.URL)
		if err != nil {
			w.deps.Log.WithField("url", l.URL).WithError(err).Debug("page title lookup failed")
		}
		if title == "" {
			w.deps.Metrics.IncrementLookup(w.Name(), metrics.OutcomeFallback)
			out.set(l.URL, models.Metadata{Name: fallbackName(l.URL), Type: models.TypeWebsite.String()})
			return
		}
		w.deps.Metrics.IncrementLookup(w.Name(), metrics.OutcomeHit)
		out.set(l.URL, models.Metadata{Name: title, Type: models.TypeWebsite.String()})
	})
	logRunError(w.deps.Log, "page", err)
	return out.m
}

func (w *Web) title(ctx context.Context, link string) (string, error) {
	target := link
	if w.relay != "" {
		target = w.relay + url.QueryEscape(link)
	}
	body, err := w.client.GetBody(ctx, target, maxPageBytes)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " "), nil
}

// fallbackName is the host of the link, or the link itself if it has none.
func fallbackName(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return link
	}
	return u.Hostname()
}
