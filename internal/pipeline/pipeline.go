// Package pipeline turns a chat transcript into an ordered list of enriched
// links.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sharevault/internal/enricher"
	"sharevault/internal/metrics"
	"sharevault/internal/models"
	"sharevault/internal/parser"
)

// Options switch individual enrichment stages on or off.
type Options struct {
	ExpandSpotify bool
	ExpandYoutube bool
	ExpandGeneral bool
}

func DefaultOptions() Options {
	return Options{ExpandSpotify: true, ExpandYoutube: true, ExpandGeneral: true}
}

// Deps are the collaborators of an Analyser. Nil enrichers disable their stage.
type Deps struct {
	Attribution parser.Attribution
	Music       enricher.Enricher
	Video       enricher.Enricher
	Web         enricher.Enricher
	Log         logrus.FieldLogger
	Metrics     metrics.Metrics
}

type Analyser struct {
	extractor  parser.LinkExtractor
	classifier *parser.Classifier
	music      enricher.Enricher
	video      enricher.Enricher
	web        enricher.Enricher
	log        logrus.FieldLogger
	metrics    metrics.Metrics
}

func New(deps Deps) *Analyser {
	if deps.Log == nil {
		deps.Log = logrus.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	classifier := parser.NewClassifier(deps.Log)
	return &Analyser{
		extractor:  parser.LinkExtractor{Attribution: deps.Attribution, Classifier: classifier},
		classifier: classifier,
		music:      deps.Music,
		video:      deps.Video,
		web:        deps.Web,
		log:        deps.Log.WithField("component", "pipeline"),
		metrics:    deps.Metrics,
	}
}

// AnalyseChat segments text, extracts distinct links and enriches them. The
// enabled enrichers run concurrently and the result is assembled once all of
// them have returned. Enrichment failures never fail the analysis.
func (a *Analyser) AnalyseChat(ctx context.Context, text string, opts Options) []models.EnrichedLink {
	start := time.Now()

	messages := parser.SplitMessages(text)
	links := a.extractor.Extract(messages)
	a.metrics.ObserveLinksExtracted(links.Len())

	raw := make([]models.RawLink, 0, links.Len())
	links.Each(func(_ string, l models.RawLink) bool {
		raw = append(raw, l)
		return true
	})
	classified := a.classifier.ClassifyAll(raw)

	stages := []struct {
		on bool
		e  enricher.Enricher
	}{
		{opts.ExpandSpotify, a.music},
		{opts.ExpandYoutube, a.video},
		{opts.ExpandGeneral, a.web},
	}
	// Fixed slots keep the merge order independent of completion order.
	// Slot 0 carries the classified type so it survives partial metadata.
	results := make([]map[string]models.Metadata, len(stages)+1)
	results[0] = classifiedTypes(classified)

	if len(classified) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		for i, s := range stages {
			if !s.on || s.e == nil {
				continue
			}
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						a.log.WithFields(logrus.Fields{
							"enricher": s.e.Name(),
							"stack":    string(debug.Stack()),
						}).Errorf("enricher panicked: %v", r)
					}
				}()
				results[i+1] = s.e.Enrich(gctx, classified)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := enricher.Merge(links, results...)
	a.log.WithFields(logrus.Fields{
		"messages": len(messages),
		"links":    len(out),
		"elapsed":  time.Since(start).String(),
	}).Info("analysed transcript")
	return out
}

func classifiedTypes(links []models.ClassifiedLink) map[string]models.Metadata {
	out := make(map[string]models.Metadata, len(links))
	for _, l := range links {
		if l.Type != models.TypeUnknown {
			out[l.URL] = models.Metadata{Type: l.Type.String()}
		}
	}
	return out
}

// AnalyseFile reads a transcript from disk and analyses it.
func (a *Analyser) AnalyseFile(ctx context.Context, path string, opts Options) ([]models.EnrichedLink, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return a.AnalyseChat(ctx, string(data), opts), nil
}
