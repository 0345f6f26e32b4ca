// Package enricher resolves link metadata from external services.
//
// Every enricher follows the same contract: it looks only at the links of its
// own provider family, returns what it could resolve keyed by URL, and never
// fails as a whole. Lookup errors are logged and counted, and the URL simply
// gets no metadata from that source.
package enricher

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"sharevault/internal/metrics"
	"sharevault/internal/models"
	"sharevault/internal/workpool"
)

type Enricher interface {
	Name() string
	Enrich(ctx context.Context, links []models.ClassifiedLink) map[string]models.Metadata
}

// Deps are shared by every enricher.
type Deps struct {
	Log     logrus.FieldLogger
	Pool    *workpool.Pool
	Metrics metrics.Metrics
}

func (d Deps) withDefaults(component string) Deps {
	if d.Log == nil {
		d.Log = logrus.New()
	}
	d.Log = d.Log.WithField("component", component)
	if d.Pool == nil {
		d.Pool = workpool.New(5)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewNoop()
	}
	return d
}

// results is a mutex-guarded accumulator local to one Enrich call.
type results struct {
	mu sync.Mutex
	m  map[string]models.Metadata
}

func newResults() *results {
	return &results{m: make(map[string]models.Metadata)}
}

func (r *results) set(url string, meta models.Metadata) {
	r.mu.Lock()
	r.m[url] = meta
	r.mu.Unlock()
}

func (r *results) merge(other map[string]models.Metadata) {
	r.mu.Lock()
	for k, v := range other {
		r.m[k] = v
	}
	r.mu.Unlock()
}

// logRunError reports why a pool run ended early. A panicking lookup loses
// only its own links; the rest of the batch is kept.
func logRunError(log logrus.FieldLogger, what string, err error) {
	if err == nil {
		return
	}
	var panicErr *workpool.PanicError
	if errors.As(err, &panicErr) {
		log.WithField("stack", string(panicErr.Stack)).WithError(err).Errorf("%s lookup panicked", what)
		return
	}
	log.WithError(err).Warnf("%s lookups cancelled", what)
}

func filter(links []models.ClassifiedLink, keep func(models.ProviderType) bool) []models.ClassifiedLink {
	var out []models.ClassifiedLink
	for _, l := range links {
		if keep(l.Type) {
			out = append(out, l)
		}
	}
	return out
}
