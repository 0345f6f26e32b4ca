package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_IncrementLookup(t *testing.T) {
	m := NewMetrics().(*metrics)

	m.IncrementLookup("spotify", OutcomeHit)
	m.IncrementLookup("spotify", OutcomeHit)
	m.IncrementLookup("web", OutcomeFallback)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookupsTotal.WithLabelValues("spotify", OutcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookupsTotal.WithLabelValues("web", OutcomeFallback)))
}

func TestMetrics_ObserveLinksExtracted(t *testing.T) {
	m := NewMetrics().(*metrics)

	m.ObserveLinksExtracted(3)
	m.ObserveLinksExtracted(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analysesTotal))

	families, err := m.GetRegistry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["sharevault_pipeline_links_per_transcript"])
}
