package enricher

import (
	"sharevault/internal/models"
	"sharevault/internal/ordered"
)

// Merge builds the final records in first-seen order. Sources are applied in
// the order given, later non-empty fields overwriting earlier ones.
func Merge(links *ordered.Map[string, models.RawLink], sources ...map[string]models.Metadata) []models.EnrichedLink {
	out := make([]models.EnrichedLink, 0, links.Len())
	links.Each(func(key string, raw models.RawLink) bool {
		e := models.EnrichedLink{URL: key, User: raw.User, Timestamp: raw.Timestamp}
		for _, src := range sources {
			if meta, ok := src[key]; ok {
				e.Apply(meta)
			}
		}
		out = append(out, e)
		return true
	})
	return out
}
