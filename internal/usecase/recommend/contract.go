package recommend

import (
	"context"

	"github.com/sawanori/mapmapmap/internal/domain"
)

// PlaceSearcher is the places-search provider contract.
type PlaceSearcher interface {
	SearchText(ctx context.Context, query string, lat, lng, radiusKm float64, maxResults int) ([]domain.Venue, error)
}

// Enricher converts raw venues into vibe fragments.
type Enricher interface {
	BatchConvertToVibe(ctx context.Context, venues []domain.Venue) map[string]domain.Fragment
	ResetCircuitBreaker()
}

// VibeCache stores enriched vibes per (mood, venue) pair.
type VibeCache interface {
	GetCached(ctx context.Context, mood domain.Mood, venueIDs []string) map[string]domain.Vibe
	SetCached(ctx context.Context, mood domain.Mood, vibes []domain.Vibe)
}
