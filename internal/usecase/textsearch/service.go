package textsearch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sawanori/mapmapmap/internal/domain"
	"github.com/sawanori/mapmapmap/internal/domain/geo"
)

const (
	maxQueryLen = 200

	defaultTopK              = 50
	defaultMaxVectorDistance = 0.85
	defaultRadiusKm          = 10
	defaultEmbedTimeout      = 5 * time.Second
)

// Config holds the free-text search tuning knobs.
type Config struct {
	TopK              int
	MaxVectorDistance float64
	RadiusKm          float64
	EmbedTimeout      time.Duration
}

// Service answers free-text spot queries with a vector similarity search.
// No enrichment, caching, chain filtering, or scoring on this path.
type Service struct {
	embed  Embedder
	spots  SpotSearcher
	cfg    Config
	logger *zap.Logger
}

// New creates a free-text search service.
func New(embed Embedder, spots SpotSearcher, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.MaxVectorDistance <= 0 {
		cfg.MaxVectorDistance = defaultMaxVectorDistance
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = defaultRadiusKm
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = defaultEmbedTimeout
	}
	return &Service{embed: embed, spots: spots, cfg: cfg, logger: logger}
}

// Search embeds the query, fetches nearest spots, and keeps hits that are
// both semantically close and physically within range. Results come back
// sorted by vector distance, nearest meaning first.
func (s *Service) Search(ctx context.Context, query string, lat, lng float64) ([]domain.SpotHit, error) {
	query = strings.TrimSpace(query)
	if query == "" || len([]rune(query)) > maxQueryLen {
		return nil, fmt.Errorf("query must be 1..%d characters: %w", maxQueryLen, domain.ErrInvalidQuery)
	}
	if !geo.ValidateCoordinates(lat, lng) {
		return nil, fmt.Errorf("lat/lng out of range: %w", domain.ErrInvalidCoordinates)
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
	defer cancel()

	vector, err := s.embed.Embed(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.spots.SearchKNN(ctx, vector, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search spots: %w", err)
	}

	kept := make([]domain.SpotHit, 0, len(hits))
	for _, h := range hits {
		if h.VectorDistance > s.cfg.MaxVectorDistance {
			continue
		}
		h.DistanceKm = geo.HaversineKm(lat, lng, h.Lat, h.Lng)
		if h.DistanceKm > s.cfg.RadiusKm {
			continue
		}
		kept = append(kept, h)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].VectorDistance < kept[j].VectorDistance
	})
	return kept, nil
}
