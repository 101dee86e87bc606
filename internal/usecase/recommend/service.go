package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sawanori/mapmapmap/internal/domain"
	"github.com/sawanori/mapmapmap/internal/domain/chain"
	"github.com/sawanori/mapmapmap/internal/domain/geo"
	"github.com/sawanori/mapmapmap/internal/domain/score"
)

const (
	msgNotConfigured = "APIキーが設定されていません"
	msgNoSpots       = "近くにスポットが見つかりませんでした"
	msgNoMatch       = "条件に合うスポットが見つかりませんでした"
	msgSearchFailed  = "スポット検索が利用できません。しばらくしてからお試しください"
)

// Response is the mood search result envelope. Provider failures surface as
// Success=false with a sanitized message; raw provider errors never leave
// the service.
type Response struct {
	Success bool          `json:"success"`
	Data    []domain.Vibe `json:"data"`
	Message string        `json:"message,omitempty"`
}

// Config holds the pipeline tuning knobs. MaxResults caps what each places
// query fetches; MaxCandidates caps what proceeds to enrichment.
type Config struct {
	PlacesAPIKey     string
	EnrichmentAPIKey string
	RadiusKm         float64
	ExpansionFactor  float64
	MaxResults       int
	MaxCandidates    int
	PhotoBaseURL     string
}

// Service is the mood recommendation pipeline: search, chain-filter,
// enrich, cache, filter, score.
type Service struct {
	places  PlaceSearcher
	enrich  Enricher
	cache   VibeCache
	cfg     Config
	logger  *zap.Logger
	writeWG sync.WaitGroup
}

// New creates a recommendation service.
func New(places PlaceSearcher, enrich Enricher, cache VibeCache, cfg Config, logger *zap.Logger) *Service {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = 10
	}
	if cfg.ExpansionFactor <= 0 {
		cfg.ExpansionFactor = 1.5
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 20
	}
	return &Service{places: places, enrich: enrich, cache: cache, cfg: cfg, logger: logger}
}

// SearchByMood runs the full recommendation pipeline for one mood at one
// location. It never returns an error: failures collapse into the response
// envelope.
func (s *Service) SearchByMood(
	ctx context.Context, mood domain.Mood, lat, lng float64, filters domain.Filters,
) Response {
	if s.cfg.PlacesAPIKey == "" || s.cfg.EnrichmentAPIKey == "" {
		return Response{Success: false, Data: []domain.Vibe{}, Message: msgNotConfigured}
	}

	s.enrich.ResetCircuitBreaker()

	query := domain.MoodQueries[mood]

	raw, err := s.places.SearchText(ctx, query, lat, lng, s.cfg.RadiusKm, s.cfg.MaxResults)
	if err != nil {
		s.logger.Error("place search failed", zap.String("mood", string(mood)), zap.Error(err))
		return Response{Success: false, Data: []domain.Vibe{}, Message: msgSearchFailed}
	}
	if len(raw) == 0 {
		// Nothing in range at all; expanding the radius only helps when the
		// chain filter emptied a non-empty result.
		return Response{Success: true, Data: []domain.Vibe{}, Message: msgNoSpots}
	}

	candidates := chain.FilterChainStores(raw)
	suppressReject := false

	if len(candidates) == 0 {
		expanded, err := s.places.SearchText(ctx, query, lat, lng,
			s.cfg.RadiusKm*s.cfg.ExpansionFactor, s.cfg.MaxResults)
		if err != nil {
			s.logger.Error("expanded place search failed", zap.String("mood", string(mood)), zap.Error(err))
			return Response{Success: false, Data: []domain.Vibe{}, Message: msgSearchFailed}
		}

		candidates = chain.FilterChainStores(expanded)
		if len(candidates) == 0 {
			// Chains everywhere. Showing a chain beats showing nothing, so
			// fall back to the unfiltered base results and let them through
			// the model's reject flag too.
			candidates = raw
			suppressReject = true
		}
	}

	if len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}

	ids := make([]string, len(candidates))
	for i := range candidates {
		ids[i] = candidates[i].ID
	}
	cached := s.cache.GetCached(ctx, mood, ids)

	uncached := make([]domain.Venue, 0, len(candidates))
	for i := range candidates {
		if _, ok := cached[candidates[i].ID]; !ok {
			uncached = append(uncached, candidates[i])
		}
	}

	var fragments map[string]domain.Fragment
	if len(uncached) > 0 {
		fragments = s.enrich.BatchConvertToVibe(ctx, uncached)
	}

	vibes := make([]domain.Vibe, 0, len(candidates))
	toCache := make([]domain.Vibe, 0, len(uncached))
	for i := range candidates {
		v := &candidates[i]
		if hit, ok := cached[v.ID]; ok {
			hit.DistanceKm = geo.HaversineKm(lat, lng, hit.Lat, hit.Lng)
			vibes = append(vibes, hit)
			continue
		}
		fragment, ok := fragments[v.ID]
		if !ok {
			continue
		}
		vibe := s.buildVibe(v, fragment, lat, lng)
		vibes = append(vibes, vibe)
		toCache = append(toCache, vibe)
	}

	if len(toCache) > 0 {
		s.writeWG.Add(1)
		go func() {
			defer s.writeWG.Done()
			s.cache.SetCached(context.WithoutCancel(ctx), mood, toCache)
		}()
	}

	if !suppressReject {
		kept := vibes[:0]
		for _, v := range vibes {
			if !v.IsRejected {
				kept = append(kept, v)
			}
		}
		vibes = kept
	}

	vibes = applyUserFilters(vibes, filters)
	if len(vibes) == 0 {
		return Response{Success: true, Data: []domain.Vibe{}, Message: msgNoMatch}
	}

	sort.SliceStable(vibes, func(i, j int) bool {
		return score.Calculate(vibes[i], mood, s.cfg.RadiusKm) >
			score.Calculate(vibes[j], mood, s.cfg.RadiusKm)
	})

	return Response{Success: true, Data: vibes}
}

// WaitForCacheWrites blocks until in-flight cache writes finish. Used on
// shutdown and in tests.
func (s *Service) WaitForCacheWrites() {
	s.writeWG.Wait()
}

// buildVibe combines a raw venue with its generated fragment.
func (s *Service) buildVibe(v *domain.Venue, f domain.Fragment, lat, lng float64) domain.Vibe {
	var heroURL string
	if hero := domain.SelectHeroPhoto(v.Photos); hero != nil {
		heroURL = s.photoURL(hero.Name)
	}

	var address *string
	if v.Address != "" {
		address = &v.Address
	}

	return domain.Vibe{
		ID:             v.ID,
		Name:           v.Name,
		Catchphrase:    f.Catchphrase,
		VibeTags:       f.VibeTags,
		HeroImageURL:   heroURL,
		MoodScore:      f.MoodScore,
		HiddenGemsInfo: f.HiddenGemsInfo,
		IsRejected:     f.IsRejected,
		Lat:            v.Lat,
		Lng:            v.Lng,
		Category:       domain.MapCategory(v.Types),
		Rating:         v.Rating,
		Address:        address,
		OpenNow:        v.OpenNow,
		PriceLevel:     v.PriceLevel,
		OpeningHours:   v.WeekdayHours,
		DistanceKm:     geo.HaversineKm(lat, lng, v.Lat, v.Lng),
	}
}

func (s *Service) photoURL(name string) string {
	if name == "" {
		return ""
	}
	base := s.cfg.PhotoBaseURL
	if base == "" {
		base = "https://places.googleapis.com/v1"
	}
	return fmt.Sprintf("%s/%s/media?maxWidthPx=800&key=%s", base, name, s.cfg.PlacesAPIKey)
}

// applyUserFilters applies the request filters in order: openNow, then
// maxPriceLevel, then keyword. Unknown values pass.
func applyUserFilters(vibes []domain.Vibe, f domain.Filters) []domain.Vibe {
	out := vibes[:0]
	keyword := strings.ToLower(f.Keyword)
	for _, v := range vibes {
		if f.OpenNow && v.OpenNow != nil && !*v.OpenNow {
			continue
		}
		if f.MaxPriceLevel != nil && v.PriceLevel != nil && *v.PriceLevel > *f.MaxPriceLevel {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(v.Name), keyword) {
			continue
		}
		out = append(out, v)
	}
	return out
}
