package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sawanori/mapmapmap/internal/domain"
	"github.com/sawanori/mapmapmap/internal/domain/geo"
	healthuc "github.com/sawanori/mapmapmap/internal/usecase/health"
	recommenduc "github.com/sawanori/mapmapmap/internal/usecase/recommend"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnauthorized     = "unauthorized"
	codeRateLimited      = "rate_limited"
	codeProviderError    = "embedding_provider_error"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// moodSearcher runs the mood recommendation pipeline.
type moodSearcher interface {
	SearchByMood(ctx context.Context, mood domain.Mood, lat, lng float64, filters domain.Filters) recommenduc.Response
}

// spotSearcher runs the free-text vector search.
type spotSearcher interface {
	Search(ctx context.Context, query string, lat, lng float64) ([]domain.SpotHit, error)
}

// healthChecker aggregates component health checks.
type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API: mood search, free-text spot search, health, metrics.
type Server struct {
	recommend moodSearcher
	spots     spotSearcher
	health    healthChecker
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(recommend moodSearcher, spots spotSearcher, health healthChecker, logger *zap.Logger) *Server {
	return &Server{
		recommend: recommend,
		spots:     spots,
		health:    health,
		logger:    logger,
	}
}

// Routes registers all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/mood/search", s.MoodSearch)
	r.Post("/v1/spots/search", s.SpotSearch)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type moodSearchFilters struct {
	OpenNow       bool   `json:"open_now"`
	MaxPriceLevel *int   `json:"max_price_level"`
	Keyword       string `json:"keyword"`
}

type moodSearchRequest struct {
	Mood    string             `json:"mood"`
	Lat     *float64           `json:"lat"`
	Lng     *float64           `json:"lng"`
	Filters *moodSearchFilters `json:"filters"`
}

// MoodSearch handles POST /v1/mood/search. Pipeline failures are carried in
// the response envelope with HTTP 200; only malformed requests get an error
// status.
func (s *Server) MoodSearch(w http.ResponseWriter, r *http.Request) {
	var req moodSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	mood, err := domain.ParseMood(req.Mood)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"mood must be one of: chill, party, focus")
		return
	}

	if req.Lat == nil || req.Lng == nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "lat and lng are required")
		return
	}
	if !geo.ValidateCoordinates(*req.Lat, *req.Lng) {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "coordinates out of range")
		return
	}

	var filters domain.Filters
	if req.Filters != nil {
		filters = domain.Filters{
			OpenNow:       req.Filters.OpenNow,
			MaxPriceLevel: req.Filters.MaxPriceLevel,
			Keyword:       req.Filters.Keyword,
		}
	}

	resp := s.recommend.SearchByMood(r.Context(), mood, *req.Lat, *req.Lng, filters)
	writeJSON(w, http.StatusOK, resp)
}

type spotSearchRequest struct {
	Query string   `json:"query"`
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
}

type spotHitItem struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Lat            float64  `json:"lat"`
	Lng            float64  `json:"lng"`
	Category       string   `json:"category"`
	Description    string   `json:"description"`
	Rating         *float64 `json:"rating"`
	Address        string   `json:"address,omitempty"`
	VectorDistance float64  `json:"vector_distance"`
	DistanceKm     float64  `json:"distance_km"`
}

type spotSearchResponse struct {
	Success bool          `json:"success"`
	Data    []spotHitItem `json:"data"`
}

// SpotSearch handles POST /v1/spots/search.
func (s *Server) SpotSearch(w http.ResponseWriter, r *http.Request) {
	var req spotSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Lat == nil || req.Lng == nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "lat and lng are required")
		return
	}

	hits, err := s.spots.Search(r.Context(), req.Query, *req.Lat, *req.Lng)
	if err != nil {
		s.handleSearchError(w, err)
		return
	}

	items := make([]spotHitItem, len(hits))
	for i, h := range hits {
		items[i] = spotHitItem{
			ID:             h.ID,
			Name:           h.Name,
			Lat:            h.Lat,
			Lng:            h.Lng,
			Category:       h.Category,
			Description:    h.Description,
			Rating:         h.Rating,
			Address:        h.Address,
			VectorDistance: h.VectorDistance,
			DistanceKm:     h.DistanceKm,
		}
	}

	writeJSON(w, http.StatusOK, spotSearchResponse{Success: true, Data: items})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// handleSearchError maps free-text search errors onto HTTP statuses without
// leaking provider internals.
func (s *Server) handleSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, codeValidationFailed, domain.ErrInvalidQuery.Error())
	case errors.Is(err, domain.ErrInvalidCoordinates):
		writeError(w, http.StatusBadRequest, codeValidationFailed, domain.ErrInvalidCoordinates.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, codeRateLimited, domain.ErrRateLimited.Error())
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusBadGateway, codeProviderError, domain.ErrEmbeddingProviderError.Error())
	default:
		s.logger.Error("spot search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
