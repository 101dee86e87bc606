package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sawanori/mapmapmap/internal/domain"
	"github.com/sawanori/mapmapmap/internal/metrics"
)

const fieldMask = "places.id,places.displayName,places.location,places.types," +
	"places.rating,places.editorialSummary,places.formattedAddress," +
	"places.currentOpeningHours,places.priceLevel,places.photos,places.reviews"

// Client is a text-search client for the places provider REST API.
type Client struct {
	apiKey     string
	baseURL    string
	maxRetries int
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds the places provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	Logger     *zap.Logger
}

// NewClient creates a places provider client.
func NewClient(cfg *Config) *Client {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		maxRetries: retries,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     cfg.Logger,
	}
}

type searchRequest struct {
	TextQuery      string        `json:"textQuery"`
	LanguageCode   string        `json:"languageCode"`
	MaxResultCount int           `json:"maxResultCount"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"` // meters
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchResponse struct {
	Places []placeDTO `json:"places"`
}

type placeDTO struct {
	ID          string    `json:"id"`
	DisplayName localized `json:"displayName"`
	Location    struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Types            []string  `json:"types"`
	Rating           *float64  `json:"rating"`
	EditorialSummary localized `json:"editorialSummary"`
	FormattedAddress string    `json:"formattedAddress"`
	PriceLevel       string    `json:"priceLevel"`
	CurrentHours     *struct {
		OpenNow             *bool    `json:"openNow"`
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"currentOpeningHours"`
	Photos []struct {
		Name     string `json:"name"`
		WidthPx  int    `json:"widthPx"`
		HeightPx int    `json:"heightPx"`
	} `json:"photos"`
	Reviews []struct {
		Rating float64   `json:"rating"`
		Text   localized `json:"text"`
	} `json:"reviews"`
}

type localized struct {
	Text string `json:"text"`
}

// SearchText runs a text search biased to a circle around the given point.
// Rate-limited responses are retried with exponential backoff before giving up.
func (c *Client) SearchText(
	ctx context.Context, query string, lat, lng, radiusKm float64, maxResults int,
) ([]domain.Venue, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("places api key is empty: %w", domain.ErrNotConfigured)
	}

	body, err := json.Marshal(searchRequest{
		TextQuery:      query,
		LanguageCode:   "ja",
		MaxResultCount: maxResults,
		LocationBias: &locationBias{Circle: circle{
			Center: latLng{Latitude: lat, Longitude: lng},
			Radius: radiusKm * 1000,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		venues, retryable, err := c.doSearch(ctx, body)
		if err == nil {
			return venues, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Warn("place search rate limited, retrying",
			zap.Int("attempt", attempt+1), zap.Int("max_retries", c.maxRetries))
	}
	return nil, lastErr
}

func (c *Client) doSearch(ctx context.Context, body []byte) (venues []domain.Venue, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PlacesRequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, false, fmt.Errorf("place search request: %w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	metrics.PlacesRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	metrics.PlacesRequestDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).
		Observe(time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("place search denied: %w", domain.ErrPermissionDenied)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, false, fmt.Errorf("invalid place search request: %w", domain.ErrBadRequest)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("place search rate limited: %w", domain.ErrRateLimited)
	default:
		return nil, false, fmt.Errorf("place search failed with status %d: %w",
			resp.StatusCode, domain.ErrProviderUnavailable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false, fmt.Errorf("parse search response: %w", err)
	}

	venues = make([]domain.Venue, 0, len(parsed.Places))
	for i := range parsed.Places {
		venues = append(venues, toVenue(&parsed.Places[i]))
	}
	return venues, false, nil
}

func toVenue(p *placeDTO) domain.Venue {
	v := domain.Venue{
		ID:               p.ID,
		Name:             p.DisplayName.Text,
		Lat:              p.Location.Latitude,
		Lng:              p.Location.Longitude,
		Types:            p.Types,
		EditorialSummary: p.EditorialSummary.Text,
		Rating:           p.Rating,
		Address:          p.FormattedAddress,
		PriceLevel:       parsePriceLevel(p.PriceLevel),
	}
	if p.CurrentHours != nil {
		v.OpenNow = p.CurrentHours.OpenNow
		v.WeekdayHours = p.CurrentHours.WeekdayDescriptions
	}
	for _, ph := range p.Photos {
		v.Photos = append(v.Photos, domain.Photo{Name: ph.Name, WidthPx: ph.WidthPx, HeightPx: ph.HeightPx})
	}
	for _, r := range p.Reviews {
		v.Reviews = append(v.Reviews, domain.Review{Rating: r.Rating, Text: r.Text.Text})
	}
	return v
}

// parsePriceLevel maps the provider's enum strings to a 0..4 scale.
func parsePriceLevel(s string) *int {
	levels := map[string]int{
		"PRICE_LEVEL_FREE":           0,
		"PRICE_LEVEL_INEXPENSIVE":    1,
		"PRICE_LEVEL_MODERATE":       2,
		"PRICE_LEVEL_EXPENSIVE":      3,
		"PRICE_LEVEL_VERY_EXPENSIVE": 4,
	}
	if lvl, ok := levels[s]; ok {
		return &lvl
	}
	return nil
}
