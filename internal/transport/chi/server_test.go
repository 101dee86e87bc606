package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sawanori/mapmapmap/internal/domain"
	healthuc "github.com/sawanori/mapmapmap/internal/usecase/health"
	recommenduc "github.com/sawanori/mapmapmap/internal/usecase/recommend"
)

// --- Mocks ---

type mockRecommender struct {
	fn func(mood domain.Mood, lat, lng float64, filters domain.Filters) recommenduc.Response
}

func (m *mockRecommender) SearchByMood(
	_ context.Context, mood domain.Mood, lat, lng float64, filters domain.Filters,
) recommenduc.Response {
	if m.fn != nil {
		return m.fn(mood, lat, lng, filters)
	}
	return recommenduc.Response{Success: true, Data: []domain.Vibe{}}
}

type mockSpotSearcher struct {
	fn func(query string, lat, lng float64) ([]domain.SpotHit, error)
}

func (m *mockSpotSearcher) Search(_ context.Context, query string, lat, lng float64) ([]domain.SpotHit, error) {
	if m.fn != nil {
		return m.fn(query, lat, lng)
	}
	return nil, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func healthyReport() healthuc.Report {
	return healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}
}

func newTestRouter(rec moodSearcher, spots spotSearcher, health healthChecker) http.Handler {
	if rec == nil {
		rec = &mockRecommender{}
	}
	if spots == nil {
		spots = &mockSpotSearcher{}
	}
	if health == nil {
		health = &mockHealth{report: healthyReport()}
	}
	s := NewServer(rec, spots, health, zap.NewNop())
	r := chirouter.NewRouter()
	s.Routes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- Mood search ---

func TestMoodSearch_Success(t *testing.T) {
	rec := &mockRecommender{fn: func(mood domain.Mood, lat, lng float64, filters domain.Filters) recommenduc.Response {
		if mood != domain.MoodChill {
			t.Errorf("mood = %q, want chill", mood)
		}
		if lat != 35.68 || lng != 139.76 {
			t.Errorf("coords = (%g,%g)", lat, lng)
		}
		return recommenduc.Response{Success: true, Data: []domain.Vibe{{ID: "v1", Name: "Quiet Cafe"}}}
	}}
	h := newTestRouter(rec, nil, nil)

	rr := doJSON(t, h, "POST", "/v1/mood/search", `{"mood":"chill","lat":35.68,"lng":139.76}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp recommenduc.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || len(resp.Data) != 1 || resp.Data[0].ID != "v1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestMoodSearch_PassesFilters(t *testing.T) {
	var got domain.Filters
	rec := &mockRecommender{fn: func(_ domain.Mood, _, _ float64, filters domain.Filters) recommenduc.Response {
		got = filters
		return recommenduc.Response{Success: true, Data: []domain.Vibe{}}
	}}
	h := newTestRouter(rec, nil, nil)

	body := `{"mood":"party","lat":35.68,"lng":139.76,` +
		`"filters":{"open_now":true,"max_price_level":2,"keyword":"bar"}}`
	rr := doJSON(t, h, "POST", "/v1/mood/search", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	if !got.OpenNow || got.Keyword != "bar" {
		t.Errorf("filters = %+v", got)
	}
	if got.MaxPriceLevel == nil || *got.MaxPriceLevel != 2 {
		t.Errorf("max price level = %v, want 2", got.MaxPriceLevel)
	}
}

func TestMoodSearch_EnvelopeFailureStays200(t *testing.T) {
	rec := &mockRecommender{fn: func(domain.Mood, float64, float64, domain.Filters) recommenduc.Response {
		return recommenduc.Response{Success: false, Data: []domain.Vibe{}, Message: "APIキーが設定されていません"}
	}}
	h := newTestRouter(rec, nil, nil)

	rr := doJSON(t, h, "POST", "/v1/mood/search", `{"mood":"focus","lat":35.68,"lng":139.76}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("pipeline failures ride the envelope, got status %d", rr.Code)
	}

	var resp recommenduc.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Message == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestMoodSearch_BadBody_400(t *testing.T) {
	h := newTestRouter(nil, nil, nil)

	rr := doJSON(t, h, "POST", "/v1/mood/search", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestMoodSearch_UnknownMood_400(t *testing.T) {
	h := newTestRouter(nil, nil, nil)

	rr := doJSON(t, h, "POST", "/v1/mood/search", `{"mood":"sleepy","lat":35.68,"lng":139.76}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeValidationFailed {
		t.Errorf("code = %s, want %s", errResp.Code, codeValidationFailed)
	}
}

func TestMoodSearch_MissingCoordinates_400(t *testing.T) {
	h := newTestRouter(nil, nil, nil)

	for _, body := range []string{
		`{"mood":"chill"}`,
		`{"mood":"chill","lat":35.68}`,
		`{"mood":"chill","lng":139.76}`,
	} {
		rr := doJSON(t, h, "POST", "/v1/mood/search", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestMoodSearch_CoordinatesOutOfRange_400(t *testing.T) {
	h := newTestRouter(nil, nil, nil)

	rr := doJSON(t, h, "POST", "/v1/mood/search", `{"mood":"chill","lat":91,"lng":139.76}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

// --- Spot search ---

func TestSpotSearch_Success(t *testing.T) {
	rating := 4.3
	spots := &mockSpotSearcher{fn: func(query string, lat, lng float64) ([]domain.SpotHit, error) {
		if query != "静かなカフェ" {
			t.Errorf("query = %q", query)
		}
		return []domain.SpotHit{{
			Spot: domain.Spot{
				ID: "s1", Name: "Hidden Roastery", Lat: 35.681, Lng: 139.761,
				Category: "cafe", Description: "Quiet specialty coffee", Rating: &rating,
			},
			VectorDistance: 0.21,
			DistanceKm:     0.8,
		}}, nil
	}}
	h := newTestRouter(nil, spots, nil)

	rr := doJSON(t, h, "POST", "/v1/spots/search", `{"query":"静かなカフェ","lat":35.68,"lng":139.76}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp spotSearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || len(resp.Data) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	hit := resp.Data[0]
	if hit.ID != "s1" || hit.VectorDistance != 0.21 || hit.DistanceKm != 0.8 {
		t.Errorf("unexpected hit: %+v", hit)
	}
	if hit.Rating == nil || *hit.Rating != 4.3 {
		t.Errorf("rating = %v, want 4.3", hit.Rating)
	}
}

func TestSpotSearch_EmptyResultIsEmptyArray(t *testing.T) {
	h := newTestRouter(nil, &mockSpotSearcher{}, nil)

	rr := doJSON(t, h, "POST", "/v1/spots/search", `{"query":"カフェ","lat":35.68,"lng":139.76}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"data":[]`) {
		t.Errorf("empty result must serialize as [], got %s", rr.Body.String())
	}
}

func TestSpotSearch_MissingCoordinates_400(t *testing.T) {
	h := newTestRouter(nil, nil, nil)

	rr := doJSON(t, h, "POST", "/v1/spots/search", `{"query":"カフェ"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSpotSearch_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid query", domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed},
		{"invalid coordinates", domain.ErrInvalidCoordinates, http.StatusBadRequest, codeValidationFailed},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited},
		{"provider error", domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError},
		{"internal", errors.New("index gone"), http.StatusInternalServerError, codeInternalError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spots := &mockSpotSearcher{fn: func(string, float64, float64) ([]domain.SpotHit, error) {
				return nil, tc.err
			}}
			h := newTestRouter(nil, spots, nil)

			rr := doJSON(t, h, "POST", "/v1/spots/search", `{"query":"カフェ","lat":35.68,"lng":139.76}`)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}

			var errResp errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != tc.code {
				t.Errorf("code = %s, want %s", errResp.Code, tc.code)
			}
		})
	}
}

func TestSpotSearch_InternalErrorHidesDetails(t *testing.T) {
	spots := &mockSpotSearcher{fn: func(string, float64, float64) ([]domain.SpotHit, error) {
		return nil, errors.New("FT.SEARCH failed on shard 3")
	}}
	h := newTestRouter(nil, spots, nil)

	rr := doJSON(t, h, "POST", "/v1/spots/search", `{"query":"カフェ","lat":35.68,"lng":139.76}`)
	if strings.Contains(rr.Body.String(), "shard") {
		t.Errorf("internal error details leaked: %s", rr.Body.String())
	}
}

// --- Health ---

func TestHealthz_Healthy_200(t *testing.T) {
	h := newTestRouter(nil, nil, &mockHealth{report: healthyReport()})

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Checks["database"] != "ok" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHealthz_Degraded_503(t *testing.T) {
	h := newTestRouter(nil, nil, &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			"database":   healthuc.CheckOK,
			"enrichment": healthuc.CheckError,
		},
	}})

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(nil, nil, nil)

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}
