package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sawanori/mapmapmap/internal/domain"
	"github.com/sawanori/mapmapmap/internal/metrics"
)

const (
	defaultTimeout          = 10 * time.Second
	defaultMaxRetries       = 2
	defaultBreakerThreshold = 5
	defaultConcurrency      = 5
)

// Service turns raw venues into vibe fragments via the generative provider.
// It never returns an error: every failure mode collapses into the degraded
// fragment so the pipeline always has a full-shaped result to work with.
type Service struct {
	gen              Generator
	timeout          time.Duration
	maxRetries       int
	breakerThreshold int
	concurrency      int
	logger           *zap.Logger

	mu                    sync.Mutex
	consecutiveRateLimits int

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an enrichment service with the default limits.
func New(gen Generator, logger *zap.Logger) *Service {
	return &Service{
		gen:              gen,
		timeout:          defaultTimeout,
		maxRetries:       defaultMaxRetries,
		breakerThreshold: defaultBreakerThreshold,
		concurrency:      defaultConcurrency,
		logger:           logger,
		sleep:            sleepCtx,
	}
}

// WithTimeout overrides the per-attempt timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithMaxRetries overrides the retry count after the first attempt.
func (s *Service) WithMaxRetries(n int) *Service {
	if n >= 0 {
		s.maxRetries = n
	}
	return s
}

// WithBreakerThreshold overrides the consecutive rate-limit count that opens
// the circuit breaker.
func (s *Service) WithBreakerThreshold(n int) *Service {
	if n > 0 {
		s.breakerThreshold = n
	}
	return s
}

// WithConcurrency overrides the per-chunk parallelism of batch conversion.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// ConvertToVibe enriches a single venue. Returns the degraded fragment when
// the breaker is open, the reply shape is wrong, or retries are exhausted.
func (s *Service) ConvertToVibe(ctx context.Context, venue *domain.Venue) domain.Fragment {
	if s.breakerOpen() {
		s.logger.Warn("enrichment breaker open, returning degraded fragment",
			zap.String("venue_id", venue.ID))
		return domain.DegradedFragment()
	}

	prompt := buildVenuePrompt(venue)

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		fragment, done := s.attempt(ctx, venue, prompt)
		if done {
			return fragment
		}

		if attempt < s.maxRetries {
			backoff := time.Duration(1<<attempt) * time.Second
			if err := s.sleep(ctx, backoff); err != nil {
				return domain.DegradedFragment()
			}
		}
	}

	s.logger.Warn("enrichment failed after retries, returning degraded fragment",
		zap.String("venue_id", venue.ID))
	return domain.DegradedFragment()
}

// attempt runs one provider call. done=false means the caller should retry.
func (s *Service) attempt(ctx context.Context, venue *domain.Venue, prompt string) (domain.Fragment, bool) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.gen.Generate(callCtx, systemPrompt, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			if s.recordRateLimit() {
				s.logger.Warn("enrichment breaker tripped", zap.String("venue_id", venue.ID))
				return domain.DegradedFragment(), true
			}
		}
		s.logger.Debug("enrichment attempt failed",
			zap.String("venue_id", venue.ID), zap.Error(err))
		return domain.Fragment{}, false
	}

	// The provider answered; only rate-limit failures count toward the breaker.
	s.recordSuccess()

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		s.logger.Debug("enrichment reply is not JSON, retrying",
			zap.String("venue_id", venue.ID), zap.Error(err))
		return domain.Fragment{}, false
	}

	fragment, ok := fragmentFromReply(parsed)
	if !ok {
		// A syntactically valid reply with the wrong shape will not improve
		// on retry; degrade immediately.
		s.logger.Warn("enrichment reply has invalid shape, returning degraded fragment",
			zap.String("venue_id", venue.ID))
		return domain.DegradedFragment(), true
	}
	return fragment, true
}

// BatchConvertToVibe enriches venues in chunks of the configured concurrency.
// Chunks run sequentially; once the breaker opens, all remaining venues get
// the degraded fragment without further provider calls.
func (s *Service) BatchConvertToVibe(ctx context.Context, venues []domain.Venue) map[string]domain.Fragment {
	results := make(map[string]domain.Fragment, len(venues))
	var resultsMu sync.Mutex

	for i := 0; i < len(venues); i += s.concurrency {
		end := i + s.concurrency
		if end > len(venues) {
			end = len(venues)
		}

		var wg sync.WaitGroup
		for j := i; j < end; j++ {
			wg.Add(1)
			go func(v *domain.Venue) {
				defer wg.Done()
				fragment := s.ConvertToVibe(ctx, v)
				resultsMu.Lock()
				results[v.ID] = fragment
				resultsMu.Unlock()
			}(&venues[j])
		}
		wg.Wait()

		if s.breakerOpen() {
			for j := end; j < len(venues); j++ {
				results[venues[j].ID] = domain.DegradedFragment()
			}
			break
		}
	}
	return results
}

// ResetCircuitBreaker zeroes the consecutive rate-limit counter. Called at
// the start of every pipeline run.
func (s *Service) ResetCircuitBreaker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveRateLimits = 0
	metrics.EnrichmentBreakerState.Set(0)
}

func (s *Service) breakerOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveRateLimits >= s.breakerThreshold
}

// recordRateLimit increments the counter and reports whether the breaker is
// now open.
func (s *Service) recordRateLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveRateLimits++
	open := s.consecutiveRateLimits >= s.breakerThreshold
	if open {
		metrics.EnrichmentBreakerState.Set(1)
	}
	return open
}

func (s *Service) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveRateLimits = 0
	metrics.EnrichmentBreakerState.Set(0)
}

// fragmentFromReply validates the reply shape field by field and converts it.
// Shape rules: catchphrase string, vibe_tags non-empty string array,
// is_rejected bool, hidden_gems_info string, mood_score with numeric
// chill/party/focus.
func fragmentFromReply(obj map[string]any) (domain.Fragment, bool) {
	catchphrase, ok := obj["catchphrase"].(string)
	if !ok {
		return domain.Fragment{}, false
	}

	rawTags, ok := obj["vibe_tags"].([]any)
	if !ok || len(rawTags) == 0 {
		return domain.Fragment{}, false
	}
	tags := make([]string, 0, len(rawTags))
	for _, t := range rawTags {
		tag, ok := t.(string)
		if !ok {
			return domain.Fragment{}, false
		}
		tags = append(tags, tag)
	}

	isRejected, ok := obj["is_rejected"].(bool)
	if !ok {
		return domain.Fragment{}, false
	}

	hiddenGems, ok := obj["hidden_gems_info"].(string)
	if !ok {
		return domain.Fragment{}, false
	}

	rawScore, ok := obj["mood_score"].(map[string]any)
	if !ok {
		return domain.Fragment{}, false
	}
	chill, ok := rawScore["chill"].(float64)
	if !ok {
		return domain.Fragment{}, false
	}
	party, ok := rawScore["party"].(float64)
	if !ok {
		return domain.Fragment{}, false
	}
	focus, ok := rawScore["focus"].(float64)
	if !ok {
		return domain.Fragment{}, false
	}

	return domain.Fragment{
		Catchphrase:    catchphrase,
		VibeTags:       tags,
		MoodScore:      domain.MoodScore{Chill: chill, Party: party, Focus: focus},
		HiddenGemsInfo: hiddenGems,
		IsRejected:     isRejected,
	}, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
