package vibecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sawanori/mapmapmap/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "vibe:"

// store is the consumer interface for the vibe cache (ISP).
type store interface {
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo caches enriched vibes per (mood, venue) pair. Best effort: read
// failures yield an empty map and write failures are swallowed, so the
// pipeline never blocks on the cache.
type Repo struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a vibe cache repository.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Repo {
	return &Repo{
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
		now:        time.Now,
	}
}

// cachedVibe is the stored row. ExpiresAt duplicates the key TTL so stale
// rows are skipped even if the store's expiry lags.
type cachedVibe struct {
	Vibe      domain.Vibe `json:"vibe"`
	CachedAt  int64       `json:"cached_at"`
	ExpiresAt int64       `json:"expires_at"`
}

// GetCached returns the cached vibes for the given venue IDs and mood.
// Missing, unparseable, or expired rows are skipped. Any store error
// yields an empty map.
func (r *Repo) GetCached(ctx context.Context, mood domain.Mood, venueIDs []string) map[string]domain.Vibe {
	if len(venueIDs) == 0 {
		return map[string]domain.Vibe{}
	}

	keys := make([]string, len(venueIDs))
	for i, id := range venueIDs {
		keys[i] = r.cacheKey(mood, id)
	}

	rows, err := r.store.MGet(ctx, keys)
	if err != nil {
		r.logger.Warn("vibe cache read failed", zap.Error(err))
		return map[string]domain.Vibe{}
	}

	out := make(map[string]domain.Vibe, len(venueIDs))
	nowUnix := r.now().Unix()
	for i, raw := range rows {
		if i >= len(venueIDs) {
			break
		}
		if raw == nil {
			r.incCache("miss")
			continue
		}

		var row cachedVibe
		if err := json.Unmarshal(raw, &row); err != nil {
			r.logger.Warn("unparseable vibe cache row", zap.String("key", keys[i]), zap.Error(err))
			r.incCache("miss")
			continue
		}
		if row.ExpiresAt > 0 && row.ExpiresAt <= nowUnix {
			r.incCache("miss")
			continue
		}

		out[venueIDs[i]] = backfill(row.Vibe)
		r.incCache("hit")
	}
	return out
}

// SetCached writes the given vibes with the configured TTL. Failures are
// logged and swallowed.
func (r *Repo) SetCached(ctx context.Context, mood domain.Mood, vibes []domain.Vibe) {
	now := r.now()
	for i := range vibes {
		row := cachedVibe{
			Vibe:      vibes[i],
			CachedAt:  now.Unix(),
			ExpiresAt: now.Add(r.ttl).Unix(),
		}
		data, err := json.Marshal(row)
		if err != nil {
			r.logger.Warn("marshal vibe cache row", zap.String("id", vibes[i].ID), zap.Error(err))
			continue
		}
		key := r.cacheKey(mood, vibes[i].ID)
		if err := r.store.SetWithTTL(ctx, key, data, r.ttl); err != nil {
			r.logger.Warn("vibe cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (r *Repo) cacheKey(mood domain.Mood, id string) string {
	return fmt.Sprintf("%s%s:%s", cacheKeyPrefix, mood, id)
}

func (r *Repo) incCache(result string) {
	if r.cacheTotal != nil {
		r.cacheTotal.WithLabelValues(result).Inc()
	}
}

// backfill normalizes rows written by older revisions: optional fields that
// predate the row default to nil, and a zero mood-score triple becomes the
// neutral default.
func backfill(v domain.Vibe) domain.Vibe {
	if v.MoodScore.IsZero() {
		v.MoodScore = domain.NeutralMoodScore()
	}
	return v
}
