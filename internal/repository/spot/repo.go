package spot

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sawanori/mapmapmap/internal/db"
	"github.com/sawanori/mapmapmap/internal/domain"
)

var (
	keyPrefix = domain.KeyPrefix + "spot:"
	indexName = domain.KeyPrefix + "spot:idx"
)

// store is the consumer interface for spot storage (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// IndexParams tunes the HNSW vector index.
type IndexParams struct {
	Dimensions  int
	M           int
	EFConstruct int
}

// Repo stores spots as hashes under a vector-indexed prefix and serves KNN
// queries for the free-text search path.
type Repo struct {
	store store
}

// New creates a spot repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureIndex creates the spot vector index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, p IndexParams) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check spot index: %w", err)
	}
	if exists {
		return nil
	}

	def := db.NewIndex(indexName).
		Prefix(keyPrefix).
		Tag("category").
		Numeric("lat").
		Numeric("lng").
		Text("description").
		VectorHNSW("vector", p.Dimensions, db.DistanceCosine, p.M, p.EFConstruct).
		MustBuild()

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create spot index: %w", err)
	}
	return nil
}

// UpsertBatch writes spots and their embedding vectors in one pipelined call.
func (r *Repo) UpsertBatch(ctx context.Context, spots []domain.Spot, vectors [][]float32) error {
	if len(spots) != len(vectors) {
		return fmt.Errorf("spot/vector count mismatch: %d vs %d", len(spots), len(vectors))
	}

	items := make([]db.HashSetItem, 0, len(spots))
	for i := range spots {
		items = append(items, db.HashSetItem{
			Key:    keyPrefix + spots[i].ID,
			Fields: toFields(&spots[i], vectors[i]),
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert spots: %w", err)
	}
	return nil
}

// SearchKNN returns the topK nearest spots to the query vector, with the raw
// cosine distance on each hit. Geo filtering and sorting are the caller's job.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, topK int) ([]domain.SpotHit, error) {
	q := &db.KNNQuery{
		IndexName: indexName,
		Vector:    vector,
		K:         topK,
		ReturnFields: []string{
			"name", "lat", "lng", "category", "description", "rating", "address",
		},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search spots: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]domain.SpotHit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hits = append(hits, toHit(entry))
	}
	return hits, nil
}

func toFields(s *domain.Spot, vec []float32) map[string]string {
	fields := map[string]string{
		"name":        s.Name,
		"lat":         strconv.FormatFloat(s.Lat, 'f', -1, 64),
		"lng":         strconv.FormatFloat(s.Lng, 'f', -1, 64),
		"category":    s.Category,
		"description": s.Description,
		"address":     s.Address,
		"vector":      vectorToBytes(vec),
	}
	if s.Rating != nil {
		fields["rating"] = strconv.FormatFloat(*s.Rating, 'f', -1, 64)
	}
	return fields
}

func toHit(entry db.SearchEntry) domain.SpotHit {
	hit := domain.SpotHit{
		Spot: domain.Spot{
			ID:          strings.TrimPrefix(entry.Key, keyPrefix),
			Name:        entry.Fields["name"],
			Category:    entry.Fields["category"],
			Description: entry.Fields["description"],
			Address:     entry.Fields["address"],
		},
		VectorDistance: entry.Distance,
	}
	if v, err := strconv.ParseFloat(entry.Fields["lat"], 64); err == nil {
		hit.Lat = v
	}
	if v, err := strconv.ParseFloat(entry.Fields["lng"], 64); err == nil {
		hit.Lng = v
	}
	if raw, ok := entry.Fields["rating"]; ok && raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			hit.Rating = &v
		}
	}
	return hit
}

// vectorToBytes serializes []float32 to the FLOAT32 little-endian blob the
// vector index expects in hash fields.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
