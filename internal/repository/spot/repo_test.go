package spot

import (
	"context"
	"errors"
	"testing"

	"github.com/sawanori/mapmapmap/internal/db"
	"github.com/sawanori/mapmapmap/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	var created *db.IndexDefinition
	ms := &mockStore{
		createIndexFn: func(ctx context.Context, def *db.IndexDefinition) error {
			created = def
			return nil
		},
	}

	err := New(ms).EnsureIndex(context.Background(), IndexParams{Dimensions: 1536, M: 32, EFConstruct: 400})
	if err != nil {
		t.Fatalf("EnsureIndex failed: %v", err)
	}
	if created == nil {
		t.Fatal("expected CreateIndex to be called")
	}
	if created.Name != "mapmapmap:spot:idx" {
		t.Errorf("index name = %q", created.Name)
	}
	if len(created.Prefixes) != 1 || created.Prefixes[0] != "mapmapmap:spot:" {
		t.Errorf("prefixes = %v", created.Prefixes)
	}

	var vec *db.IndexField
	for i := range created.Fields {
		if created.Fields[i].Type == db.IndexFieldVector {
			vec = &created.Fields[i]
		}
	}
	if vec == nil {
		t.Fatal("expected a vector field")
	}
	if vec.VectorDim != 1536 || vec.VectorDistance != db.DistanceCosine {
		t.Errorf("vector field = %+v", vec)
	}
}

func TestEnsureIndex_SkipsWhenPresent(t *testing.T) {
	ms := &mockStore{
		indexExistsFn: func(ctx context.Context, name string) (bool, error) { return true, nil },
		createIndexFn: func(ctx context.Context, def *db.IndexDefinition) error {
			t.Fatal("CreateIndex must not be called")
			return nil
		},
	}

	if err := New(ms).EnsureIndex(context.Background(), IndexParams{Dimensions: 8}); err != nil {
		t.Fatalf("EnsureIndex failed: %v", err)
	}
}

func TestEnsureIndex_ToleratesConcurrentCreate(t *testing.T) {
	ms := &mockStore{
		createIndexFn: func(ctx context.Context, def *db.IndexDefinition) error {
			return db.ErrIndexExists
		},
	}

	if err := New(ms).EnsureIndex(context.Background(), IndexParams{Dimensions: 8}); err != nil {
		t.Fatalf("expected ErrIndexExists to be absorbed, got %v", err)
	}
}

func TestUpsertBatch(t *testing.T) {
	rating := 4.2
	var items []db.HashSetItem
	ms := &mockStore{
		hsetMultiFn: func(ctx context.Context, got []db.HashSetItem) error {
			items = got
			return nil
		},
	}

	spots := []domain.Spot{
		{ID: "s1", Name: "喫茶ロマン", Lat: 35.68, Lng: 139.76, Category: "Cafe",
			Description: "昔ながらの純喫茶", Rating: &rating, Address: "千代田区1-1"},
		{ID: "s2", Name: "本の森", Lat: 35.69, Lng: 139.70, Category: "Bookstore"},
	}
	vecs := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := New(ms).UpsertBatch(context.Background(), spots, vecs); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Key != "mapmapmap:spot:s1" {
		t.Errorf("key = %q", items[0].Key)
	}
	if items[0].Fields["rating"] != "4.2" {
		t.Errorf("rating field = %q", items[0].Fields["rating"])
	}
	if _, ok := items[1].Fields["rating"]; ok {
		t.Error("nil rating must not produce a field")
	}
	if len(items[0].Fields["vector"]) != 8 {
		t.Errorf("vector blob length = %d, want 8", len(items[0].Fields["vector"]))
	}
}

func TestUpsertBatch_CountMismatch(t *testing.T) {
	err := New(&mockStore{}).UpsertBatch(context.Background(),
		[]domain.Spot{{ID: "s1"}}, nil)
	if err == nil {
		t.Fatal("expected error for count mismatch")
	}
}

func TestSearchKNN_ParsesHits(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.IndexName != "mapmapmap:spot:idx" || q.K != 50 {
				t.Errorf("query = %+v", q)
			}
			return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
				{
					Key:      "mapmapmap:spot:s1",
					Distance: 0.42,
					Fields: map[string]string{
						"name": "喫茶ロマン", "lat": "35.68", "lng": "139.76",
						"category": "Cafe", "rating": "4.2",
					},
				},
			}}, nil
		},
	}

	hits, err := New(ms).SearchKNN(context.Background(), []float32{0.1, 0.2}, 50)
	if err != nil {
		t.Fatalf("SearchKNN failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}

	h := hits[0]
	if h.ID != "s1" || h.Name != "喫茶ロマン" {
		t.Errorf("hit = %+v", h)
	}
	if h.VectorDistance != 0.42 {
		t.Errorf("vector distance = %f, want 0.42", h.VectorDistance)
	}
	if h.Lat != 35.68 || h.Lng != 139.76 {
		t.Errorf("coords = %f/%f", h.Lat, h.Lng)
	}
	if h.Rating == nil || *h.Rating != 4.2 {
		t.Errorf("rating = %v", h.Rating)
	}
}

func TestSearchKNN_StoreError(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			return nil, errors.New("index gone")
		},
	}

	if _, err := New(ms).SearchKNN(context.Background(), []float32{0.1}, 10); err == nil {
		t.Fatal("expected error")
	}
}
