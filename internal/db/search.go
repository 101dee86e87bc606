package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Distance is the raw vector distance
// reported by the index (cosine: 0 identical, 2 opposite).
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
