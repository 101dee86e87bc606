package domain

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "mapmapmap:"

// Spot is a pre-indexed venue used by the free-text search path.
type Spot struct {
	ID          string
	Name        string
	Lat         float64
	Lng         float64
	Category    string
	Description string
	Rating      *float64
	Address     string
}

// SpotHit is a free-text search result: a spot plus its vector distance to
// the query and its haversine distance to the caller.
type SpotHit struct {
	Spot
	VectorDistance float64
	DistanceKm     float64
}
