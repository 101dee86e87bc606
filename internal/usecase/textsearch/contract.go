package textsearch

import (
	"context"

	"github.com/sawanori/mapmapmap/internal/domain"
)

// Embedder vectorizes the free-text query.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SpotSearcher runs KNN over the spot index.
type SpotSearcher interface {
	SearchKNN(ctx context.Context, vector []float32, topK int) ([]domain.SpotHit, error)
}
