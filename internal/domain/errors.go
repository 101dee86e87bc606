package domain

import "errors"

var (
	// ErrNotConfigured signals missing provider API keys.
	ErrNotConfigured = errors.New("api keys not configured")
	// ErrBadRequest signals an invalid request to an external provider.
	ErrBadRequest = errors.New("bad request")
	// ErrPermissionDenied signals a rejected provider API key.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRateLimited signals a rate-limit response from a provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderUnavailable signals a provider failure after retries.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrInvalidQuery signals a free-text query outside the allowed bounds.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidCoordinates signals latitude/longitude out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
