package health

import "context"

// DBPinger checks store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks the generative provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
