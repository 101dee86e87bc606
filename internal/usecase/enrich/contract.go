package enrich

import "context"

// Generator produces a raw JSON reply from a system+user prompt pair.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
