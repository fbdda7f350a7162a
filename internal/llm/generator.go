package llm

import "context"

// Prompt is the assembled payload for one generation call.
type Prompt struct {
	System string
	User   string
}

// Generator is the narrow seam to the hosted completion service, so it can
// be swapped or stubbed in tests without touching the retriever or pipeline.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
