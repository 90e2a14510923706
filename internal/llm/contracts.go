package llm

import "context"

// Request is one model invocation.
type Request struct {
	Model        string
	Instructions string
	Prompt       string
	SchemaName   string
	Schema       map[string]any // nil for free text
}

// Response carries whatever the model returned. Parsed is set when the provider already decoded
// a structured payload; otherwise Content holds the raw payload (string, bytes, map or typed value).
type Response struct {
	Parsed  map[string]any
	Content any
}

// Generator is the generative-model surface the analyzer depends on.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Mapper is implemented by typed payloads that can render themselves as a key-value mapping.
type Mapper interface {
	AsMap() (map[string]any, error)
}
