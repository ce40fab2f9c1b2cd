package quiver

import "context"

// Provider abstracts the generative LLM backend.
type Provider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// Name returns the provider name (e.g. "openaicompat").
	Name() string
}

// EmbeddingProvider abstracts text embedding. Embeddings are deterministic
// per text and share a fixed dimensionality per deployment.
type EmbeddingProvider interface {
	// Embed returns embedding vectors for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name.
	Name() string
}

// Scorer abstracts pairwise query/candidate relevance scoring, typically a
// cross-encoder. Scores are on the scorer's own scale and are not comparable
// with cosine similarities.
type Scorer interface {
	// Score rates how relevant candidate is to query.
	Score(ctx context.Context, query, candidate string) (float32, error)
	// Name returns the scorer name.
	Name() string
}
