package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nevindra/quiver"
)

// RerankScorer implements quiver.Scorer against a TEI/Jina-style /rerank
// endpoint. Each Score call sends a single query/text pair; quiver's reranker
// fans out pairs concurrently.
type RerankScorer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	name    string
}

// ScorerOption configures a RerankScorer instance.
type ScorerOption func(*RerankScorer)

// WithScorerName sets the name returned by Name() (default "rerank").
func WithScorerName(name string) ScorerOption {
	return func(s *RerankScorer) { s.name = name }
}

// WithScorerHTTPClient sets a custom HTTP client.
func WithScorerHTTPClient(c *http.Client) ScorerOption {
	return func(s *RerankScorer) { s.client = c }
}

// NewRerankScorer creates a cross-encoder scorer backed by a rerank endpoint.
// The /rerank path is appended to baseURL automatically. model may be empty
// for servers that host a single model (e.g. TEI).
func NewRerankScorer(apiKey, model, baseURL string, opts ...ScorerOption) *RerankScorer {
	s := &RerankScorer{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{},
		name:    "rerank",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the scorer name.
func (s *RerankScorer) Name() string { return s.name }

// Score rates how relevant candidate is to query.
func (s *RerankScorer) Score(ctx context.Context, query, candidate string) (float32, error) {
	payload, err := json.Marshal(RerankRequest{
		Model: s.model,
		Query: query,
		Texts: []string{candidate},
	})
	if err != nil {
		return 0, fmt.Errorf("openaicompat: marshal request: %w", err)
	}

	url := s.baseURL + "/rerank"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("openaicompat: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, httpErr(resp)
	}

	var results []RerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, fmt.Errorf("openaicompat: decode response: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("openaicompat: rerank returned no results")
	}
	return results[0].Score, nil
}

// Compile-time interface check.
var _ quiver.Scorer = (*RerankScorer)(nil)
