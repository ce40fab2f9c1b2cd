package quiver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Reranker re-scores a candidate set against a query, independent of the
// original vector scores. The returned slice is sorted by the new Score
// descending and trimmed to topK; original scores are discarded.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []ScoredChunk, topK int) ([]ScoredChunk, error)
}

// --- CrossEncoderReranker ---

// CrossEncoderReranker scores each candidate with a pairwise Scorer. Scoring
// calls are independent and run concurrently, bounded by the concurrency
// limit. NaN scores clamp to 0.
type CrossEncoderReranker struct {
	scorer      Scorer
	concurrency int
}

var _ Reranker = (*CrossEncoderReranker)(nil)

// NewCrossEncoderReranker creates a Reranker backed by the given Scorer.
// concurrency bounds parallel Score calls; values < 1 mean 4.
func NewCrossEncoderReranker(scorer Scorer, concurrency int) *CrossEncoderReranker {
	if concurrency < 1 {
		concurrency = 4
	}
	return &CrossEncoderReranker{scorer: scorer, concurrency: concurrency}
}

// Rerank replaces every candidate's score with the cross-encoder relevance
// score, sorts descending, and truncates to topK. Empty candidates yield an
// empty result. A scoring failure aborts the whole pass — the caller keeps
// its original candidates.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, candidates []ScoredChunk, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		return nil, &ErrInvalidParameter{Param: "top_k", Reason: "must be positive"}
	}
	if len(candidates) == 0 {
		return []ScoredChunk{}, nil
	}

	rescored := make([]ScoredChunk, len(candidates))
	copy(rescored, candidates)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range rescored {
		g.Go(func() error {
			score, err := r.scorer.Score(gctx, query, rescored[i].Chunk.Content)
			if err != nil {
				return wrapDependency(StageScore, fmt.Errorf("candidate %d: %w", i, err))
			}
			if math.IsNaN(float64(score)) {
				score = 0
			}
			rescored[i].Score = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortByScore(rescored)
	if len(rescored) > topK {
		rescored = rescored[:topK]
	}
	return rescored, nil
}

// --- LLMReranker ---

// LLMReranker uses the generative LLM to score query-document relevance.
// It asks the model to rate each candidate 0-10, then normalizes and
// re-sorts. Useful when no cross-encoder is deployed.
type LLMReranker struct {
	provider Provider
}

var _ Reranker = (*LLMReranker)(nil)

// NewLLMReranker creates a Reranker that uses the given LLM provider for
// relevance scoring.
func NewLLMReranker(provider Provider) *LLMReranker {
	return &LLMReranker{provider: provider}
}

// Rerank sends candidates to the LLM for relevance scoring, then re-sorts.
// A model failure or unparseable response surfaces as a generation error so
// the caller can fall back to its vector-ranked candidates.
func (r *LLMReranker) Rerank(ctx context.Context, query string, candidates []ScoredChunk, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		return nil, &ErrInvalidParameter{Param: "top_k", Reason: "must be positive"}
	}
	if len(candidates) == 0 {
		return []ScoredChunk{}, nil
	}

	var docs strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&docs, "Document %d:\n%s\n\n", i, c.Chunk.Content)
	}

	prompt := fmt.Sprintf(
		"Rate the relevance of each document to the query on a scale of 0-10.\n\nQuery: %s\n\n%sRespond with JSON only: {\"scores\":[{\"index\":0,\"score\":N}, ...]}",
		query, docs.String(),
	)

	resp, err := r.provider.Chat(ctx, ChatRequest{
		Messages: []ChatMessage{UserMessage(prompt)},
	})
	if err != nil {
		return nil, wrapDependency(StageGenerate, fmt.Errorf("rerank scoring: %w", err))
	}

	var parsed struct {
		Scores []struct {
			Index int     `json:"index"`
			Score float64 `json:"score"`
		} `json:"scores"`
	}
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &parsed); err != nil {
		return nil, wrapDependency(StageGenerate, fmt.Errorf("rerank scoring: malformed response: %w", err))
	}

	rescored := make([]ScoredChunk, len(candidates))
	copy(rescored, candidates)
	for i := range rescored {
		rescored[i].Score = 0
	}
	for _, s := range parsed.Scores {
		if s.Index >= 0 && s.Index < len(rescored) && !math.IsNaN(s.Score) {
			rescored[s.Index].Score = float32(s.Score / 10.0)
		}
	}

	sortByScore(rescored)
	if len(rescored) > topK {
		rescored = rescored[:topK]
	}
	return rescored, nil
}

// sortByScore sorts descending by score, ties broken by ascending chunk
// index for deterministic output.
func sortByScore(chunks []ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Chunk.ChunkIndex < chunks[j].Chunk.ChunkIndex
	})
}

// extractJSON trims surrounding prose or code fences from a model response,
// keeping the outermost JSON object.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
