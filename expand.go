package quiver

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const expandPromptTemplate = "You are a helpful expert research assistant. " +
	"Your users are asking questions about a document. " +
	"Suggest up to %d additional related search queries to help them find the answer. " +
	"Provide only the queries, one per line. Do not number them." +
	"\n\nOriginal Question: %s"

// Expand asks the generative model for up to variantCount alternative
// phrasings or related sub-questions of query, one per line. The model call
// failing, or returning zero parseable variants, is a generation failure.
// The original query is not included among the variants.
func Expand(ctx context.Context, provider Provider, query string, variantCount int) (ExpandedQuery, error) {
	if variantCount <= 0 {
		return ExpandedQuery{}, &ErrInvalidParameter{Param: "variant_count", Reason: "must be positive"}
	}

	resp, err := provider.Chat(ctx, ChatRequest{
		Messages: []ChatMessage{UserMessage(fmt.Sprintf(expandPromptTemplate, variantCount, query))},
	})
	if err != nil {
		return ExpandedQuery{}, wrapDependency(StageGenerate, fmt.Errorf("expand query: %w", err))
	}

	variants := parseVariants(resp.Content, query)
	if len(variants) == 0 {
		return ExpandedQuery{}, wrapDependency(StageGenerate, fmt.Errorf("expand query: no parseable variants in response"))
	}
	if len(variants) > variantCount {
		variants = variants[:variantCount]
	}

	return ExpandedQuery{Original: query, Variants: variants}, nil
}

// parseVariants splits a model response into variant strings, one per line,
// stripping list markers and numbering the model sometimes adds despite
// instructions. Lines equal to the original query are dropped.
func parseVariants(response, original string) []string {
	var variants []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		// "1. foo" / "2) foo"
		if i := strings.IndexAny(line, ".)"); i > 0 && i <= 3 && isDigits(line[:i]) {
			line = strings.TrimSpace(line[i+1:])
		}
		line = strings.Trim(line, `"`)
		if line == "" || strings.EqualFold(line, original) {
			continue
		}
		variants = append(variants, line)
	}
	return variants
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// JoinQueries combines the original query and its variants into a single
// search string. This mirrors the naive concatenation flow; FuseResults is
// the stronger alternative.
func JoinQueries(eq ExpandedQuery) string {
	parts := append([]string{eq.Original}, eq.Variants...)
	return strings.Join(parts, "\n")
}

const rrfK = 60

// FuseResults merges per-variant search result lists using Reciprocal Rank
// Fusion. Each list contributes 1/(k+rank+1) per chunk; chunks hit by
// several variants accumulate. Output is sorted by fused score descending,
// ties broken by ascending chunk index, trimmed to topK.
//
// Fused scores are rank-derived and share no scale with cosine similarity
// or cross-encoder output.
func FuseResults(lists [][]ScoredChunk, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		return nil, &ErrInvalidParameter{Param: "top_k", Reason: "must be positive"}
	}

	type entry struct {
		chunk Chunk
		score float32
	}
	merged := make(map[string]*entry)

	for _, list := range lists {
		for rank, sc := range list {
			e, ok := merged[sc.Chunk.ID]
			if !ok {
				e = &entry{chunk: sc.Chunk}
				merged[sc.Chunk.ID] = e
			}
			e.score += 1.0 / float32(rrfK+rank+1)
		}
	}

	fused := make([]ScoredChunk, 0, len(merged))
	for _, e := range merged {
		fused = append(fused, ScoredChunk{Chunk: e.chunk, Score: e.score})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Chunk.ChunkIndex < fused[j].Chunk.ChunkIndex
	})

	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}
