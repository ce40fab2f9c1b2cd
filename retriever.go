package quiver

import (
	"context"
	"fmt"
)

// Retriever issues similarity queries against one collection.
type Retriever struct {
	embedding EmbeddingProvider
}

// NewRetriever creates a Retriever using the given embedding provider.
func NewRetriever(embedding EmbeddingProvider) *Retriever {
	return &Retriever{embedding: embedding}
}

// Query embeds queryText and searches the collection's index, returning up to
// topK scored chunks sorted by descending similarity.
func (rt *Retriever) Query(ctx context.Context, col *Collection, queryText string, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		return nil, &ErrInvalidParameter{Param: "top_k", Reason: "must be positive"}
	}

	vecs, err := rt.embedding.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, wrapDependency(StageEmbed, fmt.Errorf("embed query: %w", err))
	}
	if len(vecs) == 0 {
		return nil, wrapDependency(StageEmbed, fmt.Errorf("embed query: no embedding returned"))
	}

	return col.Index.Search(vecs[0], topK)
}

// ResolveParents maps child-chunk hits back to their owning parent chunks,
// deduplicated, in order of first appearance — the parent of the
// highest-scored child comes first so the most relevant context leads.
// Hits without a parent (flat chunks) pass through as themselves.
func ResolveParents(col *Collection, childHits []ScoredChunk) ([]Chunk, error) {
	seen := make(map[string]bool, len(childHits))
	var parents []Chunk

	for _, hit := range childHits {
		c := hit.Chunk
		if c.ParentID == "" {
			if !seen[c.ID] {
				seen[c.ID] = true
				parents = append(parents, c)
			}
			continue
		}
		if seen[c.ParentID] {
			continue
		}
		parent, ok := col.Index.ChunkByID(c.ParentID)
		if !ok {
			return nil, fmt.Errorf("chunk %s references unknown parent %s", c.ID, c.ParentID)
		}
		seen[c.ParentID] = true
		parents = append(parents, parent)
	}

	return parents, nil
}

// Contents extracts the chunk texts from a result set, in order. Convenience
// for feeding retrieval output into Answer.
func Contents(hits []ScoredChunk) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Chunk.Content
	}
	return out
}
