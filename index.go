package quiver

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Index is an in-memory embedding index over one document's chunks.
// Vectors are L2-normalized at insertion so cosine similarity reduces to a
// dot product. An Index is immutable once built; concurrent Search calls
// need no synchronization.
type Index struct {
	dims    int
	entries []indexEntry
	byID    map[string]Chunk
}

type indexEntry struct {
	chunk  Chunk
	vector []float32
}

// BuildIndex embeds every searchable chunk and assembles an Index.
// Chunks referenced as a ParentID by another chunk are parent containers:
// they are stored for lookup but never embedded or searched. Embedding runs
// in batches of batchSize; any embedding failure discards the partial build
// (all-or-nothing).
func BuildIndex(ctx context.Context, chunks []Chunk, embedding EmbeddingProvider, batchSize int) (*Index, error) {
	if batchSize <= 0 {
		batchSize = 64
	}

	parents := make(map[string]bool)
	for _, c := range chunks {
		if c.ParentID != "" {
			parents[c.ParentID] = true
		}
	}

	byID := make(map[string]Chunk, len(chunks))
	var searchable []Chunk
	for _, c := range chunks {
		byID[c.ID] = c
		if !parents[c.ID] {
			searchable = append(searchable, c)
		}
	}

	entries := make([]indexEntry, 0, len(searchable))
	dims := 0

	for i := 0; i < len(searchable); i += batchSize {
		end := min(i+batchSize, len(searchable))
		batch := searchable[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}

		vectors, err := embedding.Embed(ctx, texts)
		if err != nil {
			return nil, wrapDependency(StageEmbed, fmt.Errorf("batch %d-%d: %w", i, end, err))
		}
		if len(vectors) != len(batch) {
			return nil, wrapDependency(StageEmbed, fmt.Errorf("batch %d-%d: got %d vectors for %d texts", i, end, len(vectors), len(batch)))
		}

		for j, v := range vectors {
			if dims == 0 {
				dims = len(v)
			} else if len(v) != dims {
				return nil, wrapDependency(StageEmbed, fmt.Errorf("dimension mismatch: %d != %d", len(v), dims))
			}
			c := batch[j]
			c.Embedding = normalize(v)
			byID[c.ID] = c
			entries = append(entries, indexEntry{chunk: c, vector: c.Embedding})
		}
	}

	return &Index{dims: dims, entries: entries, byID: byID}, nil
}

// NewIndexFromChunks assembles an Index from chunks that already carry
// embeddings, normalizing defensively. Chunks without an embedding are
// stored as lookup-only parents. Used when reloading persisted collections.
func NewIndexFromChunks(chunks []Chunk) *Index {
	byID := make(map[string]Chunk, len(chunks))
	var entries []indexEntry
	dims := 0
	for _, c := range chunks {
		byID[c.ID] = c
		if len(c.Embedding) == 0 {
			continue
		}
		if dims == 0 {
			dims = len(c.Embedding)
		}
		entries = append(entries, indexEntry{chunk: c, vector: normalize(c.Embedding)})
	}
	return &Index{dims: dims, entries: entries, byID: byID}
}

// Search returns the topK entries most similar to queryVec, sorted by score
// descending with ties broken by ascending chunk index. The query vector is
// normalized here; callers pass raw embedding output. If the index holds
// fewer than topK entries, all are returned.
func (ix *Index) Search(queryVec []float32, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		return nil, &ErrInvalidParameter{Param: "top_k", Reason: "must be positive"}
	}
	if ix.dims > 0 && len(queryVec) != ix.dims {
		return nil, &ErrInvalidParameter{Param: "query_vector", Reason: fmt.Sprintf("dimension %d, index has %d", len(queryVec), ix.dims)}
	}

	q := normalize(queryVec)
	results := make([]ScoredChunk, 0, len(ix.entries))
	for _, e := range ix.entries {
		results = append(results, ScoredChunk{Chunk: e.chunk, Score: dot(q, e.vector)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ChunkIndex < results[j].Chunk.ChunkIndex
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ChunkByID looks up any stored chunk, including parent containers.
func (ix *Index) ChunkByID(id string) (Chunk, bool) {
	c, ok := ix.byID[id]
	return c, ok
}

// Len returns the number of searchable (embedded) entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Dimensions returns the embedding dimensionality, or 0 for an empty index.
func (ix *Index) Dimensions() int { return ix.dims }

// Chunks returns all stored chunks (searchable and parents) ordered by
// chunk index.
func (ix *Index) Chunks() []Chunk {
	out := make([]Chunk, 0, len(ix.byID))
	for _, c := range ix.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out
}

// normalize returns a unit-L2 copy of v. A zero vector is returned as a copy
// unchanged so it scores 0 against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	copy(out, v)
	if sum == 0 {
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i := range out {
		out[i] /= norm
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
