package quiver

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// --- Embedding mocks (shared across index_test.go, engine_test.go) ---

// hashEmbedding produces deterministic vectors derived from the text hash.
// Identical texts always map to identical vectors, so repeated embedding is
// stable. calls counts Embed invocations for coalescing assertions.
type hashEmbedding struct {
	dims  int
	calls atomic.Int64
	err   error
}

func (e *hashEmbedding) Name() string    { return "hash-embed" }
func (e *hashEmbedding) Dimensions() int { return e.dims }

func (e *hashEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, e.dims)
	}
	return out, nil
}

func hashVector(text string, dims int) []float32 {
	v := make([]float32, dims)
	for d := 0; d < dims; d++ {
		h := fnv.New32a()
		h.Write([]byte{byte(d)})
		h.Write([]byte(text))
		v[d] = float32(h.Sum32()%1000) + 1
	}
	return v
}

// fixedEmbedding returns preset vectors per text, falling back to the hash
// vector for texts without an entry. Used when a test needs to control
// similarity ordering precisely.
type fixedEmbedding struct {
	dims    int
	vectors map[string][]float32
}

func (e *fixedEmbedding) Name() string    { return "fixed-embed" }
func (e *fixedEmbedding) Dimensions() int { return e.dims }

func (e *fixedEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = hashVector(t, e.dims)
		}
	}
	return out, nil
}

// --- Provider mocks ---

// scriptProvider returns canned responses in order, then repeats the last.
type scriptProvider struct {
	mu        sync.Mutex
	responses []string
	requests  []ChatRequest
	err       error
}

func (p *scriptProvider) Name() string { return "script" }

func (p *scriptProvider) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return ChatResponse{}, p.err
	}
	i := len(p.requests) - 1
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return ChatResponse{Content: p.responses[i]}, nil
}

func (p *scriptProvider) lastRequest() ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

// --- Scorer mocks ---

// mapScorer scores candidates by lookup, 0 for unknown texts.
type mapScorer struct {
	scores map[string]float32
	err    error
}

func (s *mapScorer) Name() string { return "map-scorer" }

func (s *mapScorer) Score(_ context.Context, _, candidate string) (float32, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.scores[candidate], nil
}

// --- Store mock ---

// memStore is an in-memory IndexStore recording operations for assertions.
type memStore struct {
	mu      sync.Mutex
	records map[string]CollectionRecord
	deletes []string
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]CollectionRecord)}
}

func (s *memStore) SaveCollection(_ context.Context, rec CollectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records[rec.Name] = rec
	return nil
}

func (s *memStore) LoadCollections(_ context.Context) ([]CollectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CollectionRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *memStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, name)
	s.deletes = append(s.deletes, name)
	return nil
}

func (s *memStore) Init(_ context.Context) error { return nil }
func (s *memStore) Close() error                 { return nil }

var _ IndexStore = (*memStore)(nil)

// --- Shared fixtures ---

func testChunks(docID string, contents ...string) []Chunk {
	chunks := make([]Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = Chunk{
			ID:         NewID(),
			DocumentID: docID,
			Content:    c,
			ChunkIndex: i,
		}
	}
	return chunks
}
