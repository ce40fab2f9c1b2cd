package quiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nevindra/quiver/ingest"
)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Engine is the retrieval engine facade: it owns the collection registry and
// composes chunking, indexing, retrieval, re-ranking, query expansion,
// parent resolution, and answer generation over injected providers.
//
// The registry is the engine's only shared mutable state; no registry lock
// is ever held across a provider call.
type Engine struct {
	embedding EmbeddingProvider
	provider  Provider
	scorer    Scorer
	reranker  Reranker
	registry  *Registry
	retriever *Retriever
	store     IndexStore
	logger    *slog.Logger

	depTimeout       time.Duration
	batchSize        int
	scoreConcurrency int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithScorer sets the cross-encoder used for re-ranking. When set, Rerank
// uses a CrossEncoderReranker; otherwise it falls back to LLM-based scoring
// through the generative provider.
func WithScorer(s Scorer) EngineOption {
	return func(e *Engine) { e.scorer = s }
}

// WithReranker overrides the re-ranking implementation entirely.
func WithReranker(r Reranker) EngineOption {
	return func(e *Engine) { e.reranker = r }
}

// WithStore sets an optional persisted index store. Built collections are
// snapshotted to it and can be reloaded with LoadPersisted. The caller owns
// the store and closes it.
func WithStore(s IndexStore) EngineOption {
	return func(e *Engine) { e.store = s }
}

// WithLogger sets a structured logger for engine operations.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithDependencyTimeout bounds every call into an opaque dependency
// (embedding, scoring, generation). On expiry the operation surfaces a
// dependency timeout and leaves no partial state — an aborted build
// registers nothing. Zero (default) disables the bound.
func WithDependencyTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.depTimeout = d }
}

// WithBatchSize sets the number of chunks per Embed call during index
// builds (default 64).
func WithBatchSize(n int) EngineOption {
	return func(e *Engine) { e.batchSize = n }
}

// WithScoreConcurrency bounds parallel cross-encoder calls during
// re-ranking (default 4).
func WithScoreConcurrency(n int) EngineOption {
	return func(e *Engine) { e.scoreConcurrency = n }
}

// NewEngine creates an Engine over the given embedding and generative
// providers.
func NewEngine(embedding EmbeddingProvider, provider Provider, opts ...EngineOption) *Engine {
	e := &Engine{
		embedding:        embedding,
		provider:         provider,
		logger:           nopLogger,
		batchSize:        64,
		scoreConcurrency: 4,
	}
	for _, o := range opts {
		o(e)
	}
	e.registry = NewRegistry(WithRegistryLogger(e.logger))
	e.retriever = NewRetriever(embedding)
	if e.reranker == nil {
		if e.scorer != nil {
			e.reranker = NewCrossEncoderReranker(e.scorer, e.scoreConcurrency)
		} else {
			e.reranker = NewLLMReranker(provider)
		}
	}
	return e
}

// Registry exposes the engine's collection registry.
func (e *Engine) Registry() *Registry { return e.registry }

// depCtx bounds ctx with the dependency timeout, if configured.
func (e *Engine) depCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.depTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.depTimeout)
}

// ProcessDocument chunks, embeds, and registers doc under the deterministic
// collection name for (doc.ID, mode). Processing the same document and mode
// again returns the existing collection without duplicating work; concurrent
// calls for the same key coalesce onto one build.
func (e *Engine) ProcessDocument(ctx context.Context, doc Document, mode ChunkMode, params ChunkParams) (string, error) {
	if doc.ID == "" {
		return "", &ErrInvalidParameter{Param: "document", Reason: "missing id"}
	}

	col, err := e.registry.GetOrCreate(ctx, doc.ID, mode, func(ctx context.Context) (*Collection, error) {
		chunks, err := chunkDocument(doc, mode, params)
		if err != nil {
			return nil, err
		}

		depCtx, cancel := e.depCtx(ctx)
		defer cancel()
		idx, err := BuildIndex(depCtx, chunks, e.embedding, e.batchSize)
		if err != nil {
			return nil, err
		}

		col := &Collection{DocumentID: doc.ID, Mode: mode, Index: idx, CreatedAt: NowUnix()}

		if e.store != nil {
			rec := CollectionRecord{
				Name:       CollectionName(doc.ID, mode),
				DocumentID: doc.ID,
				Mode:       mode,
				CreatedAt:  col.CreatedAt,
				Document:   doc,
				Chunks:     idx.Chunks(),
			}
			if err := e.store.SaveCollection(ctx, rec); err != nil {
				return nil, fmt.Errorf("persist collection: %w", err)
			}
		}

		e.logger.Info("document processed",
			"document_id", doc.ID, "mode", mode.String(),
			"chunks", len(chunks), "indexed", idx.Len())
		return col, nil
	})
	if err != nil {
		return "", err
	}
	return col.Name, nil
}

// chunkDocument splits doc.Content per mode and assembles chunk records with
// document-monotonic indexes. In parent-child mode the parent is emitted
// before its children, matching the index the resolver expects.
func chunkDocument(doc Document, mode ChunkMode, params ChunkParams) ([]Chunk, error) {
	switch mode {
	case ModeParentChild:
		splits, err := ingest.SplitParentChild(doc.Content,
			params.ParentSize, params.ParentOverlap,
			params.ChildSize, params.ChildOverlap)
		if err != nil {
			return nil, chunkParamErr(err)
		}
		var chunks []Chunk
		idx := 0
		for _, ps := range splits {
			parentID := NewID()
			chunks = append(chunks, Chunk{
				ID:         parentID,
				DocumentID: doc.ID,
				Content:    ps.Parent,
				ChunkIndex: idx,
			})
			idx++
			for _, child := range ps.Children {
				chunks = append(chunks, Chunk{
					ID:         NewID(),
					DocumentID: doc.ID,
					ParentID:   parentID,
					Content:    child,
					ChunkIndex: idx,
				})
				idx++
			}
		}
		return chunks, nil

	default:
		texts, err := ingest.SplitFlat(doc.Content, params.ChunkSize, params.ChunkOverlap)
		if err != nil {
			return nil, chunkParamErr(err)
		}
		chunks := make([]Chunk, len(texts))
		for i, t := range texts {
			chunks[i] = Chunk{
				ID:         NewID(),
				DocumentID: doc.ID,
				Content:    t,
				ChunkIndex: i,
			}
		}
		return chunks, nil
	}
}

// chunkParamErr maps ingest parameter errors into the engine taxonomy.
func chunkParamErr(err error) error {
	var pe *ingest.ParamError
	if errors.As(err, &pe) {
		return &ErrInvalidParameter{Param: pe.Param, Reason: pe.Reason}
	}
	return err
}

// Search embeds query and runs vector search against the named collection.
func (e *Engine) Search(ctx context.Context, name, query string, topK int) ([]ScoredChunk, error) {
	col, err := e.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	depCtx, cancel := e.depCtx(ctx)
	defer cancel()
	return e.retriever.Query(depCtx, col, query, topK)
}

// SearchExpanded expands query into variants, searches each (original
// included), and merges the result lists with reciprocal-rank fusion.
// Expansion failure surfaces before any search runs.
func (e *Engine) SearchExpanded(ctx context.Context, name, query string, topK, variantCount int) ([]ScoredChunk, error) {
	col, err := e.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	depCtx, cancel := e.depCtx(ctx)
	defer cancel()
	eq, err := Expand(depCtx, e.provider, query, variantCount)
	if err != nil {
		return nil, err
	}

	queries := append([]string{eq.Original}, eq.Variants...)
	lists := make([][]ScoredChunk, 0, len(queries))
	for _, q := range queries {
		qctx, qcancel := e.depCtx(ctx)
		hits, err := e.retriever.Query(qctx, col, q, topK)
		qcancel()
		if err != nil {
			return nil, err
		}
		lists = append(lists, hits)
	}
	return FuseResults(lists, topK)
}

// Rerank re-scores candidates against query with the configured reranker.
// On failure the caller's candidates are untouched and remain usable as a
// fallback result set.
func (e *Engine) Rerank(ctx context.Context, query string, candidates []ScoredChunk, topK int) ([]ScoredChunk, error) {
	depCtx, cancel := e.depCtx(ctx)
	defer cancel()
	return e.reranker.Rerank(depCtx, query, candidates, topK)
}

// ExpandQuery returns the original query followed by up to variantCount
// generated variants.
func (e *Engine) ExpandQuery(ctx context.Context, query string, variantCount int) ([]string, error) {
	depCtx, cancel := e.depCtx(ctx)
	defer cancel()
	eq, err := Expand(depCtx, e.provider, query, variantCount)
	if err != nil {
		return nil, err
	}
	return append([]string{eq.Original}, eq.Variants...), nil
}

// ResolveParents maps child hits from the named collection back to their
// deduplicated parent chunks, first-appearance ordered.
func (e *Engine) ResolveParents(name string, childHits []ScoredChunk) ([]Chunk, error) {
	col, err := e.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	return ResolveParents(col, childHits)
}

// Answer generates an answer for query grounded in contextChunks. Empty
// context is permitted and degrades to plain chat.
func (e *Engine) Answer(ctx context.Context, query string, contextChunks []string) (string, error) {
	depCtx, cancel := e.depCtx(ctx)
	defer cancel()
	return Answer(depCtx, e.provider, query, contextChunks)
}

// ClearCollection removes the named collection from the registry and, when a
// store is configured, deletes its persisted snapshot. Clearing an unknown
// name succeeds.
func (e *Engine) ClearCollection(ctx context.Context, name string) error {
	e.registry.Clear(name)
	if e.store != nil {
		if err := e.store.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("delete persisted collection: %w", err)
		}
	}
	return nil
}

// LoadPersisted registers every collection snapshot found in the configured
// store, returning how many were loaded. Without a store it is a no-op.
func (e *Engine) LoadPersisted(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, nil
	}
	recs, err := e.store.LoadCollections(ctx)
	if err != nil {
		return 0, fmt.Errorf("load collections: %w", err)
	}
	for _, rec := range recs {
		e.registry.Register(&Collection{
			Name:       rec.Name,
			DocumentID: rec.DocumentID,
			Mode:       rec.Mode,
			CreatedAt:  rec.CreatedAt,
			Index:      NewIndexFromChunks(rec.Chunks),
		})
	}
	if len(recs) > 0 {
		e.logger.Info("collections reloaded", "count", len(recs))
	}
	return len(recs), nil
}
