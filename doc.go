// Package quiver is a retrieval engine for question answering over documents.
//
// It turns an uploaded document into a searchable embedding collection and
// serves similarity queries against it under several retrieval strategies:
// plain vector search, cross-encoder re-ranking, query expansion, and
// hierarchical parent-child chunk indexing. All strategies share one identity,
// scoring, and lifecycle model inside a single process.
//
// # Quick Start
//
//	embedding := openaicompat.NewEmbedding(baseURL, apiKey, model, dims)
//	llm := openaicompat.New(baseURL, apiKey, model)
//	scorer := openaicompat.NewRerank(rerankURL, apiKey, rerankModel)
//
//	eng := quiver.NewEngine(embedding, llm,
//		quiver.WithScorer(scorer),
//		quiver.WithDependencyTimeout(30*time.Second),
//	)
//
//	name, err := eng.ProcessDocument(ctx, doc, quiver.ModeFlat, quiver.DefaultChunkParams())
//	hits, err := eng.Search(ctx, name, "what is attention?", 5)
//	hits, err = eng.Rerank(ctx, "what is attention?", hits, 3)
//	answer, err := eng.Answer(ctx, "what is attention?", quiver.Contents(hits))
//
// # Core Interfaces
//
// The root package defines the contracts all components implement:
//
//   - [Provider] — generative LLM backend
//   - [EmbeddingProvider] — text-to-vector embedding
//   - [Scorer] — pairwise query/candidate relevance (cross-encoder)
//   - [IndexStore] — optional persisted collection snapshots
//
// # Included Implementations
//
// Providers: provider/openaicompat (chat, embeddings, and rerank endpoints of
// OpenAI-compatible servers). Storage: store/sqlite (local single-file),
// store/postgres (pgvector). Text extraction and chunking: ingest.
//
// See the cmd/quiver directory for the HTTP server that exposes the engine.
package quiver
