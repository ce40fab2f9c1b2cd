// Package postgres implements quiver.IndexStore using PostgreSQL with
// pgvector for embedding storage.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool; Close is a no-op.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/quiver"
)

// Store implements quiver.IndexStore backed by PostgreSQL with pgvector.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

// pgConfig holds store configuration set via Option functions.
type pgConfig struct {
	embeddingDimension int // 0 = untyped vector
}

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, catching
// dimension mismatches at insert time. Only affects new table creation.
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

var _ quiver.IndexStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

// vectorType returns "vector" or "vector(N)" depending on config.
func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

// Init creates the pgvector extension and all required tables.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT NOT NULL,
			collection_name TEXT NOT NULL,
			document_id TEXT NOT NULL,
			parent_id TEXT,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			embedding %s,
			PRIMARY KEY (collection_name, id)
		)`, s.vectorType()),

		`CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection_name)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// SaveCollection writes a collection snapshot in a single transaction,
// replacing any previous snapshot with the same name.
func (s *Store) SaveCollection(ctx context.Context, rec quiver.CollectionRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO collections (name, document_id, mode, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET
		   document_id = EXCLUDED.document_id,
		   mode = EXCLUDED.mode,
		   created_at = EXCLUDED.created_at`,
		rec.Name, rec.DocumentID, rec.Mode.String(), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert collection: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO documents (id, title, source, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   source = EXCLUDED.source,
		   content = EXCLUDED.content,
		   created_at = EXCLUDED.created_at`,
		rec.Document.ID, rec.Document.Title, rec.Document.Source, rec.Document.Content, rec.Document.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert document: %w", err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM chunks WHERE collection_name = $1`, rec.Name); err != nil {
		return fmt.Errorf("postgres: clear chunks: %w", err)
	}

	for _, chunk := range rec.Chunks {
		var parentID *string
		if chunk.ParentID != "" {
			parentID = &chunk.ParentID
		}

		if len(chunk.Embedding) > 0 {
			embStr := serializeEmbedding(chunk.Embedding)
			_, err = tx.Exec(ctx,
				`INSERT INTO chunks (id, collection_name, document_id, parent_id, content, chunk_index, embedding)
				 VALUES ($1, $2, $3, $4, $5, $6, $7::vector)`,
				chunk.ID, rec.Name, chunk.DocumentID, parentID, chunk.Content, chunk.ChunkIndex, embStr)
		} else {
			_, err = tx.Exec(ctx,
				`INSERT INTO chunks (id, collection_name, document_id, parent_id, content, chunk_index, embedding)
				 VALUES ($1, $2, $3, $4, $5, $6, NULL)`,
				chunk.ID, rec.Name, chunk.DocumentID, parentID, chunk.Content, chunk.ChunkIndex)
		}
		if err != nil {
			return fmt.Errorf("postgres: insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// LoadCollections reads back every stored snapshot, chunks ordered by
// chunk_index.
func (s *Store) LoadCollections(ctx context.Context) ([]quiver.CollectionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.name, c.document_id, c.mode, c.created_at,
		        d.title, d.source, d.content, d.created_at
		 FROM collections c
		 JOIN documents d ON d.id = c.document_id
		 ORDER BY c.created_at, c.name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load collections: %w", err)
	}

	var recs []quiver.CollectionRecord
	recs, err = scanCollections(rows)
	if err != nil {
		return nil, err
	}

	for i := range recs {
		if recs[i].Chunks, err = s.loadChunks(ctx, recs[i].Name); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func scanCollections(rows pgx.Rows) ([]quiver.CollectionRecord, error) {
	defer rows.Close()

	var recs []quiver.CollectionRecord
	for rows.Next() {
		var rec quiver.CollectionRecord
		var mode string
		err := rows.Scan(&rec.Name, &rec.DocumentID, &mode, &rec.CreatedAt,
			&rec.Document.Title, &rec.Document.Source, &rec.Document.Content, &rec.Document.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan collection: %w", err)
		}
		rec.Document.ID = rec.DocumentID
		if rec.Mode, err = quiver.ParseChunkMode(mode); err != nil {
			return nil, fmt.Errorf("postgres: collection %s: %w", rec.Name, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *Store) loadChunks(ctx context.Context, collection string) ([]quiver.Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, parent_id, content, chunk_index, embedding::text
		 FROM chunks
		 WHERE collection_name = $1
		 ORDER BY chunk_index`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: load chunks: %w", err)
	}
	defer rows.Close()

	var chunks []quiver.Chunk
	for rows.Next() {
		var c quiver.Chunk
		var parentID, embStr *string
		if err := rows.Scan(&c.ID, &c.DocumentID, &parentID, &c.Content, &c.ChunkIndex, &embStr); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		if parentID != nil {
			c.ParentID = *parentID
		}
		if embStr != nil {
			if c.Embedding, err = parseEmbedding(*embStr); err != nil {
				return nil, fmt.Errorf("postgres: chunk %s: %w", c.ID, err)
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteCollection removes a snapshot. The source document row is kept while
// another collection (e.g. the other chunk mode) still references it.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var docID string
	err = tx.QueryRow(ctx, `SELECT document_id FROM collections WHERE name = $1`, name).Scan(&docID)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("postgres: lookup collection: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE collection_name = $1`, name); err != nil {
		return fmt.Errorf("postgres: delete chunks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM collections WHERE name = $1`, name); err != nil {
		return fmt.Errorf("postgres: delete collection: %w", err)
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM documents
		 WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM collections WHERE document_id = $1)`,
		docID)
	if err != nil {
		return fmt.Errorf("postgres: delete document: %w", err)
	}

	return tx.Commit(ctx)
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }

// serializeEmbedding converts []float32 to a string like "[0.1,0.2,0.3]"
// suitable for pgvector's text input format.
func serializeEmbedding(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseEmbedding parses pgvector's text output format back to []float32.
func parseEmbedding(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parse embedding: %w", err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
