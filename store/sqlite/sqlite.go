// Package sqlite implements quiver.IndexStore using pure-Go SQLite.
// Zero CGO required. Embeddings are stored as JSON text; collections are
// written and reloaded whole, so search never touches the database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nevindra/quiver"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements quiver.IndexStore backed by a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ quiver.IndexStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT NOT NULL,
			collection_name TEXT NOT NULL,
			document_id TEXT NOT NULL,
			parent_id TEXT,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			embedding TEXT,
			PRIMARY KEY (collection_name, id)
		)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection_name)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// SaveCollection writes a collection snapshot in a single transaction,
// replacing any previous snapshot with the same name.
func (s *Store) SaveCollection(ctx context.Context, rec quiver.CollectionRecord) error {
	start := time.Now()
	s.logger.Debug("sqlite: save collection", "name", rec.Name, "document_id", rec.DocumentID, "mode", rec.Mode.String(), "chunks", len(rec.Chunks))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO collections (name, document_id, mode, created_at)
		 VALUES (?, ?, ?, ?)`,
		rec.Name, rec.DocumentID, rec.Mode.String(), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, title, source, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Document.ID, rec.Document.Title, rec.Document.Source, rec.Document.Content, rec.Document.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection_name = ?`, rec.Name); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	for _, chunk := range rec.Chunks {
		var embJSON *string
		if len(chunk.Embedding) > 0 {
			v := serializeEmbedding(chunk.Embedding)
			embJSON = &v
		}
		var parentID *string
		if chunk.ParentID != "" {
			parentID = &chunk.ParentID
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunks (id, collection_name, document_id, parent_id, content, chunk_index, embedding)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			chunk.ID, rec.Name, chunk.DocumentID, parentID, chunk.Content, chunk.ChunkIndex, embJSON,
		)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: save collection commit failed", "name", rec.Name, "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: save collection ok", "name", rec.Name, "chunks", len(rec.Chunks), "duration", time.Since(start))
	return nil
}

// LoadCollections reads back every stored snapshot, chunks ordered by
// chunk_index.
func (s *Store) LoadCollections(ctx context.Context) ([]quiver.CollectionRecord, error) {
	start := time.Now()
	s.logger.Debug("sqlite: load collections")

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.name, c.document_id, c.mode, c.created_at,
		        d.title, d.source, d.content, d.created_at
		 FROM collections c
		 JOIN documents d ON d.id = c.document_id
		 ORDER BY c.created_at, c.name`)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	defer rows.Close()

	var recs []quiver.CollectionRecord
	for rows.Next() {
		var rec quiver.CollectionRecord
		var mode string
		if err := rows.Scan(&rec.Name, &rec.DocumentID, &mode, &rec.CreatedAt,
			&rec.Document.Title, &rec.Document.Source, &rec.Document.Content, &rec.Document.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		rec.Document.ID = rec.DocumentID
		if rec.Mode, err = quiver.ParseChunkMode(mode); err != nil {
			return nil, fmt.Errorf("collection %s: %w", rec.Name, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}

	for i := range recs {
		if recs[i].Chunks, err = s.loadChunks(ctx, recs[i].Name); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("sqlite: load collections ok", "count", len(recs), "duration", time.Since(start))
	return recs, nil
}

func (s *Store) loadChunks(ctx context.Context, collection string) ([]quiver.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, parent_id, content, chunk_index, embedding
		 FROM chunks
		 WHERE collection_name = ?
		 ORDER BY chunk_index`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()

	var chunks []quiver.Chunk
	for rows.Next() {
		var c quiver.Chunk
		var parentID, embJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &parentID, &c.Content, &c.ChunkIndex, &embJSON); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if parentID.Valid {
			c.ParentID = parentID.String
		}
		if embJSON.Valid {
			if c.Embedding, err = deserializeEmbedding(embJSON.String); err != nil {
				return nil, fmt.Errorf("chunk %s: decode embedding: %w", c.ID, err)
			}
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

// DeleteCollection removes a snapshot. The source document row is kept while
// another collection (e.g. the other chunk mode) still references it.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	start := time.Now()
	s.logger.Debug("sqlite: delete collection", "name", name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var docID sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT document_id FROM collections WHERE name = ?`, name).Scan(&docID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup collection: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection_name = ?`, name); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if docID.Valid {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM documents
			 WHERE id = ? AND NOT EXISTS (SELECT 1 FROM collections WHERE document_id = ?)`,
			docID.String, docID.String)
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: delete collection ok", "name", name, "duration", time.Since(start))
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// serializeEmbedding encodes a []float32 as a JSON array string.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

// deserializeEmbedding parses a JSON array string back to []float32.
func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
