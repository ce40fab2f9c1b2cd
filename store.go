package quiver

import "context"

// CollectionRecord is the persisted form of a collection: its identity plus
// the source document and every chunk with its embedding. Stored embeddings
// are the normalized vectors, so reloading never re-embeds.
type CollectionRecord struct {
	Name       string
	DocumentID string
	Mode       ChunkMode
	CreatedAt  int64
	Document   Document
	Chunks     []Chunk
}

// IndexStore persists collection snapshots. The engine treats it as a single
// index store: collections are written whole after a successful build,
// reloaded whole at startup, and deleted whole on clear. There is no partial
// update path.
type IndexStore interface {
	// SaveCollection writes a collection snapshot, replacing any previous
	// snapshot with the same name.
	SaveCollection(ctx context.Context, rec CollectionRecord) error

	// LoadCollections reads back every stored snapshot.
	LoadCollections(ctx context.Context) ([]CollectionRecord, error)

	// DeleteCollection removes a snapshot. Unknown names are a no-op.
	DeleteCollection(ctx context.Context, name string) error

	// Lifecycle.
	Init(ctx context.Context) error
	Close() error
}
