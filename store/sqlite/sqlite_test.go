package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nevindra/quiver"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(name, docID string, mode quiver.ChunkMode) quiver.CollectionRecord {
	doc := quiver.Document{
		ID:        docID,
		Title:     "Notes",
		Source:    "notes.txt",
		Content:   "alpha beta gamma",
		CreatedAt: 1000,
	}
	return quiver.CollectionRecord{
		Name:       name,
		DocumentID: docID,
		Mode:       mode,
		CreatedAt:  1000,
		Document:   doc,
		Chunks: []quiver.Chunk{
			{ID: "c1", DocumentID: docID, Content: "alpha beta", ChunkIndex: 0, Embedding: []float32{0.6, 0.8}},
			{ID: "c2", DocumentID: docID, Content: "beta gamma", ChunkIndex: 1, Embedding: []float32{0.8, 0.6}},
		},
	}
}

func TestInitIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "init.db"))
	defer s.Close()
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestSaveAndLoadCollections(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := testRecord("rag_abc", "doc-1", quiver.ModeFlat)
	if err := s.SaveCollection(ctx, rec); err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}

	got, err := s.LoadCollections(ctx)
	if err != nil {
		t.Fatalf("LoadCollections: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(got))
	}

	g := got[0]
	if g.Name != "rag_abc" || g.DocumentID != "doc-1" || g.Mode != quiver.ModeFlat {
		t.Errorf("unexpected record: %+v", g)
	}
	if g.Document.Content != "alpha beta gamma" {
		t.Errorf("unexpected document content: %q", g.Document.Content)
	}
	if len(g.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(g.Chunks))
	}
	if g.Chunks[0].ID != "c1" || g.Chunks[1].ID != "c2" {
		t.Errorf("chunks out of order: %+v", g.Chunks)
	}
	if len(g.Chunks[0].Embedding) != 2 || g.Chunks[0].Embedding[0] != 0.6 {
		t.Errorf("embedding not restored: %v", g.Chunks[0].Embedding)
	}
}

func TestSaveCollection_Replace(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := testRecord("rag_abc", "doc-1", quiver.ModeFlat)
	if err := s.SaveCollection(ctx, rec); err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}

	// Rewrite with a single different chunk; old chunks must not survive.
	rec.Chunks = []quiver.Chunk{
		{ID: "c9", DocumentID: "doc-1", Content: "gamma", ChunkIndex: 0, Embedding: []float32{1, 0}},
	}
	if err := s.SaveCollection(ctx, rec); err != nil {
		t.Fatalf("SaveCollection replace: %v", err)
	}

	got, err := s.LoadCollections(ctx)
	if err != nil {
		t.Fatalf("LoadCollections: %v", err)
	}
	if len(got) != 1 || len(got[0].Chunks) != 1 || got[0].Chunks[0].ID != "c9" {
		t.Errorf("replace did not take: %+v", got)
	}
}

func TestSaveCollection_ParentChild(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := testRecord("pc_abc", "doc-1", quiver.ModeParentChild)
	rec.Chunks = []quiver.Chunk{
		{ID: "p1", DocumentID: "doc-1", Content: "alpha beta gamma", ChunkIndex: 0},
		{ID: "c1", DocumentID: "doc-1", ParentID: "p1", Content: "alpha", ChunkIndex: 1, Embedding: []float32{1, 0}},
		{ID: "c2", DocumentID: "doc-1", ParentID: "p1", Content: "beta", ChunkIndex: 2, Embedding: []float32{0, 1}},
	}
	if err := s.SaveCollection(ctx, rec); err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}

	got, err := s.LoadCollections(ctx)
	if err != nil {
		t.Fatalf("LoadCollections: %v", err)
	}
	chunks := got[0].Chunks
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].ParentID != "" || len(chunks[0].Embedding) != 0 {
		t.Errorf("parent chunk altered on reload: %+v", chunks[0])
	}
	if chunks[1].ParentID != "p1" || chunks[2].ParentID != "p1" {
		t.Errorf("child parent ids lost: %+v", chunks[1:])
	}
}

func TestDeleteCollection(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Two collections sharing one document (flat and parent-child modes).
	if err := s.SaveCollection(ctx, testRecord("rag_abc", "doc-1", quiver.ModeFlat)); err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}
	if err := s.SaveCollection(ctx, testRecord("pc_abc", "doc-1", quiver.ModeParentChild)); err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}

	if err := s.DeleteCollection(ctx, "rag_abc"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}

	got, err := s.LoadCollections(ctx)
	if err != nil {
		t.Fatalf("LoadCollections: %v", err)
	}
	if len(got) != 1 || got[0].Name != "pc_abc" {
		t.Fatalf("expected only pc_abc to remain, got %+v", got)
	}
	// Shared document must survive while pc_abc references it.
	if got[0].Document.Content == "" {
		t.Error("shared document deleted with first collection")
	}

	if err := s.DeleteCollection(ctx, "pc_abc"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	got, err = s.LoadCollections(ctx)
	if err != nil {
		t.Fatalf("LoadCollections: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty store, got %+v", got)
	}
}

func TestDeleteCollection_UnknownIsNoop(t *testing.T) {
	s := testStore(t)
	if err := s.DeleteCollection(context.Background(), "rag_nope"); err != nil {
		t.Fatalf("DeleteCollection unknown: %v", err)
	}
}
