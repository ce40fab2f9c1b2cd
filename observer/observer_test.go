package observer

import (
	"context"
	"errors"
	"testing"

	"github.com/nevindra/quiver"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockProvider for observer tests.
type mockProvider struct {
	name     string
	chatResp quiver.ChatResponse
	chatErr  error
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) Chat(_ context.Context, _ quiver.ChatRequest) (quiver.ChatResponse, error) {
	return m.chatResp, m.chatErr
}

// mockEmbedding for observer tests.
type mockEmbedding struct {
	name string
	dims int
	vecs [][]float32
	err  error
}

func (m *mockEmbedding) Name() string    { return m.name }
func (m *mockEmbedding) Dimensions() int { return m.dims }
func (m *mockEmbedding) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return m.vecs, m.err
}

// mockScorer for observer tests.
type mockScorer struct {
	name  string
	score float32
	err   error
}

func (m *mockScorer) Name() string { return m.name }
func (m *mockScorer) Score(_ context.Context, _, _ string) (float32, error) {
	return m.score, m.err
}

// testInstruments creates a no-op Instruments using the global OTEL providers
// (which are no-ops by default). This is safe for testing delegation behavior
// without any real OTEL backend.
func testInstruments(t *testing.T) *Instruments {
	t.Helper()
	inst, err := newInstruments(nil)
	if err != nil {
		t.Fatalf("newInstruments: %v", err)
	}
	return inst
}

// ---------------------------------------------------------------------------
// ObservedProvider tests
// ---------------------------------------------------------------------------

func TestObservedProviderName(t *testing.T) {
	inner := &mockProvider{name: "test-provider"}
	op := WrapProvider(inner, "test-model", testInstruments(t))

	got := op.Name()
	if got != "test-provider" {
		t.Errorf("Name() = %q, want %q", got, "test-provider")
	}
}

func TestObservedProviderChat(t *testing.T) {
	want := quiver.ChatResponse{
		Content: "hello from LLM",
		Usage:   quiver.Usage{InputTokens: 10, OutputTokens: 5},
	}
	inner := &mockProvider{name: "p", chatResp: want}
	op := WrapProvider(inner, "m", testInstruments(t))

	got, err := op.Chat(context.Background(), quiver.ChatRequest{})
	if err != nil {
		t.Fatalf("Chat returned unexpected error: %v", err)
	}
	if got.Content != want.Content {
		t.Errorf("Content = %q, want %q", got.Content, want.Content)
	}
	if got.Usage != want.Usage {
		t.Errorf("Usage = %+v, want %+v", got.Usage, want.Usage)
	}
}

func TestObservedProviderChatError(t *testing.T) {
	wantErr := errors.New("provider unavailable")
	inner := &mockProvider{name: "p", chatErr: wantErr}
	op := WrapProvider(inner, "m", testInstruments(t))

	_, err := op.Chat(context.Background(), quiver.ChatRequest{})
	if !errors.Is(err, wantErr) {
		t.Errorf("Chat error = %v, want %v", err, wantErr)
	}
}

// ---------------------------------------------------------------------------
// ObservedEmbedding tests
// ---------------------------------------------------------------------------

func TestObservedEmbedding(t *testing.T) {
	want := [][]float32{{1, 0}, {0, 1}}
	inner := &mockEmbedding{name: "e", dims: 2, vecs: want}
	oe := WrapEmbedding(inner, "embed-model", testInstruments(t))

	if oe.Name() != "e" {
		t.Errorf("Name() = %q, want %q", oe.Name(), "e")
	}
	if oe.Dimensions() != 2 {
		t.Errorf("Dimensions() = %d, want 2", oe.Dimensions())
	}

	got, err := oe.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed returned unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(got))
	}
}

func TestObservedEmbeddingError(t *testing.T) {
	wantErr := errors.New("embedding down")
	inner := &mockEmbedding{name: "e", dims: 2, err: wantErr}
	oe := WrapEmbedding(inner, "m", testInstruments(t))

	_, err := oe.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, wantErr) {
		t.Errorf("Embed error = %v, want %v", err, wantErr)
	}
}

// ---------------------------------------------------------------------------
// ObservedScorer tests
// ---------------------------------------------------------------------------

func TestObservedScorer(t *testing.T) {
	inner := &mockScorer{name: "s", score: 0.42}
	os := WrapScorer(inner, "rerank-model", testInstruments(t))

	if os.Name() != "s" {
		t.Errorf("Name() = %q, want %q", os.Name(), "s")
	}

	got, err := os.Score(context.Background(), "q", "c")
	if err != nil {
		t.Fatalf("Score returned unexpected error: %v", err)
	}
	if got != 0.42 {
		t.Errorf("Score = %v, want 0.42", got)
	}
}

func TestObservedScorerError(t *testing.T) {
	wantErr := errors.New("scorer down")
	inner := &mockScorer{name: "s", err: wantErr}
	os := WrapScorer(inner, "m", testInstruments(t))

	_, err := os.Score(context.Background(), "q", "c")
	if !errors.Is(err, wantErr) {
		t.Errorf("Score error = %v, want %v", err, wantErr)
	}
}
