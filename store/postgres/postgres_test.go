package postgres

import "testing"

func TestEmbeddingRoundTrip(t *testing.T) {
	in := []float32{0.1, -2.5, 0, 1234.5678}
	s := serializeEmbedding(in)
	out, err := parseEmbedding(s)
	if err != nil {
		t.Fatalf("parseEmbedding: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d values, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("value %d: expected %v, got %v", i, in[i], out[i])
		}
	}
}

func TestParseEmbedding_Empty(t *testing.T) {
	out, err := parseEmbedding("[]")
	if err != nil {
		t.Fatalf("parseEmbedding: %v", err)
	}
	if out != nil {
		t.Errorf("expected nil, got %v", out)
	}
}

func TestParseEmbedding_Invalid(t *testing.T) {
	if _, err := parseEmbedding("[1,abc]"); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}
