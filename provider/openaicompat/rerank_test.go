package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nevindra/quiver"
)

func TestRerankScorer_Score(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("expected path /rerank, got %s", r.URL.Path)
		}

		var req RerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "what is go" {
			t.Errorf("unexpected query: %q", req.Query)
		}
		if len(req.Texts) != 1 {
			t.Fatalf("expected 1 text, got %d", len(req.Texts))
		}

		json.NewEncoder(w).Encode([]RerankResult{{Index: 0, Score: 0.87}})
	}))
	defer srv.Close()

	s := NewRerankScorer("k", "bge-reranker", srv.URL)

	score, err := s.Score(context.Background(), "what is go", "Go is a programming language.")
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if score != 0.87 {
		t.Errorf("expected score 0.87, got %v", score)
	}
}

func TestRerankScorer_Score_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]RerankResult{})
	}))
	defer srv.Close()

	s := NewRerankScorer("k", "m", srv.URL)
	if _, err := s.Score(context.Background(), "q", "c"); err == nil {
		t.Fatal("expected error for empty results, got nil")
	}
}

func TestRerankScorer_Score_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	s := NewRerankScorer("k", "m", srv.URL)
	_, err := s.Score(context.Background(), "q", "c")

	var httpErr *quiver.ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *quiver.ErrHTTP, got %T: %v", err, err)
	}
}
