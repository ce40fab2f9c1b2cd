package quiver

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestAnswer_WithContext(t *testing.T) {
	p := &scriptProvider{responses: []string{"the capital is Paris"}}

	got, err := Answer(context.Background(), p, "What is the capital of France?", []string{
		"France is a country in Europe.",
		"Its capital city is Paris.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "the capital is Paris" {
		t.Errorf("got %q, want the provider response", got)
	}

	req := p.lastRequest()
	if len(req.Messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(req.Messages))
	}
	if req.Messages[0].Role != "system" {
		t.Errorf("got first role %q, want system", req.Messages[0].Role)
	}
	if !strings.Contains(req.Messages[0].Content, "based ONLY on the provided context") {
		t.Error("system prompt should pin the answer to the context")
	}
	user := req.Messages[1].Content
	if !strings.Contains(user, "Context:") {
		t.Error("user message should carry the context preamble")
	}
	if !strings.Contains(user, "Its capital city is Paris.") {
		t.Error("user message should include the retrieved chunks")
	}
	if !strings.Contains(user, "Question: What is the capital of France?") {
		t.Error("user message should end with the question")
	}
}

func TestAnswer_EmptyContext(t *testing.T) {
	p := &scriptProvider{responses: []string{"hello"}}

	_, err := Answer(context.Background(), p, "hi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := p.lastRequest()
	// Without context the call degrades to plain chat: no system prompt, no
	// context preamble.
	if len(req.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(req.Messages))
	}
	if req.Messages[0].Role != "user" {
		t.Errorf("got role %q, want user", req.Messages[0].Role)
	}
	if strings.Contains(req.Messages[0].Content, "Context:") {
		t.Error("empty context should not produce a context preamble")
	}
}

func TestAnswer_ProviderFailure(t *testing.T) {
	p := &scriptProvider{err: errors.New("backend down")}
	_, err := Answer(context.Background(), p, "q", []string{"c"})
	var dep *ErrDependency
	if !errors.As(err, &dep) || dep.Stage != StageGenerate {
		t.Errorf("got %v, want generate dependency error", err)
	}
}
