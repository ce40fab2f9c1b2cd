package quiver

import (
	"context"
	"fmt"
	"strings"
)

const answerSystemPrompt = "You are a helpful AI assistant. Answer the question based ONLY on the provided context.\n" +
	"If the answer is not in the context, say 'I cannot answer this based on the provided documents.'"

// Answer packages the retrieved context and asks the generative model for an
// answer. Empty contextChunks is permitted — the prompt degrades to plain
// chat without the context preamble.
func Answer(ctx context.Context, provider Provider, query string, contextChunks []string) (string, error) {
	var user strings.Builder
	if len(contextChunks) > 0 {
		user.WriteString("Context:\n")
		user.WriteString(strings.Join(contextChunks, "\n\n"))
		user.WriteString("\n\n")
	}
	user.WriteString("Question: ")
	user.WriteString(query)

	msgs := []ChatMessage{UserMessage(user.String())}
	if len(contextChunks) > 0 {
		msgs = []ChatMessage{SystemMessage(answerSystemPrompt), UserMessage(user.String())}
	}

	resp, err := provider.Chat(ctx, ChatRequest{Messages: msgs})
	if err != nil {
		return "", wrapDependency(StageGenerate, fmt.Errorf("generate answer: %w", err))
	}
	return resp.Content, nil
}
