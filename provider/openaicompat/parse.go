package openaicompat

import "github.com/nevindra/quiver"

// ParseResponse converts an OpenAI-format ChatResponse to a quiver
// ChatResponse. It extracts content and usage from choices[0].
func ParseResponse(resp ChatResponse) (quiver.ChatResponse, error) {
	var out quiver.ChatResponse

	if len(resp.Choices) == 0 {
		return out, nil
	}

	if msg := resp.Choices[0].Message; msg != nil {
		out.Content = msg.Content
	}

	if resp.Usage != nil {
		out.Usage = quiver.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}

	return out, nil
}
