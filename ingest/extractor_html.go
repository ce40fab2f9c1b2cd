package ingest

import (
	"strings"

	readability "github.com/go-shiori/go-readability"
)

var _ Extractor = (*HTMLExtractor)(nil)

// HTMLExtractor extracts readable article text from HTML using readability
// heuristics, falling back to tag stripping when the page has no extractable
// article body.
type HTMLExtractor struct{}

// Extract returns the readable text content of an HTML document.
func (HTMLExtractor) Extract(content []byte) (string, error) {
	article, err := readability.FromReader(strings.NewReader(string(content)), nil)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return NormalizeText(article.TextContent), nil
	}
	return NormalizeText(stripTags(string(content))), nil
}

// stripTags removes markup, script, and style content from HTML, keeping
// text with block-level tags mapped to line breaks. A crude last resort for
// pages readability cannot parse.
func stripTags(content string) string {
	var result strings.Builder
	result.Grow(len(content))

	inTag, inScript, inStyle := false, false, false
	var tag strings.Builder

	for i := 0; i < len(content); i++ {
		ch := content[i]
		if ch == '<' {
			inTag = true
			tag.Reset()
			continue
		}
		if inTag {
			if ch == '>' {
				inTag = false
				name := strings.ToLower(strings.TrimSpace(tag.String()))
				if f := strings.Fields(name); len(f) > 0 {
					name = f[0]
				}
				switch name {
				case "script":
					inScript = true
				case "/script":
					inScript = false
				case "style":
					inStyle = true
				case "/style":
					inStyle = false
				case "p", "div", "br", "br/", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
					result.WriteByte('\n')
				}
				continue
			}
			tag.WriteByte(ch)
			continue
		}
		if inScript || inStyle {
			continue
		}
		result.WriteByte(ch)
	}
	return result.String()
}
