package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Extractor converts raw uploaded content to plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ContentType identifies the MIME type of content for extraction.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypeHTML      ContentType = "text/html"
	TypeMarkdown  ContentType = "text/markdown"
	TypePDF       ContentType = "application/pdf"
)

// ContentTypeFromExtension maps file extensions to content types.
func ContentTypeFromExtension(ext string) ContentType {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "md", "markdown":
		return TypeMarkdown
	case "html", "htm":
		return TypeHTML
	case "pdf":
		return TypePDF
	default:
		return TypePlainText
	}
}

// DefaultExtractors returns the built-in extractor set keyed by content type.
func DefaultExtractors() map[ContentType]Extractor {
	return map[ContentType]Extractor{
		TypePlainText: PlainTextExtractor{},
		TypeHTML:      HTMLExtractor{},
		TypeMarkdown:  MarkdownExtractor{},
		TypePDF:       NewPDFExtractor(),
	}
}

// PlainTextExtractor normalizes content as-is.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(content []byte) (string, error) {
	return NormalizeText(string(content)), nil
}

// NormalizeText applies Unicode NFC normalization and collapses runs of
// blank lines and trailing whitespace. All extractors route their output
// through it so chunking sees uniform text.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)

	var result strings.Builder
	result.Grow(len(text))
	empty := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			if result.Len() > 0 {
				empty++
			}
			continue
		}
		if empty > 0 {
			// Any run of blank lines collapses to one paragraph break.
			result.WriteString("\n\n")
		} else if result.Len() > 0 {
			result.WriteByte('\n')
		}
		result.WriteString(line)
		empty = 0
	}
	return strings.TrimSpace(result.String())
}
