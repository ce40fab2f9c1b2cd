// Package ingest provides document text extraction and chunk windowing for
// the retrieval engine. Windowing is character-based: chunks are exact
// substrings of the input, so stitching consecutive chunks with their
// overlap removed reconstructs the original text byte-for-byte.
package ingest

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParamError reports an invalid chunking parameter.
type ParamError struct {
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

// SplitFlat splits text into ordered, overlapping windows of at most size
// characters, with overlap characters shared between consecutive chunks.
// Window ends prefer natural boundaries — paragraph break, then sentence
// end, then word gap — falling back to a hard cut when none fits. Every
// chunk is an exact substring of text.
//
// Empty or all-whitespace text yields an empty chunk set. Text shorter than
// one window yields a single chunk equal to the whole text.
func SplitFlat(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, &ParamError{Param: "chunk_size", Reason: "must be positive"}
	}
	if overlap < 0 || overlap >= size {
		return nil, &ParamError{Param: "chunk_overlap", Reason: fmt.Sprintf("must satisfy 0 <= overlap < chunk_size, got %d", overlap)}
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if len(text) <= size {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		cut := splitPoint(text, start, end, overlap)
		chunks = append(chunks, text[start:cut])
		start = cut - overlap
	}
	return chunks, nil
}

// ParentSplit is one parent window and the child windows subdividing it.
// Every child is a substring of the parent.
type ParentSplit struct {
	Parent   string
	Children []string
}

// SplitParentChild windows text at parent granularity, then windows each
// parent's text independently at child granularity. Parent windows must be
// able to contain at least one child window.
func SplitParentChild(text string, parentSize, parentOverlap, childSize, childOverlap int) ([]ParentSplit, error) {
	if childSize > parentSize {
		return nil, &ParamError{Param: "child_size", Reason: fmt.Sprintf("child window %d exceeds parent window %d", childSize, parentSize)}
	}

	parents, err := SplitFlat(text, parentSize, parentOverlap)
	if err != nil {
		return nil, err
	}

	splits := make([]ParentSplit, 0, len(parents))
	for _, p := range parents {
		children, err := SplitFlat(p, childSize, childOverlap)
		if err != nil {
			return nil, err
		}
		splits = append(splits, ParentSplit{Parent: p, Children: children})
	}
	return splits, nil
}

// splitPoint picks the cut position for the window text[start:end].
// Candidates, in preference order: the last paragraph break, the last
// sentence end, the last word gap. A candidate must leave more than overlap
// bytes in the chunk so the next window makes progress, and must not land in
// the window's first half (avoids degenerate slivers). Fallback is a hard
// cut at end, nudged back to a rune start.
func splitPoint(text string, start, end, overlap int) int {
	floor := start + overlap + 1
	if half := start + (end-start)/2; half > floor {
		floor = half
	}
	window := text[floor:end]

	// Paragraph break: cut after the blank line.
	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		return floor + i + 2
	}

	// Sentence end: cut after the whitespace that follows the terminator.
	if i := lastSentenceEnd(window); i >= 0 {
		return floor + i
	}

	// Word gap: cut after the space rune, which may be multi-byte
	// (U+00A0, U+3000).
	if i := strings.LastIndexFunc(window, unicode.IsSpace); i > 0 {
		_, size := utf8.DecodeRuneInString(window[i:])
		return floor + i + size
	}

	// Hard cut: back up to a rune boundary.
	cut := end
	for cut > floor && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

// lastSentenceEnd returns the position just after the last sentence
// terminator in window, or -1. ASCII terminators (.!?) must be followed by
// whitespace and must not be part of an abbreviation or a decimal number;
// CJK terminators (。！？) always end a sentence.
func lastSentenceEnd(window string) int {
	for i := len(window); i > 0; {
		r, size := utf8.DecodeLastRuneInString(window[:i])
		i -= size

		if r == '。' || r == '！' || r == '？' {
			return i + size
		}
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+size >= len(window) {
			continue
		}
		next, nextSize := utf8.DecodeRuneInString(window[i+size:])
		if !unicode.IsSpace(next) {
			continue
		}
		if r == '.' && (isAbbreviation(window, i) || isDecimalDot(window, i)) {
			continue
		}
		return i + size + nextSize
	}
	return -1
}

// abbreviations that should not be treated as sentence boundaries.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true,
	"fig": true, "no": true, "vol": true,
}

// isAbbreviation checks if the text ending at dotPos (the '.') is a common
// abbreviation.
func isAbbreviation(text string, dotPos int) bool {
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(text[start:dotPos])
	return abbreviations[word]
}

// isDecimalDot checks if the dot at dotPos is part of a number (e.g. 3.14).
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	prev := text[dotPos-1]
	next := text[dotPos+1]
	return prev >= '0' && prev <= '9' && next >= '0' && next <= '9'
}

// Stitch reverses SplitFlat: it concatenates chunks dropping the leading
// overlap bytes of every chunk after the first.
func Stitch(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		if len(c) > overlap {
			b.WriteString(c[overlap:])
		}
	}
	return b.String()
}
