package ingest

import (
	"regexp"
	"strings"
)

var headingRe = regexp.MustCompile(`(?m)^#{1,6}\s`)

// SplitMarkdown splits markdown text at heading boundaries, keeping heading
// markers with their section. Small sections merge together up to size;
// sections larger than size fall back to SplitFlat windowing. Useful as the
// parent-level splitter for markdown documents, where heading sections make
// better generation context than blind windows.
func SplitMarkdown(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, &ParamError{Param: "chunk_size", Reason: "must be positive"}
	}
	if overlap < 0 || overlap >= size {
		return nil, &ParamError{Param: "chunk_overlap", Reason: "must satisfy 0 <= overlap < chunk_size"}
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) <= size {
		return []string{trimmed}, nil
	}

	sections := splitSections(trimmed)

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, sec := range sections {
		if len(sec) > size {
			flush()
			windows, err := SplitFlat(sec, size, overlap)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, windows...)
			continue
		}
		if current.Len() > 0 && current.Len()+1+len(sec) > size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(sec)
	}
	flush()

	return chunks, nil
}

// splitSections cuts markdown text at heading lines. Content before the
// first heading forms its own section.
func splitSections(text string) []string {
	locs := headingRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var sections []string
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			if sec := strings.TrimSpace(text[prev:loc[0]]); sec != "" {
				sections = append(sections, sec)
			}
		}
		prev = loc[0]
	}
	if sec := strings.TrimSpace(text[prev:]); sec != "" {
		sections = append(sections, sec)
	}
	return sections
}
