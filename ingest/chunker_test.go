package ingest

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitFlat_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		param   string
	}{
		{name: "zero size", size: 0, overlap: 0, param: "chunk_size"},
		{name: "negative size", size: -1, overlap: 0, param: "chunk_size"},
		{name: "negative overlap", size: 10, overlap: -1, param: "chunk_overlap"},
		{name: "overlap equals size", size: 10, overlap: 10, param: "chunk_overlap"},
		{name: "overlap exceeds size", size: 10, overlap: 20, param: "chunk_overlap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitFlat("some text", tt.size, tt.overlap)
			var pe *ParamError
			if !errors.As(err, &pe) {
				t.Fatalf("got %v, want ParamError", err)
			}
			if pe.Param != tt.param {
				t.Errorf("got param %q, want %q", pe.Param, tt.param)
			}
		})
	}
}

func TestSplitFlat_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t  \n"} {
		chunks, err := SplitFlat(text, 100, 20)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("input %q: got %d chunks, want 0", text, len(chunks))
		}
	}
}

func TestSplitFlat_ShortTextSingleChunk(t *testing.T) {
	text := "short text"
	chunks, err := SplitFlat(text, 100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("got %v, want the whole text as one chunk", chunks)
	}
}

func TestSplitFlat_StitchReconstructs(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	for _, tc := range []struct{ size, overlap int }{
		{size: 100, overlap: 20},
		{size: 64, overlap: 0},
		{size: 150, overlap: 50},
	} {
		chunks, err := SplitFlat(text, tc.size, tc.overlap)
		if err != nil {
			t.Fatalf("size %d overlap %d: %v", tc.size, tc.overlap, err)
		}
		if len(chunks) < 2 {
			t.Fatalf("size %d: got %d chunks, want several", tc.size, len(chunks))
		}
		if got := Stitch(chunks, tc.overlap); got != text {
			t.Errorf("size %d overlap %d: stitched text differs from input", tc.size, tc.overlap)
		}
	}
}

func TestSplitFlat_ChunksWithinSize(t *testing.T) {
	text := strings.Repeat("word after word keeps the windows rolling forward. ", 30)
	chunks, err := SplitFlat(text, 80, 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if len(c) > 80 {
			t.Errorf("chunk %d has %d bytes, exceeds window size 80", i, len(c))
		}
		if len(c) == 0 {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestSplitFlat_PrefersParagraphBreak(t *testing.T) {
	first := strings.Repeat("a", 60)
	second := strings.Repeat("b", 60)
	text := first + "\n\n" + second

	chunks, err := SplitFlat(text, 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Errorf("first chunk should end at the paragraph break, got %q", chunks[0])
	}
}

func TestSplitFlat_PrefersSentenceEnd(t *testing.T) {
	text := "This is the opening sentence of the passage. This second sentence continues it without any paragraph break at all whatsoever."
	chunks, err := SplitFlat(text, 80, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(strings.TrimRight(chunks[0], " "), "passage.") {
		t.Errorf("first chunk should end at the sentence boundary, got %q", chunks[0])
	}
}

func TestSplitFlat_AbbreviationNotSentenceEnd(t *testing.T) {
	// The window ends just after "Dr. Sm"; the abbreviation dot must be
	// skipped so the cut lands at the real sentence end before it.
	text := "The first sentence ends here. Later we refer to Dr. Smith and continue writing more and more words afterwards."
	chunks, err := SplitFlat(text, 54, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := strings.TrimRight(chunks[0], " ")
	if strings.HasSuffix(first, "Dr.") {
		t.Errorf("chunk breaks after an abbreviation: %q", chunks[0])
	}
	if !strings.HasSuffix(first, "here.") {
		t.Errorf("chunk should end at the real sentence boundary, got %q", chunks[0])
	}
}

func TestSplitFlat_CJKRuneSafety(t *testing.T) {
	text := strings.Repeat("漢字かな混じり文の長さを確認する。", 30)
	chunks, err := SplitFlat(text, 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d splits a rune", i)
		}
	}
	if got := Stitch(chunks, 0); got != text {
		t.Error("stitched CJK text differs from input")
	}
}

func TestSplitFlat_MultibyteSpaceRuneSafety(t *testing.T) {
	// Words separated only by multi-byte space runes: every cut comes from
	// the word-gap branch and must land after the whole space rune.
	for _, sep := range []string{" ", "　"} {
		text := strings.Repeat("abcd"+sep, 40)
		chunks, err := SplitFlat(text, 20, 4)
		if err != nil {
			t.Fatalf("separator %U: %v", []rune(sep)[0], err)
		}
		for i, c := range chunks {
			if !utf8.ValidString(c) {
				t.Errorf("separator %U: chunk %d %q splits the space rune", []rune(sep)[0], i, c)
			}
		}
		if got := Stitch(chunks, 4); got != text {
			t.Errorf("separator %U: stitched text differs from input", []rune(sep)[0])
		}
	}
}

func TestSplitFlat_MakesProgressWithoutBoundaries(t *testing.T) {
	// No whitespace anywhere: every window is a hard cut, and the loop must
	// still terminate with full coverage.
	text := strings.Repeat("x", 500)
	chunks, err := SplitFlat(text, 50, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Stitch(chunks, 10); got != text {
		t.Error("stitched text differs from input")
	}
}

func TestSplitFlat_TinyWindows(t *testing.T) {
	text := "A. B. C. D."
	chunks, err := SplitFlat(text, 4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want at least 3: %v", len(chunks), chunks)
	}
	for i, c := range chunks {
		if len(c) > 4 {
			t.Errorf("chunk %d %q exceeds 4 bytes", i, c)
		}
	}
	if got := Stitch(chunks, 1); got != text {
		t.Errorf("stitched %q, want %q", got, text)
	}
}

func TestSplitParentChild(t *testing.T) {
	text := strings.Repeat("Sentences accumulate into paragraphs over time. ", 30)
	splits, err := SplitParentChild(text, 300, 30, 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(splits) < 2 {
		t.Fatalf("got %d parents, want several", len(splits))
	}
	for i, ps := range splits {
		if len(ps.Children) == 0 {
			t.Errorf("parent %d has no children", i)
		}
		for j, child := range ps.Children {
			if !strings.Contains(ps.Parent, child) {
				t.Errorf("parent %d child %d is not a substring of its parent", i, j)
			}
		}
		if Stitch(ps.Children, 10) != ps.Parent {
			t.Errorf("parent %d: stitched children differ from parent", i)
		}
	}
}

func TestSplitParentChild_ChildLargerThanParent(t *testing.T) {
	_, err := SplitParentChild("text", 100, 10, 200, 10)
	var pe *ParamError
	if !errors.As(err, &pe) || pe.Param != "child_size" {
		t.Errorf("got %v, want child_size ParamError", err)
	}
}

func TestSplitParentChild_PropagatesFlatValidation(t *testing.T) {
	_, err := SplitParentChild("text", 0, 0, 0, 0)
	var pe *ParamError
	if !errors.As(err, &pe) {
		t.Errorf("got %v, want ParamError", err)
	}
}

func TestStitch(t *testing.T) {
	if got := Stitch(nil, 5); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if got := Stitch([]string{"hello"}, 3); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	if got := Stitch([]string{"abcde", "cdefg"}, 2); got != "abcdefg" {
		t.Errorf("got %q, want %q", got, "abcdefg")
	}
}
