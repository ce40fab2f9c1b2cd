package ingest

import (
	"strings"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: "  \n \t \n", want: ""},
		{name: "trailing spaces stripped", in: "line one   \nline two\t", want: "line one\nline two"},
		{
			name: "blank runs collapse to one paragraph break",
			in:   "para one\n\n\n\n\npara two",
			want: "para one\n\npara two",
		},
		{
			name: "leading and trailing blanks dropped",
			in:   "\n\n\nbody\n\n\n",
			want: "body",
		},
		{
			name: "nfc normalization",
			in:   "cafe\u0301", // 'e' + combining acute
			want: "café",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentTypeFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want ContentType
	}{
		{ext: ".md", want: TypeMarkdown},
		{ext: "markdown", want: TypeMarkdown},
		{ext: ".HTML", want: TypeHTML},
		{ext: "htm", want: TypeHTML},
		{ext: ".pdf", want: TypePDF},
		{ext: ".txt", want: TypePlainText},
		{ext: "", want: TypePlainText},
		{ext: ".xyz", want: TypePlainText},
	}
	for _, tt := range tests {
		if got := ContentTypeFromExtension(tt.ext); got != tt.want {
			t.Errorf("ContentTypeFromExtension(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestDefaultExtractors(t *testing.T) {
	extractors := DefaultExtractors()
	for _, ct := range []ContentType{TypePlainText, TypeHTML, TypeMarkdown, TypePDF} {
		if extractors[ct] == nil {
			t.Errorf("no extractor registered for %s", ct)
		}
	}
}

func TestPlainTextExtractor(t *testing.T) {
	got, err := PlainTextExtractor{}.Extract([]byte("hello   \n\n\n\nworld"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello\n\nworld" {
		t.Errorf("got %q, want %q", got, "hello\n\nworld")
	}
}

func TestHTMLExtractor(t *testing.T) {
	html := `<html><head>
<title>Page</title>
<style>body { color: red; }</style>
<script>alert("nope");</script>
</head><body>
<h1>Heading</h1>
<p>First paragraph of visible text.</p>
<p>Second paragraph of visible text.</p>
</body></html>`

	got, err := HTMLExtractor{}.Extract([]byte(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "First paragraph of visible text.") {
		t.Errorf("output missing body text: %q", got)
	}
	if strings.Contains(got, "<p>") || strings.Contains(got, "<h1>") {
		t.Errorf("output contains markup: %q", got)
	}
	if strings.Contains(got, "alert") || strings.Contains(got, "color: red") {
		t.Errorf("output contains script or style content: %q", got)
	}
}

func TestStripTags(t *testing.T) {
	in := `<div>one</div><script>hidden()</script><p>two</p><br>three`
	got := stripTags(in)
	for _, want := range []string{"one", "two", "three"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "hidden") {
		t.Errorf("output %q contains script content", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("output %q contains markup", got)
	}
}

func TestMarkdownExtractor(t *testing.T) {
	md := "# Title\n\n" +
		"Some **bold** text with a [link](https://example.com/page).\n\n" +
		"- item one\n- item two\n\n" +
		"```\nfunc main() {}\n```\n\n" +
		"![alt text](https://example.com/img.png)\n"

	got, err := MarkdownExtractor{}.Extract([]byte(md))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Title", "bold", "link", "item one", "func main() {}"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	for _, drop := range []string{"**", "https://example.com", "alt text", "# Title", "```"} {
		if strings.Contains(got, drop) {
			t.Errorf("output should drop %q:\n%s", drop, got)
		}
	}
}

func TestMarkdownExtractor_ParagraphBreaksSurvive(t *testing.T) {
	md := "First paragraph.\n\nSecond paragraph."
	got, err := MarkdownExtractor{}.Extract([]byte(md))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("got %q, want paragraph break preserved", got)
	}
}
