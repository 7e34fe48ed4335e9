package ingest

import (
	"io"
	"strings"
	"testing"
	"unicode/utf8"
)

func htmlDoc(body string) *FetchedDocument {
	return &FetchedDocument{
		URL:         "https://example.org/page",
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        io.NopCloser(strings.NewReader(body)),
	}
}

func TestCleanDocument_StripsMarkupAndScripts(t *testing.T) {
	doc := htmlDoc(`<html><head>
		<title>ignored</title>
		<style>body { color: red }</style>
	</head><body>
		<script>trackVisit("abc");</script>
		<h1>Artist  Relief Fund</h1>
		<noscript>enable js</noscript>
		<p>Grants up to <b>$5,000</b> for Texas artists.</p>
		<iframe src="https://ads.example.com"></iframe>
	</body></html>`)

	got, err := CleanDocument(doc)
	if err != nil {
		t.Fatalf("CleanDocument: %v", err)
	}

	want := "Artist Relief Fund Grants up to $5,000 for Texas artists."
	if got != want {
		t.Errorf("cleaned text = %q, want %q", got, want)
	}
}

func TestCleanDocument_CollapsesWhitespace(t *testing.T) {
	doc := htmlDoc("<html><body><p>one</p>\n\n\t<p>two\n   three</p></body></html>")

	got, err := CleanDocument(doc)
	if err != nil {
		t.Fatalf("CleanDocument: %v", err)
	}
	if got != "one two three" {
		t.Errorf("cleaned text = %q, want %q", got, "one two three")
	}
}

func TestCleanDocument_TruncatesLongPages(t *testing.T) {
	doc := htmlDoc("<html><body>" + strings.Repeat("word ", 20000) + "</body></html>")

	got, err := CleanDocument(doc)
	if err != nil {
		t.Fatalf("CleanDocument: %v", err)
	}
	if len(got) > maxCleanedChars {
		t.Errorf("cleaned length = %d, want <= %d", len(got), maxCleanedChars)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation produced invalid UTF-8")
	}
}

func TestCleanDocument_ClosesBody(t *testing.T) {
	body := &closeTracker{Reader: strings.NewReader("<html><body>hi</body></html>")}
	doc := &FetchedDocument{ContentType: "text/html", Body: body}

	if _, err := CleanDocument(doc); err != nil {
		t.Fatalf("CleanDocument: %v", err)
	}
	if !body.closed {
		t.Error("body was not closed")
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestTruncateRunesafe(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "h"},     // é is two bytes; never split it
		{"programmé", 9, "programm"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := truncateRunesafe(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateRunesafe(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
