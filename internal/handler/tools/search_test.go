package tools

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTitleOfTruncatesOnRuneBoundary(t *testing.T) {
	// a 3-byte rune sits astride the 77-byte cut
	line := strings.Repeat("a", 76) + "世界" + strings.Repeat("b", 10)
	got := titleOf(line)

	if !utf8.ValidString(got) {
		t.Fatalf("titleOf produced invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("titleOf did not mark truncation: %q", got)
	}
	if len(got) > 80 {
		t.Fatalf("titleOf returned %d bytes, want <= 80", len(got))
	}
}

func TestSnippetOfTruncatesOnRuneBoundary(t *testing.T) {
	text := strings.Repeat("a", 196) + "\U0001F30D" + strings.Repeat("b", 50)
	got := snippetOf(text)

	if !utf8.ValidString(got) {
		t.Fatalf("snippetOf produced invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("snippetOf did not mark truncation: %q", got)
	}

	short := "世界 hello"
	if snippetOf(short) != short {
		t.Fatalf("snippetOf altered a short string: %q", snippetOf(short))
	}
}
