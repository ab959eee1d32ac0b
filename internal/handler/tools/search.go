package tools

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	docmodel "github.com/quiverlab/toolgate/internal/model/document"
)

const maxSearchResults = 3

// SearchResult is the stub returned to the caller; the full text lives in
// the document cache under the id until it expires.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url,omitempty"`
}

func searchPrompt(query string) string {
	return "Answer the following search query with up to three distinct, " +
		"self-contained sections separated by blank lines. Query: " + query
}

// synthesizeResults splits the backend response into up to three stubs and
// caches each stub's full text. At least one result always comes back; if
// the response yields nothing usable, the raw query is wrapped instead.
func (h *Handler) synthesizeResults(query, response string) []SearchResult {
	now := time.Now().UTC()

	var sections []string
	for _, para := range strings.Split(response, "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			sections = append(sections, para)
		}
		if len(sections) == maxSearchResults {
			break
		}
	}
	if len(sections) == 0 {
		sections = []string{"No synthesized answer was produced for: " + query}
	}

	results := make([]SearchResult, 0, len(sections))
	for i, text := range sections {
		id := newResultID(now, i)
		h.cache.Put(id, docmodel.Document{
			ID:       id,
			Title:    titleOf(text),
			Text:     text,
			Metadata: docmodel.Metadata{Timestamp: now, Source: "search:" + query},
		})
		results = append(results, SearchResult{
			ID:      id,
			Title:   titleOf(text),
			Snippet: snippetOf(text),
		})
	}
	return results
}

// newResultID is timestamp+index plus a short random suffix, so two
// searches in the same millisecond cannot collide.
func newResultID(now time.Time, idx int) string {
	return fmt.Sprintf("r%d-%d-%s", now.UnixMilli(), idx, uuid.NewString()[:8])
}

func titleOf(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > 80 {
		line = truncateRunes(line, 77) + "..."
	}
	return line
}

func snippetOf(text string) string {
	if len(text) > 200 {
		return truncateRunes(text, 197) + "..."
	}
	return text
}

// truncateRunes cuts s to at most n bytes on a rune boundary.
func truncateRunes(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
