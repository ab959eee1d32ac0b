package document

import "time"

// Document is a synthesized search result retrievable by id until its
// cache entry expires.
type Document struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	URL      string   `json:"url,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Metadata records bookkeeping for a cached document.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}
