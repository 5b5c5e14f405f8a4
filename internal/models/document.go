package models

// Page is a raw fetch result, discarded once cleaned.
type Page struct {
	URL  string
	HTML string
}

// CleanedDocument is the visible text extracted from a page.
type CleanedDocument struct {
	URL  string
	Text string
}

// Chunk is a bounded text segment, the unit of retrieval. Metadata
// always carries the originating URL under both "source" and "url".
type Chunk struct {
	Text     string
	Metadata map[string]string
}

// SearchResult pairs a retrieved chunk with its similarity score
// (higher is closer).
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// NewChunk builds a chunk tagged with its source URL.
func NewChunk(text, url string) Chunk {
	return Chunk{
		Text: text,
		Metadata: map[string]string{
			"source": url,
			"url":    url,
		},
	}
}
