package processor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragbot/internal/models"
)

func TestChunkDocumentSingleChunk(t *testing.T) {
	p := NewWithConfig(ProcessorConfig{ChunkSize: 500, ChunkOverlap: 50})

	doc := models.CleanedDocument{
		URL:  "https://www.changiairport.com",
		Text: "Changi Airport has four terminals.",
	}

	chunks, err := p.ChunkDocument(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Changi Airport has four terminals.", chunks[0].Text)
	assert.Equal(t, map[string]string{
		"source": "https://www.changiairport.com",
		"url":    "https://www.changiairport.com",
	}, chunks[0].Metadata)
}

func TestChunkDocumentRespectsSize(t *testing.T) {
	p := NewWithConfig(ProcessorConfig{ChunkSize: 50, ChunkOverlap: 10})

	text := strings.Repeat("Changi Airport serves Singapore with style. ", 20)
	chunks, err := p.ChunkDocument(models.CleanedDocument{URL: "https://example.com", Text: text})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 50)
		assert.Equal(t, "https://example.com", chunk.Metadata["url"])
		assert.Equal(t, "https://example.com", chunk.Metadata["source"])
	}
}

func TestChunkDocumentExactOverlapOnHardCuts(t *testing.T) {
	// With no higher-priority boundary available the splitter falls
	// back to character cuts, where overlap is exact.
	p := NewWithConfig(ProcessorConfig{ChunkSize: 50, ChunkOverlap: 10})

	text := strings.Repeat("a", 200)
	chunks, err := p.ChunkDocument(models.CleanedDocument{URL: "https://example.com", Text: text})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 0; i < len(chunks)-1; i++ {
		cur, next := chunks[i].Text, chunks[i+1].Text
		assert.LessOrEqual(t, len(cur), 50)
		assert.Equal(t, cur[len(cur)-10:], next[:10],
			"consecutive chunks must share exactly the overlap")
	}
}

func TestChunkDocumentZeroOverlap(t *testing.T) {
	// An explicit zero overlap is honored, not replaced by the
	// default: chunks tile the text with no shared characters.
	p := NewWithConfig(ProcessorConfig{ChunkSize: 50, ChunkOverlap: 0})
	assert.Equal(t, 0, p.config.ChunkOverlap)

	text := strings.Repeat("abcdefghij", 12)
	chunks, err := p.ChunkDocument(models.CleanedDocument{URL: "https://example.com", Text: text})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	var rejoined strings.Builder
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 50)
		rejoined.WriteString(chunk.Text)
	}
	assert.Equal(t, text, rejoined.String())
}

func TestChunkDocumentPrefersWordBoundaries(t *testing.T) {
	p := NewWithConfig(ProcessorConfig{ChunkSize: 30, ChunkOverlap: 5})

	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa"
	chunks, err := p.ChunkDocument(models.CleanedDocument{URL: "https://example.com", Text: text})
	require.NoError(t, err)

	for _, chunk := range chunks {
		// Splits land on word boundaries, never mid-word.
		for _, word := range strings.Fields(chunk.Text) {
			assert.Contains(t, text, word)
		}
	}
}

func TestChunkDocumentEmptyInput(t *testing.T) {
	p := NewWithConfig(ProcessorConfig{})

	chunks, err := p.ChunkDocument(models.CleanedDocument{URL: "https://example.com", Text: ""})
	assert.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkAllSkipsEmptyDocuments(t *testing.T) {
	p := NewWithConfig(ProcessorConfig{ChunkSize: 500, ChunkOverlap: 50})

	docs := []models.CleanedDocument{
		{URL: "https://a.example.com", Text: "Some useful airport information."},
		{URL: "https://b.example.com", Text: ""},
	}

	chunks, err := p.ChunkAll(docs)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "https://a.example.com", chunks[0].Metadata["url"])
}

func TestChunkAllZeroYield(t *testing.T) {
	p := NewWithConfig(ProcessorConfig{})

	docs := []models.CleanedDocument{
		{URL: "https://a.example.com", Text: ""},
		{URL: "https://b.example.com", Text: ""},
	}

	chunks, err := p.ChunkAll(docs)
	assert.ErrorIs(t, err, ErrChunkingFailed)
	assert.Empty(t, chunks)
}
