package processor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xhad/ragbot/internal/models"
)

// ErrChunkingFailed is returned when a whole batch of documents yields
// zero chunks. A single empty document is merely skipped.
var ErrChunkingFailed = errors.New("no chunks were produced from the cleaned data")

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Logger       *slog.Logger
}

type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.RecursiveCharacter
	log      *slog.Logger
}

func NewWithConfig(config ProcessorConfig) Processor {
	// Zero overlap with an explicit chunk size is a legal
	// configuration; defaults apply only when no size was set.
	if config.ChunkSize == 0 {
		config.ChunkSize = 500
		if config.ChunkOverlap == 0 {
			config.ChunkOverlap = 50
		}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	// Split at paragraph, then line, then word boundaries before
	// falling back to a hard character cut.
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)

	return Processor{
		config:   config,
		splitter: splitter,
		log:      config.Logger,
	}
}

// ChunkDocument splits one cleaned document into overlapping chunks,
// each tagged with the document's source URL. Empty input yields an
// empty chunk list, not an error.
func (p *Processor) ChunkDocument(doc models.CleanedDocument) ([]models.Chunk, error) {
	if doc.Text == "" {
		p.log.Warn("empty text content provided for chunking", "url", doc.URL)
		return nil, nil
	}

	pieces, err := p.splitter.SplitText(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk text for %s: %w", doc.URL, err)
	}

	chunks := make([]models.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, models.NewChunk(piece, doc.URL))
	}

	p.log.Info("chunked document", "url", doc.URL, "chunks", len(chunks))
	return chunks, nil
}

// ChunkAll chunks a batch of cleaned documents. Per-document failures
// are logged and skipped; only a zero-yield batch is an error.
func (p *Processor) ChunkAll(docs []models.CleanedDocument) ([]models.Chunk, error) {
	var all []models.Chunk

	for _, doc := range docs {
		chunks, err := p.ChunkDocument(doc)
		if err != nil {
			p.log.Error("error chunking document, skipping", "url", doc.URL, "error", err)
			continue
		}
		all = append(all, chunks...)
	}

	if len(all) == 0 {
		return nil, ErrChunkingFailed
	}

	p.log.Info("finished chunking", "total_chunks", len(all), "documents", len(docs))
	return all, nil
}
