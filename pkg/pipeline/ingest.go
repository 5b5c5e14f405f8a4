package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xhad/ragbot/internal/models"
	"github.com/xhad/ragbot/pkg/cleaner"
	"github.com/xhad/ragbot/pkg/processor"
	"github.com/xhad/ragbot/pkg/scraper"
	"github.com/xhad/ragbot/pkg/store"
)

// DocumentEmbedder is the slice of the embedder the ingestion
// pipeline needs.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type IngestorConfig struct {
	BatchSize  int
	OnProgress func(stage string, done, total int)
	Logger     *slog.Logger
}

// Ingestor runs the offline pipeline: fetch, clean, chunk, embed,
// upsert. Per-item failures inside a stage are logged and skipped by
// the stage itself; a whole-stage zero yield aborts the run. Batches
// already upserted stay persisted when a later batch fails.
type Ingestor struct {
	scraper   *scraper.Scraper
	cleaner   *cleaner.Cleaner
	processor processor.Processor
	embedder  DocumentEmbedder
	store     store.VectorStore
	config    IngestorConfig
	log       *slog.Logger
}

func NewIngestor(
	s *scraper.Scraper,
	c *cleaner.Cleaner,
	p processor.Processor,
	e DocumentEmbedder,
	vs store.VectorStore,
	config IngestorConfig,
) *Ingestor {
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Ingestor{
		scraper:   s,
		cleaner:   c,
		processor: p,
		embedder:  e,
		store:     vs,
		config:    config,
		log:       config.Logger,
	}
}

func (in *Ingestor) Run(ctx context.Context) error {
	in.log.Info("starting data ingestion pipeline")

	if err := in.store.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}

	pages, err := in.scraper.ScrapeAll(ctx)
	if err != nil {
		return err
	}
	in.progress("scrape", len(pages), len(pages))

	docs, err := in.cleaner.CleanAll(pages)
	if err != nil {
		return err
	}
	in.progress("clean", len(docs), len(pages))

	chunks, err := in.processor.ChunkAll(docs)
	if err != nil {
		return err
	}
	in.progress("chunk", len(chunks), len(chunks))

	if err := in.upsertChunks(ctx, chunks); err != nil {
		return err
	}

	in.log.Info("ingestion pipeline finished", "chunks", len(chunks))
	return nil
}

func (in *Ingestor) upsertChunks(ctx context.Context, chunks []models.Chunk) error {
	for start := 0; start < len(chunks); start += in.config.BatchSize {
		end := start + in.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := in.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch at offset %d: %w", start, err)
		}

		if err := in.store.Upsert(ctx, batch, vectors); err != nil {
			return fmt.Errorf("failed to upsert batch at offset %d: %w", start, err)
		}

		in.progress("upsert", end, len(chunks))
	}
	return nil
}

func (in *Ingestor) progress(stage string, done, total int) {
	if in.config.OnProgress != nil {
		in.config.OnProgress(stage, done, total)
	}
}
