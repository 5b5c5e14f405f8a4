package rag

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xhad/ragbot/internal/models"
	"github.com/xhad/ragbot/pkg/store"
)

// QueryEmbedder is the slice of the embedder the retriever needs.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever turns a natural-language query into a ranked list of
// relevant chunks. Embedder and store failures propagate unchanged so
// callers can tell retrieval failures from generation failures.
type Retriever struct {
	embedder QueryEmbedder
	store    store.VectorStore
	topK     int

	initOnce sync.Once
	initErr  error

	log *slog.Logger
}

func NewRetriever(embedder QueryEmbedder, vs store.VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{
		embedder: embedder,
		store:    vs,
		topK:     topK,
		log:      slog.Default(),
	}
}

// Init prepares the underlying index. It runs at most once, even under
// concurrent first use; later calls return the first result.
func (r *Retriever) Init(ctx context.Context) error {
	r.initOnce.Do(func() {
		r.initErr = r.store.Init(ctx)
	})
	return r.initErr
}

// RelevantChunks embeds the query and returns the topK nearest chunks.
// topK <= 0 falls back to the configured default.
func (r *Retriever) RelevantChunks(ctx context.Context, query string, topK int) ([]models.Chunk, error) {
	if err := r.Init(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = r.topK
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := r.store.Search(ctx, vector, topK)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, 0, len(results))
	for _, res := range results {
		chunks = append(chunks, res.Chunk)
	}

	r.log.Info("retrieved relevant chunks", "query", query, "count", len(chunks), "top_k", topK)
	return chunks, nil
}
