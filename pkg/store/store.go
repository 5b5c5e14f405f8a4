package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/xhad/ragbot/internal/models"
	"github.com/xhad/ragbot/pkg/config"
)

var (
	// ErrNotReady is returned when a store is used before a
	// successful Init.
	ErrNotReady = errors.New("vector store not initialized")

	// ErrDimensionMismatch is returned when a vector's length does
	// not match the index dimension. Vectors are never truncated.
	ErrDimensionMismatch = errors.New("vector dimension does not match index dimension")

	// ErrStoreFailed wraps remote index operation failures.
	ErrStoreFailed = errors.New("vector store operation failed")
)

// VectorStore manages one named remote similarity index. Upsert is
// at-least-once: re-ingesting the same content creates new records.
// Implementations must be safe for concurrent Search calls once Init
// has returned.
type VectorStore interface {
	// Init creates the index if it does not exist (idempotent).
	Init(ctx context.Context) error
	// Upsert writes (vector, text, metadata) records. An empty batch
	// is a no-op.
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	// Search returns up to topK records ranked by cosine similarity,
	// highest first.
	Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error)
	Close() error
}

// NewFromConfig selects the configured backend.
func NewFromConfig(ctx context.Context, cfg *config.Config) (VectorStore, error) {
	switch cfg.Vector.Provider {
	case config.ProviderPGVector:
		return NewPGVector(ctx, PGVectorConfig{
			ConnString: cfg.Vector.DatabaseURL,
			TableName:  cfg.Vector.IndexName,
			VectorDim:  cfg.Embedding.Dimension,
		})
	case config.ProviderQdrant:
		return NewQdrant(QdrantConfig{
			Host:       cfg.Vector.QdrantHost,
			Port:       cfg.Vector.QdrantPort,
			APIKey:     cfg.Vector.QdrantAPIKey,
			Collection: cfg.Vector.IndexName,
			VectorDim:  cfg.Embedding.Dimension,
		})
	case config.ProviderMemory:
		return NewMemory(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", cfg.Vector.Provider)
	}
}
