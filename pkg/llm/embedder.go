package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// ErrEmbeddingUnavailable is returned when the embedding model cannot
// be reached or loaded. It surfaces at construction time, before any
// embedding is attempted.
var ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

type EmbedderConfig struct {
	Model     string
	BaseURL   string
	Dimension int
	Logger    *slog.Logger
}

// Embedder converts text into fixed-dimension vectors. Safe for
// concurrent use once constructed.
type Embedder struct {
	config   EmbedderConfig
	embedder *embeddings.EmbedderImpl
	log      *slog.Logger
}

func NewEmbedderWithConfig(ctx context.Context, config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "all-minilm"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Dimension == 0 {
		config.Dimension = 384
	}

	client, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize client for model %s: %v",
			ErrEmbeddingUnavailable, config.Model, err)
	}

	return newEmbedder(ctx, client, config)
}

func newEmbedder(ctx context.Context, client embeddings.EmbedderClient, config EmbedderConfig) (*Embedder, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	emb, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	// Probe the model once so a missing or incompatible model fails
	// here rather than mid-pipeline.
	probe, err := emb.EmbedQuery(ctx, "test")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load embedding model %s: %v",
			ErrEmbeddingUnavailable, config.Model, err)
	}
	if config.Dimension > 0 && len(probe) != config.Dimension {
		config.Logger.Warn("configured embedding dimension does not match actual model dimension",
			"configured", config.Dimension, "actual", len(probe), "model", config.Model)
	}

	config.Logger.Info("embedding model loaded", "model", config.Model, "dimension", len(probe))

	return &Embedder{
		config:   config,
		embedder: emb,
		log:      config.Logger,
	}, nil
}

// EmbedQuery embeds a single string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	return vector, nil
}

// EmbedDocuments embeds a batch of strings, one vector per input.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	return vectors, nil
}

// Dimension reports the configured vector dimension.
func (e *Embedder) Dimension() int {
	return e.config.Dimension
}
