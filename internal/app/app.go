package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/xhad/ragbot/pkg/config"
	"github.com/xhad/ragbot/pkg/llm"
	"github.com/xhad/ragbot/pkg/rag"
	"github.com/xhad/ragbot/pkg/store"
)

// App owns the long-lived pipeline singletons: the embedding model,
// the vector store connection, and the chat engine. New constructs
// everything exactly once before any request is served; afterwards the
// fields are read-only and safe for concurrent use.
type App struct {
	Config    *config.Config
	Embedder  *llm.Embedder
	Store     store.VectorStore
	Retriever *rag.Retriever
	Chain     *rag.Chain

	ready atomic.Bool
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", errs[0])
	}

	embedder, err := llm.NewEmbedderWithConfig(ctx, llm.EmbedderConfig{
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
	})
	if err != nil {
		return nil, err
	}

	vs, err := store.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine, err := llm.NewChatWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		vs.Close()
		return nil, err
	}

	retriever := rag.NewRetriever(embedder, vs, cfg.Retrieval.TopK)
	if err := retriever.Init(ctx); err != nil {
		vs.Close()
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Embedder:  embedder,
		Store:     vs,
		Retriever: retriever,
		Chain:     rag.NewChain(retriever, engine),
	}
	a.ready.Store(true)
	return a, nil
}

// NewFromComponents assembles an App from already constructed parts.
// Used by alternate wiring and tests; New is the production path.
func NewFromComponents(cfg *config.Config, embedder *llm.Embedder, vs store.VectorStore, retriever *rag.Retriever, chain *rag.Chain) *App {
	a := &App{
		Config:    cfg,
		Embedder:  embedder,
		Store:     vs,
		Retriever: retriever,
		Chain:     chain,
	}
	a.ready.Store(true)
	return a
}

// Ready reports whether the singletons finished initializing.
func (a *App) Ready() bool {
	return a != nil && a.ready.Load()
}

func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
