package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xhad/ragbot/pkg/llm"
)

// Chain runs the query pipeline: retrieve relevant chunks, assemble a
// grounded prompt, and generate an answer. Retrieval failures are
// wrapped into llm.ErrGenerationFailed with the cause preserved, so
// the boundary layer maps everything on this path to one failure code.
type Chain struct {
	retriever *Retriever
	engine    *llm.ChatEngine
	log       *slog.Logger
}

func NewChain(retriever *Retriever, engine *llm.ChatEngine) *Chain {
	return &Chain{
		retriever: retriever,
		engine:    engine,
		log:       slog.Default(),
	}
}

// GenerateResponse answers a single query grounded in retrieved
// context.
func (c *Chain) GenerateResponse(ctx context.Context, query string) (string, error) {
	chunks, err := c.retriever.RelevantChunks(ctx, query, 0)
	if err != nil {
		return "", fmt.Errorf("%w: failed to retrieve context: %w", llm.ErrGenerationFailed, err)
	}

	answer, err := c.engine.Answer(ctx, query, chunks)
	if err != nil {
		return "", err
	}

	c.log.Info("response generated", "query", query, "context_chunks", len(chunks))
	return answer, nil
}

// StreamResponse answers like GenerateResponse but forwards completion
// tokens to onToken as the model produces them.
func (c *Chain) StreamResponse(ctx context.Context, query string, onToken func(token string)) (string, error) {
	chunks, err := c.retriever.RelevantChunks(ctx, query, 0)
	if err != nil {
		return "", fmt.Errorf("%w: failed to retrieve context: %w", llm.ErrGenerationFailed, err)
	}

	answer, err := c.engine.AnswerStream(ctx, query, chunks, onToken)
	if err != nil {
		return "", err
	}

	c.log.Info("response streamed", "query", query, "context_chunks", len(chunks))
	return answer, nil
}
