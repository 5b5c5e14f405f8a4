package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/ragbot/internal/models"
)

// ErrGenerationFailed wraps every failure on the generation path so
// the boundary layer can map them all to one failure code.
var ErrGenerationFailed = errors.New("failed to generate response")

// FallbackResponse is returned verbatim when the model produces an
// empty or blank completion.
const FallbackResponse = "I'm sorry, I couldn't find relevant information."

const promptTemplate = `Answer the question based ONLY on the following context:
%s

Question: %s
`

type ChatConfig struct {
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
}

// ChatEngine turns retrieved context and a question into a grounded
// answer from the hosted language model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
	log    *slog.Logger
}

func NewChatWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewChatWithModel(model, config), nil
}

// NewChatWithModel wires an already constructed model, which lets
// tests substitute a fake.
func NewChatWithModel(model llms.Model, config ChatConfig) *ChatEngine {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &ChatEngine{
		config: config,
		llm:    model,
		log:    config.Logger,
	}
}

// Answer builds a context-grounded prompt from the retrieved chunks
// and returns the model's completion. A blank completion is replaced
// with FallbackResponse rather than propagated as an error.
func (ce *ChatEngine) Answer(ctx context.Context, query string, chunks []models.Chunk) (string, error) {
	return ce.generate(ctx, query, chunks)
}

// AnswerStream behaves like Answer but additionally forwards each
// completion token to onToken as the model produces it. The full
// completion (or FallbackResponse) is still returned at the end.
func (ce *ChatEngine) AnswerStream(ctx context.Context, query string, chunks []models.Chunk, onToken func(token string)) (string, error) {
	return ce.generate(ctx, query, chunks,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			onToken(string(chunk))
			return nil
		}),
	)
}

func (ce *ChatEngine) generate(ctx context.Context, query string, chunks []models.Chunk, extra ...llms.CallOption) (string, error) {
	prompt := BuildPrompt(query, chunks)

	opts := []llms.CallOption{
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	}
	opts = append(opts, extra...)

	completion, err := llms.GenerateFromSinglePrompt(ctx, ce.llm, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	if strings.TrimSpace(completion) == "" {
		ce.log.Warn("empty completion from LLM, using fallback message", "query", query)
		return FallbackResponse, nil
	}

	return completion, nil
}

// BuildPrompt concatenates the chunk texts with blank-line separators
// and appends the question.
func BuildPrompt(query string, chunks []models.Chunk) string {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(texts, "\n\n"), query)
}
