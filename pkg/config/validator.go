package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every configuration problem at once. Missing vector
// store credentials in non-debug mode are fatal at process start.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "LLM base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid LLM base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Embedding.Dimension < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.dimension",
			Message: "dimension must be positive",
		})
	}

	switch c.Vector.Provider {
	case ProviderPGVector:
		// Credential check: a pgvector deployment is unreachable
		// without a connection string.
		if !c.Debug && c.Vector.DatabaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "vector.database_url",
				Message: "database URL is required for the pgvector provider in non-debug mode",
			})
		}
		if c.Vector.DatabaseURL != "" {
			if _, err := url.Parse(c.Vector.DatabaseURL); err != nil {
				errors = append(errors, ValidationError{
					Field:   "vector.database_url",
					Message: "invalid database URL",
				})
			}
		}
	case ProviderQdrant:
		if !c.Debug && c.Vector.QdrantHost == "" {
			errors = append(errors, ValidationError{
				Field:   "vector.qdrant_host",
				Message: "qdrant host is required for the qdrant provider in non-debug mode",
			})
		}
	case ProviderMemory:
		if !c.Debug {
			errors = append(errors, ValidationError{
				Field:   "vector.provider",
				Message: "memory provider is only available in debug mode",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "vector.provider",
			Message: fmt.Sprintf("unsupported vector store provider: %s", c.Vector.Provider),
		})
	}

	if c.Vector.IndexName == "" {
		errors = append(errors, ValidationError{
			Field:   "vector.index_name",
			Message: "index name is required",
		})
	}

	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if len(c.Scraper.URLs) == 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.urls",
			Message: "at least one URL must be configured",
		})
	}
	for _, u := range c.Scraper.URLs {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "scraper.urls",
				Message: fmt.Sprintf("invalid URL: %s", u),
			})
		}
	}

	if c.Scraper.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Scraper.MaxConcurrent < 1 {
		errors = append(errors, ValidationError{
			Field:   "scraper.max_concurrent",
			Message: "max_concurrent must be positive",
		})
	}

	return errors
}
