package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Vector store providers.
const (
	ProviderPGVector = "pgvector"
	ProviderQdrant   = "qdrant"
	ProviderMemory   = "memory"
)

type Config struct {
	Debug bool `yaml:"debug"`

	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedding struct {
		BaseURL   string `yaml:"base_url"`
		Model     string `yaml:"model"`
		Dimension int    `yaml:"dimension"`
	} `yaml:"embedding"`

	Vector struct {
		Provider     string `yaml:"provider"`
		IndexName    string `yaml:"index_name"`
		DatabaseURL  string `yaml:"database_url"`
		QdrantHost   string `yaml:"qdrant_host"`
		QdrantPort   int    `yaml:"qdrant_port"`
		QdrantAPIKey string `yaml:"qdrant_api_key"`
	} `yaml:"vector"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	Retrieval struct {
		TopK int `yaml:"top_k"`
	} `yaml:"retrieval"`

	Scraper struct {
		URLs           []string `yaml:"urls"`
		RateLimit      float64  `yaml:"rate_limit"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		MaxConcurrent  int      `yaml:"max_concurrent"`
	} `yaml:"scraper"`

	API struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Streaming bool   `yaml:"streaming"`
	} `yaml:"api"`

	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// .env values become plain environment variables; a missing file
	// is not an error.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ragbot/config.yaml"),
			"/etc/ragbot/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "all-minilm"
	}
	if config.Embedding.Dimension == 0 {
		config.Embedding.Dimension = 384
	}
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = config.LLM.BaseURL
	}

	if config.Vector.Provider == "" {
		if config.Debug {
			config.Vector.Provider = ProviderMemory
		} else {
			config.Vector.Provider = ProviderPGVector
		}
	}
	if config.Vector.IndexName == "" {
		config.Vector.IndexName = "llmchatbot-index"
	}
	if config.Vector.QdrantHost == "" {
		config.Vector.QdrantHost = "localhost"
	}
	if config.Vector.QdrantPort == 0 {
		config.Vector.QdrantPort = 6334
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 500
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 50
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 4
	}

	if len(config.Scraper.URLs) == 0 {
		config.Scraper.URLs = []string{
			"https://www.changiairport.com",
			"https://www.jewelchangiairport.com",
		}
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
	if config.Scraper.TimeoutSeconds == 0 {
		config.Scraper.TimeoutSeconds = 60
	}
	if config.Scraper.MaxConcurrent == 0 {
		config.Scraper.MaxConcurrent = 4
	}

	if config.API.Host == "" {
		config.API.Host = "0.0.0.0"
	}
	if config.API.Port == 0 {
		config.API.Port = 8000
	}

	if config.Log.Level == "" {
		config.Log.Level = "INFO"
	}
}

func mergeWithEnv(config *Config) {
	if debug := os.Getenv("DEBUG"); debug != "" {
		config.Debug = strings.EqualFold(debug, "true")
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if model := os.Getenv("LLM_MODEL_NAME"); model != "" {
		config.LLM.Model = model
	}
	if model := os.Getenv("EMBEDDING_MODEL_NAME"); model != "" {
		config.Embedding.Model = model
	}
	if dim := os.Getenv("EMBEDDING_DIMENSION"); dim != "" {
		if n, err := strconv.Atoi(dim); err == nil {
			config.Embedding.Dimension = n
		}
	}
	if provider := os.Getenv("VECTOR_DB_PROVIDER"); provider != "" {
		config.Vector.Provider = strings.ToLower(provider)
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Vector.DatabaseURL = dbURL
	}
	if host := os.Getenv("QDRANT_HOST"); host != "" {
		config.Vector.QdrantHost = host
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		config.Vector.QdrantAPIKey = key
	}
	if name := os.Getenv("VECTOR_INDEX_NAME"); name != "" {
		config.Vector.IndexName = name
	}
	if topK := os.Getenv("TOP_K"); topK != "" {
		if n, err := strconv.Atoi(topK); err == nil {
			config.Retrieval.TopK = n
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		config.Log.File = file
	}
}
