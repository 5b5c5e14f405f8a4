package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/ragbot/internal/logger"
	"github.com/xhad/ragbot/pkg/cleaner"
	"github.com/xhad/ragbot/pkg/config"
	"github.com/xhad/ragbot/pkg/llm"
	"github.com/xhad/ragbot/pkg/pipeline"
	"github.com/xhad/ragbot/pkg/processor"
	"github.com/xhad/ragbot/pkg/scraper"
	"github.com/xhad/ragbot/pkg/store"
)

func main() {
	cfg, batchSize, err := parseFlags()
	if err != nil {
		log.Fatal(err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %v", e)
		}
		os.Exit(1)
	}

	if _, err := logger.Setup(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatal(err)
	}

	if err := run(cfg, batchSize); err != nil {
		color.Red("ingestion failed: %v", err)
		os.Exit(1)
	}
}

func parseFlags() (*config.Config, int, error) {
	var (
		configPath   string
		urls         string
		chunkSize    int
		chunkOverlap int
		provider     string
		indexName    string
		dbURL        string
		batchSize    int
	)

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&urls, "urls", "", "Comma-separated list of URLs to ingest")
	flag.IntVar(&chunkSize, "chunk-size", 500, "Size of text chunks")
	flag.IntVar(&chunkOverlap, "chunk-overlap", 50, "Overlap between consecutive chunks")
	flag.StringVar(&provider, "provider", "", "Vector store provider (pgvector, qdrant, memory)")
	flag.StringVar(&indexName, "index", "", "Vector index name")
	flag.StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	flag.IntVar(&batchSize, "batch-size", 100, "Batch size for upserts")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, 0, err
	}

	// Flags set on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "urls":
			cfg.Scraper.URLs = strings.Split(urls, ",")
		case "chunk-size":
			cfg.Processor.ChunkSize = chunkSize
		case "chunk-overlap":
			cfg.Processor.ChunkOverlap = chunkOverlap
		case "provider":
			cfg.Vector.Provider = provider
		case "index":
			cfg.Vector.IndexName = indexName
		case "db-url":
			cfg.Vector.DatabaseURL = dbURL
		}
	})

	return cfg, batchSize, nil
}

func run(cfg *config.Config, batchSize int) error {
	ctx := context.Background()

	color.Blue("Loading embedding model %s...", cfg.Embedding.Model)
	embedder, err := llm.NewEmbedderWithConfig(ctx, llm.EmbedderConfig{
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
	})
	if err != nil {
		return err
	}

	vs, err := store.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer vs.Close()

	scrapeBar := getProgressBar(len(cfg.Scraper.URLs), "Scraping pages")
	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		URLs:          cfg.Scraper.URLs,
		RateLimit:     cfg.Scraper.RateLimit,
		Timeout:       time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
		MaxConcurrent: cfg.Scraper.MaxConcurrent,
		OnProgress: func(string) {
			_ = scrapeBar.Add(1)
		},
	})
	if err != nil {
		return err
	}

	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})

	var upsertBar *progressbar.ProgressBar
	ing := pipeline.NewIngestor(s, cleaner.New(), p, embedder, vs, pipeline.IngestorConfig{
		BatchSize: batchSize,
		OnProgress: func(stage string, done, total int) {
			switch stage {
			case "clean":
				fmt.Println()
				color.Green("Cleaned %d of %d pages", done, total)
			case "chunk":
				color.Green("Produced %d chunks", done)
			case "upsert":
				if upsertBar == nil {
					upsertBar = getProgressBar(total, "Upserting chunks")
				}
				_ = upsertBar.Set(done)
			}
		},
	})

	if err := ing.Run(ctx); err != nil {
		return err
	}

	fmt.Println()
	color.Green("Ingestion complete")
	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
