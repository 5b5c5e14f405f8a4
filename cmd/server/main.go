package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/xhad/ragbot/internal/app"
	"github.com/xhad/ragbot/internal/logger"
	"github.com/xhad/ragbot/pkg/config"
	"github.com/xhad/ragbot/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config error: %v", e)
		}
		log.Fatal("invalid configuration")
	}

	slogger, err := logger.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatal(err)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		slogger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = fmt.Sprintf("%d", cfg.API.Port)
	}
	addr := fmt.Sprintf("%s:%s", cfg.API.Host, port)

	if err := server.New(a).Run(addr); err != nil {
		slogger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
