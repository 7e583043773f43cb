package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Epistemic-Technology/article-summarizer/internal/config"
	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/server"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $SUMMARIZER_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logging is configured from the file, so fall back to stderr
		logger.NewWriterLogger(os.Stderr, logger.ErrorLevel).Fatal("Failed to load configuration: %v", err)
	}

	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}

	log.Info("Starting article-summarizer server")

	svc, store, err := server.NewService(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.CreateServer(svc, log)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal("Server failed: %v", err)
	}
}
