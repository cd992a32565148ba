package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"palaver/config"
	"palaver/provider"
)

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "palaver: %v\n", err)
		os.Exit(2)
	}

	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov, err := provider.New(ctx, provider.Options{
		Kind:      cfg.Provider,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		APIKey:    cfg.APIKey(),
		BaseURL:   cfg.OpenAIBaseURL,
	})
	if err != nil {
		logger.Error("provider init failed", "provider", cfg.Provider, "error", err)
		os.Exit(1)
	}

	app := NewApp(cfg, logger, prov)
	defer app.Close()

	if err := app.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
