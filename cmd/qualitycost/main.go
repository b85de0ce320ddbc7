package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"qualitycost/internal/charts"
	"qualitycost/internal/config"
	apphttp "qualitycost/internal/http"
	"qualitycost/internal/insight"
	applog "qualitycost/internal/log"
	"qualitycost/internal/session"
	"qualitycost/internal/store"
)

func main() {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}

	st := store.New(cfg.DataFile)
	table, err := st.Load()
	if err != nil {
		logger.Error("Failed loading data file", applog.FieldDataFile, cfg.DataFile, applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Data file loaded", applog.FieldDataFile, cfg.DataFile, applog.FieldRecordCount, len(table))

	state := session.NewState(table)
	renderer := charts.NewRenderer(cfg.ChartDir)
	generator := insight.NewGenerator(insight.Options{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		Temperature: float32(cfg.OpenAITemperature),
		Timeout:     cfg.OpenAITimeout,
		BaseURL:     cfg.OpenAIBaseURL,
	})

	srv := apphttp.NewServer(":"+cfg.Port, st, state, renderer, generator)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 60 * time.Second // LLM calls block the response
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting quality cost dashboard", "port", cfg.Port, applog.FieldModel, cfg.OpenAIModel)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
