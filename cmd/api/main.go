package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civiclab/scenario-engine/internal/config"
	"github.com/civiclab/scenario-engine/internal/handlers"
	"github.com/civiclab/scenario-engine/internal/logger"
	"github.com/civiclab/scenario-engine/internal/middleware"
	"github.com/civiclab/scenario-engine/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Scenario Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir)

	storage := services.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := storage.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	var recorder services.ReflectionRecorder
	if cfg.ReflectionWebhookURL != "" {
		recorder = services.NewWebhookRecorder(cfg.ReflectionWebhookURL, log)
		log.Info("Using webhook reflection recorder")
	} else {
		recorder = services.NewLogRecorder(log)
		log.Warn("REFLECTION_WEBHOOK_URL not set, reflections will only be logged")
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(storage, log)
	mux.Handle("/health", healthHandler)

	sessionHandler := handlers.NewSessionHandler(log, storage)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	eventHandler := handlers.NewEventHandler(log, storage)
	mux.Handle("/v1/sessions/{id}/events", eventHandler)

	reflectionHandler := handlers.NewReflectionHandler(log, storage, recorder)
	mux.Handle("/v1/sessions/{id}/reflection", reflectionHandler)

	scenarioHandler := handlers.NewScenarioHandler(log, storage)
	mux.Handle("/v1/scenarios", scenarioHandler)
	mux.Handle("/v1/scenarios/", scenarioHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := storage.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
