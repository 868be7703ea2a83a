package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faceless-engine/synthesizer/internal/api"
	"github.com/faceless-engine/synthesizer/internal/bootstrap"
	"github.com/faceless-engine/synthesizer/internal/config"
	"github.com/faceless-engine/synthesizer/internal/db"
	"github.com/faceless-engine/synthesizer/internal/logger"
	"github.com/faceless-engine/synthesizer/internal/queue"
	"github.com/faceless-engine/synthesizer/internal/storage"
	"github.com/faceless-engine/synthesizer/internal/worker"
)

func main() {
	log.Println("Starting Episod API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	providersPath := os.Getenv("PROVIDERS_CONFIG_PATH")
	if providersPath == "" {
		providersPath = "providers.yaml"
	}
	providers, err := config.LoadProviders(providersPath)
	if err != nil {
		log.Fatalf("Failed to load provider topology: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Println("Initialized Supabase storage")

	// Create API handler
	handler := api.NewHandler(database, q, stor)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		appLog, err := logger.New()
		if err != nil {
			log.Fatalf("Failed to build logger: %v", err)
		}

		stack, err := bootstrap.Build(cfg, providers, appLog)
		if err != nil {
			appLog.Errorf("failed to build provider stack: %v", err)
			os.Exit(1)
		}

		w := worker.New(database, q, stor, stack.Driver, cfg.BackgroundMusicPath, "artifacts/sessions")

		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
