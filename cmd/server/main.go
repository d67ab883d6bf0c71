package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/BerylCAtieno/web-accessibility-api/internal/analyzer"
	"github.com/BerylCAtieno/web-accessibility-api/internal/config"
	"github.com/BerylCAtieno/web-accessibility-api/internal/db"
	"github.com/BerylCAtieno/web-accessibility-api/internal/fetcher"
	"github.com/BerylCAtieno/web-accessibility-api/internal/llm"
	"github.com/BerylCAtieno/web-accessibility-api/internal/metrics"
	"github.com/BerylCAtieno/web-accessibility-api/internal/prompt"
	"github.com/BerylCAtieno/web-accessibility-api/internal/repository"
	"github.com/BerylCAtieno/web-accessibility-api/internal/router"
	"github.com/BerylCAtieno/web-accessibility-api/internal/services"
	"github.com/BerylCAtieno/web-accessibility-api/internal/storage"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
	"github.com/BerylCAtieno/web-accessibility-api/internal/vision"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run migrations
	if err := db.RunMigrations(cfg.DatabasePath); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Blob storage and upload ledger
	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", "backend", cfg.StorageBackend, "error", err)
	}
	uploads := services.NewUploadService(blobs, repository.NewUploadRepository(database), cfg.UploadURLTTL, m, logger)

	// Outbound clients
	pages := fetcher.New(fetcher.Options{
		Timeout:      cfg.FetchTimeout,
		BlockPrivate: !cfg.AllowPrivateNetworks,
	})
	apiClient := fetcher.NewAPIClient(cfg.UpstreamTimeout)

	// Prompt templates
	templates, err := prompt.NewStore(cfg.PromptDir)
	if err != nil {
		logger.Fatal("Failed to load prompt templates", "dir", cfg.PromptDir, "error", err)
	}

	// Model invokers
	endpoint := llm.EndpointFromConfig(cfg)
	var chat llm.Invoker
	switch cfg.ChatProvider {
	case config.ChatProviderGemini:
		gemini, err := llm.NewGeminiInvoker(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			logger.Fatal("Failed to create Gemini client", "error", err)
		}
		defer gemini.Close()
		chat = gemini
	default:
		chat = llm.NewChatInvoker(endpoint, cfg.OpenAIDeployment, apiClient, logger)
	}
	webAssistant := llm.NewAssistantInvoker(endpoint, cfg.OpenAIAssistantWebID, apiClient, cfg.AssistantPollInterval, cfg.AssistantPollTimeout, logger)
	pdfAssistant := llm.NewAssistantInvoker(endpoint, cfg.OpenAIAssistantPDFID, apiClient, cfg.AssistantPollInterval, cfg.AssistantPollTimeout, logger)

	// Image captioning
	captioner := vision.NewClient(cfg.VisionEndpoint, cfg.VisionAPIKey, apiClient, pages, logger)

	// Accessibility service
	service := services.NewAccessibilityService(services.AccessibilityDeps{
		Builder:      prompt.NewBuilder(templates, pages, uploads),
		Chat:         chat,
		WebAssistant: webAssistant,
		PDFAssistant: pdfAssistant,
		Parser:       analyzer.NewParser(cfg.ParsePolicy, logger),
		Enricher:     analyzer.NewEnricher(captioner, cfg.EnrichConcurrency, logger),
		Captioner:    captioner,
		Runs:         repository.NewRunRepository(database),
		Metrics:      m,
		Logger:       logger,
	})

	// Upload janitor
	go uploads.RunJanitor(ctx, cfg.UploadSweepInterval)

	// Setup HTTP router
	handler := router.NewRouter(service, router.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadSize:  cfg.MaxUploadSize,
		Metrics:        m,
		Gatherer:       reg,
	}, logger)

	// Create HTTP server. Assistant runs poll for up to AssistantPollTimeout,
	// so the write deadline has to outlast them.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.AssistantPollTimeout + 2*cfg.UpstreamTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "chat_provider", cfg.ChatProvider, "storage_backend", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited")
}
