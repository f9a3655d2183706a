package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"momentum/internal/auth"
	"momentum/internal/coach"
	"momentum/internal/config"
	"momentum/internal/domain/services"
	"momentum/internal/handler"
	"momentum/internal/handler/sse"
	"momentum/internal/middleware"
	"momentum/internal/repository/postgres"
	postgresChat "momentum/internal/repository/postgres/chat"
	serviceChat "momentum/internal/service/chat"
	serviceLLM "momentum/internal/service/llm"
	"momentum/internal/service/llm/providers/anthropic"
	"momentum/internal/service/llm/providers/lorem"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	repoConfig := postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	threadRepo := postgresChat.NewThreadRepository(repoConfig)
	messageRepo := postgresChat.NewMessageRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Setup LLM providers. The lorem mock is always registered so lorem-*
	// models work in every environment; Anthropic needs an API key.
	registry, err := setupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM providers: %v", err)
	}

	// Load agent personas (embedded defaults or PERSONA_FILE override)
	personas, err := coach.LoadPersonas(cfg.PersonaFile)
	if err != nil {
		log.Fatalf("Failed to load personas: %v", err)
	}

	// Services
	titleModel := cfg.TitleModel
	if titleModel == "" {
		titleModel = cfg.DefaultModel
	}
	titles := serviceChat.NewTitleGenerator(threadRepo, registry, titleModel, logger)
	threadService := serviceChat.NewThreadService(threadRepo, messageRepo, txManager, logger)
	relayService := serviceChat.NewRelayService(threadRepo, messageRepo, registry, personas, titles, cfg.DefaultModel, logger)

	// Handlers
	threadHandler := handler.NewThreadHandler(threadService, logger)
	respondHandler := handler.NewRespondHandler(relayService, sse.DefaultConfig(), logger)

	logger.Info("services initialized", "default_model", cfg.DefaultModel, "title_model", titleModel)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Thread routes
	mux.HandleFunc("POST /api/chat/threads", threadHandler.CreateThread)
	mux.HandleFunc("GET /api/chat/threads", threadHandler.ListThreads)
	mux.HandleFunc("DELETE /api/chat/threads/{id}", threadHandler.DeleteThread)
	mux.HandleFunc("GET /api/chat/threads/{id}/messages", threadHandler.GetMessages)
	mux.HandleFunc("POST /api/chat/threads/{id}/system-message", threadHandler.AppendSystemMessage)

	// Streaming relay
	mux.HandleFunc("POST /api/chat/respond", respondHandler.Respond)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	h = middleware.AuthMiddleware(jwtVerifier)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupProviders wires the configured LLM providers into a registry and
// validates that the default model resolves.
func setupProviders(cfg *config.Config, logger *slog.Logger) (*serviceLLM.ProviderRegistry, error) {
	var providers []services.LLMProvider

	if cfg.AnthropicAPIKey != "" {
		anthropicProvider, err := anthropic.NewProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		providers = append(providers, anthropicProvider)
	}
	providers = append(providers, lorem.NewProvider())

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}

	registry := serviceLLM.NewProviderRegistry(providers...)
	if err := registry.Validate(cfg.DefaultModel); err != nil {
		return nil, err
	}

	logger.Info("llm providers registered", "providers", names)
	return registry, nil
}
