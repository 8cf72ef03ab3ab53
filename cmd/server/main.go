package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zombar/emoscan/internal/agent"
	"github.com/zombar/emoscan/internal/analyzer"
	"github.com/zombar/emoscan/internal/api"
	"github.com/zombar/emoscan/internal/database"
	"github.com/zombar/emoscan/internal/queue"
	"github.com/zombar/emoscan/internal/tracing"
	"github.com/zombar/emoscan/internal/vision"
	"github.com/zombar/emoscan/pkg/logging"
)

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("emoscan service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("emoscan")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
	}

	// Get default values from environment variables, with fallbacks
	portDefault := getEnv("PORT", "8080")
	dbPathDefault := getEnv("DB_PATH", "emoscan.db")
	redisAddrDefault := getEnv("REDIS_ADDR", "")
	faceppKeyDefault := getEnv("FACEPP_API_KEY", "")
	faceppSecretDefault := getEnv("FACEPP_API_SECRET", "")
	faceppEndpointDefault := getEnv("FACEPP_ENDPOINT", "")
	geminiKeyDefault := getEnv("GEMINI_API_KEY", "")
	openrouterKeyDefault := getEnv("OPENROUTER_API_KEY", "")
	ollamaURLDefault := getEnv("OLLAMA_URL", "http://localhost:11434")
	ollamaModelDefault := getEnv("OLLAMA_MODEL", vision.DefaultOllamaModel)
	judgeBackendDefault := getEnv("JUDGE_BACKEND", "ollama")

	var (
		port           = flag.String("port", portDefault, "Server port (env: PORT)")
		dbPath         = flag.String("db", dbPathDefault, "Database file path (env: DB_PATH)")
		redisAddr      = flag.String("redis", redisAddrDefault, "Redis address for the batch queue, empty runs batches inline (env: REDIS_ADDR)")
		faceppKey      = flag.String("facepp-key", faceppKeyDefault, "Face++ API key (env: FACEPP_API_KEY)")
		faceppSecret   = flag.String("facepp-secret", faceppSecretDefault, "Face++ API secret (env: FACEPP_API_SECRET)")
		faceppEndpoint = flag.String("facepp-endpoint", faceppEndpointDefault, "Face++ detect endpoint (env: FACEPP_ENDPOINT)")
		geminiKey      = flag.String("gemini-key", geminiKeyDefault, "Gemini API key (env: GEMINI_API_KEY)")
		openrouterKey  = flag.String("openrouter-key", openrouterKeyDefault, "OpenRouter API key (env: OPENROUTER_API_KEY)")
		ollamaURL      = flag.String("ollama-url", ollamaURLDefault, "Ollama API URL (env: OLLAMA_URL)")
		ollamaModel    = flag.String("ollama-model", ollamaModelDefault, "Ollama model for the judge (env: OLLAMA_MODEL)")
		judgeBackend   = flag.String("judge-backend", judgeBackendDefault, "Judge model backend: ollama, gemini, openrouter or none (env: JUDGE_BACKEND)")
	)
	flag.Parse()

	// Initialize database
	db, err := database.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "database_path", *dbPath)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Assemble classifiers
	var opts []analyzer.Option

	if *faceppKey != "" && *faceppSecret != "" {
		opts = append(opts, analyzer.WithDataSource(
			vision.NewFacepp(*faceppEndpoint, *faceppKey, *faceppSecret, logger)))
		logger.Info("facepp classifier enabled")
	} else {
		logger.Warn("facepp credentials missing, data pipeline disabled")
	}

	var visionSources []analyzer.ImageClassifier
	var gemini *vision.GeminiClient
	var openrouter *vision.OpenRouterClient
	if *geminiKey != "" {
		gemini = vision.NewGemini("", *geminiKey, logger)
		visionSources = append(visionSources, gemini)
		logger.Info("gemini classifier enabled")
	}
	if *openrouterKey != "" {
		openrouter = vision.NewOpenRouter("", *openrouterKey, logger)
		visionSources = append(visionSources, openrouter)
		logger.Info("openrouter classifier enabled")
	}
	if len(visionSources) > 0 {
		opts = append(opts, analyzer.WithVisionSources(visionSources...))
	} else {
		logger.Warn("no vision model configured, visual pipeline disabled")
	}

	// Judge backend for batch analyses
	var generator agent.Generator
	switch *judgeBackend {
	case "ollama":
		ollamaClient, err := vision.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			logger.Warn("failed to initialize Ollama judge, batches use the algorithmic judge", "error", err)
		} else {
			generator = ollamaClient
			logger.Info("ollama judge enabled", "model", *ollamaModel, "url", *ollamaURL)
		}
	case "gemini":
		if gemini != nil {
			generator = gemini
			logger.Info("gemini judge enabled")
		} else {
			logger.Warn("gemini judge requested but no API key configured")
		}
	case "openrouter":
		if openrouter != nil {
			generator = openrouter
			logger.Info("openrouter judge enabled")
		} else {
			logger.Warn("openrouter judge requested but no API key configured")
		}
	case "none":
		logger.Info("judge model disabled, batches use the algorithmic judge")
	default:
		logger.Warn("unknown judge backend, batches use the algorithmic judge", "backend", *judgeBackend)
	}
	if generator != nil {
		opts = append(opts, analyzer.WithLLMJudge(agent.NewLLMJudge(generator, logger)))
	}

	emoAnalyzer := analyzer.New(logger, opts...)

	// Queue client + worker when Redis is configured
	var queueClient *queue.Client
	var worker *queue.Worker
	if *redisAddr != "" {
		queueClient = queue.NewClient(queue.ClientConfig{RedisAddr: *redisAddr})
		defer queueClient.Close()

		worker = queue.NewWorker(queue.WorkerConfig{RedisAddr: *redisAddr}, emoAnalyzer, db, logger)
		go func() {
			if err := worker.Run(); err != nil {
				logger.Error("queue worker stopped", "error", err)
				os.Exit(1)
			}
		}()
		logger.Info("batch queue enabled", "redis", *redisAddr)
	} else {
		logger.Info("no Redis configured, batch analyses run inline")
	}

	// Initialize API handler
	var enqueuer api.BatchEnqueuer
	if queueClient != nil {
		enqueuer = queueClient
	}
	apiHandler := api.NewHandler(db, emoAnalyzer, enqueuer)

	// Middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware("emoscan")(apiHandler),
	)

	// Extended write timeout, a synchronous batch walks every image through
	// remote APIs.
	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 420 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("emoscan service starting",
			"port", *port,
			"database", *dbPath,
			"queue_enabled", *redisAddr != "",
			"judge_backend", *judgeBackend,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if worker != nil {
		worker.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
