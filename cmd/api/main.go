package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sola-scriptura-chat-api/internal/cache"
	"github.com/sola-scriptura-chat-api/internal/config"
	"github.com/sola-scriptura-chat-api/internal/handlers"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/middleware"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
	"github.com/sola-scriptura-chat-api/internal/repository/postgres"
	"github.com/sola-scriptura-chat-api/internal/repository/vertex"
	"github.com/sola-scriptura-chat-api/internal/services"
	schemaconfig "github.com/sola-scriptura-chat-api/pkg/schema/config"
	"github.com/sola-scriptura-chat-api/pkg/schema/db"
	pkgservices "github.com/sola-scriptura-chat-api/pkg/schema/services"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	if err := config.LoadError(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := schemaconfig.LoadError(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg := config.GetConfig()

	appLog, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Sync()

	// Initialize PostgreSQL
	ctx := context.Background()
	if err := db.InitPostgres(ctx); err != nil {
		log.Fatalf("Failed to initialize PostgreSQL: %v", err)
	}
	log.Println("Database initialization complete")

	// Redis is optional; without it caching and rate limiting are disabled
	var store cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.RedisDialTimeout, appLog)
		if err != nil {
			appLog.Warn("redis unavailable, continuing without cache", "error", err)
		} else {
			store = rdb
		}
	}

	// Create repositories
	pgDB := db.GetPostgres()
	verseRepo := postgres.NewVerseRepository(pgDB)
	topicRepo := postgres.NewTopicRepository(pgDB)
	crossRefRepo := postgres.NewCrossReferenceRepository(pgDB)
	apiKeyRepo := postgres.NewAPIKeyRepository(pgDB)
	usageRepo := postgres.NewUsageRepository(pgDB)
	conversationRepo := postgres.NewConversationRepository(pgDB)

	// Create vector search repository based on configuration
	var vectorRepo repository.VectorSearchRepository
	var vertexRepo *vertex.VectorSearchRepository // For cleanup

	switch cfg.VectorBackend {
	case "vertex":
		log.Println("Using Vertex AI Vector Search backend")
		vertexRepo, err = vertex.NewVectorSearchRepository(ctx, vertex.Config{
			ProjectID:            cfg.VertexProjectID,
			Location:             cfg.VertexLocation,
			IndexEndpointID:      cfg.VertexIndexEndpointID,
			DeployedIndexID:      cfg.VertexDeployedIndexID,
			PublicEndpointDomain: cfg.VertexPublicEndpointDomain,
		}, pgDB)
		if err != nil {
			log.Fatalf("Failed to create Vertex AI vector repository: %v", err)
		}
		vectorRepo = vertexRepo
	default:
		log.Println("Using pgvector backend")
		vectorRepo = postgres.NewVectorSearchRepository(pgDB)
	}

	// AI providers
	embeddingsSvc := pkgservices.GetEmbeddingsService()
	if err := pkgservices.GetInitError(); err != nil {
		log.Fatalf("Failed to initialize embeddings service: %v", err)
	}
	var embedder services.QueryEmbedder
	if embeddingsSvc != nil {
		embedder = embeddingsSvc
	} else {
		log.Println("Embeddings disabled, semantic search will use full-text search")
	}

	generator, err := pkgservices.NewGenerator(ctx, schemaconfig.GetConfig())
	if err != nil {
		log.Fatalf("Failed to initialize generation provider: %v", err)
	}

	// Create services
	ttls := services.CacheTTLs{Medium: cfg.CacheTTLMedium, Long: cfg.CacheTTLLong, Day: cfg.CacheTTLDay}
	verseSvc := services.NewVerseService(verseRepo, topicRepo, crossRefRepo, store, ttls, appLog.With("service", "verses"))
	searchSvc := services.NewSearchService(verseSvc, vectorRepo, topicRepo, embedder, appLog.With("service", "search"))
	assistant := services.NewAssistant(
		verseSvc,
		services.NewRetriever(verseSvc, appLog.With("service", "retrieval")),
		services.NewResponseGenerator(generator, store, services.GenerationTTLs{
			Response: cfg.CacheTTLLong,
			Prayer:   cfg.CacheTTLShort,
		}, appLog.With("service", "generation")),
		services.NewValidator(verseSvc, cfg.DefaultTranslation, appLog.With("service", "validation")),
		topicRepo,
		conversationRepo,
		appLog.With("service", "assistant"),
	)
	apiKeySvc := services.NewAPIKeyService(apiKeyRepo, appLog.With("service", "apikeys"))
	usageTracker := services.NewUsageTracker(apiKeyRepo, usageRepo, cfg.UsageQueueSize, appLog.With("service", "usage"))

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler(appLog, cfg.IsDevelopment())
	e.Validator = middleware.NewRequestValidator()

	// Middleware
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(appLog))
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORS(cfg.CORSOrigins))

	rateLimit := middleware.NewRateLimiter(store, cfg.RateLimitWindow, middleware.RateLimits{
		Free:    cfg.RateLimitFree,
		Paid:    cfg.RateLimitPaid,
		Premium: cfg.RateLimitPremium,
	}, appLog).Middleware()
	authed := []echo.MiddlewareFunc{
		middleware.RequireAPIKey(apiKeySvc, appLog),
		rateLimit,
		middleware.TrackUsage(usageTracker),
	}
	paidOnly := append(authed[:len(authed):len(authed)], middleware.RequireTier(models.TierPaid))

	// Create API group with prefix
	api := e.Group(cfg.APIPrefix)

	// Register handlers
	handlers.NewHealthHandler(store).RegisterRoutes(api)
	handlers.NewDailyHandler(assistant, cfg.DefaultTranslation).RegisterRoutes(api, rateLimit)
	handlers.NewChatHandler(assistant, cfg.DefaultTranslation).RegisterRoutes(api, authed...)
	handlers.NewVerseHandler(assistant, verseSvc, searchSvc, cfg.DefaultTranslation).RegisterRoutes(api, authed...)
	handlers.NewSearchHandler(searchSvc, cfg.DefaultTranslation).RegisterRoutes(api, authed...)
	handlers.NewTopicHandler(assistant, cfg.DefaultTranslation).RegisterRoutes(api, authed...)
	handlers.NewCounselHandler(assistant, cfg.DefaultTranslation).RegisterRoutes(api, paidOnly...)
	handlers.NewAccountHandler(apiKeySvc).RegisterRoutes(api, authed...)

	// Root health check
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"name":    cfg.APITitle,
			"version": cfg.APIVersion,
			"status":  "running",
		})
	})

	// Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Starting %s v%s on %s", cfg.APITitle, cfg.APIVersion, addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	// In-flight requests are done; flush queued usage before the database goes away
	usageTracker.Close()

	if err := db.ClosePostgres(); err != nil {
		log.Printf("Error closing PostgreSQL: %v", err)
	}

	// Close Vertex AI client if used
	if vertexRepo != nil {
		if err := vertexRepo.Close(); err != nil {
			log.Printf("Error closing Vertex AI client: %v", err)
		}
	}
	if embeddingsSvc != nil {
		if err := embeddingsSvc.Close(); err != nil {
			log.Printf("Error closing embeddings client: %v", err)
		}
	}
	if err := generator.Close(); err != nil {
		log.Printf("Error closing generation client: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("Error closing cache: %v", err)
	}

	log.Println("Server stopped")
}
