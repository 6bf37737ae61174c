package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/docsight/backend/internal/api/handlers"
	redisCache "github.com/docsight/backend/internal/cache/redis"
	"github.com/docsight/backend/internal/chat"
	"github.com/docsight/backend/internal/conversation"
	"github.com/docsight/backend/internal/corpus"
	"github.com/docsight/backend/internal/evaluation"
	"github.com/docsight/backend/internal/index"
	"github.com/docsight/backend/internal/insights"
	"github.com/docsight/backend/internal/llm"
	"github.com/docsight/backend/internal/metrics"
	"github.com/docsight/backend/internal/middleware/ratelimit"
	"github.com/docsight/backend/internal/middleware/security"
	"github.com/docsight/backend/internal/session"
	"github.com/docsight/backend/pkg/config"
	appLogger "github.com/docsight/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting DocSight API Server")

	metrics.Init()

	docs, err := corpus.Load(cfg.Corpus.Dir)
	if err != nil {
		appLogger.Fatal("Failed to load document corpus", zap.Error(err))
	}

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		TimeoutSec:     cfg.LLM.TimeoutSec,
		SystemPrompt:   cfg.LLM.SystemPrompt,
	})

	indexManager := index.NewManager(func(ctx context.Context) (*index.Index, error) {
		start := time.Now()
		idx, err := index.Build(ctx, docs, llmClient, index.Options{
			SentencesPerChunk: cfg.Index.SentencesPerChunk,
			OverlapSentences:  cfg.Index.OverlapSentences,
			EmbedBatchSize:    cfg.Index.EmbedBatchSize,
		})
		if err != nil {
			return nil, err
		}
		metrics.IndexBuildDuration.Set(time.Since(start).Seconds())
		metrics.IndexChunksTotal.Set(float64(idx.Len()))
		return idx, nil
	})

	// Build eagerly so a broken index stops the process instead of the
	// first chat turn.
	if _, err := indexManager.Get(context.Background()); err != nil {
		appLogger.Fatal("Failed to build vector index", zap.Error(err))
	}

	store, err := newConversationStore(cfg)
	if err != nil {
		appLogger.Fatal("Failed to open conversation log", zap.Error(err))
	}
	defer store.Close()

	engine := chat.NewEngine(llmClient, llmClient, indexManager, cfg.Index.TopK)

	if cfg.Redis.Enabled {
		redisClient, err := redisCache.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, continuing without embedding cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			engine.WithCache(redisCache.NewEmbeddingCache(redisClient, time.Hour))
		}
	}

	registry := session.NewRegistry(cfg.Chat.Greeting)

	var evaluator *evaluation.Evaluator
	if cfg.Evaluation.Enabled {
		evaluator = evaluation.NewEvaluator(llmClient, store)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Session-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	chatHandler := handlers.NewChatHandler(engine, registry, store, evaluator)
	conversationHandler := handlers.NewConversationHandler(store)
	wsHandler := handlers.NewWebSocketHandler(chatHandler)

	api := app.Group("/api/v1")
	api.Use(limiter.Middleware())

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/sessions/:id/history", chatHandler.GetHistory)
	api.Get("/conversations/recent", conversationHandler.GetRecent)

	if cfg.Insights.Enabled {
		insightsService, err := insights.NewService(cfg.Insights.DataDir)
		if err != nil {
			appLogger.Fatal("Failed to load insights data", zap.Error(err))
		}
		insightsHandler := handlers.NewInsightsHandler(insightsService)

		ins := api.Group("/insights")
		ins.Get("/summary", insightsHandler.GetSummary)
		ins.Get("/sales", insightsHandler.GetSales)
		ins.Get("/production", insightsHandler.GetProduction)
		ins.Get("/sentiments", insightsHandler.GetSentiments)
		ins.Get("/products", insightsHandler.GetProducts)
		ins.Get("/products/detail", insightsHandler.GetProductDetail)
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

func newConversationStore(cfg *config.Config) (conversation.Store, error) {
	switch cfg.Conversation.Backend {
	case "sqlite":
		return conversation.NewSQLiteStore(cfg.Conversation.SQLitePath)
	case "csv":
		return conversation.NewCSVStore(cfg.Conversation.CSVPath)
	default:
		return nil, fmt.Errorf("unknown conversation backend: %s", cfg.Conversation.Backend)
	}
}
