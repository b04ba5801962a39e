package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"social-content-platform/internal/ai"
	"social-content-platform/internal/analytics"
	"social-content-platform/internal/config"
	"social-content-platform/internal/instagram"
	"social-content-platform/internal/logger"
	"social-content-platform/internal/mirror"
	"social-content-platform/internal/queue"
	"social-content-platform/internal/retry"
	"social-content-platform/internal/telemetry"
	"social-content-platform/middleware"
	"social-content-platform/routes"
	"social-content-platform/services"
	"social-content-platform/utils"
)

const serviceName = "social-content-platform"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	shutdownTracer, err := telemetry.InitTracer(cfg, serviceName)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Redis backs rate limiting, the GA4 cache and the sync queue. The API
	// still serves without it.
	var rdb redis.Cmdable
	var syncQueue routes.SyncQueue
	if redisClient, err := config.NewRedisClient(cfg); err != nil {
		logger.Warn("Redis unavailable, running without cache and queue", "error", err)
	} else {
		rdb = redisClient
		defer redisClient.Close()

		if connOpt, err := queue.RedisConnOpt(cfg); err == nil {
			asynqClient := asynq.NewClient(connOpt)
			defer asynqClient.Close()
			syncQueue = queue.NewEnqueuer(asynqClient)
		}
	}

	ctx := context.Background()

	generator, assistant, closeGenerator, err := buildGenerator(ctx, cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize content generator:", err)
	}
	defer closeGenerator()

	store, err := buildAssetStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize asset storage:", err)
	}
	assetMirror := mirror.New(store, nil, metrics)

	profileService := services.NewProfileService(db, metrics)
	suggestionStore := services.NewSuggestionStore(db, metrics)
	userService := services.NewUserService(db)
	igClient := instagram.NewClient(instagram.Config{
		GraphURL:    cfg.InstagramGraphURL,
		FacebookURL: cfg.FacebookGraphURL,
		PageCap:     cfg.InstagramPageCap,
	})
	instagramService := services.NewInstagramService(db, igClient, userService, suggestionStore, metrics)
	suggestionService := services.NewSuggestionService(profileService, suggestionStore, instagramService, generator, assetMirror, metrics)
	exportService := services.NewExportService(suggestionService)
	chatService := services.NewChatService(assistant, store, assetMirror)

	var visits analytics.VisitsSource
	if cfg.AnalyticsEnabled() {
		ga, err := analytics.NewServiceAccountClient(ctx, cfg.GAPropertyID, cfg.GoogleClientEmail, cfg.GooglePrivateKey)
		if err != nil {
			logger.Warn("Google Analytics disabled", "error", err)
		} else {
			visits = analytics.NewCachedVisits(ga, rdb, cfg.GAPropertyID)
		}
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware(serviceName))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "mongo": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	if local, ok := store.(*mirror.LocalStore); ok {
		router.Static(cfg.AssetURLPrefix, local.Dir())
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, rdb)
	api := router.Group("")
	api.Use(authMiddleware.RequireAuth())
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second))

	routes.SetupSuggestionRoutes(api, suggestionService, exportService)
	routes.SetupBusinessProfileRoutes(api, profileService)
	routes.SetupInstagramRoutes(api, instagramService, syncQueue)
	routes.SetupAnalyticsRoutes(api, visits, instagramService)
	routes.SetupChatRoutes(api, chatService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "text_provider", cfg.TextProvider, "asset_storage", cfg.AssetStorage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

// buildGenerator wires the configured text provider and, when an OpenAI key is
// present, the image client. The chat assistant shares both. The returned func
// releases provider resources.
func buildGenerator(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*ai.Generator, *ai.Assistant, func(), error) {
	closer := func() {}
	openAICfg := ai.OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		TextModel:  cfg.OpenAITextModel,
		ChatModel:  cfg.OpenAIChatModel,
		ImageModel: cfg.OpenAIImageModel,
		ImageSize:  cfg.OpenAIImageSize,
	}

	var text interface {
		ai.TextGenerator
		ai.ChatModel
	}
	switch cfg.TextProvider {
	case config.TextProviderGemini:
		gemini, err := ai.NewGeminiText(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier, metrics)
		if err != nil {
			return nil, nil, closer, err
		}
		text = gemini
		closer = func() { gemini.Close() }
	default:
		openAIText, err := ai.NewOpenAIText(openAICfg)
		if err != nil {
			return nil, nil, closer, err
		}
		text = openAIText
	}

	var image ai.ImageGenerator
	if cfg.ImagesEnabled() {
		openAIImage, err := ai.NewOpenAIImage(openAICfg)
		if err != nil {
			return nil, nil, closer, err
		}
		image = openAIImage
	} else {
		logger.Warn("OPENAI_API_KEY not set, suggestions will be generated without images")
	}

	policy := retry.Default(ai.IsRateLimited)
	generator, err := ai.NewGenerator(text, image, policy, metrics)
	if err != nil {
		return nil, nil, closer, err
	}
	assistant, err := ai.NewAssistant(text, image, policy, metrics)
	if err != nil {
		return nil, nil, closer, err
	}
	return generator, assistant, closer, nil
}

func buildAssetStore(ctx context.Context, cfg *config.Config) (mirror.Store, error) {
	if cfg.AssetStorage == config.AssetStorageGCS {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		return mirror.NewGCSStore(client, cfg.GCSBucket, cfg.GCSPublicURL, "suggestions"), nil
	}
	return mirror.NewLocalStore(cfg.FileStorageDir, cfg.AssetURLPrefix, cfg.PublicBaseURL)
}
