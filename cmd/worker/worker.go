package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hibiken/asynq"

	"social-content-platform/internal/config"
	"social-content-platform/internal/instagram"
	"social-content-platform/internal/logger"
	"social-content-platform/internal/queue"
	"social-content-platform/internal/telemetry"
	"social-content-platform/services"
	"social-content-platform/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

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

	redisOpt, err := queue.RedisConnOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis configuration:", err)
	}

	userService := services.NewUserService(db)
	igClient := instagram.NewClient(instagram.Config{
		GraphURL:    cfg.InstagramGraphURL,
		FacebookURL: cfg.FacebookGraphURL,
		PageCap:     cfg.InstagramPageCap,
	})
	instagramService := services.NewInstagramService(db, igClient, userService, services.NewSuggestionStore(db, metrics), metrics)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				queue.QueueDefault: 3,
				queue.QueueLow:     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(instagramService)
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskInstagramSync, processor.ProcessInstagramSync)

	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	enqueuer := queue.NewEnqueuer(asynqClient)

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	if _, err := scheduler.Cron(cfg.InstagramSyncCron).Do(func() {
		scheduleConnectedSyncs(userService, enqueuer)
	}); err != nil {
		log.Fatalf("Invalid INSTAGRAM_SYNC_CRON %q: %v", cfg.InstagramSyncCron, err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	if err := server.Start(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
	logger.Info("Worker started", "redis", redisOpt.Addr, "sync_cron", cfg.InstagramSyncCron)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker")
	server.Shutdown()
}

// scheduleConnectedSyncs queues a low priority sync for every connected account.
func scheduleConnectedSyncs(users *services.UserService, enqueuer *queue.Enqueuer) {
	ctx, cancel := utils.WithSyncTimeout(context.Background())
	defer cancel()

	ids, err := users.ListInstagramConnected(ctx)
	if err != nil {
		logger.Error("Failed to list connected Instagram users", "error", err)
		return
	}

	queued := 0
	for _, id := range ids {
		if err := enqueuer.EnqueueSync(ctx, id, queue.QueueLow); err != nil {
			logger.Warn("Failed to queue Instagram sync", "user_id", id.Hex(), "error", err)
			continue
		}
		queued++
	}
	logger.Info("Scheduled Instagram syncs", "users", len(ids), "queued", queued)
}
