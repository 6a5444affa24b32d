package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"manimq/internal/config"
	"manimq/internal/database"
	"manimq/internal/notify"
	"manimq/internal/pkg/logger"
	"manimq/internal/pkg/shutdown"
	"manimq/internal/queue"
	"manimq/internal/renderer"
	"manimq/internal/storage"
	"manimq/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "manimq-worker",
	})
	log.Info("starting manimq worker", "workers", cfg.WorkerCount)

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	log.Info("connecting to redis", "addr", cfg.Redis.Addr)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping redis", err)
	}
	log.Info("redis connected")

	store := queue.NewRedisStore(rdb, queue.Keys{
		Queue:      cfg.Queue.QueueKey,
		TaskPrefix: cfg.Queue.TaskKeyPrefix,
		Index:      cfg.Queue.IndexKey,
		Channel:    cfg.Queue.Channel,
	})
	client := queue.NewClient(store, log)

	log.Info("connecting to postgres")
	db, err := database.New(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.LogFatal("failed to connect to postgres", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		db.Close()
		return nil
	})
	log.Info("postgres connected")

	provider, err := storage.NewProvider(cfg.Storage, log)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", provider.Name())

	notifier := notify.New(notify.Config{
		Enabled:    cfg.Webhook.Enabled,
		DefaultURL: cfg.Webhook.URL,
		Timeout:    cfg.Webhook.Timeout,
	}, log)

	rend := renderer.NewManim(renderer.Config{
		Binary:   cfg.Render.Binary,
		Quality:  cfg.Render.Quality,
		MediaDir: cfg.Render.MediaDir,
		Timeout:  cfg.Render.Timeout,
	}, log)

	pool := worker.NewPool(worker.Deps{
		Queue:          client,
		Renderer:       rend,
		Uploader:       provider,
		Results:        db,
		Notifier:       notifier,
		TempDir:        cfg.TempDir,
		Workers:        cfg.WorkerCount,
		DequeueTimeout: cfg.Queue.DequeueTimeout,
		Log:            log,
	})

	runCtx := shutdownMgr.Context()

	// Retention janitor: evict oldest terminal records past the cap.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if _, err := client.CleanOldTasks(runCtx, cfg.Queue.MaxTasks); err != nil {
					log.Warn("task cleanup failed", "error", err.Error())
				}
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		pool.Run(runCtx)
		close(done)
	}()
	shutdownMgr.Register("worker-pool", func(ctx context.Context) error {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	shutdownMgr.Wait()
}
