package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"manimq/internal/config"
	"manimq/internal/httpapi"
	"manimq/internal/pkg/logger"
	"manimq/internal/pkg/shutdown"
	"manimq/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "manimq-api",
	})
	log.Info("starting manimq API")

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

	router := httpapi.NewRouter(httpapi.Deps{
		Queue:          client,
		Log:            log,
		AllowedOrigins: []string{cfg.FrontendURL},
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
