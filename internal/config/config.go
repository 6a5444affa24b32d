// Package config loads process configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RedisConfig holds durable-store connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// QueueConfig names the redis keys the queue client uses.
type QueueConfig struct {
	// QueueKey is the pending-task list.
	QueueKey string
	// TaskKeyPrefix prefixes per-task record hashes.
	TaskKeyPrefix string
	// IndexKey is the creation-order index used by retention cleanup.
	IndexKey string
	// Channel is the pub/sub channel for status-change events.
	Channel string
	// MaxTasks bounds retained records; cleanup evicts oldest-first past it.
	MaxTasks int
	// DequeueTimeout is how long one blocking pop waits before re-polling.
	DequeueTimeout time.Duration
}

// StorageConfig selects and configures the artifact storage provider.
type StorageConfig struct {
	// Provider is "s3" or "local".
	Provider      string
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
	LocalRoot     string
	LocalBaseURL  string
}

// WebhookConfig controls completion notifications.
type WebhookConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

// RenderConfig configures the manim invocation.
type RenderConfig struct {
	Binary   string
	Quality  string
	MediaDir string
	Timeout  time.Duration
}

// Config is the full process configuration.
type Config struct {
	HTTPPort    string
	FrontendURL string
	LogLevel    string
	LogFormat   string

	Redis   RedisConfig
	Queue   QueueConfig
	Storage StorageConfig
	Webhook WebhookConfig
	Render  RenderConfig

	DatabaseURL string
	WorkerCount int
	TempDir     string
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Queue: QueueConfig{
			QueueKey:       getEnv("TASK_QUEUE", "manim_tasks"),
			TaskKeyPrefix:  getEnv("TASK_KEY_PREFIX", "task:"),
			IndexKey:       getEnv("TASK_INDEX", "manim_tasks:index"),
			Channel:        getEnv("TASK_CHANNEL", "task_updates"),
			MaxTasks:       getInt("MAX_TASKS", 1000),
			DequeueTimeout: getDuration("DEQUEUE_TIMEOUT", 5*time.Second),
		},
		Storage: StorageConfig{
			Provider:      getEnv("STORAGE_PROVIDER", "s3"),
			Endpoint:      getEnv("S3_ENDPOINT", "s3.amazonaws.com"),
			Region:        getEnv("AWS_REGION", ""),
			Bucket:        getEnv("AWS_S3_BUCKET_NAME", ""),
			AccessKey:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
			UseSSL:        getBool("S3_USE_SSL", true),
			PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
			LocalRoot:     getEnv("STORAGE_LOCAL_ROOT", "/data"),
			LocalBaseURL:  getEnv("STORAGE_LOCAL_BASE_URL", "http://localhost:8080/media"),
		},
		Webhook: WebhookConfig{
			Enabled: getBool("WEBHOOK_ENABLED", false),
			URL:     getEnv("WEBHOOK_URL", ""),
			Timeout: getDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		},
		Render: RenderConfig{
			Binary:   getEnv("MANIM_BINARY", "manim"),
			Quality:  getEnv("MANIM_QUALITY", "-ql"),
			MediaDir: getEnv("MEDIA_DIR", "media"),
			Timeout:  getDuration("RENDER_TIMEOUT", 180*time.Second),
		},

		DatabaseURL: getEnv("DATABASE_URL", ""),
		WorkerCount: getInt("NUM_WORKERS", 2),
		TempDir:     getEnv("TEMP_DIR", os.TempDir()),
	}

	if cfg.WorkerCount <= 0 {
		return nil, fmt.Errorf("NUM_WORKERS must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.Queue.MaxTasks <= 0 {
		return nil, fmt.Errorf("MAX_TASKS must be positive, got %d", cfg.Queue.MaxTasks)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getDuration reads a duration env var. Plain numbers are taken as
// seconds.
func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
