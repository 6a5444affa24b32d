// Package storage selects the artifact storage provider that receives
// rendered videos.
package storage

import (
	"context"
	"fmt"

	"manimq/internal/config"
	"manimq/internal/pkg/logger"
	"manimq/internal/storage/localfs"
	"manimq/internal/storage/s3"
)

// Provider uploads a local file and returns a publicly resolvable URL.
type Provider interface {
	// Upload stores the file under a fresh object key and returns its URL.
	Upload(ctx context.Context, localPath, contentType string) (string, error)
	// Name identifies the provider for health reporting.
	Name() string
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg config.StorageConfig, log *logger.Logger) (Provider, error) {
	switch cfg.Provider {
	case "s3":
		return s3.New(s3.Config{
			Endpoint:      cfg.Endpoint,
			Region:        cfg.Region,
			Bucket:        cfg.Bucket,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			UseSSL:        cfg.UseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
		}, log)
	case "local":
		return localfs.New(cfg.LocalRoot, cfg.LocalBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
