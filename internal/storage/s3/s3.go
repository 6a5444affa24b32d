// Package s3 uploads render artifacts to any S3-compatible object store.
package s3

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"manimq/internal/pkg/logger"
)

// Config holds S3 connection parameters.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicBaseURL overrides the generated object URL prefix when the
	// bucket is served through a CDN or reverse proxy.
	PublicBaseURL string
}

// Client uploads files to one bucket.
type Client struct {
	mc  *miniosdk.Client
	cfg Config
	log *logger.Logger
}

// New creates a Client and verifies the bucket is reachable.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	mc, err := miniosdk.New(cfg.Endpoint, &miniosdk.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	return &Client{mc: mc, cfg: cfg, log: log.WithComponent("storage")}, nil
}

// Upload stores the file under videos/<hex>_<name> and returns its URL.
func (c *Client) Upload(ctx context.Context, localPath, contentType string) (string, error) {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	key := fmt.Sprintf("videos/%s_%s", hex, filepath.Base(localPath))

	_, err := c.mc.FPutObject(ctx, c.cfg.Bucket, key, localPath, miniosdk.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}

	url := c.objectURL(key)
	c.log.Debug("artifact uploaded", "key", key, "url", url)
	return url, nil
}

// Name implements storage.Provider.
func (c *Client) Name() string {
	return "s3"
}

func (c *Client) objectURL(key string) string {
	if c.cfg.PublicBaseURL != "" {
		return strings.TrimRight(c.cfg.PublicBaseURL, "/") + "/" + key
	}
	scheme := "http"
	if c.cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, c.cfg.Bucket, c.cfg.Endpoint, key)
}
