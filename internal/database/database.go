// Package database persists render results into the application's
// relational database.
package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "manimq/internal/pkg/errors"
	"manimq/internal/pkg/logger"
)

// Client writes artifact references into the Prompt table the frontend
// reads from.
type Client struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, dsn string, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.NewDefault()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "database.New", "connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "database.New", "ping")
	}

	return &Client{pool: pool, log: log.WithComponent("database")}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Client{pool: pool, log: log.WithComponent("database")}
}

// SaveVideoURL records the artifact URL on the originating prompt. The
// update is idempotent: re-running it with the same arguments is a no-op.
func (c *Client) SaveVideoURL(ctx context.Context, videoURL, promptID string) error {
	tag, err := c.pool.Exec(ctx,
		`UPDATE "Prompt" SET "videoUrl" = $1 WHERE id = $2`,
		videoURL, promptID,
	)
	if err != nil {
		return apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "database.SaveVideoURL", "update prompt "+promptID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("prompt", promptID)
	}

	c.log.Debug("video url persisted", "prompt_id", promptID)
	return nil
}

// Ping reports database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close releases the pool.
func (c *Client) Close() {
	c.pool.Close()
}
