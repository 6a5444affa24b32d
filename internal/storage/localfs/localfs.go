// Package localfs stores render artifacts on local disk, for development
// setups without an object store.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store copies uploads under a root directory and serves them from a
// base URL.
type Store struct {
	root    string
	baseURL string
}

// New creates a Store rooted at root.
func New(root, baseURL string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("localfs: root directory is required")
	}
	if err := os.MkdirAll(filepath.Join(root, "videos"), 0o755); err != nil {
		return nil, fmt.Errorf("localfs: create root: %w", err)
	}
	return &Store{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload copies the file under videos/<hex>_<name> and returns its URL.
func (s *Store) Upload(_ context.Context, localPath, _ string) (string, error) {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	key := fmt.Sprintf("videos/%s_%s", hex, filepath.Base(localPath))

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("localfs: open source: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.root, key))
	if err != nil {
		return "", fmt.Errorf("localfs: create destination: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("localfs: copy: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

// Name implements storage.Provider.
func (s *Store) Name() string {
	return "local"
}
