package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ikkim/review-insight-backend/pkg/logger"
)

// LocalImageStore writes screenshots below a directory on disk.
type LocalImageStore struct {
	dir string
	now func() time.Time
}

func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalImageStore{dir: dir, now: time.Now}, nil
}

func (s *LocalImageStore) Save(ctx context.Context, filename string, info *ImageInfo, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := objectKey(s.now(), filename, info)
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	logger.Debug("Screenshot stored", map[string]interface{}{
		"path":  path,
		"bytes": len(data),
	})
	return path, nil
}
