package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"massdownloader/internal/application/ports"
)

// Storage implements ports.Storage on a local directory, typically a
// shared drive other machines read their symbols from
type Storage struct {
	basePath string
	logger   ports.Logger
	metrics  ports.Metrics
}

// NewStorage creates a new filesystem-based object storage
func NewStorage(basePath string, logger ports.Logger, metrics ports.Metrics) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		logger.Error("Failed to create base path", "path", basePath, "error", err)
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	logger.Info("Filesystem storage initialized", "base_path", basePath)

	return &Storage{
		basePath: basePath,
		logger:   logger.WithFields(map[string]interface{}{"storage": "filesystem"}),
		metrics:  metrics.WithTags(map[string]string{"storage": "filesystem"}),
	}, nil
}

// Put stores an object. The data lands in a temp file first so readers
// never see a partial object; a body shorter or longer than
// metadata.ContentLength is rejected.
func (s *Storage) Put(ctx context.Context, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	startTime := time.Now()
	s.metrics.IncrementCounter("storage.put.attempts", nil)

	objectPath, err := s.getObjectPath(key)
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "key"})
		return err
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0755); err != nil {
		s.logger.Error("Failed to create object directory", "key", key, "error", err)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "mkdir"})
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(objectPath), ".put-*")
	if err != nil {
		s.logger.Error("Failed to create file", "path", objectPath, "error", err)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "create"})
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bytesWritten, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.logger.Error("Failed to write data", "key", key, "error", err)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "write"})
		return fmt.Errorf("failed to write data: %w", err)
	}

	if metadata.ContentLength > 0 && bytesWritten != metadata.ContentLength {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "length"})
		return fmt.Errorf("object %s: wrote %d bytes, expected %d", key, bytesWritten, metadata.ContentLength)
	}

	if err := os.Rename(tmp.Name(), objectPath); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "rename"})
		return fmt.Errorf("failed to move object into place: %w", err)
	}

	duration := time.Since(startTime)
	s.logger.Info("Object stored successfully",
		"key", key,
		"bytes", bytesWritten,
		"duration_ms", duration.Milliseconds())

	s.metrics.IncrementCounter("storage.put.success", nil)
	s.metrics.RecordHistogram("storage.put.bytes", float64(bytesWritten), nil)
	s.metrics.RecordHistogram("storage.put.duration_ms", float64(duration.Milliseconds()), nil)

	return nil
}

// Get opens an object for reading
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectPath, err := s.getObjectPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(objectPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "not_found"})
			return nil, fmt.Errorf("%w: %s", ports.ErrObjectNotFound, key)
		}
		s.logger.Error("Failed to open file", "path", objectPath, "error", err)
		s.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "open"})
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	s.metrics.IncrementCounter("storage.get.success", nil)
	return file, nil
}

// Delete removes an object; a missing object is not an error
func (s *Storage) Delete(ctx context.Context, key string) error {
	objectPath, err := s.getObjectPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(objectPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete object", "path", objectPath, "error", err)
		s.metrics.IncrementCounter("storage.delete.errors", nil)
		return fmt.Errorf("failed to delete object: %w", err)
	}

	s.logger.Info("Object deleted successfully", "key", key)
	s.metrics.IncrementCounter("storage.delete.success", nil)
	return nil
}

// Exists checks if an object exists
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	s.metrics.IncrementCounter("storage.exists.calls", nil)

	objectPath, err := s.getObjectPath(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(objectPath)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}

	s.logger.Error("Failed to check object existence", "key", key, "error", err)
	return false, err
}

// getObjectPath maps a key below basePath and rejects keys that climb out
func (s *Storage) getObjectPath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.basePath, cleaned), nil
}
