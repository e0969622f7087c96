package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage defines the interface for capture archive operations
type Storage interface {
	// Archive saves a capture under key and returns where it was stored
	Archive(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Get retrieves an archived capture by key
	Get(ctx context.Context, key string) ([]byte, error)
}

// LocalStorage implements the Storage interface using local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Archive writes the capture below the base path, creating key directories
func (l *LocalStorage) Archive(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}

// Get retrieves a capture from local storage
func (l *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// resolve keeps keys inside the base path
func (l *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid archive key: %q", key)
	}
	return filepath.Join(l.basePath, clean), nil
}
