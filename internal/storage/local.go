package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/invoicedesk/internal/config"
)

// LocalStore writes attachments below a directory served by the HTTP server.
type LocalStore struct {
	dir        string
	publicPath string
}

// NewLocalStore prepares dir and returns a store rooted there.
func NewLocalStore(cfg config.LocalStorage) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{dir: cfg.Dir, publicPath: cfg.PublicPath}, nil
}

// Put streams body to disk, replacing any existing object at key.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, span := storageTracer.Start(ctx, "LocalStore.Put", trace.WithAttributes(
		attribute.String("object.key", key),
		attribute.Int64("object.size", size),
	))
	defer span.End()

	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		span.RecordError(err)
		return fmt.Errorf("create object dir: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("create temp object: %w", err)
	}
	tmp := f.Name()
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		span.RecordError(err)
		return fmt.Errorf("commit object: %w", err)
	}
	return nil
}

// Delete removes key; a missing object is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	_, span := storageTracer.Start(ctx, "LocalStore.Delete", trace.WithAttributes(attribute.String("object.key", key)))
	defer span.End()

	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		span.RecordError(err)
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// URL returns the public path for key, relative to the server root.
func (s *LocalStore) URL(_ context.Context, key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return s.publicPath + "/" + cleaned, nil
}

func (s *LocalStore) path(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(cleaned)), nil
}
