package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/invoicedesk/internal/config"
)

// Store keeps invoice attachments and hands out URLs to them.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL returns a locator for key. Local stores return a path rooted at the public
	// media path; remote stores return an absolute URL.
	URL(ctx context.Context, key string) (string, error)
}

var storageTracer = otel.Tracer("github.com/Additional-Code/invoicedesk/storage")

// ErrInvalidKey is returned for keys that would escape the store's namespace.
var ErrInvalidKey = errors.New("invalid object key")

const (
	keyNamespace = "invoices"
	sniffLen     = 261
	octetStream  = "application/octet-stream"
)

// Module provides the configured attachment store to the Fx graph.
var Module = fx.Provide(NewStore)

// NewStore initialises the configured store (local or s3).
func NewStore(cfg config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Storage.Driver {
	case "local":
		if logger != nil {
			logger.Info("using local attachment storage", zap.String("dir", cfg.Storage.Local.Dir))
		}
		return NewLocalStore(cfg.Storage.Local)
	case "s3":
		return NewS3Store(context.Background(), cfg.Storage.S3, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

// NewKey builds a unique object key that keeps the original file extension, lower-cased.
func NewKey(fileName string) string {
	return keyNamespace + "/" + strings.ToLower(ulid.Make().String()+path.Ext(fileName))
}

// Sniff detects the content type of body from its leading bytes, falling back to the
// file name's extension. The returned reader yields the full, unconsumed body.
func Sniff(body io.Reader, fileName string) (io.Reader, string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", fmt.Errorf("read file header: %w", err)
	}
	head = head[:n]
	rest := io.MultiReader(bytes.NewReader(head), body)

	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown && kind.MIME.Value != "application/zip" {
		return rest, kind.MIME.Value, nil
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".")
	if kind := filetype.GetType(ext); kind != filetype.Unknown {
		return rest, kind.MIME.Value, nil
	}
	return rest, octetStream, nil
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || cleaned != key {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
