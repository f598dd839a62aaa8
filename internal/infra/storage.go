package infra

// storage.go — object storage for generated quotations and payment receipts.
// Upload returns the public URL of the stored object; that URL is what gets
// persisted on the quotation and later handed back to Delete.

import (
	"context"
	"fmt"
	"strings"

	"cotizador/internal/config"
)

// ObjectStorage stores binary documents and hands back public URLs.
// Delete of a missing object is not an error.
type ObjectStorage interface {
	Upload(ctx context.Context, data []byte, path, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// NewObjectStorage builds the backend selected by STORAGE_DRIVER and wraps it
// with cb.
func NewObjectStorage(ctx context.Context, cfg *config.Config, cb *CircuitBreaker) (ObjectStorage, error) {
	var inner ObjectStorage
	switch strings.ToLower(cfg.StorageDriver) {
	case "minio":
		s, err := NewMinIOStorage(ctx, MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		})
		if err != nil {
			return nil, err
		}
		inner = s
	case "", "local":
		s, err := NewLocalStorage(cfg.StorageLocalPath, strings.TrimRight(cfg.PublicBaseURL, "/")+LocalFilesRoute)
		if err != nil {
			return nil, err
		}
		inner = s
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.StorageDriver)
	}
	return NewGuardedStorage(inner, cb), nil
}

// ── Circuit-breaker wrapper ───────────────────────────────────────────────────

type guardedStorage struct {
	inner ObjectStorage
	cb    *CircuitBreaker
}

// NewGuardedStorage routes every call through cb.
func NewGuardedStorage(inner ObjectStorage, cb *CircuitBreaker) ObjectStorage {
	if cb == nil {
		return inner
	}
	return &guardedStorage{inner: inner, cb: cb}
}

func (g *guardedStorage) Upload(ctx context.Context, data []byte, path, contentType string) (string, error) {
	var url string
	err := g.cb.Execute(func() error {
		u, err := g.inner.Upload(ctx, data, path, contentType)
		url = u
		return err
	})
	return url, err
}

// Delete rejects URLs the backend does not own before touching the breaker:
// a malformed URL is a caller error, not a storage outage.
func (g *guardedStorage) Delete(ctx context.Context, url string) error {
	if k, ok := g.inner.(objectKeyer); ok {
		if _, err := k.ObjectKey(url); err != nil {
			return err
		}
	}
	return g.cb.Execute(func() error {
		return g.inner.Delete(ctx, url)
	})
}

// objectKeyer is implemented by backends that can map a public URL back to
// their object key.
type objectKeyer interface {
	ObjectKey(url string) (string, error)
}

// objectKey strips base from url and returns the remaining object key.
func objectKey(base, url string) (string, error) {
	base = strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, base) {
		return "", fmt.Errorf("storage: url %q is not under %q", url, base)
	}
	key := strings.TrimPrefix(url, base)
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("storage: invalid object key in %q", url)
	}
	return key, nil
}
