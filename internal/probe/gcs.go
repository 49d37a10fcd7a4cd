package probe

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS checks object existence through bucket metadata.
type GCS struct {
	client  *storage.Client
	timeout time.Duration
	logger  *slog.Logger
}

// GCSOptions configures a GCS prober.
type GCSOptions struct {
	CredentialsFile string
	// Anonymous skips credential discovery for public buckets.
	Anonymous bool
	Timeout   time.Duration
	Logger    *slog.Logger
}

// NewGCS creates a storage client and wraps it.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCS, error) {
	clientOpts := []option.ClientOption{}
	if creds := strings.TrimSpace(opts.CredentialsFile); creds != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(creds))
	} else if opts.Anonymous {
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}
	clientOpts = append(clientOpts, option.WithScopes(storage.ScopeReadOnly))
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}
	return NewGCSWithClient(client, opts.Timeout, opts.Logger), nil
}

// NewGCSWithClient wraps an existing storage client.
func NewGCSWithClient(client *storage.Client, timeout time.Duration, logger *slog.Logger) *GCS {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCS{client: client, timeout: timeout, logger: logger.With("component", "probe", "probe", "gcs")}
}

// Probe reports whether bucket/key exists. Errors of any kind are false.
func (g *GCS) Probe(ctx context.Context, bucket, key string) bool {
	if g == nil || g.client == nil {
		return false
	}
	bucket = strings.TrimSpace(bucket)
	key = strings.TrimSpace(key)
	if bucket == "" || key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotExist) {
			g.logger.Debug("gcs probe failed", "bucket", bucket, "key", key, "error", err)
		}
		return false
	}
	return true
}

// Close releases the storage client.
func (g *GCS) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}
