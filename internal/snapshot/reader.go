// Package snapshot reads the build-time copy of the remote record collection.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"scenekit/internal/api"
	"scenekit/internal/models"
)

const (
	defaultFetchTimeout = 5 * time.Second
	maxSnapshotBytes    = 64 << 20
)

// Reader loads a snapshot from a file path or an http(s) URL.
type Reader struct {
	source string
	client *http.Client
	logger *slog.Logger
}

// NewReader returns a reader for source. An empty source yields an empty
// snapshot on every read.
func NewReader(source string, client *http.Client, logger *slog.Logger) *Reader {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		source: strings.TrimSpace(source),
		client: client,
		logger: logger.With("component", "snapshot"),
	}
}

// Source returns the configured location.
func (r *Reader) Source() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Load reads and decodes the snapshot.
func (r *Reader) Load(ctx context.Context) ([]models.GeometryRecord, error) {
	if r == nil || r.source == "" {
		return []models.GeometryRecord{}, nil
	}

	data, err := r.fetch(ctx)
	if err != nil {
		return []models.GeometryRecord{}, err
	}
	records, err := api.DecodeRecords(data)
	if err != nil {
		return []models.GeometryRecord{}, fmt.Errorf("snapshot %s: %w", r.source, err)
	}
	return records, nil
}

// Read is Load with failures logged and replaced by an empty snapshot.
func (r *Reader) Read(ctx context.Context) []models.GeometryRecord {
	records, err := r.Load(ctx)
	if err != nil {
		r.logger.Warn("snapshot unavailable", "source", r.source, "error", err)
		return []models.GeometryRecord{}
	}
	return records
}

func (r *Reader) fetch(ctx context.Context) ([]byte, error) {
	if !isRemote(r.source) {
		data, err := os.ReadFile(r.source)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch snapshot: %w: status %d", models.ErrNotFound, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
