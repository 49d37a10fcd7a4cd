package blobstore

import (
	"context"
	"errors"
	"io"

	"scenekit/internal/models"
)

// ErrTooLarge is returned when a payload exceeds the configured limit.
var ErrTooLarge = errors.New("blob exceeds size limit")

// PutResult describes one persisted payload.
type PutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
}

// ContentStore is the byte-storage layer under the vault.
type ContentStore interface {
	Put(ctx context.Context, r io.Reader) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Index maps vault ids to content keys.
type Index interface {
	PutVaultBlob(ctx context.Context, h models.BlobHandle) error
	GetVaultBlob(ctx context.Context, id string) (*models.BlobHandle, error)
	DeleteVaultBlob(ctx context.Context, id string) error
	ListVaultBlobs(ctx context.Context) ([]models.BlobHandle, error)
	BlobKeyInUse(ctx context.Context, key, exceptID string) (bool, error)
}
