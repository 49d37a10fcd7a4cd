package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"scenekit/internal/models"
)

const vaultBlobColumns = "id, sha256, size_bytes, blob_key, created_at"

// PutVaultBlob records the blob key behind a vault id, replacing any prior row.
func (s *Store) PutVaultBlob(ctx context.Context, h models.BlobHandle) error {
	h.ID = strings.TrimSpace(h.ID)
	h.SHA256 = strings.ToLower(strings.TrimSpace(h.SHA256))
	h.BlobKey = strings.TrimSpace(h.BlobKey)
	if h.ID == "" {
		return fmt.Errorf("blob id is required")
	}
	if h.BlobKey == "" {
		return fmt.Errorf("blob_key is required")
	}
	if h.SizeBytes < 0 {
		return fmt.Errorf("size_bytes must be >= 0")
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO vault_blobs (`+vaultBlobColumns+`)
		VALUES (?, ?, ?, ?, ?)
	`, h.ID, h.SHA256, h.SizeBytes, h.BlobKey, dbFormatTime(h.CreatedAt))
	return err
}

// GetVaultBlob returns the index row for id, or nil when absent.
func (s *Store) GetVaultBlob(ctx context.Context, id string) (*models.BlobHandle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vaultBlobColumns+` FROM vault_blobs WHERE id = ?`, strings.TrimSpace(id))
	return scanVaultBlob(row)
}

// DeleteVaultBlob removes the index row for id. Missing rows are ignored.
func (s *Store) DeleteVaultBlob(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM vault_blobs WHERE id = ?", strings.TrimSpace(id))
	return err
}

// ListVaultBlobs returns every index row ordered by creation.
func (s *Store) ListVaultBlobs(ctx context.Context) ([]models.BlobHandle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+vaultBlobColumns+` FROM vault_blobs ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	handles := []models.BlobHandle{}
	for rows.Next() {
		h, err := scanVaultBlob(rows)
		if err != nil {
			return nil, err
		}
		if h != nil {
			handles = append(handles, *h)
		}
	}
	return handles, rows.Err()
}

// BlobKeyInUse reports whether any id other than exceptID points at key.
func (s *Store) BlobKeyInUse(ctx context.Context, key, exceptID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM vault_blobs WHERE blob_key = ? AND id <> ? LIMIT 1",
		strings.TrimSpace(key), strings.TrimSpace(exceptID),
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanVaultBlob(scanner interface {
	Scan(dest ...any) error
}) (*models.BlobHandle, error) {
	h := models.BlobHandle{}
	var createdAt string

	err := scanner.Scan(&h.ID, &h.SHA256, &h.SizeBytes, &h.BlobKey, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsed, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	h.CreatedAt = parsed
	return &h, nil
}
