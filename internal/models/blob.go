package models

import "time"

// BlobHandle indexes one vault payload by its caller-supplied id.
// Several ids may share a BlobKey when their bytes are identical.
type BlobHandle struct {
	ID        string    `json:"id" yaml:"id"`
	SHA256    string    `json:"sha256" yaml:"sha256"`
	SizeBytes int64     `json:"size_bytes" yaml:"size_bytes"`
	BlobKey   string    `json:"blob_key" yaml:"blob_key"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
