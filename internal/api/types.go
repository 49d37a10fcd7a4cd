package api

import "scenekit/internal/models"

// ErrorResponse is the JSON error body written by the local server.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// InfoResponse describes a running local server.
type InfoResponse struct {
	Version      string `json:"version" yaml:"version"`
	Session      string `json:"session" yaml:"session"`
	RemoteURL    string `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`
	SnapshotPath string `json:"snapshot_path,omitempty" yaml:"snapshot_path,omitempty"`
	DBPath       string `json:"db_path" yaml:"db_path"`
	VaultEnabled bool   `json:"vault_enabled" yaml:"vault_enabled"`
	LedgerCount  int    `json:"ledger_count" yaml:"ledger_count"`
	Backends     int    `json:"backends" yaml:"backends"`
	AuthRequired bool   `json:"auth_required" yaml:"auth_required"`
}

// ResolveResponse is the body of GET /v1/assets/resolve.
type ResolveResponse struct {
	models.ResolvedAsset `yaml:",inline"`
	Candidates []models.Candidate `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

// VaultGCResponse is the body of POST /v1/admin/vault/gc.
type VaultGCResponse struct {
	Orphans        []models.BlobHandle `json:"orphans" yaml:"orphans"`
	ReclaimedBytes int64               `json:"reclaimed_bytes" yaml:"reclaimed_bytes"`
	Applied        bool                `json:"applied" yaml:"applied"`
}

// LedgerClearResponse is the body of POST /v1/admin/ledger/clear.
type LedgerClearResponse struct {
	Cleared int `json:"cleared" yaml:"cleared"`
}
