package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"scenekit/internal/models"
)

// Vault stores uploaded payloads by caller-supplied id across restarts.
//
// A disabled vault (no content store or no index) turns every operation
// into a no-op: writes are dropped and reads report nothing.
type Vault struct {
	content    ContentStore
	index      Index
	session    string
	handleBase string
	logger     *slog.Logger
}

// VaultOptions configures a Vault.
type VaultOptions struct {
	Content ContentStore
	Index   Index
	// HandleBase is the origin serving /v1/blobs; empty yields blob: handles.
	HandleBase string
	// Session scopes handles to one process lifetime. Empty mints a new one.
	Session string
	Logger  *slog.Logger
}

// GCReport summarizes one reclamation pass.
type GCReport struct {
	Orphans        []models.BlobHandle `json:"orphans" yaml:"orphans"`
	ReclaimedBytes int64               `json:"reclaimed_bytes" yaml:"reclaimed_bytes"`
	Applied        bool                `json:"applied" yaml:"applied"`
}

func NewVault(opts VaultOptions) *Vault {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	session := strings.TrimSpace(opts.Session)
	if session == "" {
		session = uuid.NewString()
	}
	v := &Vault{
		content:    opts.Content,
		index:      opts.Index,
		session:    session,
		handleBase: strings.TrimRight(strings.TrimSpace(opts.HandleBase), "/"),
		logger:     logger.With("component", "vault"),
	}
	if !v.Enabled() {
		v.logger.Warn("vault unavailable, local blob persistence disabled")
	}
	return v
}

// Enabled reports whether payloads can be persisted.
func (v *Vault) Enabled() bool {
	return v != nil && v.content != nil && v.index != nil
}

// Session returns the id embedded in handles minted by this vault.
func (v *Vault) Session() string {
	if v == nil {
		return ""
	}
	return v.session
}

// NewBlobID mints an id for a fresh upload.
func NewBlobID() string {
	return "blob-" + uuid.NewString()
}

// Put stores payload under id, replacing any previous payload for id.
func (v *Vault) Put(ctx context.Context, id string, payload io.Reader) (models.BlobHandle, error) {
	var zero models.BlobHandle
	if !v.Enabled() {
		return zero, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return zero, fmt.Errorf("blob id is required")
	}

	previous, err := v.index.GetVaultBlob(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("vault put %s: %w", id, err)
	}

	res, err := v.content.Put(ctx, payload)
	if err != nil {
		return zero, fmt.Errorf("vault put %s: %w", id, err)
	}
	h := models.BlobHandle{
		ID:        id,
		SHA256:    res.SHA256,
		SizeBytes: res.SizeBytes,
		BlobKey:   res.BlobKey,
		CreatedAt: time.Now().UTC(),
	}
	if err := v.index.PutVaultBlob(ctx, h); err != nil {
		// content stays on disk as an orphan; gc reclaims it
		return zero, fmt.Errorf("vault index %s: %w", id, err)
	}
	if previous != nil && previous.BlobKey != h.BlobKey {
		v.releaseKey(ctx, previous.BlobKey, id)
	}
	return h, nil
}

// Get returns the payload for id, or nil when it is missing or the vault is
// disabled.
func (v *Vault) Get(ctx context.Context, id string) ([]byte, error) {
	rc, _, err := v.Open(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if rc == nil {
		return nil, nil
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Stat returns the handle for id when both the index row and the bytes exist.
func (v *Vault) Stat(ctx context.Context, id string) (*models.BlobHandle, error) {
	if !v.Enabled() {
		return nil, nil
	}
	h, err := v.index.GetVaultBlob(ctx, id)
	if err != nil || h == nil {
		return nil, err
	}
	ok, err := v.content.Exists(ctx, h.BlobKey)
	if err != nil || !ok {
		return nil, err
	}
	return h, nil
}

// Open streams the payload for id. Missing ids return ErrNotFound.
func (v *Vault) Open(ctx context.Context, id string) (io.ReadCloser, *models.BlobHandle, error) {
	if !v.Enabled() {
		return nil, nil, nil
	}
	h, err := v.index.GetVaultBlob(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, nil, fmt.Errorf("vault open %s: %w", id, err)
	}
	if h == nil {
		return nil, nil, fmt.Errorf("vault blob %s: %w", id, models.ErrNotFound)
	}
	rc, err := v.content.Open(ctx, h.BlobKey)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("vault blob %s: %w", id, models.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("vault open %s: %w", id, err)
	}
	return rc, h, nil
}

// Delete removes id. Bytes are removed once no other id references them.
func (v *Vault) Delete(ctx context.Context, id string) error {
	if !v.Enabled() {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	h, err := v.index.GetVaultBlob(ctx, id)
	if err != nil {
		return fmt.Errorf("vault delete %s: %w", id, err)
	}
	if h == nil {
		return nil
	}
	if err := v.index.DeleteVaultBlob(ctx, id); err != nil {
		return fmt.Errorf("vault delete %s: %w", id, err)
	}
	v.releaseKey(ctx, h.BlobKey, id)
	return nil
}

// Handle returns the session-scoped URL for id.
func (v *Vault) Handle(id string) string {
	if v == nil {
		return ""
	}
	if v.handleBase == "" {
		return "blob:scenekit/" + v.session + "/" + url.PathEscape(id)
	}
	return v.handleBase + "/v1/blobs/" + url.PathEscape(id) + "?s=" + url.QueryEscape(v.session)
}

// HandleID extracts the blob id from a handle minted by this vault in any
// session. Handles from other origins are not recognized.
func (v *Vault) HandleID(ref string) (string, bool) {
	if v == nil {
		return "", false
	}
	ref = strings.TrimSpace(ref)
	var rest string
	switch {
	case strings.HasPrefix(ref, "blob:scenekit/"):
		_, tail, ok := strings.Cut(strings.TrimPrefix(ref, "blob:scenekit/"), "/")
		if !ok {
			return "", false
		}
		rest = tail
	case v.handleBase != "" && strings.HasPrefix(ref, v.handleBase+"/v1/blobs/"):
		rest, _, _ = strings.Cut(strings.TrimPrefix(ref, v.handleBase+"/v1/blobs/"), "?")
	default:
		return "", false
	}
	id, err := url.PathUnescape(rest)
	if err != nil || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// ValidSession reports whether a handle's session matches this process.
func (v *Vault) ValidSession(session string) bool {
	return v != nil && session == v.session
}

// Orphans lists index rows whose ids are not in referenced.
func (v *Vault) Orphans(ctx context.Context, referenced map[string]struct{}) ([]models.BlobHandle, error) {
	if !v.Enabled() {
		return []models.BlobHandle{}, nil
	}
	all, err := v.index.ListVaultBlobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vault blobs: %w", err)
	}
	orphans := []models.BlobHandle{}
	for _, h := range all {
		if _, ok := referenced[h.ID]; !ok {
			orphans = append(orphans, h)
		}
	}
	return orphans, nil
}

// GC reports orphaned blobs and deletes them when apply is set.
func (v *Vault) GC(ctx context.Context, referenced map[string]struct{}, apply bool) (GCReport, error) {
	orphans, err := v.Orphans(ctx, referenced)
	if err != nil {
		return GCReport{}, err
	}
	report := GCReport{Orphans: orphans, Applied: apply}
	for _, h := range orphans {
		report.ReclaimedBytes += h.SizeBytes
		if !apply {
			continue
		}
		if err := v.Delete(ctx, h.ID); err != nil {
			return report, err
		}
	}
	if apply && len(orphans) > 0 {
		v.logger.Info("vault gc", "deleted", len(orphans), "bytes", report.ReclaimedBytes)
	}
	return report, nil
}

func (v *Vault) releaseKey(ctx context.Context, key, exceptID string) {
	inUse, err := v.index.BlobKeyInUse(ctx, key, exceptID)
	if err != nil {
		v.logger.Warn("check blob key usage", "key", key, "error", err)
		return
	}
	if inUse {
		return
	}
	if err := v.content.Delete(ctx, key); err != nil {
		v.logger.Warn("delete blob content", "key", key, "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
