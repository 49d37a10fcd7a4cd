// Package entity serves the merged scene collection: remote records shadowed
// by the local override ledger, with locally stored models re-materialized
// for the current session.
package entity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"scenekit/internal/blobstore"
	"scenekit/internal/models"
	"scenekit/internal/store"
)

// ErrNothingToShow is returned by GetAll when neither the remote nor local
// storage holds any record.
var ErrNothingToShow = errors.New("nothing to show")

// errLocalOnly keeps records created offline away from the remote, which
// never saw their ids.
var errLocalOnly = errors.New("record exists only locally")

const defaultConcurrency = 8

// Remote is the authoritative record collection.
type Remote interface {
	ListRecords(ctx context.Context) ([]models.GeometryRecord, error)
	CreateRecord(ctx context.Context, in models.RecordInput) (models.GeometryRecord, error)
	UpdateRecord(ctx context.Context, id string, in models.RecordInput) (models.GeometryRecord, error)
	DeleteRecord(ctx context.Context, id string) error
}

// Snapshot supplies the build-time copy used when the remote is unreachable.
type Snapshot interface {
	Read(ctx context.Context) []models.GeometryRecord
}

type Ledger interface {
	Load(ctx context.Context) ([]models.LedgerEntry, error)
	Save(ctx context.Context, entries []models.LedgerEntry) error
}

type Vault interface {
	Enabled() bool
	Put(ctx context.Context, id string, payload io.Reader) (models.BlobHandle, error)
	Stat(ctx context.Context, id string) (*models.BlobHandle, error)
	Delete(ctx context.Context, id string) error
	Handle(id string) string
	HandleID(ref string) (string, bool)
}

type Resolver interface {
	Resolve(ctx context.Context, raw string, kind models.AssetKind) string
}

// Options wires a Store. Every dependency is optional; a nil dependency
// behaves as permanently unavailable.
type Options struct {
	Remote   Remote
	Snapshot Snapshot
	Ledger   Ledger
	Vault    Vault
	Resolver Resolver
	// Concurrency bounds per-record materialization work.
	Concurrency int
	Logger      *slog.Logger
}

// Store is the offline-first record store. Mutations and refreshes are
// serialized; each sees the ledger as left by the previous one.
type Store struct {
	remote      Remote
	snapshot    Snapshot
	ledger      Ledger
	vault       Vault
	resolver    Resolver
	concurrency int
	logger      *slog.Logger

	mu sync.Mutex
	// entries mirrors the ledger so a session keeps its edits when the
	// ledger cannot be read back.
	entries []models.LedgerEntry
	view    []models.GeometryRecord
	loaded  bool
}

func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Store{
		remote:      opts.Remote,
		snapshot:    opts.Snapshot,
		ledger:      opts.Ledger,
		vault:       opts.Vault,
		resolver:    opts.Resolver,
		concurrency: concurrency,
		logger:      logger.With("component", "entity"),
		entries:     []models.LedgerEntry{},
	}
}

// GetAll returns the merged collection. The slice is never nil; it is empty
// together with ErrNothingToShow when there is nothing at all to render.
func (s *Store) GetAll(ctx context.Context) ([]models.GeometryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(ctx); err != nil {
		return []models.GeometryRecord{}, err
	}
	return cloneRecords(s.view), nil
}

// Get looks up id in the merged collection, loading it on first use.
func (s *Store) Get(ctx context.Context, id string) (models.GeometryRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		_ = s.refreshLocked(ctx)
	}
	id = strings.TrimSpace(id)
	for _, rec := range s.view {
		if rec.ID == id {
			return rec, true
		}
	}
	return models.GeometryRecord{}, false
}

// Save creates (empty id) or updates a record on the remote. When the remote
// call fails the record is written locally instead; only a failure of that
// local write is returned.
func (s *Store) Save(ctx context.Context, in models.RecordInput, id string) (models.GeometryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.TrimSpace(id)
	saved, err := s.saveRemote(ctx, in, id)
	if errors.Is(err, models.ErrUnreadableReply) {
		// The remote took the write; a local copy would duplicate it.
		s.logger.Warn("remote accepted save with unreadable reply", "id", id, "error", err)
		saved = in.Record
		saved.ID = id
		err = nil
	}
	if err == nil {
		return s.acceptRemoteLocked(ctx, saved), nil
	}

	if errors.Is(err, errLocalOnly) {
		s.logger.Debug("saving local record", "id", id)
	} else {
		s.logger.Warn("remote save failed, saving locally", "id", id, "error", err)
	}
	return s.saveLocalLocked(ctx, in, id)
}

// acceptRemoteLocked refreshes first so an empty ledger is seeded with the
// whole merged view, then overlays the server copy. A copy without an id is
// only picked up through the refresh.
func (s *Store) acceptRemoteLocked(ctx context.Context, saved models.GeometryRecord) models.GeometryRecord {
	if err := s.refreshLocked(ctx); err != nil && !errors.Is(err, ErrNothingToShow) {
		s.logger.Warn("refresh after remote save failed", "error", err)
	}
	out := []models.GeometryRecord{saved}
	s.materialize(ctx, out)
	if saved.ID == "" {
		return out[0]
	}
	entries := upsert(s.loadLedgerLocked(ctx), saved.ForPersistence())
	if err := s.persistLocked(ctx, entries); err != nil {
		s.logger.Warn("persist ledger after remote save failed", "id", saved.ID, "error", err)
	}
	s.view = upsert(s.view, out[0])
	return out[0]
}

// Delete removes id from the remote, and always drops any local override so
// it no longer shadows the collection. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}

	if err := s.deleteRemote(ctx, id); err != nil && !errors.Is(err, errLocalOnly) {
		s.logger.Warn("remote delete failed, deleting locally", "id", id, "error", err)
	}

	entries := s.loadLedgerLocked(ctx)
	idx := indexOf(entries, id)
	if idx < 0 {
		s.dropFromView(id)
		return nil
	}
	removed := entries[idx]
	entries = append(entries[:idx:idx], entries[idx+1:]...)
	if err := s.persistLocked(ctx, entries); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if removed.HasLocalBlob() && s.vault != nil {
		if err := s.vault.Delete(ctx, removed.LocalBlobID); err != nil {
			s.logger.Warn("delete local blob failed", "id", id, "blob", removed.LocalBlobID, "error", err)
		}
	}
	s.dropFromView(id)
	return nil
}

// ReferencedBlobs returns the vault ids referenced by the ledger.
func (s *Store) ReferencedBlobs(ctx context.Context) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs := map[string]struct{}{}
	for _, entry := range s.loadLedgerLocked(ctx) {
		if entry.HasLocalBlob() {
			refs[entry.LocalBlobID] = struct{}{}
		}
	}
	return refs
}

// Reset forgets the in-memory view and ledger mirror; the next read goes
// back to storage.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []models.LedgerEntry{}
	s.view = nil
	s.loaded = false
}

func (s *Store) refreshLocked(ctx context.Context) error {
	remote := s.fetchRemote(ctx)
	entries := s.loadLedgerLocked(ctx)
	merged := merge(remote, entries)

	if len(entries) == 0 && len(merged) > 0 {
		if err := s.persistLocked(ctx, merged); err != nil {
			s.logger.Warn("seed ledger failed", "error", err)
		}
	}

	s.materialize(ctx, merged)
	s.view = merged
	s.loaded = true
	if len(merged) == 0 {
		return ErrNothingToShow
	}
	return nil
}

func (s *Store) fetchRemote(ctx context.Context) []models.GeometryRecord {
	if s.remote != nil {
		records, err := s.remote.ListRecords(ctx)
		if err == nil {
			return records
		}
		s.logger.Warn("remote list failed, using snapshot", "error", err)
	}
	if s.snapshot == nil {
		return []models.GeometryRecord{}
	}
	return s.snapshot.Read(ctx)
}

func (s *Store) loadLedgerLocked(ctx context.Context) []models.LedgerEntry {
	if s.ledger == nil {
		return cloneRecords(s.entries)
	}
	entries, err := s.ledger.Load(ctx)
	if err != nil {
		s.logger.Warn("ledger load failed, using session copy", "error", err)
		return cloneRecords(s.entries)
	}
	s.entries = cloneRecords(entries)
	return entries
}

func (s *Store) persistLocked(ctx context.Context, entries []models.LedgerEntry) error {
	s.entries = cloneRecords(entries)
	if s.ledger == nil {
		return nil
	}
	return s.ledger.Save(ctx, entries)
}

func (s *Store) saveRemote(ctx context.Context, in models.RecordInput, id string) (models.GeometryRecord, error) {
	if s.remote == nil {
		return models.GeometryRecord{}, models.ErrNetworkUnavailable
	}
	if store.IsLocalID(id) {
		return models.GeometryRecord{}, errLocalOnly
	}
	if id == "" {
		return s.remote.CreateRecord(ctx, in)
	}
	return s.remote.UpdateRecord(ctx, id, in)
}

func (s *Store) deleteRemote(ctx context.Context, id string) error {
	if s.remote == nil {
		return models.ErrNetworkUnavailable
	}
	if store.IsLocalID(id) {
		return errLocalOnly
	}
	return s.remote.DeleteRecord(ctx, id)
}

func (s *Store) saveLocalLocked(ctx context.Context, in models.RecordInput, id string) (models.GeometryRecord, error) {
	rec := in.Record
	switch {
	case id != "":
		rec.ID = id
	case strings.TrimSpace(rec.ID) == "":
		rec.ID = store.GenerateLocalID()
	default:
		rec.ID = strings.TrimSpace(rec.ID)
	}

	entries := s.loadLedgerLocked(ctx)
	var previous *models.LedgerEntry
	if idx := indexOf(entries, rec.ID); idx >= 0 {
		previous = &entries[idx]
	}

	switch {
	case in.HasContent():
		rec.ModelURL = ""
		rec.LocalBlobID = ""
		if s.vault == nil || !s.vault.Enabled() {
			s.logger.Warn("vault unavailable, model content not stored", "id", rec.ID)
			break
		}
		blobID := blobstore.NewBlobID()
		if _, err := s.vault.Put(ctx, blobID, bytes.NewReader(in.Content)); err != nil {
			s.logger.Error("store model content failed", "id", rec.ID, "error", err)
			break
		}
		rec.LocalBlobID = blobID
	case rec.HasLocalBlob():
		rec.ModelURL = ""
	case rec.ModelURL == "" && previous != nil && previous.HasLocalBlob():
		rec.LocalBlobID = previous.LocalBlobID
	default:
		if blobID, ok := s.blobRef(rec.ModelURL); ok {
			rec.LocalBlobID = blobID
			rec.ModelURL = ""
		}
	}

	entries = upsert(entries, rec)
	if err := s.persistLocked(ctx, entries); err != nil {
		return models.GeometryRecord{}, fmt.Errorf("save %s locally: %w", rec.ID, err)
	}
	if previous != nil && previous.HasLocalBlob() && previous.LocalBlobID != rec.LocalBlobID && s.vault != nil {
		if err := s.vault.Delete(ctx, previous.LocalBlobID); err != nil {
			s.logger.Warn("release replaced blob failed", "id", rec.ID, "blob", previous.LocalBlobID, "error", err)
		}
	}

	out := []models.GeometryRecord{rec}
	s.materialize(ctx, out)
	s.view = upsert(s.view, out[0])
	return out[0], nil
}

// blobRef maps a handle minted by the vault, in this or an earlier session,
// back to its blob id. Handles are never persisted; the id is.
func (s *Store) blobRef(ref string) (string, bool) {
	if s.vault == nil || strings.TrimSpace(ref) == "" {
		return "", false
	}
	return s.vault.HandleID(ref)
}

// materialize rewrites ModelURL in place: vault handles for local blobs and
// resolved URLs for bare asset names.
func (s *Store) materialize(ctx context.Context, records []models.GeometryRecord) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range records {
		rec := &records[i]
		switch {
		case rec.HasLocalBlob():
			g.Go(func() error {
				rec.ModelURL = s.blobHandle(ctx, rec.ID, rec.LocalBlobID)
				return nil
			})
		case isBareName(rec.ModelURL) && s.resolver != nil:
			g.Go(func() error {
				rec.ModelURL = s.resolver.Resolve(ctx, rec.ModelURL, models.KindModel)
				return nil
			})
		}
	}
	_ = g.Wait()
}

func (s *Store) blobHandle(ctx context.Context, recordID, blobID string) string {
	if s.vault == nil {
		s.logger.Warn("local model unavailable, vault not configured", "id", recordID, "blob", blobID)
		return ""
	}
	h, err := s.vault.Stat(ctx, blobID)
	if err != nil {
		s.logger.Warn("local model lookup failed", "id", recordID, "blob", blobID, "error", err)
		return ""
	}
	if h == nil {
		s.logger.Warn("local model missing", "id", recordID, "blob", blobID)
		return ""
	}
	return s.vault.Handle(blobID)
}

func (s *Store) dropFromView(id string) {
	if idx := indexOf(s.view, id); idx >= 0 {
		s.view = append(s.view[:idx:idx], s.view[idx+1:]...)
	}
}

// merge overlays entries onto remote by id. Remote order is kept with
// shadowed records replaced in place; ledger-only ids follow in ledger order.
func merge(remote []models.GeometryRecord, entries []models.LedgerEntry) []models.GeometryRecord {
	byID := make(map[string]int, len(entries))
	for i, entry := range entries {
		if entry.ID != "" {
			byID[entry.ID] = i
		}
	}

	merged := make([]models.GeometryRecord, 0, len(remote)+len(entries))
	used := make(map[string]bool, len(entries))
	seen := make(map[string]bool, len(remote))
	for _, rec := range remote {
		if rec.ID != "" && seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		if i, ok := byID[rec.ID]; ok {
			merged = append(merged, entries[i])
			used[rec.ID] = true
			continue
		}
		merged = append(merged, rec)
	}
	for _, entry := range entries {
		if entry.ID == "" || used[entry.ID] {
			continue
		}
		used[entry.ID] = true
		merged = append(merged, entry)
	}
	return merged
}

func upsert(records []models.GeometryRecord, rec models.GeometryRecord) []models.GeometryRecord {
	if idx := indexOf(records, rec.ID); idx >= 0 {
		out := cloneRecords(records)
		out[idx] = rec
		return out
	}
	return append(cloneRecords(records), rec)
}

func indexOf(records []models.GeometryRecord, id string) int {
	for i, rec := range records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func cloneRecords(records []models.GeometryRecord) []models.GeometryRecord {
	out := make([]models.GeometryRecord, len(records))
	copy(out, records)
	return out
}

func isBareName(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "/") {
		return false
	}
	if strings.Contains(ref, "://") {
		return false
	}
	lower := strings.ToLower(ref)
	return !strings.HasPrefix(lower, "blob:") && !strings.HasPrefix(lower, "data:")
}
