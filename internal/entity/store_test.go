package entity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"scenekit/internal/api"
	"scenekit/internal/blobstore"
	"scenekit/internal/models"
	"scenekit/internal/store"
)

type fakeRemote struct {
	mu        sync.Mutex
	records   []models.GeometryRecord
	listErr   error
	saveErr   error
	deleteErr error
	// replyErr is returned after a write has been applied.
	replyErr error
	nextID    int
	deleted   []string
}

func (f *fakeRemote) ListRecords(context.Context) ([]models.GeometryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return cloneRecords(f.records), nil
}

func (f *fakeRemote) CreateRecord(_ context.Context, in models.RecordInput) (models.GeometryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return models.GeometryRecord{}, f.saveErr
	}
	f.nextID++
	rec := in.Record
	rec.ID = fmt.Sprintf("%d", 100+f.nextID)
	f.records = append(f.records, rec)
	if f.replyErr != nil {
		return models.GeometryRecord{}, f.replyErr
	}
	return rec, nil
}

func (f *fakeRemote) UpdateRecord(_ context.Context, id string, in models.RecordInput) (models.GeometryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return models.GeometryRecord{}, f.saveErr
	}
	rec := in.Record
	rec.ID = id
	f.records = upsert(f.records, rec)
	if f.replyErr != nil {
		return models.GeometryRecord{}, f.replyErr
	}
	return rec, nil
}

func (f *fakeRemote) DeleteRecord(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSnapshot []models.GeometryRecord

func (f fakeSnapshot) Read(context.Context) []models.GeometryRecord {
	return cloneRecords(f)
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, raw string, kind models.AssetKind) string {
	return "https://cdn.example/" + string(kind) + "/" + raw
}

var (
	errOffline   = fmt.Errorf("dial: %w", models.ErrNetworkUnavailable)
	errServer500 = &api.APIError{Status: http.StatusInternalServerError, Message: "boom"}
)

type env struct {
	st     *store.Store
	ledger *store.Ledger
	vault  *blobstore.Vault
}

// openEnv opens the ledger and vault under dir. Call close before reopening
// the same dir to simulate a restart.
func openEnv(t *testing.T, dir, session string) (*env, func()) {
	t.Helper()
	st, err := store.Open(filepath.Join(dir, "scenekit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cas, err := blobstore.NewLocalCAS(filepath.Join(dir, "vault"), 0)
	if err != nil {
		t.Fatalf("new cas: %v", err)
	}
	e := &env{
		st:     st,
		ledger: store.NewLedger(st, nil),
		vault:  blobstore.NewVault(blobstore.VaultOptions{Content: cas, Index: st, HandleBase: "http://127.0.0.1:7411", Session: session}),
	}
	var once sync.Once
	closeFn := func() { once.Do(func() { st.Close() }) }
	t.Cleanup(closeFn)
	return e, closeFn
}

func newStore(e *env, remote Remote, snap Snapshot) *Store {
	opts := Options{Ledger: e.ledger, Vault: e.vault, Resolver: fakeResolver{}, Snapshot: snap}
	if remote != nil {
		opts.Remote = remote
	}
	return New(opts)
}

func TestGetAllSeedsLedgerFromSnapshot(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	remote := &fakeRemote{listErr: errOffline}
	s := newStore(e, remote, fakeSnapshot{{ID: "1", Name: "Box", Type: models.TypeBox, Scale: models.UnitScale, Visible: true}})

	got, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" || got[0].Name != "Box" {
		t.Fatalf("unexpected collection: %+v", got)
	}

	seeded, err := e.ledger.Load(ctx)
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(seeded) != 1 || seeded[0] != got[0] {
		t.Fatalf("expected ledger seeded with %+v, got %+v", got, seeded)
	}
}

func TestGetAllLedgerShadowsRemote(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	if err := e.ledger.Save(ctx, []models.LedgerEntry{
		{ID: "3", Name: "Extra"},
		{ID: "1", Name: "Local", Color: "#00ff00"},
	}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	remote := &fakeRemote{records: []models.GeometryRecord{
		{ID: "1", Name: "Remote"},
		{ID: "2", Name: "Two"},
	}}

	got, err := newStore(e, remote, nil).GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	var names []string
	for _, rec := range got {
		names = append(names, rec.ID+":"+rec.Name)
	}
	if strings.Join(names, ",") != "1:Local,2:Two,3:Extra" {
		t.Fatalf("unexpected merge order: %v", names)
	}
	if got[0].Color != "#00ff00" {
		t.Fatalf("expected ledger fields to win, got %+v", got[0])
	}
}

func TestGetAllNothingToShow(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	got, err := newStore(e, &fakeRemote{listErr: errOffline}, fakeSnapshot{}).GetAll(context.Background())
	if !errors.Is(err, ErrNothingToShow) {
		t.Fatalf("expected nothing to show, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestGetAllResolvesBareModelNames(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	remote := &fakeRemote{records: []models.GeometryRecord{
		{ID: "1", Type: models.TypeModel, ModelURL: "nissan2.glb"},
		{ID: "2", Type: models.TypeModel, ModelURL: "https://other.example/car.glb"},
		{ID: "3", Type: models.TypeModel, ModelURL: "/models/desk.glb"},
	}}

	got, err := newStore(e, remote, nil).GetAll(context.Background())
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	want := []string{
		"https://cdn.example/model/nissan2.glb",
		"https://other.example/car.glb",
		"/models/desk.glb",
	}
	for i, rec := range got {
		if rec.ModelURL != want[i] {
			t.Fatalf("record %s: expected %s, got %s", rec.ID, want[i], rec.ModelURL)
		}
	}

	seeded, _ := e.ledger.Load(context.Background())
	if seeded[0].ModelURL != "nissan2.glb" {
		t.Fatalf("ledger must keep the raw reference, got %s", seeded[0].ModelURL)
	}
}

func TestSaveFallsBackLocallyOnServerError(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	remote := &fakeRemote{saveErr: errServer500, listErr: errOffline}
	s := newStore(e, remote, nil)

	in := models.RecordInput{Record: models.GeometryRecord{
		Name:     "Sphere",
		Type:     models.TypeSphere,
		Color:    "#123456",
		Position: models.Vec3{X: 1, Y: 2, Z: 3},
		Scale:    models.UnitScale,
		Visible:  true,
	}}
	saved, err := s.Save(ctx, in, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !store.IsLocalID(saved.ID) {
		t.Fatalf("expected generated local id, got %q", saved.ID)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one record, got %+v", all)
	}
	want := in.Record
	want.ID = saved.ID
	if all[0] != want {
		t.Fatalf("expected %+v, got %+v", want, all[0])
	}

	entries, _ := e.ledger.Load(ctx)
	if len(entries) != 1 || entries[0].ID != saved.ID {
		t.Fatalf("expected ledger to hold the record, got %+v", entries)
	}
}

func TestSaveKeepsSuppliedID(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	s := newStore(e, nil, nil)

	saved, err := s.Save(context.Background(), models.RecordInput{Record: models.GeometryRecord{Name: "Edited"}}, "7")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID != "7" {
		t.Fatalf("expected id 7, got %q", saved.ID)
	}
	rec, ok := s.Get(context.Background(), "7")
	if !ok || rec.Name != "Edited" {
		t.Fatalf("expected lookup to find the record, got %+v %v", rec, ok)
	}
	if _, ok := s.Get(context.Background(), "nope"); ok {
		t.Fatal("expected missing id to report false")
	}
}

func TestSaveRemoteSuccessUpsertsServerCopy(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	remote := &fakeRemote{records: []models.GeometryRecord{{ID: "1", Name: "Box"}}}
	s := newStore(e, remote, nil)
	if _, err := s.GetAll(ctx); err != nil {
		t.Fatalf("get all: %v", err)
	}

	saved, err := s.Save(ctx, models.RecordInput{Record: models.GeometryRecord{Name: "Cone", Type: models.TypeCone}}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID != "101" {
		t.Fatalf("expected server id, got %q", saved.ID)
	}
	entries, _ := e.ledger.Load(ctx)
	if len(entries) != 2 || entries[1].ID != "101" {
		t.Fatalf("expected server copy in ledger, got %+v", entries)
	}
	if rec, ok := s.Get(ctx, "101"); !ok || rec.Name != "Cone" {
		t.Fatalf("expected refreshed view to include the server copy, got %+v", rec)
	}
}

func TestLocalBlobSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	remote := &fakeRemote{saveErr: errOffline, listErr: errOffline}

	first, closeFirst := openEnv(t, dir, "session-1")
	saved, err := newStore(first, remote, nil).Save(ctx, models.RecordInput{
		Record:   models.GeometryRecord{Name: "Car", Type: models.TypeModel, ModelURL: "blob:transient", Visible: true},
		Content:  []byte("glTF-binary"),
		Filename: "car.glb",
	}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !saved.HasLocalBlob() {
		t.Fatalf("expected local blob id, got %+v", saved)
	}
	if saved.ModelURL != first.vault.Handle(saved.LocalBlobID) {
		t.Fatalf("expected session handle, got %s", saved.ModelURL)
	}
	closeFirst()

	second, _ := openEnv(t, dir, "session-2")
	entries, err := second.ledger.Load(ctx)
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].ModelURL != "" || entries[0].LocalBlobID != saved.LocalBlobID {
		t.Fatalf("expected durable blob id without handle, got %+v", entries)
	}

	all, err := newStore(second, remote, nil).GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one record, got %+v", all)
	}
	want := second.vault.Handle(saved.LocalBlobID)
	if all[0].ModelURL != want || all[0].ModelURL == saved.ModelURL {
		t.Fatalf("expected fresh handle %s, got %s", want, all[0].ModelURL)
	}
	data, err := second.vault.Get(ctx, saved.LocalBlobID)
	if err != nil || string(data) != "glTF-binary" {
		t.Fatalf("expected payload to survive, got %q %v", data, err)
	}
}

func TestMissingBlobLeavesURLEmpty(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	if err := e.ledger.Save(ctx, []models.LedgerEntry{{ID: "1", Name: "Gone", LocalBlobID: "blob-gone"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	all, err := newStore(e, nil, nil).GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if all[0].ModelURL != "" {
		t.Fatalf("expected unresolved url, got %s", all[0].ModelURL)
	}
}

func TestUpdateWithoutContentKeepsBlob(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	s := newStore(e, nil, nil)

	saved, err := s.Save(ctx, models.RecordInput{Record: models.GeometryRecord{Name: "Car"}, Content: []byte("v1")}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	edited := saved
	edited.Name = "Car renamed"
	edited.LocalBlobID = ""
	updated, err := s.Save(ctx, models.RecordInput{Record: edited}, saved.ID)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.LocalBlobID != saved.LocalBlobID {
		t.Fatalf("expected blob to be kept, got %+v", updated)
	}

	replaced, err := s.Save(ctx, models.RecordInput{Record: edited, Content: []byte("v2")}, saved.ID)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if replaced.LocalBlobID == saved.LocalBlobID {
		t.Fatal("expected a fresh blob id for new content")
	}
	if h, _ := e.vault.Stat(ctx, saved.LocalBlobID); h != nil {
		t.Fatal("expected replaced blob to be released")
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	remote := &fakeRemote{
		records:   []models.GeometryRecord{{ID: "1", Name: "Box"}},
		deleteErr: &api.APIError{Status: http.StatusNotFound},
	}
	s := newStore(e, remote, nil)
	before, _ := s.GetAll(ctx)

	if err := s.Delete(ctx, "missing-id"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	after, _ := s.GetAll(ctx)
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("expected collection unchanged, got %+v", after)
	}
}

func TestDeleteLocalRecordReleasesBlob(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	s := newStore(e, &fakeRemote{saveErr: errOffline, deleteErr: errOffline, listErr: errOffline}, nil)

	saved, err := s.Save(ctx, models.RecordInput{Record: models.GeometryRecord{Name: "Car"}, Content: []byte("bytes")}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := s.Get(ctx, saved.ID); ok {
		t.Fatal("expected record to be gone")
	}
	if h, _ := e.vault.Stat(ctx, saved.LocalBlobID); h != nil {
		t.Fatal("expected blob to be deleted with its record")
	}
	if err := s.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestDeleteRemoteSuccessDropsOverride(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	remote := &fakeRemote{records: []models.GeometryRecord{{ID: "1", Name: "Box"}, {ID: "2", Name: "Ball"}}}
	s := newStore(e, remote, nil)
	if _, err := s.GetAll(ctx); err != nil {
		t.Fatalf("get all: %v", err)
	}

	if err := s.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != "1" {
		t.Fatalf("expected remote delete, got %v", remote.deleted)
	}
	entries, _ := e.ledger.Load(ctx)
	if len(entries) != 1 || entries[0].ID != "2" {
		t.Fatalf("expected override dropped, got %+v", entries)
	}
}

func TestConcurrentLocalSavesAreNotLost(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	s := newStore(e, &fakeRemote{saveErr: errOffline, listErr: errOffline}, nil)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Save(ctx, models.RecordInput{Record: models.GeometryRecord{Name: fmt.Sprintf("r%d", i)}}, ""); err != nil {
				t.Errorf("save %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	entries, _ := e.ledger.Load(ctx)
	if len(entries) != n {
		t.Fatalf("expected %d ledger entries, got %d", n, len(entries))
	}
}

func TestUnavailableLedgerKeepsSessionEdits(t *testing.T) {
	s := New(Options{Ledger: store.NewLedger(nil, nil)})
	ctx := context.Background()

	saved, err := s.Save(ctx, models.RecordInput{Record: models.GeometryRecord{Name: "Box"}}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 || all[0].ID != saved.ID {
		t.Fatalf("expected session copy, got %+v", all)
	}
}

func TestMerge(t *testing.T) {
	remote := []models.GeometryRecord{{ID: "a"}, {ID: "b", Name: "remote"}, {ID: "a", Name: "dup"}}
	entries := []models.LedgerEntry{{ID: "c"}, {ID: "b", Name: "local"}}

	got := merge(remote, entries)
	if len(got) != 3 || got[0].ID != "a" || got[0].Name != "" || got[1].Name != "local" || got[2].ID != "c" {
		t.Fatalf("unexpected merge: %+v", got)
	}
}

func TestUpdateWithPreviousSessionHandleKeepsBlob(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	remote := &fakeRemote{saveErr: errOffline, listErr: errOffline}

	first, closeFirst := openEnv(t, dir, "session-1")
	saved, err := newStore(first, remote, nil).Save(ctx, models.RecordInput{
		Record:  models.GeometryRecord{Name: "Car", Type: models.TypeModel, Visible: true},
		Content: []byte("glTF-binary"),
	}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	staleHandle := saved.ModelURL
	closeFirst()

	second, _ := openEnv(t, dir, "session-2")
	s := newStore(second, remote, nil)
	if _, err := s.GetAll(ctx); err != nil {
		t.Fatalf("get all: %v", err)
	}

	// A client that loaded the record before the restart posts it back
	// with the old handle and no blob id.
	edited := saved
	edited.Name = "Car renamed"
	edited.LocalBlobID = ""
	edited.ModelURL = staleHandle
	updated, err := s.Save(ctx, models.RecordInput{Record: edited}, saved.ID)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.LocalBlobID != saved.LocalBlobID {
		t.Fatalf("expected blob id %q to be kept, got %+v", saved.LocalBlobID, updated)
	}
	if want := second.vault.Handle(saved.LocalBlobID); updated.ModelURL != want {
		t.Fatalf("expected current session handle %s, got %s", want, updated.ModelURL)
	}

	entries, err := second.ledger.Load(ctx)
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].ModelURL != "" || entries[0].LocalBlobID != saved.LocalBlobID {
		t.Fatalf("expected blob id without handle in ledger, got %+v", entries)
	}
	data, err := second.vault.Get(ctx, saved.LocalBlobID)
	if err != nil || string(data) != "glTF-binary" {
		t.Fatalf("expected payload to survive, got %q %v", data, err)
	}
}

func TestUpdateWithForeignURLReplacesBlob(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	s := newStore(e, nil, nil)

	saved, err := s.Save(ctx, models.RecordInput{Record: models.GeometryRecord{Name: "Car"}, Content: []byte("v1")}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	edited := saved
	edited.LocalBlobID = ""
	edited.ModelURL = "https://cdn.example/model/car.glb"
	updated, err := s.Save(ctx, models.RecordInput{Record: edited}, saved.ID)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.HasLocalBlob() || updated.ModelURL != "https://cdn.example/model/car.glb" {
		t.Fatalf("expected external model url to replace the blob, got %+v", updated)
	}
	if h, _ := e.vault.Stat(ctx, saved.LocalBlobID); h != nil {
		t.Fatal("expected replaced blob to be released")
	}
}

func TestRemoteSaveSeedsOfflineBaseline(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	remote := &fakeRemote{records: []models.GeometryRecord{{ID: "1", Name: "Box"}, {ID: "2", Name: "Ball"}}}
	s := newStore(e, remote, nil)

	saved, err := s.Save(ctx, models.RecordInput{Record: models.GeometryRecord{Name: "Cone", Type: models.TypeCone}}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := e.ledger.Load(ctx)
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected ledger seeded with the merged view, got %+v", entries)
	}

	remote.mu.Lock()
	remote.listErr = errOffline
	remote.mu.Unlock()
	s.Reset()

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all offline: %v", err)
	}
	if len(all) != 3 || indexOf(all, saved.ID) < 0 {
		t.Fatalf("expected all three records offline, got %+v", all)
	}
}

func TestLocalRecordsStayLocalOnceOnline(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	remote := &fakeRemote{saveErr: errOffline, listErr: errOffline}
	s := newStore(e, remote, nil)

	saved, err := s.Save(ctx, models.RecordInput{Record: models.GeometryRecord{Name: "Offline"}}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !store.IsLocalID(saved.ID) {
		t.Fatalf("expected local id, got %q", saved.ID)
	}

	remote.mu.Lock()
	remote.saveErr = nil
	remote.listErr = nil
	remote.mu.Unlock()

	edited := saved
	edited.Name = "Offline renamed"
	updated, err := s.Save(ctx, models.RecordInput{Record: edited}, saved.ID)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != saved.ID || updated.Name != "Offline renamed" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if err := s.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	remote.mu.Lock()
	defer remote.mu.Unlock()
	if indexOf(remote.records, saved.ID) >= 0 || len(remote.deleted) != 0 {
		t.Fatalf("local id reached the remote: records=%+v deleted=%v", remote.records, remote.deleted)
	}
}

func TestUnreadableRemoteReplyIsNotDuplicatedLocally(t *testing.T) {
	e, _ := openEnv(t, t.TempDir(), "s")
	ctx := context.Background()
	reply := fmt.Errorf("%w: %w: unexpected EOF", models.ErrUnreadableReply, models.ErrMalformedPayload)
	remote := &fakeRemote{records: []models.GeometryRecord{{ID: "1", Name: "Box"}}, replyErr: reply}
	s := newStore(e, remote, nil)

	created, err := s.Save(ctx, models.RecordInput{Record: models.GeometryRecord{Name: "Cone"}}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.IsLocalID(created.ID) {
		t.Fatalf("accepted create must not fall back to a local id, got %q", created.ID)
	}

	updated, err := s.Save(ctx, models.RecordInput{Record: models.GeometryRecord{Name: "Box edited"}}, "1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != "1" || updated.Name != "Box edited" {
		t.Fatalf("expected submitted record back, got %+v", updated)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected the remote copies only, got %+v", all)
	}
	for _, rec := range all {
		if store.IsLocalID(rec.ID) {
			t.Fatalf("unexpected local duplicate %+v", rec)
		}
	}
	if rec, ok := s.Get(ctx, "1"); !ok || rec.Name != "Box edited" {
		t.Fatalf("expected edited record, got %+v", rec)
	}
}
