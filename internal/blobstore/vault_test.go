package blobstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"scenekit/internal/models"
	"scenekit/internal/store"
)

func testVault(t *testing.T, dir, session string) *Vault {
	t.Helper()
	st, err := store.Open(filepath.Join(dir, "scenekit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	cas, err := NewLocalCAS(filepath.Join(dir, "vault"), 0)
	if err != nil {
		t.Fatalf("new cas: %v", err)
	}
	return NewVault(VaultOptions{Content: cas, Index: st, HandleBase: "http://127.0.0.1:7411/", Session: session})
}

func TestVaultPutGetAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	v := testVault(t, dir, "s1")
	h, err := v.Put(ctx, "b1", strings.NewReader("glb-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if h.SizeBytes != int64(len("glb-bytes")) {
		t.Fatalf("unexpected size %d", h.SizeBytes)
	}

	restarted := testVault(t, dir, "s2")
	data, err := restarted.Get(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "glb-bytes" {
		t.Fatalf("expected payload, got %q", data)
	}
	if got := restarted.Handle("b1"); got != "http://127.0.0.1:7411/v1/blobs/b1?s=s2" {
		t.Fatalf("unexpected handle %s", got)
	}
	if restarted.ValidSession("s1") {
		t.Fatal("old session must not be valid after restart")
	}
}

func TestVaultMissingAndDelete(t *testing.T) {
	v := testVault(t, t.TempDir(), "s")
	ctx := context.Background()

	data, err := v.Get(ctx, "missing")
	if err != nil || data != nil {
		t.Fatalf("expected nil payload for missing id, got %q %v", data, err)
	}
	if _, _, err := v.Open(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := v.Put(ctx, "a", strings.NewReader("same")); err != nil {
		t.Fatalf("put a: %v", err)
	}
	hb, err := v.Put(ctx, "b", strings.NewReader("same"))
	if err != nil {
		t.Fatalf("put b: %v", err)
	}

	if err := v.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete a: %v", err)
	}
	if data, _ := v.Get(ctx, "b"); string(data) != "same" {
		t.Fatal("shared content removed while still referenced")
	}
	if err := v.Delete(ctx, "b"); err != nil {
		t.Fatalf("delete b: %v", err)
	}
	if ok, _ := v.content.Exists(ctx, hb.BlobKey); ok {
		t.Fatal("expected content removed after last reference")
	}
	if err := v.Delete(ctx, "b"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestVaultStatDetectsMissingContent(t *testing.T) {
	v := testVault(t, t.TempDir(), "s")
	ctx := context.Background()

	h, err := v.Put(ctx, "x", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if got, err := v.Stat(ctx, "x"); err != nil || got == nil {
		t.Fatalf("expected handle, got %+v %v", got, err)
	}
	if err := v.content.Delete(ctx, h.BlobKey); err != nil {
		t.Fatalf("remove content: %v", err)
	}
	if got, err := v.Stat(ctx, "x"); err != nil || got != nil {
		t.Fatalf("expected nil handle for missing content, got %+v %v", got, err)
	}
	if data, err := v.Get(ctx, "x"); err != nil || data != nil {
		t.Fatalf("expected nil payload for missing content, got %q %v", data, err)
	}
}

func TestVaultDisabled(t *testing.T) {
	v := NewVault(VaultOptions{Session: "s"})
	ctx := context.Background()

	if v.Enabled() {
		t.Fatal("expected disabled vault")
	}
	if _, err := v.Put(ctx, "x", strings.NewReader("data")); err != nil {
		t.Fatalf("put should be a no-op: %v", err)
	}
	if data, err := v.Get(ctx, "x"); data != nil || err != nil {
		t.Fatalf("get should be a no-op: %q %v", data, err)
	}
	if err := v.Delete(ctx, "x"); err != nil {
		t.Fatalf("delete should be a no-op: %v", err)
	}
	if got := v.Handle("x"); got != "blob:scenekit/s/x" {
		t.Fatalf("unexpected handle %s", got)
	}
}

func TestVaultGC(t *testing.T) {
	v := testVault(t, t.TempDir(), "s")
	ctx := context.Background()

	for _, id := range []string{"keep", "drop"} {
		if _, err := v.Put(ctx, id, strings.NewReader("payload-"+id)); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	referenced := map[string]struct{}{"keep": {}}

	dry, err := v.GC(ctx, referenced, false)
	if err != nil {
		t.Fatalf("dry gc: %v", err)
	}
	if len(dry.Orphans) != 1 || dry.Orphans[0].ID != "drop" || dry.Applied {
		t.Fatalf("unexpected dry report: %+v", dry)
	}
	if data, _ := v.Get(ctx, "drop"); data == nil {
		t.Fatal("dry run must not delete")
	}

	applied, err := v.GC(ctx, referenced, true)
	if err != nil {
		t.Fatalf("gc: %v", err)
	}
	if applied.ReclaimedBytes != int64(len("payload-drop")) {
		t.Fatalf("unexpected reclaimed bytes %d", applied.ReclaimedBytes)
	}
	if data, _ := v.Get(ctx, "drop"); data != nil {
		t.Fatal("expected orphan deleted")
	}
	if data, _ := v.Get(ctx, "keep"); data == nil {
		t.Fatal("referenced blob deleted")
	}
}

func TestVaultHandleIDAcrossSessions(t *testing.T) {
	old := NewVault(VaultOptions{HandleBase: "http://127.0.0.1:7411", Session: "s1"})
	current := NewVault(VaultOptions{HandleBase: "http://127.0.0.1:7411", Session: "s2"})
	bare := NewVault(VaultOptions{Session: "s3"})

	cases := []struct {
		name string
		v    *Vault
		ref  string
		id   string
		ok   bool
	}{
		{"current session", current, current.Handle("blob-1"), "blob-1", true},
		{"previous session", current, old.Handle("blob-1"), "blob-1", true},
		{"blob scheme", current, bare.Handle("blob-2"), "blob-2", true},
		{"other origin", current, "https://cdn.example.com/v1/blobs/blob-1?s=s1", "", false},
		{"plain model url", current, "https://cdn.example.com/models/chair.glb", "", false},
		{"nested path", current, "http://127.0.0.1:7411/v1/blobs/a/b", "", false},
		{"empty", current, "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := tc.v.HandleID(tc.ref)
			if ok != tc.ok || id != tc.id {
				t.Fatalf("HandleID(%q) = %q, %v; want %q, %v", tc.ref, id, ok, tc.id, tc.ok)
			}
		})
	}
}
