package models

import (
	"encoding/json"
	"testing"
)

func TestParseGeometryType(t *testing.T) {
	got, err := ParseGeometryType(" SPHERE ")
	if err != nil {
		t.Fatalf("parse type: %v", err)
	}
	if got != TypeSphere {
		t.Fatalf("expected %q, got %q", TypeSphere, got)
	}

	if _, err := ParseGeometryType("invalid"); err == nil {
		t.Fatal("expected invalid type error")
	}
	if _, err := ParseGeometryType(""); err == nil {
		t.Fatal("expected missing type error")
	}
}

func TestParseAssetKind(t *testing.T) {
	for _, raw := range []string{"model", "Models"} {
		got, err := ParseAssetKind(raw)
		if err != nil || got != KindModel {
			t.Fatalf("ParseAssetKind(%q) = %q, %v", raw, got, err)
		}
	}
	got, err := ParseAssetKind("textures")
	if err != nil || got != KindTexture {
		t.Fatalf("ParseAssetKind(textures) = %q, %v", got, err)
	}
	if _, err := ParseAssetKind("audio"); err == nil {
		t.Fatal("expected invalid kind error")
	}
	if KindTexture.Folder() != "textures" || KindModel.Folder() != "models" {
		t.Fatalf("unexpected folders: %q %q", KindTexture.Folder(), KindModel.Folder())
	}
}

func TestNormalizeColor(t *testing.T) {
	cases := map[string]string{
		"ff0000":   "#ff0000",
		"#00ff00":  "#00ff00",
		"  0000ff": "#0000ff",
		"":         "",
	}
	for in, want := range cases {
		if got := NormalizeColor(in); got != want {
			t.Fatalf("NormalizeColor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBackendURL(t *testing.T) {
	b := Backend{ID: "cdn", URLTemplate: "https://cdn.example/{kind}/{name}"}
	if got := b.URL("DRAP+Barrel Model1.glb", KindModel); got != "https://cdn.example/models/DRAP+Barrel%20Model1.glb" {
		t.Fatalf("unexpected url: %s", got)
	}
	gcs := Backend{ID: "bucket", ProbeKind: ProbeGCS, Bucket: "assets"}
	c := NewCandidate("tex.png", KindTexture, gcs)
	if c.ObjectKey != "textures/tex.png" {
		t.Fatalf("unexpected object key: %s", c.ObjectKey)
	}
}

func TestGeometryRecordUnmarshal(t *testing.T) {
	t.Run("numeric id and defaults", func(t *testing.T) {
		var rec GeometryRecord
		if err := json.Unmarshal([]byte(`{"id":12,"name":"Box","type":"box"}`), &rec); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if rec.ID != "12" {
			t.Fatalf("expected id 12, got %q", rec.ID)
		}
		if rec.Scale != UnitScale {
			t.Fatalf("expected unit scale, got %+v", rec.Scale)
		}
		if !rec.Visible {
			t.Fatal("expected visible default")
		}
	})

	t.Run("explicit values kept", func(t *testing.T) {
		var rec GeometryRecord
		payload := `{"id":"a","visible":false,"scale":{"x":2,"y":2,"z":2},"local_blob_id":"b1"}`
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if rec.Visible {
			t.Fatal("expected visible false")
		}
		if rec.Scale.X != 2 {
			t.Fatalf("unexpected scale: %+v", rec.Scale)
		}
		if !rec.HasLocalBlob() {
			t.Fatal("expected local blob id")
		}
	})

	t.Run("bad id", func(t *testing.T) {
		var rec GeometryRecord
		if err := json.Unmarshal([]byte(`{"id":{"x":1}}`), &rec); err == nil {
			t.Fatal("expected id error")
		}
	})
}

func TestForPersistenceStripsSessionHandle(t *testing.T) {
	rec := GeometryRecord{ID: "1", ModelURL: "http://h/v1/blobs/x?s=1", LocalBlobID: "x"}
	if got := rec.ForPersistence(); got.ModelURL != "" {
		t.Fatalf("expected model url cleared, got %q", got.ModelURL)
	}
	remote := GeometryRecord{ID: "2", ModelURL: "https://cdn/m.glb"}
	if got := remote.ForPersistence(); got.ModelURL != remote.ModelURL {
		t.Fatalf("expected remote model url kept, got %q", got.ModelURL)
	}
}

func TestRecordOrDefault(t *testing.T) {
	got := RecordOrDefault(GeometryRecord{}, false)
	if got.Type != TypeBox || !got.Visible || got.Scale != UnitScale {
		t.Fatalf("unexpected default: %+v", got)
	}
	rec := GeometryRecord{ID: "x"}
	if RecordOrDefault(rec, true).ID != "x" {
		t.Fatal("expected found record returned")
	}
}
