package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"scenekit/internal/models"
)

func TestHTTPProbe(t *testing.T) {
	var methods atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods.Store(r.Method)
		switch r.URL.Path {
		case "/models/ok.glb":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("body"))
		case "/models/redirect.glb":
			http.Redirect(w, r, "/models/ok.glb", http.StatusFound)
		case "/models/boom.glb":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewHTTP(HTTPOptions{Origin: srv.URL, Timeout: time.Second})
	ctx := context.Background()

	cases := []struct {
		name   string
		target string
		want   bool
	}{
		{"absolute hit", srv.URL + "/models/ok.glb", true},
		{"relative hit", "/models/ok.glb", true},
		{"redirect followed", "/models/redirect.glb", true},
		{"not found", "/models/missing.glb", false},
		{"server error", "/models/boom.glb", false},
		{"empty", "", false},
		{"unsupported scheme", "ftp://example/x.glb", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Probe(ctx, tc.target); got != tc.want {
				t.Fatalf("Probe(%q) = %v, want %v", tc.target, got, tc.want)
			}
		})
	}
	if m, _ := methods.Load().(string); m != http.MethodHead {
		t.Fatalf("expected HEAD requests, saw %q", m)
	}
}

func TestHTTPProbeNetworkFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTP(HTTPOptions{Timeout: 20 * time.Millisecond})
	if p.Probe(context.Background(), srv.URL+"/slow.glb") {
		t.Fatal("expected timeout to report false")
	}
	if p.Probe(context.Background(), "/relative.glb") {
		t.Fatal("expected relative url without origin to report false")
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	if p.Probe(context.Background(), url+"/x.glb") {
		t.Fatal("expected connection failure to report false")
	}

	var nilProbe *HTTP
	if nilProbe.Probe(context.Background(), url) {
		t.Fatal("nil prober must report false")
	}
}

func TestGCSProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/b/assets/o/models/chair.glb") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"bucket":"assets","name":"models/chair.glb","size":"12"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
	}))
	defer srv.Close()
	t.Setenv("STORAGE_EMULATOR_HOST", srv.URL)

	g, err := NewGCS(context.Background(), GCSOptions{Anonymous: true, Timeout: time.Second})
	if err != nil {
		t.Fatalf("new gcs: %v", err)
	}
	defer g.Close()

	if !g.Probe(context.Background(), "assets", "models/chair.glb") {
		t.Fatal("expected existing object")
	}
	if g.Probe(context.Background(), "assets", "models/missing.glb") {
		t.Fatal("expected missing object")
	}
	if g.Probe(context.Background(), "", "models/chair.glb") {
		t.Fatal("expected blank bucket to report false")
	}
}

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := Router{HTTP: NewHTTP(HTTPOptions{Origin: srv.URL})}
	ctx := context.Background()

	probeable := models.Backend{ID: "local", URLTemplate: "/{kind}/{name}", Probeable: true}
	if !r.Probe(ctx, models.NewCandidate("a.glb", models.KindModel, probeable)) {
		t.Fatal("expected probeable http backend to hit")
	}
	blind := probeable
	blind.Probeable = false
	if r.Probe(ctx, models.NewCandidate("a.glb", models.KindModel, blind)) {
		t.Fatal("non-probeable backend must report false")
	}
	gcs := models.Backend{ID: "bucket", Probeable: true, ProbeKind: models.ProbeGCS, Bucket: "assets"}
	if r.Probe(ctx, models.NewCandidate("a.glb", models.KindModel, gcs)) {
		t.Fatal("gcs backend without a gcs prober must report false")
	}
}
