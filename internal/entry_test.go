package internal

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/sse"
	"github.com/starford/licaudit/internal/testutil"
	"github.com/starford/licaudit/internal/workspace"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Project.Dir = filepath.Join(dir, "project")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	cfg.Project.Watch = false
	return cfg
}

func TestOpenProject_WithoutInput(t *testing.T) {
	cfg := testConfig(t)
	p, err := openProject(context.Background(), cfg, testutil.Logger(), newRegistry())
	if err != nil {
		t.Fatalf("openProject: %v", err)
	}
	defer p.Close()
	if p.ws.Status().Loaded {
		t.Error("nothing should be loaded without an input file")
	}
	if _, err := os.Stat(cfg.Project.Dir); err != nil {
		t.Errorf("project dir not created: %v", err)
	}
}

func TestRouter(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Project.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Project.Dir, workspace.DefaultInput), []byte(testutil.SampleInput), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := openProject(context.Background(), cfg, testutil.Logger(), newRegistry())
	if err != nil {
		t.Fatalf("openProject: %v", err)
	}
	defer p.Close()
	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	srv := httptest.NewServer(newRouter(cfg, p, broker))
	defer srv.Close()

	for path, want := range map[string]int{
		"/health/live":  http.StatusOK,
		"/health/ready": http.StatusOK,
		"/api/status":   http.StatusOK,
		"/metrics":      http.StatusOK,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("GET %s = %d, want %d", path, resp.StatusCode, want)
		}
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "licaudit_snapshot_generation") {
		t.Error("metrics missing workspace collectors")
	}
}

func TestRouter_NotReadyWithoutInput(t *testing.T) {
	cfg := testConfig(t)
	p, err := openProject(context.Background(), cfg, testutil.Logger(), newRegistry())
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	rec := httptest.NewRecorder()
	newRouter(cfg, p, broker).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d, want 503", rec.Code)
	}
}

func TestOpenOffline(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scan.json")
	if err := os.WriteFile(input, []byte(testutil.SampleInput), 0o644); err != nil {
		t.Fatal(err)
	}
	review := `{"metadata": {"projectId": "demo", "fileCreationDate": "2024-01-02"},
  "manualAttributions": {"m1": {"packageName": "react", "licenseName": "MIT"}},
  "resourcesToAttributions": {"/src/app.js": ["m1"]},
  "resolvedExternalAttributions": ["e3"]}`
	if err := os.WriteFile(filepath.Join(dir, "scan_attributions.json"), []byte(review), 0o644); err != nil {
		t.Fatal(err)
	}

	o, err := OpenOffline(context.Background(), input, testutil.Logger())
	if err != nil {
		t.Fatalf("OpenOffline: %v", err)
	}
	st := o.Status()
	if !st.Loaded || st.Manual != 1 || st.Resolved != 1 {
		t.Errorf("status = %+v", st)
	}
	manual, err := o.Attributions(models.KindManual)
	if err != nil || len(manual) != 1 {
		t.Errorf("manual = %v, %v", manual, err)
	}
	tmp := o.tmp
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Errorf("temp dir left behind: %v", err)
	}
}

func TestOpenOffline_BadExtension(t *testing.T) {
	if _, err := OpenOffline(context.Background(), filepath.Join(t.TempDir(), "scan.txt"), testutil.Logger()); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
