// Package testutil provides shared test helpers for setting up projects,
// databases and workspaces.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/licaudit/internal/index"
	"github.com/starford/licaudit/internal/storage"
	"github.com/starford/licaudit/internal/workspace"
)

// SampleInput is a small project with external signals on two files, one
// breakpoint and one file with children.
const SampleInput = `{
  "metadata": {"projectId": "demo", "fileCreationDate": "2024-01-01"},
  "resources": {
    "src": {"app.js": 1, "lib": {"util.js": 1}},
    "vendor": {"bundle.js": {"inner.js": 1}},
    "node_modules": {"react": {"index.js": 1}}
  },
  "externalAttributions": {
    "e1": {"packageType": "npm", "packageName": "react", "packageVersion": "18.2.0", "licenseName": "MIT", "criticality": "high", "source": {"name": "sc"}},
    "e2": {"packageName": "lodash", "licenseName": "MIT", "criticality": "medium", "source": {"name": "sc"}},
    "e3": {"packageName": "left-pad", "licenseName": "WTFPL"}
  },
  "resourcesToAttributions": {
    "/src/app.js": ["e1"],
    "/src/lib/util.js": ["e2", "e3"]
  },
  "externalAttributionSources": {"sc": {"name": "ScanCode", "priority": 1}},
  "attributionBreakpoints": ["/node_modules/"],
  "filesWithChildren": ["/vendor/bundle.js/"]
}`

// Logger returns a logger that discards its output.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "licaudit-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestProject creates a temporary project directory with a storage.Provider.
func TestProject(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestWorkspace creates a project holding SampleInput and returns a loaded
// workspace over it. Metrics go to a private registry.
func TestWorkspace(t *testing.T, opts ...workspace.Option) (*workspace.Workspace, storage.Provider) {
	t.Helper()
	_, store := TestProject(t)
	if err := store.Write(workspace.DefaultInput, []byte(SampleInput)); err != nil {
		t.Fatal(err)
	}
	opts = append([]workspace.Option{workspace.WithMetrics(workspace.NewMetrics(prometheus.NewRegistry()))}, opts...)
	ws, err := workspace.New(store, TestDB(t), Logger(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ws, store
}
