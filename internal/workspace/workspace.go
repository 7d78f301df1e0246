// Package workspace holds the loaded project snapshot and exposes the
// attribution engine over it. Readers work on immutable snapshots; every
// mutation installs a new snapshot under a new generation.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/licaudit/internal/apperr"
	"github.com/starford/licaudit/internal/attributions"
	"github.com/starford/licaudit/internal/index"
	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/signals"
	"github.com/starford/licaudit/internal/storage"
	"github.com/starford/licaudit/internal/treeindex"
)

// Defaults for the project layout.
const (
	DefaultInput     = "input.json"
	DefaultExportDir = "exports"
)

// Change kinds passed to OnChange listeners.
const (
	ChangeReloaded     = "snapshot.reloaded"
	ChangeInputRemoved = "snapshot.input_removed"
	ChangeCreated      = "attribution.created"
	ChangeUpdated      = "attribution.updated"
	ChangeDeleted      = "attribution.deleted"
	ChangeReplaced     = "attribution.replaced"
	ChangeResolved     = "attribution.resolved"
	ChangeUnresolved   = "attribution.unresolved"
)

// Change describes one snapshot transition.
type Change struct {
	Kind       string   `json:"kind"`
	IDs        []string `json:"ids,omitempty"`
	Generation uint64   `json:"generation"`
}

// Status summarises the loaded snapshot.
type Status struct {
	Loaded     bool   `json:"loaded"`
	ProjectID  string `json:"projectId,omitempty"`
	InputPath  string `json:"inputPath"`
	Checksum   string `json:"checksum,omitempty"`
	Generation uint64 `json:"generation"`
	Manual     int    `json:"manualAttributions"`
	External   int    `json:"externalAttributions"`
	Resolved   int    `json:"resolvedAttributions"`
}

// Workspace coordinates the snapshot, the index database and storage.
type Workspace struct {
	store  storage.Provider
	db     index.Store
	logger *slog.Logger

	inputPath    string
	exportDir    string
	cacheEntries int
	metrics      *Metrics
	onChange     func(Change)
	newID        func() string
	now          func() time.Time

	cache  *treeindex.Cache
	worker *signals.Worker

	loadMu sync.Mutex

	mu         sync.RWMutex
	snap       *models.Snapshot
	generation uint64
	checksum   string
}

// New creates a workspace. Call Load before querying.
func New(store storage.Provider, db index.Store, logger *slog.Logger, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		store:        store,
		db:           db,
		logger:       logger,
		inputPath:    DefaultInput,
		exportDir:    DefaultExportDir,
		cacheEntries: treeindex.DefaultCacheEntries,
		newID:        uuid.NewString,
		now:          time.Now,
		worker:       signals.NewWorker(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = NewMetrics(prometheus.NewRegistry())
	}
	cache, err := treeindex.NewCache(w.cacheEntries)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	w.cache = cache
	return w, nil
}

// InputPath returns the input file, relative to the project root.
func (w *Workspace) InputPath() string { return w.inputPath }

// Load syncs the input file into the index and installs the resulting snapshot.
func (w *Workspace) Load(_ context.Context) error {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()

	res, err := index.Sync(w.db, w.store, w.inputPath, w.logger)
	if err != nil {
		return fmt.Errorf("workspace: load %s: %w", w.inputPath, err)
	}
	w.Install(res)
	return nil
}

// Install makes res the current snapshot under a new generation.
func (w *Workspace) Install(res *index.SyncResult) {
	w.mu.Lock()
	w.snap = res.Snapshot
	w.checksum = res.Checksum
	w.generation++
	gen := w.generation
	w.mu.Unlock()

	w.record(res.Snapshot, gen)
	w.logger.Info("workspace: snapshot installed",
		slog.String("project_id", res.Snapshot.ProjectID),
		slog.String("review", res.Review),
		slog.Int("external", len(res.Snapshot.External.Attributions)),
		slog.Int("manual", len(res.Snapshot.Manual.Attributions)),
		slog.Uint64("generation", gen))
	w.notify(Change{Kind: ChangeReloaded, Generation: gen})
}

// HandleInputEvent applies a watcher event. A removed input keeps the last
// snapshot loaded.
func (w *Workspace) HandleInputEvent(kind string, res *index.SyncResult) {
	switch kind {
	case index.EventUpdated:
		if res != nil {
			w.Install(res)
		}
	case index.EventDeleted:
		w.mu.RLock()
		gen := w.generation
		w.mu.RUnlock()
		w.logger.Warn("workspace: input removed, keeping last snapshot", slog.String("path", w.inputPath))
		w.notify(Change{Kind: ChangeInputRemoved, Generation: gen})
	}
}

// Status reports what is loaded.
func (w *Workspace) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := Status{InputPath: w.inputPath, Generation: w.generation, Checksum: w.checksum}
	if w.snap == nil {
		return st
	}
	st.Loaded = true
	st.ProjectID = w.snap.ProjectID
	st.Manual = len(w.snap.Manual.Attributions)
	st.External = len(w.snap.External.Attributions)
	st.Resolved = len(w.snap.ResolvedExternalAttributions)
	return st
}

type view struct {
	snap       *models.Snapshot
	generation uint64
}

func (w *Workspace) current() (view, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.snap == nil {
		return view{}, apperr.ErrNoSnapshot
	}
	return view{snap: w.snap, generation: w.generation}, nil
}

func (w *Workspace) indexFor(v view, kind models.Kind) *treeindex.Index {
	return w.cache.Get(kind, v.generation, v.snap.Data(kind).ResourcesToAttributions)
}

// update runs fn on the current snapshot under the write lock. fn persists
// its change and returns the next snapshot; nothing is installed on error.
func (w *Workspace) update(op string, fn func(snap *models.Snapshot) (*models.Snapshot, Change, error)) error {
	w.mu.Lock()
	if w.snap == nil {
		w.mu.Unlock()
		w.metrics.mutation(op, apperr.ErrNoSnapshot)
		return apperr.ErrNoSnapshot
	}
	next, change, err := fn(w.snap)
	if err == nil {
		w.snap = next
		w.generation++
		change.Generation = w.generation
	}
	w.mu.Unlock()

	w.metrics.mutation(op, err)
	if err != nil {
		return err
	}
	w.record(next, change.Generation)
	w.logger.Debug("workspace: mutation",
		slog.String("op", op),
		slog.Any("ids", change.IDs),
		slog.Uint64("generation", change.Generation))
	w.notify(change)
	return nil
}

func (w *Workspace) record(snap *models.Snapshot, gen uint64) {
	w.metrics.generation.Set(float64(gen))
	w.metrics.attributions.WithLabelValues(string(models.KindManual)).Set(float64(len(snap.Manual.Attributions)))
	w.metrics.attributions.WithLabelValues(string(models.KindExternal)).Set(float64(len(snap.External.Attributions)))
}

func (w *Workspace) notify(c Change) {
	if w.onChange != nil {
		w.onChange(c)
	}
}

func withManual(snap *models.Snapshot, manual models.AttributionData) *models.Snapshot {
	next := *snap
	next.Manual = manual
	return &next
}

// notFound maps engine lookup failures onto apperr.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, attributions.ErrUnknownAttribution) {
		return fmt.Errorf("workspace: %w: %w", apperr.ErrNotFound, err)
	}
	return err
}

func checkKind(kind models.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("workspace: %w: unknown kind %q", apperr.ErrInvalidInput, kind)
	}
	return nil
}
