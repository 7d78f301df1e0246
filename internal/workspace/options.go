package workspace

import (
	"time"
)

// Option configures a Workspace.
type Option func(*Workspace)

// WithInput sets the input file, relative to the project root.
func WithInput(path string) Option {
	return func(w *Workspace) {
		w.inputPath = path
	}
}

// WithExportDir sets the directory export files are written to, relative to
// the project root.
func WithExportDir(dir string) Option {
	return func(w *Workspace) {
		w.exportDir = dir
	}
}

// WithCacheEntries bounds the number of memoised resource indices.
func WithCacheEntries(n int) Option {
	return func(w *Workspace) {
		w.cacheEntries = n
	}
}

// WithMetrics sets the prometheus collectors to update.
func WithMetrics(m *Metrics) Option {
	return func(w *Workspace) {
		w.metrics = m
	}
}

// WithOnChange registers a listener called after every snapshot change.
func WithOnChange(fn func(Change)) Option {
	return func(w *Workspace) {
		w.onChange = fn
	}
}

// WithIDGenerator overrides how new attribution ids are made.
func WithIDGenerator(fn func() string) Option {
	return func(w *Workspace) {
		w.newID = fn
	}
}

// WithClock overrides the time source used for export names and metadata.
func WithClock(fn func() time.Time) Option {
	return func(w *Workspace) {
		w.now = fn
	}
}
