package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/licaudit/internal/index"
	"github.com/starford/licaudit/internal/parser"
	"github.com/starford/licaudit/internal/storage"
	"github.com/starford/licaudit/internal/workspace"
)

// Offline is a workspace opened over a single input file with a throwaway
// index. Review state comes from the review file next to the input, if any.
type Offline struct {
	*workspace.Workspace
	db  *index.DB
	tmp string
}

// OpenOffline loads inputFile for one-shot commands.
func OpenOffline(ctx context.Context, inputFile string, logger *slog.Logger) (*Offline, error) {
	base := filepath.Base(inputFile)
	if _, err := parser.FormatOf(base); err != nil {
		return nil, err
	}
	store, err := storage.NewFS(filepath.Dir(inputFile))
	if err != nil {
		return nil, fmt.Errorf("open input dir: %w", err)
	}

	tmp, err := os.MkdirTemp("", "licaudit-")
	if err != nil {
		return nil, err
	}
	db, err := index.Open(filepath.Join(tmp, "index.db"))
	if err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}
	o := &Offline{db: db, tmp: tmp}

	o.Workspace, err = workspace.New(store, db, logger,
		workspace.WithInput(base),
		workspace.WithMetrics(workspace.NewMetrics(prometheus.NewRegistry())))
	if err == nil {
		err = o.Load(ctx)
	}
	if err != nil {
		o.Close()
		return nil, err
	}
	return o, nil
}

// Close drops the throwaway index.
func (o *Offline) Close() error {
	err := o.db.Close()
	if rmErr := os.RemoveAll(o.tmp); err == nil {
		err = rmErr
	}
	return err
}
