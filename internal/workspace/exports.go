package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/licaudit/internal/apperr"
	"github.com/starford/licaudit/internal/checksum"
	"github.com/starford/licaudit/internal/export"
	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/parser"
)

// Export formats.
const (
	ExportSPDXJSON = "spdx-json"
	ExportSPDXYAML = "spdx-yaml"
	// ExportReview writes the review-state file next to the input.
	ExportReview = "review"
)

const (
	stampLayout = "20060102T150405Z"
	backupDir   = "backups"
)

// ExportFormats lists the accepted Export formats.
var ExportFormats = []string{ExportSPDXJSON, ExportSPDXYAML, ExportReview}

// ExportResult describes a written export file.
type ExportResult struct {
	Format  string `json:"format"`
	Path    string `json:"path"`
	Content []byte `json:"-"`
}

// Export renders the current snapshot in format and writes it to storage.
func (w *Workspace) Export(format string) (res *ExportResult, err error) {
	defer w.metrics.observe("export", time.Now(), &err)
	res, err = w.Render(format)
	if err != nil {
		return nil, err
	}
	if err = w.store.Write(res.Path, res.Content); err != nil {
		return nil, err
	}
	w.logger.Info("workspace: exported",
		slog.String("format", format),
		slog.String("path", res.Path),
		slog.Int("bytes", len(res.Content)))
	return res, nil
}

// Render builds the export of the current snapshot without writing it.
// Path is where Export would store it.
func (w *Workspace) Render(format string) (*ExportResult, error) {
	v, err := w.current()
	if err != nil {
		return nil, err
	}
	snap := v.snap
	now := w.now().UTC()

	var (
		target  string
		content []byte
	)
	switch format {
	case ExportSPDXJSON, ExportSPDXYAML:
		doc := export.SPDX(export.NoticeAttributions(snap.Manual.Attributions), export.Options{Name: snap.ProjectID, Created: now})
		enc, ext := parser.FormatJSON, "json"
		if format == ExportSPDXYAML {
			enc, ext = parser.FormatYAML, "yaml"
		}
		target = path.Join(w.exportDir, fmt.Sprintf("%s-%s.spdx.%s", snap.ProjectID, now.Format(stampLayout), ext))
		content, err = parser.Encode(enc, doc)
	case ExportReview:
		var enc parser.Format
		enc, err = parser.FormatOf(w.inputPath)
		if err != nil {
			return nil, err
		}
		target = parser.OutputName(w.inputPath)
		content, err = parser.Encode(enc, parser.NewOutput(snap, now.Format(time.RFC3339)))
	default:
		return nil, fmt.Errorf("workspace: %w: export format %q", apperr.ErrInvalidInput, format)
	}
	if err != nil {
		return nil, err
	}
	return &ExportResult{Format: format, Path: target, Content: content}, nil
}

// Exports lists the files in the export directory.
func (w *Workspace) Exports() ([]models.FileMetadata, error) {
	items, err := w.store.List(w.exportDir)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

func (w *Workspace) exportPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("workspace: %w: export name %q", apperr.ErrInvalidInput, name)
	}
	return path.Join(w.exportDir, name), nil
}

// ReadExport returns the content of one export file.
func (w *Workspace) ReadExport(name string) ([]byte, error) {
	p, err := w.exportPath(name)
	if err != nil {
		return nil, err
	}
	data, err := w.store.Read(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("workspace: export %s: %w", name, apperr.ErrNotFound)
	}
	return data, err
}

// DeleteExport removes one export file.
func (w *Workspace) DeleteExport(name string) error {
	p, err := w.exportPath(name)
	if err != nil {
		return err
	}
	err = w.store.Delete(p)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("workspace: export %s: %w", name, apperr.ErrNotFound)
	}
	return err
}

// ImportInput validates data as a new input file, moves the current input
// to the backup directory and loads the replacement.
func (w *Workspace) ImportInput(ctx context.Context, data []byte) error {
	if _, err := parser.ParseInput(w.inputPath, data); err != nil {
		return err
	}

	w.loadMu.Lock()
	if _, err := w.store.Read(w.inputPath); err == nil {
		backup := path.Join(backupDir, fmt.Sprintf("%s-%s", w.now().UTC().Format(stampLayout), path.Base(w.inputPath)))
		if err := w.store.Move(w.inputPath, backup); err != nil {
			w.loadMu.Unlock()
			return err
		}
		w.logger.Info("workspace: input backed up", slog.String("path", backup))
	}
	if err := w.store.Write(w.inputPath, data); err != nil {
		w.loadMu.Unlock()
		return err
	}
	w.loadMu.Unlock()

	w.logger.Info("workspace: input imported",
		slog.String("path", w.inputPath),
		slog.String("checksum", checksum.Short(data)))
	return w.Load(ctx)
}
