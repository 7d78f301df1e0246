package index

import (
	"log/slog"

	"github.com/starford/licaudit/internal/checksum"
	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/parser"
	"github.com/starford/licaudit/internal/storage"
)

// Review state origins reported by Sync.
const (
	ReviewFromDatabase = "database"
	ReviewFromFile     = "file"
	ReviewEmpty        = "empty"
)

// SyncResult is the outcome of one Sync pass.
type SyncResult struct {
	Snapshot *models.Snapshot
	Checksum string
	// Changed is true when the input differed from the last synced checksum
	// and the external rows were rewritten.
	Changed bool
	Review  string
}

// Sync loads the input file and brings the index up to date:
//   - a changed input replaces the stored external attributions
//   - review state stored for the project is merged into the snapshot
//   - without stored state, the sibling review-state file (if any) seeds it
func Sync(db Store, store storage.Provider, inputPath string, logger *slog.Logger) (*SyncResult, error) {
	data, err := store.Read(inputPath)
	if err != nil {
		return nil, err
	}
	snap, err := parser.ParseInput(inputPath, data)
	if err != nil {
		return nil, err
	}
	res := &SyncResult{Snapshot: snap, Checksum: checksum.Sum(data)}

	prev, err := db.GetChecksum(inputPath)
	if err != nil {
		return nil, err
	}
	if prev != res.Checksum {
		if err := db.ReplaceAttributions(snap.External); err != nil {
			return nil, err
		}
		res.Changed = true
		logger.Debug("sync: external attributions indexed",
			slog.String("path", inputPath),
			slog.Int("count", len(snap.External.Attributions)))
	}

	state, err := db.ReviewState(snap.ProjectID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		snap.Manual = state.Manual
		snap.ResolvedExternalAttributions = state.Resolved
		res.Review = ReviewFromDatabase
	} else {
		res.Review = seedReview(store, inputPath, snap, logger)
		if err := db.ClaimProject(snap.ProjectID, snap.Manual, parser.SortedKeys(snap.ResolvedExternalAttributions)); err != nil {
			return nil, err
		}
	}

	if err := db.SetChecksum(inputPath, snap.ProjectID, res.Checksum); err != nil {
		return nil, err
	}
	return res, nil
}

// seedReview applies the review-state file next to the input, when present.
func seedReview(store storage.Provider, inputPath string, snap *models.Snapshot, logger *slog.Logger) string {
	name := parser.OutputName(inputPath)
	data, err := store.Read(name)
	if err != nil {
		return ReviewEmpty
	}
	out, err := parser.ParseOutput(name, data)
	if err != nil {
		logger.Warn("sync: review file ignored", slog.String("path", name), slog.String("error", err.Error()))
		return ReviewEmpty
	}
	if out.Metadata.ProjectID != snap.ProjectID {
		logger.Warn("sync: review file belongs to another project",
			slog.String("path", name),
			slog.String("project_id", out.Metadata.ProjectID))
		return ReviewEmpty
	}
	out.Apply(snap)
	return ReviewFromFile
}
