package workspace

import (
	"fmt"
	"strings"

	"github.com/starford/licaudit/internal/apperr"
	"github.com/starford/licaudit/internal/attributions"
	"github.com/starford/licaudit/internal/index"
	"github.com/starford/licaudit/internal/models"
)

func checkPaths(paths []string) error {
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("workspace: %w: resource path %q must start with /", apperr.ErrInvalidInput, p)
		}
	}
	return nil
}

// Create stores a new manual attribution on paths and returns its id.
func (w *Workspace) Create(info models.PackageInfo, paths []string) (string, error) {
	if err := checkPaths(paths); err != nil {
		return "", err
	}
	var id string
	err := w.update("create", func(snap *models.Snapshot) (*models.Snapshot, Change, error) {
		id = w.newID()
		if _, ok := snap.Manual.Attributions[id]; ok {
			return nil, Change{}, fmt.Errorf("workspace: %w: attribution %s", apperr.ErrAlreadyExists, id)
		}
		manual := attributions.Save(snap.Manual, id, info, paths...)
		if err := w.db.UpsertAttribution(models.KindManual, id, info, manual.AttributionsToResources[id]); err != nil {
			return nil, Change{}, err
		}
		return withManual(snap, manual), Change{Kind: ChangeCreated, IDs: []string{id}}, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Update replaces the record of a manual attribution, keeping its resources.
func (w *Workspace) Update(id string, info models.PackageInfo) error {
	return w.update("update", func(snap *models.Snapshot) (*models.Snapshot, Change, error) {
		if _, ok := snap.Manual.Attributions[id]; !ok {
			return nil, Change{}, notFound(fmt.Errorf("%w: %s", attributions.ErrUnknownAttribution, id))
		}
		manual := attributions.Save(snap.Manual, id, info)
		if err := w.db.UpsertAttribution(models.KindManual, id, info, manual.AttributionsToResources[id]); err != nil {
			return nil, Change{}, err
		}
		return withManual(snap, manual), Change{Kind: ChangeUpdated, IDs: []string{id}}, nil
	})
}

// Delete removes a manual attribution from every resource.
func (w *Workspace) Delete(id string) error {
	return w.update("delete", func(snap *models.Snapshot) (*models.Snapshot, Change, error) {
		manual, err := attributions.Delete(snap.Manual, id)
		if err != nil {
			return nil, Change{}, notFound(err)
		}
		if err := w.db.DeleteAttribution(models.KindManual, id); err != nil {
			return nil, Change{}, err
		}
		return withManual(snap, manual), Change{Kind: ChangeDeleted, IDs: []string{id}}, nil
	})
}

// Replace merges the manual attribution oldID into newID.
func (w *Workspace) Replace(oldID, newID string) error {
	return w.update("replace", func(snap *models.Snapshot) (*models.Snapshot, Change, error) {
		manual, err := attributions.Replace(snap.Manual, oldID, newID)
		if err != nil {
			return nil, Change{}, notFound(err)
		}
		if oldID == newID {
			return snap, Change{Kind: ChangeReplaced, IDs: []string{newID}}, nil
		}
		merged := index.AttributionRow{ID: newID, Info: manual.Attributions[newID], Paths: manual.AttributionsToResources[newID]}
		if err := w.db.WriteAttributions(models.KindManual, []index.AttributionRow{merged}, []string{oldID}); err != nil {
			return nil, Change{}, err
		}
		return withManual(snap, manual), Change{Kind: ChangeReplaced, IDs: []string{oldID, newID}}, nil
	})
}

// Link attaches a manual attribution to more resources.
func (w *Workspace) Link(id string, paths []string) error {
	if err := checkPaths(paths); err != nil {
		return err
	}
	return w.update("link", func(snap *models.Snapshot) (*models.Snapshot, Change, error) {
		manual, err := attributions.Link(snap.Manual, id, paths...)
		if err != nil {
			return nil, Change{}, notFound(err)
		}
		if err := w.db.UpsertAttribution(models.KindManual, id, manual.Attributions[id], manual.AttributionsToResources[id]); err != nil {
			return nil, Change{}, err
		}
		return withManual(snap, manual), Change{Kind: ChangeUpdated, IDs: []string{id}}, nil
	})
}

// Unlink detaches a manual attribution from resources.
func (w *Workspace) Unlink(id string, paths []string) error {
	return w.update("unlink", func(snap *models.Snapshot) (*models.Snapshot, Change, error) {
		manual, err := attributions.Unlink(snap.Manual, id, paths...)
		if err != nil {
			return nil, Change{}, notFound(err)
		}
		if err := w.db.UpsertAttribution(models.KindManual, id, manual.Attributions[id], manual.AttributionsToResources[id]); err != nil {
			return nil, Change{}, err
		}
		return withManual(snap, manual), Change{Kind: ChangeUpdated, IDs: []string{id}}, nil
	})
}

// Confirm clears the pre-selected flag of manual attributions.
func (w *Workspace) Confirm(ids []string) error {
	return w.update("confirm", func(snap *models.Snapshot) (*models.Snapshot, Change, error) {
		manual, err := attributions.Confirm(snap.Manual, ids...)
		if err != nil {
			return nil, Change{}, notFound(err)
		}
		rows := make([]index.AttributionRow, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, index.AttributionRow{ID: id, Info: manual.Attributions[id], Paths: manual.AttributionsToResources[id]})
		}
		if err := w.db.WriteAttributions(models.KindManual, rows, nil); err != nil {
			return nil, Change{}, err
		}
		return withManual(snap, manual), Change{Kind: ChangeUpdated, IDs: ids}, nil
	})
}

// Resolve marks external attributions as reviewed.
func (w *Workspace) Resolve(ids []string) error {
	return w.setResolved("resolve", ids, true)
}

// Unresolve reverts Resolve.
func (w *Workspace) Unresolve(ids []string) error {
	return w.setResolved("unresolve", ids, false)
}

func (w *Workspace) setResolved(op string, ids []string, resolved bool) error {
	return w.update(op, func(snap *models.Snapshot) (*models.Snapshot, Change, error) {
		for _, id := range ids {
			if _, ok := snap.External.Attributions[id]; !ok {
				return nil, Change{}, fmt.Errorf("workspace: %w: external attribution %s", apperr.ErrNotFound, id)
			}
		}
		if err := w.db.SetResolved(ids, resolved); err != nil {
			return nil, Change{}, err
		}
		set := make(map[string]struct{}, len(snap.ResolvedExternalAttributions)+len(ids))
		for id := range snap.ResolvedExternalAttributions {
			set[id] = struct{}{}
		}
		for _, id := range ids {
			if resolved {
				set[id] = struct{}{}
			} else {
				delete(set, id)
			}
		}
		kind := ChangeResolved
		if !resolved {
			kind = ChangeUnresolved
		}
		next := *snap
		next.ResolvedExternalAttributions = set
		return &next, Change{Kind: kind, IDs: ids}, nil
	})
}
