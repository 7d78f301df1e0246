package workspace

import (
	"context"
	"errors"
	"time"

	"github.com/starford/licaudit/internal/attributions"
	"github.com/starford/licaudit/internal/index"
	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/resources"
	"github.com/starford/licaudit/internal/signals"
	"github.com/starford/licaudit/internal/stats"
	"github.com/starford/licaudit/internal/treeindex"
)

// ResourceInfo is everything known about one resource path.
type ResourceInfo struct {
	Path               string                       `json:"path"`
	Exists             bool                         `json:"exists"`
	Criticality        models.Criticality           `json:"criticality,omitempty"`
	ContainsManual     bool                         `json:"containsManualAttribution"`
	Manual             []string                     `json:"manual"`
	External           []string                     `json:"external"`
	AttributedChildren []string                     `json:"attributedChildren"`
	ContainedExternal  []treeindex.ContainedPackage `json:"containedExternal"`
}

// Attributions joins the attributions of kind with their direct resources.
func (w *Workspace) Attributions(kind models.Kind) (out models.AttributionsWithResources, err error) {
	defer w.metrics.observe("attributions", time.Now(), &err)
	if err = checkKind(kind); err != nil {
		return nil, err
	}
	v, err := w.current()
	if err != nil {
		return nil, err
	}
	data := v.snap.Data(kind)
	return attributions.WithResources(data.Attributions, data.AttributionsToResources), nil
}

// Expanded joins the attributions of kind with every file they cover,
// descending folders and honouring breakpoints and files with children.
func (w *Workspace) Expanded(kind models.Kind) (out models.AttributionsWithResources, err error) {
	defer w.metrics.observe("expanded", time.Now(), &err)
	if err = checkKind(kind); err != nil {
		return nil, err
	}
	v, err := w.current()
	if err != nil {
		return nil, err
	}
	data := v.snap.Data(kind)
	out = attributions.WithAllChildResourcesWithoutFolders(
		data.Attributions,
		data.AttributionsToResources,
		data.ResourcesToAttributions,
		v.snap.Resources,
		v.snap.IsBreakpoint,
		v.snap.IsFileWithChildren,
	)
	return attributions.RemoveSlashesFromFilesWithChildren(out, v.snap.IsFileWithChildren), nil
}

// Criticality returns the most severe criticality among the external
// attributions directly on path.
func (w *Workspace) Criticality(path string) (crit models.Criticality, err error) {
	defer w.metrics.observe("criticality", time.Now(), &err)
	v, err := w.current()
	if err != nil {
		return models.CriticalityNone, err
	}
	ext := v.snap.External
	return treeindex.GetCriticality(path, ext.ResourcesToAttributions, ext.Attributions), nil
}

// ContainsManual reports whether path or one of its descendants carries a
// manual attribution.
func (w *Workspace) ContainsManual(path string) (ok bool, err error) {
	defer w.metrics.observe("contains_manual", time.Now(), &err)
	v, err := w.current()
	if err != nil {
		return false, err
	}
	return treeindex.ContainsManualAttribution(path, w.indexFor(v, models.KindManual)), nil
}

// Resource collects the per-resource views in one call.
func (w *Workspace) Resource(path string) (info *ResourceInfo, err error) {
	defer w.metrics.observe("resource", time.Now(), &err)
	v, err := w.current()
	if err != nil {
		return nil, err
	}
	snap := v.snap
	manualIdx := w.indexFor(v, models.KindManual)
	externalIdx := w.indexFor(v, models.KindExternal)
	_, exists := resources.Lookup(snap.Resources, path)
	contained := treeindex.ContainedExternalPackages(path, externalIdx, snap.External.ResourcesToAttributions, snap.ResolvedExternalAttributions)

	return &ResourceInfo{
		Path:               path,
		Exists:             exists,
		Criticality:        treeindex.GetCriticality(path, snap.External.ResourcesToAttributions, snap.External.Attributions),
		ContainsManual:     treeindex.ContainsManualAttribution(path, manualIdx),
		Manual:             nonNil(snap.Manual.ResourcesToAttributions[path]),
		External:           nonNil(snap.External.ResourcesToAttributions[path]),
		AttributedChildren: nonNil(manualIdx.AttributedChildrenOf(path)),
		ContainedExternal:  nonNil(contained),
	}, nil
}

// Signals computes the autocomplete suggestions for resource on the signal
// worker. A newer request for another resource makes this one return
// signals.ErrStale.
func (w *Workspace) Signals(ctx context.Context, resource string) (out []models.AutocompleteSignal, err error) {
	defer w.metrics.observe("signals", time.Now(), &err)
	v, err := w.current()
	if err != nil {
		return nil, err
	}
	out, err = w.worker.Compute(ctx, signals.Input{
		External:      v.snap.External,
		ExternalIndex: w.indexFor(v, models.KindExternal),
		Manual:        v.snap.Manual,
		ManualIndex:   w.indexFor(v, models.KindManual),
		Resolved:      v.snap.ResolvedExternalAttributions,
		ResourceID:    resource,
		Sources:       v.snap.Sources,
		Generation:    v.generation,
	})
	if errors.Is(err, signals.ErrStale) {
		w.metrics.staleSignals.Inc()
	}
	return nonNil(out), err
}

// Statistics aggregates licenses, sources and completeness for kind.
func (w *Workspace) Statistics(kind models.Kind) (summary stats.Summary, err error) {
	defer w.metrics.observe("statistics", time.Now(), &err)
	if err = checkKind(kind); err != nil {
		return stats.Summary{}, err
	}
	v, err := w.current()
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Summarize(v.snap.Data(kind).Attributions, v.snap.Sources), nil
}

// Search looks attributions up in the index. An empty kind searches both.
func (w *Workspace) Search(query string, kind models.Kind, limit int) (out []index.SearchResult, err error) {
	defer w.metrics.observe("search", time.Now(), &err)
	if kind != "" {
		if err = checkKind(kind); err != nil {
			return nil, err
		}
	}
	out, err = w.db.Search(query, kind, limit)
	return nonNil(out), err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
