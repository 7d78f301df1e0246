// Package signals turns the external and manual attributions around a
// resource into ranked, de-duplicated autocomplete suggestions.
package signals

import (
	"sort"
	"strings"

	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/treeindex"
)

// Input is the snapshot a computation runs on. Indices must have been built
// from the ResourcesToAttributions of the matching data.
type Input struct {
	External      models.AttributionData
	ExternalIndex *treeindex.Index
	Manual        models.AttributionData
	ManualIndex   *treeindex.Index
	Resolved      map[string]struct{}
	ResourceID    string
	Sources       models.AttributionSources
	// Generation identifies the snapshot; Worker uses it to share work.
	Generation uint64
}

// Compute returns the autocomplete signals for in.ResourceID. Candidates are
// the external attributions on the resource, then those on unresolved
// attributed descendants, then manual attributions on descendants. Records
// without a package URL or already preferred are dropped. Duplicates are
// counted on their first occurrence. The result is ordered by source
// priority, then wasPreferred, then count, all descending.
func Compute(in Input) []models.AutocompleteSignal {
	var candidates []models.PackageInfo
	for _, id := range in.External.ResourcesToAttributions[in.ResourceID] {
		if info, ok := in.External.Attributions[id]; ok {
			candidates = append(candidates, info)
		}
	}
	for _, p := range treeindex.ContainedExternalPackages(in.ResourceID, in.ExternalIndex, in.External.ResourcesToAttributions, in.Resolved) {
		if info, ok := in.External.Attributions[p.AttributionID]; ok {
			candidates = append(candidates, info)
		}
	}
	for _, p := range treeindex.ContainedManualPackages(in.ResourceID, in.ManualIndex, in.Manual.ResourcesToAttributions) {
		if info, ok := in.Manual.Attributions[p.AttributionID]; ok {
			candidates = append(candidates, info)
		}
	}

	out := make([]models.AutocompleteSignal, 0, len(candidates))
	byKey := make(map[string]int)
	for _, info := range candidates {
		purl := Purl(info)
		if purl == "" || info.Preferred {
			continue
		}
		key := uniqueKey(info, purl, in.Sources)
		if i, ok := byKey[key]; ok {
			out[i].Count++
			out[i].WasPreferred = out[i].WasPreferred || info.WasPreferred
			continue
		}
		sig := models.AutocompleteSignal{PackageInfo: info, Count: 1}
		if info.Comment != "" {
			sig.Comments = []string{info.Comment}
		}
		sig.Comment = ""
		byKey[key] = len(out)
		out = append(out, sig)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if pa, pb := priority(a.PackageInfo, in.Sources), priority(b.PackageInfo, in.Sources); pa != pb {
			return pa > pb
		}
		if a.WasPreferred != b.WasPreferred {
			return a.WasPreferred
		}
		return a.Count > b.Count
	})
	return out
}

// uniqueKey joins the non-empty parts of source display name, copyright,
// license name and purl. Only sources known to the project contribute.
func uniqueKey(info models.PackageInfo, purl string, sources models.AttributionSources) string {
	parts := make([]string, 0, 4)
	if info.Source != nil {
		if src, ok := sources[info.Source.Name]; ok && src.Name != "" {
			parts = append(parts, src.Name)
		}
	}
	for _, s := range []string{info.Copyright, info.LicenseName, purl} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}

func priority(info models.PackageInfo, sources models.AttributionSources) int {
	if info.Source == nil {
		return 0
	}
	return sources.Priority(info.Source.Name)
}
