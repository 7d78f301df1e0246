package treeindex

import "github.com/starford/licaudit/internal/models"

// ContainedPackage is an attribution found below a resource, with the number
// of attributed descendants it sits on.
type ContainedPackage struct {
	AttributionID string `json:"attributionId"`
	Count         int    `json:"count"`
}

// ContainedExternalPackages collects the external attributions attached to
// attributed descendants of path. Resolved ids are skipped. Each id appears
// once, in the order it is first met walking descendants by index.
func ContainedExternalPackages(path string, idx *Index, r2a models.ResourcesToAttributions, resolved map[string]struct{}) []ContainedPackage {
	return contained(path, idx, r2a, func(id string) bool {
		_, ok := resolved[id]
		return ok
	})
}

// ContainedManualPackages collects the manual attributions attached to
// attributed descendants of path.
func ContainedManualPackages(path string, idx *Index, r2a models.ResourcesToAttributions) []ContainedPackage {
	return contained(path, idx, r2a, func(string) bool { return false })
}

func contained(path string, idx *Index, r2a models.ResourcesToAttributions, skip func(string) bool) []ContainedPackage {
	var out []ContainedPackage
	pos := make(map[string]int)
	for _, child := range idx.AttributedChildrenOf(path) {
		for _, id := range r2a[child] {
			if skip(id) {
				continue
			}
			if i, ok := pos[id]; ok {
				out[i].Count++
				continue
			}
			pos[id] = len(out)
			out = append(out, ContainedPackage{AttributionID: id, Count: 1})
		}
	}
	return out
}
