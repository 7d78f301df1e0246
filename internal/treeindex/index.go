// Package treeindex builds the resources-with-attributed-children index: a
// derived view of a resources-to-attributions map that answers "does this
// folder contain attributed resources" without walking the tree.
//
// An Index is immutable once built. Any change to the source map requires a
// new Index; see Cache for generation-keyed reuse.
package treeindex

import (
	"sort"

	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/resources"
)

// Index lists every attributed path together with its ancestors.
// AttributedChildren maps the index of a path to the indices of its strict
// descendants that carry attributions directly.
type Index struct {
	Paths              []string                 `json:"paths"`
	PathsToIndices     map[string]int           `json:"pathsToIndices"`
	AttributedChildren map[int]map[int]struct{} `json:"-"`

	// built marks PathsToIndices as the exact inverse of Paths.
	built bool
}

// Build derives the index from r2a. Attributed paths are visited in sorted
// order so equal maps always produce equal indices.
func Build(r2a models.ResourcesToAttributions) *Index {
	attributed := make([]string, 0, len(r2a))
	for path, ids := range r2a {
		if len(ids) > 0 {
			attributed = append(attributed, path)
		}
	}
	sort.Strings(attributed)

	idx := &Index{
		PathsToIndices:     make(map[string]int),
		AttributedChildren: make(map[int]map[int]struct{}),
		built:              true,
	}
	for _, path := range attributed {
		child := idx.add(path)
		for _, parent := range resources.ParentPaths(path) {
			p := idx.add(parent)
			set, ok := idx.AttributedChildren[p]
			if !ok {
				set = make(map[int]struct{})
				idx.AttributedChildren[p] = set
			}
			set[child] = struct{}{}
		}
	}
	return idx
}

func (idx *Index) add(path string) int {
	if i, ok := idx.PathsToIndices[path]; ok {
		return i
	}
	i := len(idx.Paths)
	idx.Paths = append(idx.Paths, path)
	idx.PathsToIndices[path] = i
	return i
}

// AttributedChildrenOf returns the paths of attributed strict descendants of
// path, ordered by index.
func (idx *Index) AttributedChildrenOf(path string) []string {
	if idx == nil {
		return nil
	}
	i, ok := idx.PathsToIndices[path]
	if !ok {
		return nil
	}
	set := idx.AttributedChildren[i]
	indices := make([]int, 0, len(set))
	for j := range set {
		indices = append(indices, j)
	}
	sort.Ints(indices)
	out := make([]string, 0, len(indices))
	for _, j := range indices {
		if j < len(idx.Paths) {
			out = append(out, idx.Paths[j])
		}
	}
	return out
}

// ContainsManualAttribution reports whether path is listed in the index or
// has attributed descendants. Paths unknown to the index report false.
//
// An Index returned by Build answers from PathsToIndices alone. Indices
// assembled by hand or decoded from JSON may list paths missing from
// PathsToIndices and additionally scan Paths.
func ContainsManualAttribution(path string, idx *Index) bool {
	if idx == nil {
		return false
	}
	if i, ok := idx.PathsToIndices[path]; ok {
		if i < len(idx.Paths) && idx.Paths[i] == path {
			return true
		}
		if len(idx.AttributedChildren[i]) > 0 {
			return true
		}
	}
	if idx.built {
		return false
	}
	for _, p := range idx.Paths {
		if p == path {
			return true
		}
	}
	return false
}

// GetCriticality returns the most severe criticality among the external
// attributions attached directly to path. Children are not considered.
func GetCriticality(path string, r2a models.ResourcesToAttributions, attrs models.Attributions) models.Criticality {
	result := models.CriticalityNone
	for _, id := range r2a[path] {
		info, ok := attrs[id]
		if !ok {
			continue
		}
		if info.Criticality.Severity() > result.Severity() {
			result = info.Criticality
		}
	}
	return result
}
