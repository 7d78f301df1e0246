// Package attributions joins attribution records with the resources they are
// attached to and expands those attachments down the resource tree.
//
// All functions are pure: inputs are never modified and every result is a
// newly allocated value.
package attributions

import (
	"strings"

	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/resources"
)

// PathPredicate reports a property of a resource path, such as whether it is
// a breakpoint or a file with children.
type PathPredicate func(path string) bool

// Never is a PathPredicate that matches nothing.
func Never(string) bool { return false }

// WithResources attaches to every attribution the resource list found for it
// in a2r. Attributions without an entry get an empty list.
func WithResources(attrs models.Attributions, a2r models.AttributionsToResources) models.AttributionsWithResources {
	out := make(models.AttributionsWithResources, len(attrs))
	for id, info := range attrs {
		paths := make([]string, len(a2r[id]))
		copy(paths, a2r[id])
		out[id] = models.AttributionWithResources{PackageInfo: info, Resources: paths}
	}
	return out
}

// WithAllChildResourcesWithoutFolders expands every attribution to the file
// paths it applies to. Folders are replaced by the files below them, walking
// the tree in declaration order. The walk does not enter breakpoints nor
// resources that carry attributions of their own. A file with children
// contributes the files below it followed by its own path.
func WithAllChildResourcesWithoutFolders(
	attrs models.Attributions,
	a2r models.AttributionsToResources,
	r2a models.ResourcesToAttributions,
	root *resources.Folder,
	isBreakpoint, isFileWithChildren PathPredicate,
) models.AttributionsWithResources {
	if isBreakpoint == nil {
		isBreakpoint = Never
	}
	if isFileWithChildren == nil {
		isFileWithChildren = Never
	}
	w := &expander{
		root:               root,
		r2a:                r2a,
		isBreakpoint:       isBreakpoint,
		isFileWithChildren: isFileWithChildren,
	}

	out := make(models.AttributionsWithResources, len(attrs))
	for id, info := range attrs {
		w.reset()
		for _, path := range a2r[id] {
			w.expand(path)
		}
		out[id] = models.AttributionWithResources{PackageInfo: info, Resources: w.paths}
	}
	return out
}

type expander struct {
	root               *resources.Folder
	r2a                models.ResourcesToAttributions
	isBreakpoint       PathPredicate
	isFileWithChildren PathPredicate

	seen  map[string]struct{}
	paths []string
}

func (w *expander) reset() {
	w.seen = make(map[string]struct{})
	w.paths = []string{}
}

func (w *expander) add(path string) {
	if _, ok := w.seen[path]; ok {
		return
	}
	w.seen[path] = struct{}{}
	w.paths = append(w.paths, path)
}

// expand handles a path an attribution is attached to directly.
func (w *expander) expand(path string) {
	if w.isBreakpoint(path) {
		return
	}
	node, ok := resources.Lookup(w.root, path)
	if !ok {
		return
	}
	switch n := node.(type) {
	case *resources.File:
		w.add(path)
	case *resources.Folder:
		w.walk(n, path)
		if w.isFileWithChildren(path) {
			w.add(path)
		}
	}
}

func (w *expander) walk(folder *resources.Folder, parent string) {
	for _, e := range folder.Children {
		path := resources.ChildPath(parent, e)
		if len(w.r2a[path]) > 0 || w.isBreakpoint(path) {
			continue
		}
		switch n := e.Node.(type) {
		case *resources.File:
			w.add(path)
		case *resources.Folder:
			w.walk(n, path)
			if w.isFileWithChildren(path) {
				w.add(path)
			}
		}
	}
}

// RemoveSlashesFromFilesWithChildren presents files with children as files:
// every listed path that is a file with children loses its trailing slash.
// A nil predicate leaves every path unchanged.
func RemoveSlashesFromFilesWithChildren(in models.AttributionsWithResources, isFileWithChildren PathPredicate) models.AttributionsWithResources {
	if isFileWithChildren == nil {
		isFileWithChildren = Never
	}
	out := make(models.AttributionsWithResources, len(in))
	for id, a := range in {
		paths := make([]string, len(a.Resources))
		for i, p := range a.Resources {
			if resources.IsFolderPath(p) && isFileWithChildren(p) {
				p = strings.TrimSuffix(p, "/")
			}
			paths[i] = p
		}
		out[id] = models.AttributionWithResources{PackageInfo: a.PackageInfo, Resources: paths}
	}
	return out
}
