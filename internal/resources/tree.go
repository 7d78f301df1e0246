// Package resources models the scanned file hierarchy as a tree of files and
// folders. Folder children keep the order in which they were declared.
package resources

import "strings"

// Node is either *File or *Folder.
type Node interface {
	isNode()
}

// File is a leaf resource.
type File struct{}

func (*File) isNode() {}

// Entry is a named child of a folder.
type Entry struct {
	Name string
	Node Node
}

// Folder is an inner resource. An empty folder has no children.
type Folder struct {
	Children []Entry
	index    map[string]int
}

func (*Folder) isNode() {}

// NewFolder builds a folder from ordered entries. A repeated name replaces
// the earlier entry in place.
func NewFolder(entries ...Entry) *Folder {
	f := &Folder{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if i, ok := f.index[e.Name]; ok {
			f.Children[i] = e
			continue
		}
		f.index[e.Name] = len(f.Children)
		f.Children = append(f.Children, e)
	}
	return f
}

// Child returns the direct child with the given name.
func (f *Folder) Child(name string) (Node, bool) {
	if f == nil {
		return nil, false
	}
	if f.index != nil {
		i, ok := f.index[name]
		if !ok {
			return nil, false
		}
		return f.Children[i].Node, true
	}
	for _, e := range f.Children {
		if e.Name == name {
			return e.Node, true
		}
	}
	return nil, false
}

// IsFolderPath reports whether path denotes a container (trailing slash).
func IsFolderPath(path string) bool {
	return strings.HasSuffix(path, "/")
}

// Segments splits a resource path into its names. The root "/" has none.
func Segments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// ChildPath returns the path of a child entry below parent. Folder paths
// carry a trailing slash, file paths do not.
func ChildPath(parent string, e Entry) string {
	if !strings.HasSuffix(parent, "/") {
		parent += "/"
	}
	if _, ok := e.Node.(*Folder); ok {
		return parent + e.Name + "/"
	}
	return parent + e.Name
}

// ParentPaths returns every ancestor folder path of path, root first.
// "/a/b/c" yields "/", "/a/", "/a/b/".
func ParentPaths(path string) []string {
	segs := Segments(path)
	if len(segs) == 0 {
		return nil
	}
	out := make([]string, 0, len(segs))
	cur := "/"
	out = append(out, cur)
	for _, s := range segs[:len(segs)-1] {
		cur += s + "/"
		out = append(out, cur)
	}
	return out
}

// Lookup walks the tree along the path segments and returns the node found
// there. The root path returns root itself.
func Lookup(root *Folder, path string) (Node, bool) {
	if root == nil {
		return nil, false
	}
	var cur Node = root
	for _, seg := range Segments(path) {
		folder, ok := cur.(*Folder)
		if !ok {
			return nil, false
		}
		next, ok := folder.Child(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// CountFiles returns the number of leaf files below n.
func CountFiles(n Node) int {
	switch v := n.(type) {
	case *File:
		return 1
	case *Folder:
		total := 0
		for _, e := range v.Children {
			total += CountFiles(e.Node)
		}
		return total
	default:
		return 0
	}
}
