package treeindex

import (
	"reflect"
	"sort"
	"testing"

	"github.com/starford/licaudit/internal/models"
)

func TestBuild(t *testing.T) {
	r2a := models.ResourcesToAttributions{
		"/a/b/c.js": {"1"},
		"/a/":       {"2"},
		"/d":        {"3"},
		"/empty":    {},
	}
	idx := Build(r2a)

	wantPaths := []string{"/a/", "/", "/a/b/c.js", "/a/b/", "/d"}
	if !reflect.DeepEqual(idx.Paths, wantPaths) {
		t.Fatalf("paths = %v, want %v", idx.Paths, wantPaths)
	}
	for i, p := range idx.Paths {
		if idx.PathsToIndices[p] != i {
			t.Errorf("PathsToIndices[%q] = %d, want %d", p, idx.PathsToIndices[p], i)
		}
	}
	if _, ok := idx.PathsToIndices["/empty"]; ok {
		t.Error("path without ids must not be indexed")
	}

	if got := idx.AttributedChildrenOf("/"); !reflect.DeepEqual(got, []string{"/a/", "/a/b/c.js", "/d"}) {
		t.Errorf("children of / = %v", got)
	}
	if got := idx.AttributedChildrenOf("/a/"); !reflect.DeepEqual(got, []string{"/a/b/c.js"}) {
		t.Errorf("children of /a/ = %v", got)
	}
	if got := idx.AttributedChildrenOf("/d"); len(got) != 0 {
		t.Errorf("children of /d = %v", got)
	}
	if got := idx.AttributedChildrenOf("/unknown/"); got != nil {
		t.Errorf("children of unknown = %v", got)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	r2a := models.ResourcesToAttributions{
		"/x/y": {"1"}, "/x/z/": {"2"}, "/q": {"3"}, "/x/z/w": {"4"},
	}
	first := Build(r2a)
	for i := 0; i < 20; i++ {
		if !reflect.DeepEqual(Build(r2a), first) {
			t.Fatal("Build is not deterministic")
		}
	}
}

func TestBuild_AttributedChildrenAreStrictDescendants(t *testing.T) {
	r2a := models.ResourcesToAttributions{"/a/": {"1"}, "/a/b": {"2"}, "/ab": {"3"}}
	idx := Build(r2a)
	for parent, set := range idx.AttributedChildren {
		pp := idx.Paths[parent]
		for j := range set {
			cp := idx.Paths[j]
			if cp == pp || len(cp) <= len(pp) || cp[:len(pp)] != pp {
				t.Errorf("%q listed as child of %q", cp, pp)
			}
			if len(r2a[cp]) == 0 {
				t.Errorf("%q listed as attributed child without ids", cp)
			}
		}
	}
}

func TestContainsManualAttribution(t *testing.T) {
	idx := &Index{
		Paths:              []string{"path1", "path2"},
		PathsToIndices:     map[string]int{"path1": 1, "path3": 3},
		AttributedChildren: map[int]map[int]struct{}{1: {}},
	}
	cases := []struct {
		path string
		want bool
	}{
		{"path1", true},
		{"path2", true},
		{"path3", false},
		{"path4", false},
	}
	for _, c := range cases {
		if got := ContainsManualAttribution(c.path, idx); got != c.want {
			t.Errorf("ContainsManualAttribution(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestContainsManualAttribution_Built(t *testing.T) {
	idx := Build(models.ResourcesToAttributions{"/src/lib/a.go": {"m1"}})
	for _, p := range []string{"/", "/src/", "/src/lib/", "/src/lib/a.go"} {
		if !ContainsManualAttribution(p, idx) {
			t.Errorf("%q should contain an attribution", p)
		}
	}
	if ContainsManualAttribution("/docs/", idx) {
		t.Error("/docs/ has no attribution")
	}
	if ContainsManualAttribution("/", nil) {
		t.Error("nil index contains nothing")
	}
}

func TestBuild_PathsToIndicesInvertsPaths(t *testing.T) {
	idx := Build(models.ResourcesToAttributions{
		"/src/lib/a.go": {"m1"},
		"/src/b.go":     {"m2"},
		"/docs/":        {"m3"},
	})
	if len(idx.PathsToIndices) != len(idx.Paths) {
		t.Fatalf("len(PathsToIndices) = %d, len(Paths) = %d", len(idx.PathsToIndices), len(idx.Paths))
	}
	for i, p := range idx.Paths {
		if got := idx.PathsToIndices[p]; got != i {
			t.Errorf("PathsToIndices[%q] = %d, want %d", p, got, i)
		}
	}
}

func TestContainsManualAttribution_BuiltSkipsScan(t *testing.T) {
	idx := Build(models.ResourcesToAttributions{"/src/a.go": {"m1"}})
	idx.Paths = append(idx.Paths, "/stray/")
	if ContainsManualAttribution("/stray/", idx) {
		t.Error("built index answered from Paths instead of PathsToIndices")
	}

	decoded := &Index{Paths: []string{"/", "/src/", "/src/a.go"}}
	if !ContainsManualAttribution("/src/a.go", decoded) {
		t.Error("decoded index without PathsToIndices should scan Paths")
	}
}

func TestGetCriticality(t *testing.T) {
	r2a := models.ResourcesToAttributions{
		"/test_file1.ts": {"attr1", "attr2"},
		"/test_file2.ts": {"attr3"},
		"/test_file3.ts": {"attr2", "attr3"},
		"/test_file4.ts": {"missing"},
	}
	attrs := models.Attributions{
		"attr1": {Criticality: models.CriticalityHigh},
		"attr2": {Criticality: models.CriticalityMedium},
		"attr3": {},
	}
	want := map[string]models.Criticality{
		"/test_file1.ts": models.CriticalityHigh,
		"/test_file2.ts": models.CriticalityNone,
		"/test_file3.ts": models.CriticalityMedium,
		"/test_file4.ts": models.CriticalityNone,
		"/other":         models.CriticalityNone,
	}
	for path, w := range want {
		if got := GetCriticality(path, r2a, attrs); got != w {
			t.Errorf("GetCriticality(%q) = %q, want %q", path, got, w)
		}
	}
}

func TestContainedPackages(t *testing.T) {
	r2a := models.ResourcesToAttributions{
		"/root/":     {"e0"},
		"/root/a":    {"e1", "e2"},
		"/root/b/c":  {"e1", "e3"},
		"/root/b/d":  {"e2"},
		"/elsewhere": {"e4"},
	}
	idx := Build(r2a)

	got := ContainedExternalPackages("/root/", idx, r2a, map[string]struct{}{"e3": {}})
	want := []ContainedPackage{
		{AttributionID: "e1", Count: 2},
		{AttributionID: "e2", Count: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("external = %+v, want %+v", got, want)
	}

	manual := ContainedManualPackages("/root/", idx, r2a)
	ids := make([]string, 0, len(manual))
	for _, m := range manual {
		ids = append(ids, m.AttributionID)
	}
	sort.Strings(ids)
	if !reflect.DeepEqual(ids, []string{"e1", "e2", "e3"}) {
		t.Errorf("manual ids = %v", ids)
	}

	if got := ContainedManualPackages("/nothing/", idx, r2a); len(got) != 0 {
		t.Errorf("unknown path = %v", got)
	}
}

func TestCache(t *testing.T) {
	c, err := NewCache(2)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	r2a := models.ResourcesToAttributions{"/a": {"1"}}

	first := c.Get(models.KindManual, 1, r2a)
	if again := c.Get(models.KindManual, 1, models.ResourcesToAttributions{}); again != first {
		t.Error("same generation should hit the cache")
	}
	next := c.Get(models.KindManual, 2, models.ResourcesToAttributions{"/b": {"2"}})
	if next == first {
		t.Error("new generation must rebuild")
	}
	if _, ok := next.PathsToIndices["/a"]; ok {
		t.Error("new generation sees stale paths")
	}
	c.Get(models.KindExternal, 2, r2a)
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len after Purge = %d", c.Len())
	}
}
