package signals

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/treeindex"
)

func input(external, manual models.AttributionData, resource string, sources models.AttributionSources) Input {
	return Input{
		External:      external,
		ExternalIndex: treeindex.Build(external.ResourcesToAttributions),
		Manual:        manual,
		ManualIndex:   treeindex.Build(manual.ResourcesToAttributions),
		ResourceID:    resource,
		Sources:       sources,
	}
}

func pkg(name, license, source string) models.PackageInfo {
	info := models.PackageInfo{PackageType: "npm", PackageName: name, PackageVersion: "1.0.0", LicenseName: license}
	if source != "" {
		info.Source = &models.Source{Name: source}
	}
	return info
}

func TestPurl(t *testing.T) {
	cases := []struct {
		info models.PackageInfo
		want string
	}{
		{models.PackageInfo{PackageType: "npm", PackageName: "react", PackageVersion: "18.2.0"}, "pkg:npm/react@18.2.0"},
		{models.PackageInfo{PackageType: "maven", PackageNamespace: "org.apache", PackageName: "commons"}, "pkg:maven/org.apache/commons"},
		{models.PackageInfo{PackageName: "react"}, ""},
		{models.PackageInfo{PackageType: "npm"}, ""},
	}
	for _, c := range cases {
		if got := Purl(c.info); got != c.want {
			t.Errorf("Purl(%+v) = %q, want %q", c.info, got, c.want)
		}
	}
}

func TestCompute_DedupAndOrder(t *testing.T) {
	sources := models.AttributionSources{
		"sc":  {Name: "ScanCode", Priority: 1},
		"hhc": {Name: "High Compute", Priority: 5},
	}
	onResource := pkg("react", "MIT", "sc")
	onResource.Comment = "first"
	dup := pkg("react", "MIT", "sc")
	dup.Comment = "ignored"
	dup.WasPreferred = true
	highPrio := pkg("vue", "MIT", "hhc")
	noPurl := models.PackageInfo{PackageName: "nopurl", LicenseName: "MIT"}
	preferred := pkg("angular", "MIT", "sc")
	preferred.Preferred = true
	resolved := pkg("lodash", "MIT", "sc")

	external := models.NewAttributionData(models.KindExternal,
		models.Attributions{
			"e1": onResource, "e2": dup, "e3": highPrio, "e4": noPurl, "e5": preferred, "e6": resolved,
		},
		models.ResourcesToAttributions{
			"/root/":  {"e1"},
			"/root/a": {"e2", "e4"},
			"/root/b": {"e3", "e5"},
			"/root/c": {"e6"},
		},
	)
	manual := models.NewAttributionData(models.KindManual,
		models.Attributions{"m1": pkg("svelte", "MIT", "")},
		models.ResourcesToAttributions{"/root/d": {"m1"}},
	)
	in := input(external, manual, "/root/", sources)
	in.Resolved = map[string]struct{}{"e6": {}}

	got := Compute(in)
	var names []string
	for _, s := range got {
		names = append(names, s.PackageName)
	}
	if !reflect.DeepEqual(names, []string{"vue", "react", "svelte"}) {
		t.Fatalf("order = %v", names)
	}
	react := got[1]
	if react.Count != 2 {
		t.Errorf("react count = %d, want 2", react.Count)
	}
	if !react.WasPreferred {
		t.Error("wasPreferred should be OR-combined")
	}
	if !reflect.DeepEqual(react.Comments, []string{"first"}) {
		t.Errorf("comments = %v", react.Comments)
	}
	if react.Comment != "" {
		t.Errorf("comment = %q, want empty", react.Comment)
	}
	if got[0].Comments != nil {
		t.Errorf("vue comments = %v, want nil", got[0].Comments)
	}
}

func TestCompute_UnknownSourceDoesNotSplitKey(t *testing.T) {
	a := pkg("react", "MIT", "unknown-a")
	b := pkg("react", "MIT", "unknown-b")
	external := models.NewAttributionData(models.KindExternal,
		models.Attributions{"a": a, "b": b},
		models.ResourcesToAttributions{"/f": {"a", "b"}},
	)
	got := Compute(input(external, models.NewAttributionData(models.KindManual, nil, nil), "/f", nil))
	if len(got) != 1 || got[0].Count != 2 {
		t.Fatalf("got %+v, want one signal with count 2", got)
	}
}

func TestCompute_StableTies(t *testing.T) {
	external := models.NewAttributionData(models.KindExternal,
		models.Attributions{"1": pkg("a", "MIT", ""), "2": pkg("b", "MIT", ""), "3": pkg("c", "MIT", "")},
		models.ResourcesToAttributions{"/f": {"3", "1", "2"}},
	)
	got := Compute(input(external, models.NewAttributionData(models.KindManual, nil, nil), "/f", nil))
	var names []string
	for _, s := range got {
		names = append(names, s.PackageName)
	}
	if !reflect.DeepEqual(names, []string{"c", "a", "b"}) {
		t.Errorf("order = %v, want collection order on ties", names)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	external := models.NewAttributionData(models.KindExternal,
		models.Attributions{
			"1": pkg("a", "MIT", "s"), "2": pkg("b", "GPL", "s"), "3": pkg("a", "MIT", "s"), "4": pkg("c", "BSD", "t"),
		},
		models.ResourcesToAttributions{"/x/1": {"1", "2"}, "/x/2": {"3"}, "/x/3/4": {"4"}},
	)
	manual := models.NewAttributionData(models.KindManual, nil, nil)
	sources := models.AttributionSources{"s": {Name: "S", Priority: 2}, "t": {Name: "T", Priority: 2}}
	first := Compute(input(external, manual, "/x/", sources))
	for i := 0; i < 10; i++ {
		if got := Compute(input(external, manual, "/x/", sources)); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestWorker(t *testing.T) {
	external := models.NewAttributionData(models.KindExternal,
		models.Attributions{"1": pkg("a", "MIT", "")},
		models.ResourcesToAttributions{"/f": {"1"}},
	)
	in := input(external, models.NewAttributionData(models.KindManual, nil, nil), "/f", nil)
	w := NewWorker()

	got, err := w.Compute(context.Background(), in)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(got) != 1 || got[0].PackageName != "a" {
		t.Errorf("got %+v", got)
	}
	if w.Latest() != "/f" {
		t.Errorf("Latest = %q", w.Latest())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	other := in
	other.ResourceID = "/g"
	if _, err := w.Compute(ctx, other); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled or nil", err)
	}
}
