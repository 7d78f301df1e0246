package attributions

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/licaudit/internal/models"
)

func sampleData() models.AttributionData {
	return models.NewAttributionData(models.KindManual,
		models.Attributions{
			"a": {PackageName: "react", PreSelected: true},
			"b": {PackageName: "vue"},
		},
		models.ResourcesToAttributions{
			"/src/":     {"a"},
			"/src/x.js": {"a", "b"},
			"/lib/y.js": {"b"},
		},
	)
}

func TestSave_NewAttribution(t *testing.T) {
	before := sampleData()
	after := Save(before, "c", models.PackageInfo{PackageName: "jquery"}, "/lib/", "/src/x.js")

	if _, ok := before.Attributions["c"]; ok {
		t.Fatal("input was modified")
	}
	if got := after.AttributionsToResources["c"]; !reflect.DeepEqual(got, []string{"/lib/", "/src/x.js"}) {
		t.Errorf("resources of c = %v", got)
	}
	if got := after.ResourcesToAttributions["/src/x.js"]; !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("ids on /src/x.js = %v", got)
	}
	if len(before.ResourcesToAttributions["/src/x.js"]) != 2 {
		t.Error("input slice was modified")
	}
}

func TestSave_UpdateKeepsResources(t *testing.T) {
	after := Save(sampleData(), "a", models.PackageInfo{PackageName: "preact"}, "/src/")
	if after.Attributions["a"].PackageName != "preact" {
		t.Errorf("name = %q", after.Attributions["a"].PackageName)
	}
	if got := after.AttributionsToResources["a"]; !reflect.DeepEqual(got, []string{"/src/", "/src/x.js"}) {
		t.Errorf("resources = %v", got)
	}
}

func TestDelete(t *testing.T) {
	after, err := Delete(sampleData(), "b")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := after.Attributions["b"]; ok {
		t.Error("b still present")
	}
	if _, ok := after.ResourcesToAttributions["/lib/y.js"]; ok {
		t.Error("empty resource entry kept")
	}
	if got := after.ResourcesToAttributions["/src/x.js"]; !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("ids on /src/x.js = %v", got)
	}
	if _, ok := after.AttributionsToResources["b"]; ok {
		t.Error("inverse index still lists b")
	}

	if _, err := Delete(sampleData(), "zzz"); !errors.Is(err, ErrUnknownAttribution) {
		t.Errorf("err = %v, want ErrUnknownAttribution", err)
	}
}

func TestLinkUnlink(t *testing.T) {
	linked, err := Link(sampleData(), "b", "/src/")
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if got := linked.ResourcesToAttributions["/src/"]; !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("ids on /src/ = %v", got)
	}

	unlinked, err := Unlink(linked, "b", "/src/", "/lib/y.js", "/src/x.js")
	if err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, ok := unlinked.Attributions["b"]; !ok {
		t.Error("record removed by Unlink")
	}
	if got := unlinked.AttributionsToResources["b"]; len(got) != 0 {
		t.Errorf("b still on %v", got)
	}

	if _, err := Link(sampleData(), "nope", "/x"); !errors.Is(err, ErrUnknownAttribution) {
		t.Errorf("Link err = %v", err)
	}
	if _, err := Unlink(sampleData(), "nope", "/x"); !errors.Is(err, ErrUnknownAttribution) {
		t.Errorf("Unlink err = %v", err)
	}
}

func TestReplace(t *testing.T) {
	after, err := Replace(sampleData(), "a", "b")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if _, ok := after.Attributions["a"]; ok {
		t.Error("a still present")
	}
	want := map[string][]string{
		"/src/":     {"b"},
		"/src/x.js": {"b"},
		"/lib/y.js": {"b"},
	}
	for p, ids := range want {
		if got := after.ResourcesToAttributions[p]; !reflect.DeepEqual(got, ids) {
			t.Errorf("ids on %s = %v, want %v", p, got, ids)
		}
	}

	same, err := Replace(sampleData(), "a", "a")
	if err != nil || len(same.Attributions) != 2 {
		t.Errorf("self replace = %v, %v", same.Attributions, err)
	}
	if _, err := Replace(sampleData(), "a", "missing"); !errors.Is(err, ErrUnknownAttribution) {
		t.Errorf("err = %v", err)
	}
}

func TestConfirm(t *testing.T) {
	before := sampleData()
	after, err := Confirm(before, "a")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if after.Attributions["a"].PreSelected {
		t.Error("a still pre-selected")
	}
	if !before.Attributions["a"].PreSelected {
		t.Error("input was modified")
	}
	if _, err := Confirm(before, "a", "x"); !errors.Is(err, ErrUnknownAttribution) {
		t.Errorf("err = %v", err)
	}
}

func TestUniqueLicenseNameToAttributions(t *testing.T) {
	attrs := models.Attributions{
		"1": {LicenseName: "Apache-2.0"},
		"2": {LicenseName: "apache 2.0"},
		"3": {LicenseName: "MIT"},
		"4": {},
		"5": {LicenseName: "APACHE\t2.0"},
	}
	got := UniqueLicenseNameToAttributions(attrs)
	want := map[string][]string{
		"apache2.0": {"1", "2", "5"},
		"mit":       {"3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
