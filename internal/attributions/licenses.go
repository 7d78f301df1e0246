package attributions

import (
	"sort"
	"strings"
	"unicode"

	"github.com/starford/licaudit/internal/models"
)

// LicenseKey normalises a license name for grouping: whitespace and hyphens
// are removed and the rest is lower-cased, so "Apache-2.0" and "apache 2.0"
// share a key.
func LicenseKey(name string) string {
	stripped := strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
	return strings.ToLower(stripped)
}

// UniqueLicenseNameToAttributions groups attribution ids by normalised
// license name. Attributions without a license name are left out. Ids within
// a group are sorted.
func UniqueLicenseNameToAttributions(attrs models.Attributions) map[string][]string {
	ids := make([]string, 0, len(attrs))
	for id := range attrs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string][]string)
	for _, id := range ids {
		name := attrs[id].LicenseName
		if name == "" {
			continue
		}
		key := LicenseKey(name)
		out[key] = append(out[key], id)
	}
	return out
}
