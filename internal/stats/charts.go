package stats

import (
	"sort"

	"github.com/starford/licaudit/internal/models"
)

// Chart entry names.
const (
	OtherLicenses = "Other"

	HighCriticality   = "Highly critical signals"
	MediumCriticality = "Medium critical signals"
	NoCriticality     = "Non-critical signals"

	CompleteAttributions   = "Complete attributions"
	IncompleteAttributions = "Incomplete attributions"
)

const topLicenses = 5

// MostFrequentLicenses lists licenses by total count, descending, ties by
// name. Beyond five licenses the rest is folded into OtherLicenses.
func MostFrequentLicenses(counts CountPerSourcePerLicense) []models.PieChartData {
	out := make([]models.PieChartData, 0, len(counts))
	for license, row := range counts {
		if license == LicenseTotal {
			continue
		}
		out = append(out, models.PieChartData{Name: license, Count: row[SourceTotal]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) <= topLicenses {
		return out
	}

	top := out[:topLicenses]
	sum := 0
	for _, d := range top {
		sum += d.Count
	}
	other := counts[LicenseTotal][SourceTotal] - sum
	return append(top, models.PieChartData{Name: OtherLicenses, Count: other})
}

// CriticalSignalsCount sums license totals into high, medium and
// non-critical buckets. Empty buckets are left out.
func CriticalSignalsCount(counts CountPerSourcePerLicense, crit LicenseNamesWithCriticality) []models.PieChartData {
	var high, medium, none int
	for license, row := range counts {
		if license == LicenseTotal {
			continue
		}
		switch crit[license] {
		case models.CriticalityHigh:
			high += row[SourceTotal]
		case models.CriticalityMedium:
			medium += row[SourceTotal]
		default:
			none += row[SourceTotal]
		}
	}
	return nonZero(
		models.PieChartData{Name: HighCriticality, Count: high},
		models.PieChartData{Name: MediumCriticality, Count: medium},
		models.PieChartData{Name: NoCriticality, Count: none},
	)
}

// IncompleteAttributionsCount splits attrs into complete and incomplete
// according to incomplete, which defaults to IsIncomplete. Empty entries are
// left out.
func IncompleteAttributionsCount(attrs models.Attributions, incomplete func(models.PackageInfo) bool) []models.PieChartData {
	if incomplete == nil {
		incomplete = IsIncomplete
	}
	n := 0
	for _, info := range attrs {
		if incomplete(info) {
			n++
		}
	}
	return nonZero(
		models.PieChartData{Name: CompleteAttributions, Count: len(attrs) - n},
		models.PieChartData{Name: IncompleteAttributions, Count: n},
	)
}

func nonZero(entries ...models.PieChartData) []models.PieChartData {
	out := make([]models.PieChartData, 0, len(entries))
	for _, e := range entries {
		if e.Count != 0 {
			out = append(out, e)
		}
	}
	return out
}
