package stats

import (
	"github.com/starford/licaudit/internal/attributions"
	"github.com/starford/licaudit/internal/models"
)

// Attribution property count keys, in display order.
const (
	PropertyFollowUp   = "followUp"
	PropertyFirstParty = "firstParty"
	PropertyIncomplete = "incomplete"
	AttributionTotal   = "Total Attributions"
)

// PropertyOrder lists the keys of AttributionPropertyCounts in display order.
var PropertyOrder = []string{PropertyFollowUp, PropertyFirstParty, PropertyIncomplete, AttributionTotal}

// IsIncomplete reports whether information important for the notice is
// missing. First-party and excluded attributions are never incomplete.
func IsIncomplete(info models.PackageInfo) bool {
	if info.FirstParty || info.ExcludeFromNotice {
		return false
	}
	for _, v := range []string{
		info.Copyright,
		info.LicenseName,
		info.PackageName,
		info.PackageType,
		info.PackageVersion,
		info.URL,
	} {
		if v == "" {
			return true
		}
	}
	return false
}

// AttributionPropertyCounts counts follow-up, first-party and incomplete
// attributions, plus the total.
func AttributionPropertyCounts(attrs models.Attributions) map[string]int {
	out := map[string]int{
		PropertyFollowUp:   0,
		PropertyFirstParty: 0,
		PropertyIncomplete: 0,
		AttributionTotal:   len(attrs),
	}
	for _, info := range attrs {
		if info.FollowUp {
			out[PropertyFollowUp]++
		}
		if info.FirstParty {
			out[PropertyFirstParty]++
		}
		if IsIncomplete(info) {
			out[PropertyIncomplete]++
		}
	}
	return out
}

// Summary bundles every statistic shown for one attribution collection.
type Summary struct {
	Aggregate
	MostFrequentLicenses []models.PieChartData `json:"mostFrequentLicenses"`
	CriticalSignals      []models.PieChartData `json:"criticalSignals"`
	Completeness         []models.PieChartData `json:"completeness"`
	PropertyCounts       map[string]int        `json:"propertyCounts"`
}

// Summarize computes the full statistics of attrs.
func Summarize(attrs models.Attributions, sources models.AttributionSources) Summary {
	agg := AggregateLicensesAndSources(attrs, attributions.UniqueLicenseNameToAttributions(attrs), sources)
	return Summary{
		Aggregate:            agg,
		MostFrequentLicenses: MostFrequentLicenses(agg.AttributionCountPerSourcePerLicense),
		CriticalSignals:      CriticalSignalsCount(agg.AttributionCountPerSourcePerLicense, agg.LicenseNamesWithCriticality),
		Completeness:         IncompleteAttributionsCount(attrs, nil),
		PropertyCounts:       AttributionPropertyCounts(attrs),
	}
}
