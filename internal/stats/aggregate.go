// Package stats aggregates license, source and criticality counts over a set
// of attributions for reporting.
package stats

import (
	"github.com/starford/licaudit/internal/models"
)

const (
	// SourceTotal is the per-license column holding the sum over sources.
	SourceTotal = "Total"
	// LicenseTotal is the synthetic row summing every license row.
	LicenseTotal = "Total"

	unknownSource = "-"
)

// CountPerSourcePerLicense maps a license display name to counts per source
// display name. Every row carries a SourceTotal column.
type CountPerSourcePerLicense map[string]map[string]int

// LicenseNamesWithCriticality maps a license display name to the criticality
// of its group. CriticalityNone stands for "no criticality".
type LicenseNamesWithCriticality map[string]models.Criticality

// Aggregate is the result of AggregateLicensesAndSources.
type Aggregate struct {
	AttributionCountPerSourcePerLicense CountPerSourcePerLicense    `json:"attributionCountPerSourcePerLicense"`
	LicenseNamesWithCriticality         LicenseNamesWithCriticality `json:"licenseNamesWithCriticality"`
}

// AggregateLicensesAndSources counts attributions per license group and
// source. groups maps a normalised license key to attribution ids, as built
// by attributions.UniqueLicenseNameToAttributions. A group is shown under
// its most frequent literal license name; ties go to the lexicographically
// smallest name. Groups without any usable attribution are skipped.
func AggregateLicensesAndSources(attrs models.Attributions, groups map[string][]string, sources models.AttributionSources) Aggregate {
	counts := make(CountPerSourcePerLicense)
	crit := make(LicenseNamesWithCriticality)

	for _, ids := range groups {
		g, ok := licenseGroup(ids, attrs, sources)
		if !ok {
			continue
		}
		crit[g.name] = g.criticality
		counts[g.name] = g.perSource
	}

	total := make(map[string]int)
	for _, row := range counts {
		for source, n := range row {
			total[source] += n
		}
	}
	if len(crit) == 0 {
		total[SourceTotal] = 0
	}
	counts[LicenseTotal] = total

	return Aggregate{AttributionCountPerSourcePerLicense: counts, LicenseNamesWithCriticality: crit}
}

type group struct {
	name        string
	criticality models.Criticality
	perSource   map[string]int
}

func licenseGroup(ids []string, attrs models.Attributions, sources models.AttributionSources) (group, bool) {
	variants := make(map[string]int)
	perSource := make(map[string]int)
	var high, medium, none int

	for _, id := range ids {
		info, ok := attrs[id]
		if !ok || info.LicenseName == "" {
			continue
		}
		variants[info.LicenseName]++
		switch info.Criticality {
		case models.CriticalityHigh:
			high++
		case models.CriticalityMedium:
			medium++
		default:
			none++
		}
		perSource[sourceDisplayName(info, sources)]++
	}
	if len(variants) == 0 {
		return group{}, false
	}

	sum := 0
	for _, n := range perSource {
		sum += n
	}
	perSource[SourceTotal] = sum

	return group{
		name:        mostFrequent(variants),
		criticality: LicenseCriticality(high, medium, none),
		perSource:   perSource,
	}, true
}

func sourceDisplayName(info models.PackageInfo, sources models.AttributionSources) string {
	id := unknownSource
	if info.Source != nil {
		id = info.Source.Name
	}
	if src, ok := sources[id]; ok && id != unknownSource {
		return src.Name
	}
	return id
}

// mostFrequent picks the highest count, breaking ties by the smallest name.
// variants must not be empty.
func mostFrequent(variants map[string]int) string {
	var best string
	bestCount := -1
	for name, n := range variants {
		if n > bestCount || (n == bestCount && name < best) {
			best, bestCount = name, n
		}
	}
	return best
}

// LicenseCriticality classifies a license group from its criticality counts.
// The group is critical when critical attributions outnumber the rest; it is
// high when any of them is high.
func LicenseCriticality(high, medium, none int) models.Criticality {
	if medium+high <= none {
		return models.CriticalityNone
	}
	if high > 0 {
		return models.CriticalityHigh
	}
	return models.CriticalityMedium
}
