// Package models defines the domain types for licaudit.
package models

// Criticality classifies how severe a license finding is.
// The zero value means no criticality.
type Criticality string

const (
	CriticalityNone   Criticality = ""
	CriticalityMedium Criticality = "medium"
	CriticalityHigh   Criticality = "high"
)

// Severity orders criticalities: none < medium < high.
func (c Criticality) Severity() int {
	switch c {
	case CriticalityHigh:
		return 2
	case CriticalityMedium:
		return 1
	default:
		return 0
	}
}

// Source identifies the scanner that produced an external attribution.
type Source struct {
	Name               string `json:"name" yaml:"name"`
	DocumentConfidence int    `json:"documentConfidence,omitempty" yaml:"documentConfidence,omitempty"`
}

// PackageInfo is the attribution record attached to one or more resources.
type PackageInfo struct {
	PackageName           string      `json:"packageName,omitempty" yaml:"packageName,omitempty"`
	PackageNamespace      string      `json:"packageNamespace,omitempty" yaml:"packageNamespace,omitempty"`
	PackageVersion        string      `json:"packageVersion,omitempty" yaml:"packageVersion,omitempty"`
	PackageType           string      `json:"packageType,omitempty" yaml:"packageType,omitempty"`
	URL                   string      `json:"url,omitempty" yaml:"url,omitempty"`
	Copyright             string      `json:"copyright,omitempty" yaml:"copyright,omitempty"`
	LicenseName           string      `json:"licenseName,omitempty" yaml:"licenseName,omitempty"`
	LicenseText           string      `json:"licenseText,omitempty" yaml:"licenseText,omitempty"`
	AttributionConfidence int         `json:"attributionConfidence,omitempty" yaml:"attributionConfidence,omitempty"`
	Comment               string      `json:"comment,omitempty" yaml:"comment,omitempty"`
	Source                *Source     `json:"source,omitempty" yaml:"source,omitempty"`
	FirstParty            bool        `json:"firstParty,omitempty" yaml:"firstParty,omitempty"`
	FollowUp              Flag        `json:"followUp,omitempty" yaml:"followUp,omitempty"`
	PreSelected           bool        `json:"preSelected,omitempty" yaml:"preSelected,omitempty"`
	ExcludeFromNotice     bool        `json:"excludeFromNotice,omitempty" yaml:"excludeFromNotice,omitempty"`
	NeedsReview           bool        `json:"needsReview,omitempty" yaml:"needsReview,omitempty"`
	Preferred             bool        `json:"preferred,omitempty" yaml:"preferred,omitempty"`
	WasPreferred          bool        `json:"wasPreferred,omitempty" yaml:"wasPreferred,omitempty"`
	Criticality           Criticality `json:"criticality,omitempty" yaml:"criticality,omitempty"`
}

// SourceName returns the raw source id, or "" when the attribution has no source.
func (p PackageInfo) SourceName() string {
	if p.Source == nil {
		return ""
	}
	return p.Source.Name
}

// Attributions maps attribution ids to their records.
type Attributions map[string]PackageInfo

// AttributionsToResources maps an attribution id to the resource paths it is attached to.
type AttributionsToResources map[string][]string

// ResourcesToAttributions maps a resource path to the attribution ids attached directly at it.
type ResourcesToAttributions map[string][]string

// AttributionWithResources is an attribution joined with its resource list.
type AttributionWithResources struct {
	PackageInfo
	Resources []string `json:"resources"`
}

// AttributionsWithResources maps attribution ids to joined records.
type AttributionsWithResources map[string]AttributionWithResources

// AttributionSource describes a scanner known to the project.
type AttributionSource struct {
	Name                   string `json:"name" yaml:"name"`
	Priority               int    `json:"priority" yaml:"priority"`
	IsRelevantForPreferred bool   `json:"isRelevantForPreferred,omitempty" yaml:"isRelevantForPreferred,omitempty"`
}

// AttributionSources maps raw source ids to their metadata.
type AttributionSources map[string]AttributionSource

// DisplayName resolves a raw source id to its prettified name, falling back
// to the id itself.
func (s AttributionSources) DisplayName(id string) string {
	if src, ok := s[id]; ok {
		return src.Name
	}
	return id
}

// Priority returns the priority of a source id, 0 when unknown.
func (s AttributionSources) Priority(id string) int {
	if src, ok := s[id]; ok {
		return src.Priority
	}
	return 0
}
