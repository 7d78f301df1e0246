package models

import (
	"sort"

	"github.com/starford/licaudit/internal/resources"
)

// Kind tags an attribution collection as user-authored or signal-detected.
type Kind string

const (
	KindManual   Kind = "manual"
	KindExternal Kind = "external"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindManual || k == KindExternal
}

// AttributionData is one attribution collection together with both
// directions of its resource index. Manual and external collections share
// the shape but never the ids.
type AttributionData struct {
	Kind                    Kind                    `json:"kind"`
	Attributions            Attributions            `json:"attributions"`
	ResourcesToAttributions ResourcesToAttributions `json:"resourcesToAttributions"`
	AttributionsToResources AttributionsToResources `json:"attributionsToResources"`
}

// NewAttributionData builds AttributionData from attributions and the
// resource→ids direction, deriving the inverse direction.
func NewAttributionData(kind Kind, attrs Attributions, r2a ResourcesToAttributions) AttributionData {
	if attrs == nil {
		attrs = Attributions{}
	}
	if r2a == nil {
		r2a = ResourcesToAttributions{}
	}
	return AttributionData{
		Kind:                    kind,
		Attributions:            attrs,
		ResourcesToAttributions: r2a,
		AttributionsToResources: InvertResources(r2a),
	}
}

// InvertResources derives the attribution→resources direction. Paths per
// attribution are sorted so the result is independent of map order.
func InvertResources(r2a ResourcesToAttributions) AttributionsToResources {
	out := make(AttributionsToResources)
	for path, ids := range r2a {
		for _, id := range ids {
			out[id] = append(out[id], path)
		}
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out
}

// Snapshot is the full input state of one loaded project.
type Snapshot struct {
	ProjectID                    string              `json:"projectId"`
	Resources                    *resources.Folder   `json:"-"`
	Manual                       AttributionData     `json:"manual"`
	External                     AttributionData     `json:"external"`
	Sources                      AttributionSources  `json:"sources"`
	Breakpoints                  map[string]struct{} `json:"-"`
	FilesWithChildren            map[string]struct{} `json:"-"`
	ResolvedExternalAttributions map[string]struct{} `json:"-"`
}

// IsBreakpoint reports whether path halts attribution inheritance.
func (s *Snapshot) IsBreakpoint(path string) bool {
	_, ok := s.Breakpoints[path]
	return ok
}

// IsFileWithChildren reports whether path is a file that also has children.
func (s *Snapshot) IsFileWithChildren(path string) bool {
	_, ok := s.FilesWithChildren[path]
	return ok
}

// IsResolved reports whether an external attribution was marked resolved.
func (s *Snapshot) IsResolved(id string) bool {
	_, ok := s.ResolvedExternalAttributions[id]
	return ok
}

// Data returns the collection of the given kind.
func (s *Snapshot) Data(kind Kind) AttributionData {
	if kind == KindExternal {
		return s.External
	}
	return s.Manual
}
