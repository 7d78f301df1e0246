// Package parser loads project input files and review-state files (JSON or
// YAML) into engine snapshots, and encodes review state back to disk.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/licaudit/internal/apperr"
	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/resources"
)

// Format is the encoding of a project file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf derives the encoding from a file name's extension.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("parser: %w: unsupported file type %q", apperr.ErrInvalidInput, name)
}

// Metadata identifies the scanned project.
type Metadata struct {
	ProjectID        string `json:"projectId" yaml:"projectId"`
	FileCreationDate string `json:"fileCreationDate,omitempty" yaml:"fileCreationDate,omitempty"`
}

// Input is the on-disk shape of a scan result.
type Input struct {
	Metadata                   Metadata                       `json:"metadata" yaml:"metadata"`
	Resources                  *resources.Folder              `json:"resources" yaml:"resources"`
	ExternalAttributions       models.Attributions            `json:"externalAttributions" yaml:"externalAttributions"`
	ResourcesToAttributions    models.ResourcesToAttributions `json:"resourcesToAttributions" yaml:"resourcesToAttributions"`
	ExternalAttributionSources models.AttributionSources      `json:"externalAttributionSources,omitempty" yaml:"externalAttributionSources,omitempty"`
	AttributionBreakpoints     []string                       `json:"attributionBreakpoints,omitempty" yaml:"attributionBreakpoints,omitempty"`
	FilesWithChildren          []string                       `json:"filesWithChildren,omitempty" yaml:"filesWithChildren,omitempty"`
}

// Output is the on-disk shape of the review state: manual attributions and
// the resolved external ids.
type Output struct {
	Metadata                     Metadata                       `json:"metadata" yaml:"metadata"`
	ManualAttributions           models.Attributions            `json:"manualAttributions" yaml:"manualAttributions"`
	ResourcesToAttributions      models.ResourcesToAttributions `json:"resourcesToAttributions" yaml:"resourcesToAttributions"`
	ResolvedExternalAttributions []string                       `json:"resolvedExternalAttributions" yaml:"resolvedExternalAttributions"`
}

func decode(name string, data []byte, target any) error {
	format, err := FormatOf(name)
	if err != nil {
		return err
	}
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, target)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(target)
	}
	if err != nil {
		return fmt.Errorf("parser: decode %s: %w: %w", name, apperr.ErrInvalidInput, err)
	}
	return nil
}

// ParseInput decodes and validates an input file into a snapshot with an
// empty manual collection.
func ParseInput(name string, data []byte) (*models.Snapshot, error) {
	var in Input
	if err := decode(name, data, &in); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("parser: validate %s: %w: %w", name, apperr.ErrInvalidInput, err)
	}
	return in.Snapshot(), nil
}

// Snapshot converts a validated input into engine shapes.
func (in *Input) Snapshot() *models.Snapshot {
	root := in.Resources
	if root == nil {
		root = resources.NewFolder()
	}
	return &models.Snapshot{
		ProjectID:                    in.Metadata.ProjectID,
		Resources:                    root,
		Manual:                       models.NewAttributionData(models.KindManual, nil, nil),
		External:                     models.NewAttributionData(models.KindExternal, in.ExternalAttributions, in.ResourcesToAttributions),
		Sources:                      in.ExternalAttributionSources,
		Breakpoints:                  toSet(in.AttributionBreakpoints),
		FilesWithChildren:            toSet(in.FilesWithChildren),
		ResolvedExternalAttributions: map[string]struct{}{},
	}
}

// ParseOutput decodes and validates a review-state file.
func ParseOutput(name string, data []byte) (*Output, error) {
	var out Output
	if err := decode(name, data, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("parser: validate %s: %w: %w", name, apperr.ErrInvalidInput, err)
	}
	return &out, nil
}

// Apply replaces the manual collection and resolved ids of snap with out.
func (out *Output) Apply(snap *models.Snapshot) {
	snap.Manual = models.NewAttributionData(models.KindManual, out.ManualAttributions, out.ResourcesToAttributions)
	snap.ResolvedExternalAttributions = toSet(out.ResolvedExternalAttributions)
}

// NewOutput captures the review state of snap.
func NewOutput(snap *models.Snapshot, created string) Output {
	return Output{
		Metadata:                     Metadata{ProjectID: snap.ProjectID, FileCreationDate: created},
		ManualAttributions:           snap.Manual.Attributions,
		ResourcesToAttributions:      snap.Manual.ResourcesToAttributions,
		ResolvedExternalAttributions: SortedKeys(snap.ResolvedExternalAttributions),
	}
}

// Encode serialises v in the given format.
func Encode(format Format, v any) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("parser: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("parser: encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("parser: encode json: %w", err)
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("parser: %w: unknown format %q", apperr.ErrInvalidInput, format)
}

// OutputName derives the review-state file name for an input file:
// "scan.json" becomes "scan_attributions.json".
func OutputName(inputName string) string {
	ext := filepath.Ext(inputName)
	return strings.TrimSuffix(inputName, ext) + "_attributions" + ext
}

// SortedKeys returns the members of set in ascending order.
func SortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}
