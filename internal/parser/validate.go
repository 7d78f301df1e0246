package parser

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/licaudit/internal/models"
)

var errNotAbsolute = errors.New("must start with /")

func resourcePath(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "/") {
		return errNotAbsolute
	}
	return nil
}

func pathKeys(r2a models.ResourcesToAttributions) []string {
	out := make([]string, 0, len(r2a))
	for p := range r2a {
		out = append(out, p)
	}
	return out
}

func validateAttributions(attrs models.Attributions) error {
	errs := validation.Errors{}
	for id, info := range attrs {
		if err := validation.Validate(string(info.Criticality),
			validation.In(string(models.CriticalityMedium), string(models.CriticalityHigh)),
		); err != nil {
			errs[id] = validation.Errors{"criticality": err}
		}
	}
	return errs.Filter()
}

func validateSources(sources models.AttributionSources) error {
	errs := validation.Errors{}
	for id, src := range sources {
		if err := validation.ValidateStruct(&src,
			validation.Field(&src.Name, validation.Required),
			validation.Field(&src.Priority, validation.Min(0)),
		); err != nil {
			errs[id] = err
		}
	}
	return errs.Filter()
}

// Validate checks metadata, path syntax and enumerated values. Ids that
// point at missing attributions are allowed; the engine skips them.
func (in *Input) Validate() error {
	return validation.Errors{
		"metadata": validation.ValidateStruct(&in.Metadata,
			validation.Field(&in.Metadata.ProjectID, validation.Required),
		),
		"resources":                  validation.Validate(in.Resources, validation.NotNil),
		"resourcesToAttributions":    validation.Validate(pathKeys(in.ResourcesToAttributions), validation.Each(validation.By(resourcePath))),
		"attributionBreakpoints":     validation.Validate(in.AttributionBreakpoints, validation.Each(validation.By(resourcePath))),
		"filesWithChildren":          validation.Validate(in.FilesWithChildren, validation.Each(validation.By(resourcePath))),
		"externalAttributions":       validateAttributions(in.ExternalAttributions),
		"externalAttributionSources": validateSources(in.ExternalAttributionSources),
	}.Filter()
}

// Validate checks a review-state file.
func (out *Output) Validate() error {
	return validation.Errors{
		"metadata": validation.ValidateStruct(&out.Metadata,
			validation.Field(&out.Metadata.ProjectID, validation.Required),
		),
		"resourcesToAttributions": validation.Validate(pathKeys(out.ResourcesToAttributions), validation.Each(validation.By(resourcePath))),
		"manualAttributions":      validateAttributions(out.ManualAttributions),
	}.Filter()
}
