package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/licaudit/internal/index"
	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/workspace"
)

var resourcePath = validation.NewStringRuleWithError(
	func(s string) bool { return strings.HasPrefix(s, "/") },
	validation.NewError("validation_resource_path", "must start with /"),
)

// CreateAttributionRequest is the request body for creating a manual attribution.
type CreateAttributionRequest struct {
	Attribution models.PackageInfo `json:"attribution" validate:"required"`
	Resources   []string           `json:"resources" example:"/src/app.js" validate:"required"`
}

// Validate checks the resource paths.
func (r CreateAttributionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Resources, validation.Required, validation.Each(validation.Required, resourcePath)),
	)
}

// UpdateAttributionRequest is the request body for replacing an attribution record.
type UpdateAttributionRequest struct {
	Attribution models.PackageInfo `json:"attribution" validate:"required"`
}

// ResourcesRequest lists resource paths to link or unlink.
type ResourcesRequest struct {
	Resources []string `json:"resources" example:"/src/" validate:"required"`
}

// Validate checks the resource paths.
func (r ResourcesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Resources, validation.Required, validation.Each(validation.Required, resourcePath)),
	)
}

// IDsRequest lists attribution ids to confirm, resolve or unresolve.
type IDsRequest struct {
	IDs []string `json:"ids" example:"e1" validate:"required"`
}

// Validate requires at least one non-empty id.
func (r IDsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required, validation.Each(validation.Required)),
	)
}

// ReplaceRequest names the attribution that absorbs the one in the URL.
type ReplaceRequest struct {
	Target string `json:"target" example:"m2" validate:"required"`
}

// Validate requires the target.
func (r ReplaceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Target, validation.Required),
	)
}

// CreateAttributionResponse is returned after a manual attribution was created.
type CreateAttributionResponse struct {
	ID string `json:"id" example:"0b6f3c52-..." validate:"required"`
}

// AttributionsResponse wraps attributions joined with their resources.
type AttributionsResponse struct {
	Kind         models.Kind                      `json:"kind" example:"manual" validate:"required"`
	Attributions models.AttributionsWithResources `json:"attributions" validate:"required"`
}

// CriticalityResponse is the criticality of one resource.
type CriticalityResponse struct {
	Path        string             `json:"path" example:"/src/app.js" validate:"required"`
	Criticality models.Criticality `json:"criticality" example:"high"`
}

// ContainsManualResponse reports whether a resource subtree has manual attributions.
type ContainsManualResponse struct {
	Path                      string `json:"path" example:"/src/" validate:"required"`
	ContainsManualAttribution bool   `json:"containsManualAttribution"`
}

// SignalsResponse wraps autocomplete signals for one resource.
type SignalsResponse struct {
	Resource string                      `json:"resource" example:"/src/" validate:"required"`
	Signals  []models.AutocompleteSignal `json:"signals" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ExportListResponse lists written export files.
type ExportListResponse struct {
	Exports []models.FileMetadata `json:"exports" validate:"required"`
}

// StatusResponse is the loaded snapshot summary.
type StatusResponse = workspace.Status

// ResourceResponse is the per-resource view.
type ResourceResponse = workspace.ResourceInfo
