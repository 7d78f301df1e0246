package attributions

import (
	"errors"
	"fmt"
	"slices"

	"github.com/starford/licaudit/internal/models"
)

// ErrUnknownAttribution is returned by mutations that reference an id absent
// from the collection.
var ErrUnknownAttribution = errors.New("attributions: unknown attribution")

// Mutations below never modify their input. Each returns a new
// AttributionData whose two resource directions agree.

// Save inserts or replaces the record under id and attaches it to paths in
// addition to any resources it already has.
func Save(data models.AttributionData, id string, info models.PackageInfo, paths ...string) models.AttributionData {
	attrs := cloneAttributions(data.Attributions)
	attrs[id] = info
	r2a := cloneResources(data.ResourcesToAttributions)
	for _, p := range paths {
		r2a[p] = appendUnique(r2a[p], id)
	}
	return models.NewAttributionData(data.Kind, attrs, r2a)
}

// Delete removes the attribution and every attachment of it. Resources left
// without attributions disappear from the index.
func Delete(data models.AttributionData, id string) (models.AttributionData, error) {
	if _, ok := data.Attributions[id]; !ok {
		return data, fmt.Errorf("%w: %s", ErrUnknownAttribution, id)
	}
	attrs := cloneAttributions(data.Attributions)
	delete(attrs, id)
	r2a := cloneResources(data.ResourcesToAttributions)
	for _, p := range data.AttributionsToResources[id] {
		removeID(r2a, p, id)
	}
	return models.NewAttributionData(data.Kind, attrs, r2a), nil
}

// Link attaches an existing attribution to additional resources.
func Link(data models.AttributionData, id string, paths ...string) (models.AttributionData, error) {
	info, ok := data.Attributions[id]
	if !ok {
		return data, fmt.Errorf("%w: %s", ErrUnknownAttribution, id)
	}
	return Save(data, id, info, paths...), nil
}

// Unlink detaches an attribution from the given resources. The record itself
// is kept even when no resource is left.
func Unlink(data models.AttributionData, id string, paths ...string) (models.AttributionData, error) {
	if _, ok := data.Attributions[id]; !ok {
		return data, fmt.Errorf("%w: %s", ErrUnknownAttribution, id)
	}
	r2a := cloneResources(data.ResourcesToAttributions)
	for _, p := range paths {
		removeID(r2a, p, id)
	}
	return models.NewAttributionData(data.Kind, cloneAttributions(data.Attributions), r2a), nil
}

// Replace merges oldID into newID: every resource of oldID is attached to
// newID, then oldID is deleted.
func Replace(data models.AttributionData, oldID, newID string) (models.AttributionData, error) {
	if _, ok := data.Attributions[oldID]; !ok {
		return data, fmt.Errorf("%w: %s", ErrUnknownAttribution, oldID)
	}
	if _, ok := data.Attributions[newID]; !ok {
		return data, fmt.Errorf("%w: %s", ErrUnknownAttribution, newID)
	}
	if oldID == newID {
		return data, nil
	}
	attrs := cloneAttributions(data.Attributions)
	delete(attrs, oldID)
	r2a := cloneResources(data.ResourcesToAttributions)
	for _, p := range data.AttributionsToResources[oldID] {
		removeID(r2a, p, oldID)
		r2a[p] = appendUnique(r2a[p], newID)
	}
	return models.NewAttributionData(data.Kind, attrs, r2a), nil
}

// Confirm clears the pre-selected flag of the given attributions.
func Confirm(data models.AttributionData, ids ...string) (models.AttributionData, error) {
	attrs := cloneAttributions(data.Attributions)
	for _, id := range ids {
		info, ok := attrs[id]
		if !ok {
			return data, fmt.Errorf("%w: %s", ErrUnknownAttribution, id)
		}
		info.PreSelected = false
		attrs[id] = info
	}
	return models.NewAttributionData(data.Kind, attrs, cloneResources(data.ResourcesToAttributions)), nil
}

func cloneAttributions(in models.Attributions) models.Attributions {
	out := make(models.Attributions, len(in))
	for id, info := range in {
		out[id] = info
	}
	return out
}

func cloneResources(in models.ResourcesToAttributions) models.ResourcesToAttributions {
	out := make(models.ResourcesToAttributions, len(in))
	for p, ids := range in {
		out[p] = slices.Clone(ids)
	}
	return out
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(r2a models.ResourcesToAttributions, path, id string) {
	ids := slices.DeleteFunc(r2a[path], func(s string) bool { return s == id })
	if len(ids) == 0 {
		delete(r2a, path)
		return
	}
	r2a[path] = ids
}
