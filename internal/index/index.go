package index

import "github.com/starford/licaudit/internal/models"

// Store defines the review-state and search operations backed by SQLite.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Store interface {
	ReplaceAttributions(data models.AttributionData) error
	UpsertAttribution(kind models.Kind, id string, info models.PackageInfo, paths []string) error
	DeleteAttribution(kind models.Kind, id string) error
	WriteAttributions(kind models.Kind, upserts []AttributionRow, deletes []string) error
	GetAttribution(kind models.Kind, id string) (*AttributionRow, error)
	SetResolved(ids []string, resolved bool) error
	ReviewState(projectID string) (*ReviewState, error)
	ClaimProject(projectID string, manual models.AttributionData, resolved []string) error
	GetChecksum(path string) (string, error)
	SetChecksum(path, projectID, checksum string) error
	Search(query string, kind models.Kind, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
