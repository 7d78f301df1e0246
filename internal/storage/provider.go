// Package storage defines the project directory abstraction.
package storage

import "github.com/starford/licaudit/internal/models"

// Provider is the interface for project file operations. Paths are relative
// to the project root.
type Provider interface {
	// List returns metadata for every JSON or YAML file under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
