package models

import "time"

// FileMetadata describes one project file (input or export) on disk.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}
