package models

import "time"

// DocumentMetadata is a lightweight listing entry for a vault file.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
