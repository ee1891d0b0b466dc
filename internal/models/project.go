// Package models defines the domain types shared across Mastermind packages.
package models

import "time"

// ProjectMetadata is a lightweight representation returned by list operations.
type ProjectMetadata struct {
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project is a project document with its content.
type Project struct {
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ArchiveEntry identifies one archived copy of a project document.
type ArchiveEntry struct {
	Key     string `json:"key"`
	Project string `json:"project"`
	// Stamp is the YYYYMMDD-HHMMSS time the copy was taken.
	Stamp string `json:"stamp"`
}
