// Package storage defines the project document store.
package storage

import "github.com/starford/mastermind/internal/models"

// Provider is the interface for project document operations. Documents are
// addressed by project name; the backing file layout is an implementation
// detail.
type Provider interface {
	// List returns metadata for every project document.
	List() ([]models.ProjectMetadata, error)
	// Read returns the raw bytes of a project document.
	Read(name string) ([]byte, error)
	// Write atomically replaces a project document.
	Write(name string, content []byte) error
	// Delete removes a project document.
	Delete(name string) error
	// Archive moves a project document into the archive and returns its key.
	Archive(name string) (string, error)
}
