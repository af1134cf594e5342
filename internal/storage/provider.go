// Package storage persists note records as JSON files in a flat directory.
package storage

import "github.com/starford/miding/internal/models"

// Provider is the interface for record file operations.
type Provider interface {
	// List returns metadata for every .json record in the notes directory.
	List() ([]models.RecordMeta, error)
	// Read returns the raw bytes of the named record.
	Read(name string) ([]byte, error)
	// Write atomically writes content to the named record.
	Write(name string, content []byte) error
	// Delete removes the named record.
	Delete(name string) error
}
