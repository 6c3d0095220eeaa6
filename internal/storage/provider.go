// Package storage defines the catalog data directory abstraction: one JSON
// file per catalog kind (item.json, skill.json, ...).
package storage

import (
	"time"

	"github.com/starford/hours/internal/models"
)

// DataFile describes one catalog data file on disk.
type DataFile struct {
	Kind      models.Kind
	Path      string // relative to the data root
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for catalog data file operations.
type Provider interface {
	// Root returns the absolute data directory.
	Root() string
	// List returns metadata for every recognised <kind>.json file.
	List() ([]DataFile, error)
	// Read returns the raw bytes of the data file for kind.
	Read(kind models.Kind) ([]byte, error)
	// Write atomically replaces the data file for kind.
	Write(kind models.Kind, content []byte) error
}

// FileName returns the data file name for kind.
func FileName(kind models.Kind) string {
	return string(kind) + ".json"
}
