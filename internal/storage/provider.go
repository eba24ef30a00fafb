// Package storage reads and writes the documents of a content directory.
package storage

import "time"

// DocMetadata describes one document without its content.
type DocMetadata struct {
	// Path is relative to the root, with forward slashes.
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for document file operations. Paths are relative
// to the root.
type Provider interface {
	// List returns metadata for every document under dir.
	List(dir string) ([]DocMetadata, error)
	Read(path string) ([]byte, error)
	// ModTime returns the last modification time of path.
	ModTime(path string) (time.Time, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	Delete(path string) error
}
