// Package storage defines the root-bound file abstraction used for link
// sources and build output.
package storage

// Provider is the interface for file operations relative to a root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// MkdirAll creates dir (relative to root) and any missing parents.
	MkdirAll(dir string) error
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
