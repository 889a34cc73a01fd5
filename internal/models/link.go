// Package models defines the domain types for QRx.
package models

import (
	"path/filepath"
	"strings"
)

// Default file suffixes.
const (
	DefaultLinkSuffix  = ".link"
	DefaultImageSuffix = ".png"
)

// PathParts is normalized link text split at its first '?'.
type PathParts struct {
	BasePath string
	RawQuery string
}

// ResolvedLink is the addressable form of a link file.
type ResolvedLink struct {
	RequestPath string `json:"request_path"`
	Href        string `json:"href"`
	QRPayload   string `json:"qr_payload"`
}

// LinkRecord represents one discovered link file.
type LinkRecord struct {
	RelPath       string       `json:"rel_path"`
	DisplayName   string       `json:"display_name"`
	ImageFileName string       `json:"image_file_name"`
	Raw           string       `json:"-"`
	Link          ResolvedLink `json:"link"`

	// Oversize is set when the payload did not fit in a QR code and the
	// build was configured to skip rather than fail.
	Oversize bool `json:"oversize,omitempty"`
}

// Naming holds the suffixes used to derive record names.
type Naming struct {
	LinkSuffix  string
	ImageSuffix string
}

// DefaultNaming returns the .link -> .png naming.
func DefaultNaming() Naming {
	return Naming{LinkSuffix: DefaultLinkSuffix, ImageSuffix: DefaultImageSuffix}
}

// DisplayName strips the link suffix from relPath and uses forward slashes.
func (n Naming) DisplayName(relPath string) string {
	return strings.TrimSuffix(filepath.ToSlash(relPath), n.LinkSuffix)
}

// ImageFileName flattens relPath into a single file name: both separator
// kinds become "__" and the link suffix becomes the image suffix.
func (n Naming) ImageFileName(relPath string) string {
	flat := strings.NewReplacer("/", "__", `\`, "__").Replace(relPath)
	return strings.TrimSuffix(flat, n.LinkSuffix) + n.ImageSuffix
}

// NewLinkRecord builds a record from a file's path relative to the scan
// root and its raw text. It performs no I/O.
func NewLinkRecord(relPath, raw string, n Naming, resolve func(string) ResolvedLink) LinkRecord {
	return LinkRecord{
		RelPath:       relPath,
		DisplayName:   n.DisplayName(relPath),
		ImageFileName: n.ImageFileName(relPath),
		Raw:           raw,
		Link:          resolve(raw),
	}
}
