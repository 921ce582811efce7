package types

import (
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

// File identifies a file in the editor by its cleaned path
type File struct {
	Path string `json:"path"`
}

// NewFile creates a file reference from a path
func NewFile(path string) File {
	return File{Path: filepath.Clean(path)}
}

// FileFromURL converts a file:// URL back into a file reference
func FileFromURL(url string) File {
	return NewFile(filepath.FromSlash(strings.TrimPrefix(url, fileScheme)))
}

// URL returns the file URL used by context and history bookkeeping
func (f File) URL() string {
	return fileScheme + filepath.ToSlash(f.Path)
}

// Name returns the base name
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// Dir returns the parent directory
func (f File) Dir() string {
	return filepath.Dir(f.Path)
}

// Ext returns the lowercase extension including the dot
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// IsZero reports whether the reference is empty
func (f File) IsZero() bool {
	return f.Path == "" || f.Path == "."
}

// OptionalPath converts an optional file into its optional path
func OptionalPath(f Option[File]) Option[string] {
	return MapOption(f, func(file File) string { return file.Path })
}
