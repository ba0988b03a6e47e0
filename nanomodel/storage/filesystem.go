package storage

import (
	"io/fs"
	"os"
)

// FileSystem is the file access used by the JSON backend, so tests can
// substitute failing or in-memory implementations.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

// OSFileSystem is the default implementation using the os package
type OSFileSystem struct{}

// Stat implements FileSystem.Stat
func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

// ReadFile implements FileSystem.ReadFile
func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// WriteFile implements FileSystem.WriteFile
func (OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// Rename implements FileSystem.Rename
func (OSFileSystem) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

// Remove implements FileSystem.Remove
func (OSFileSystem) Remove(name string) error { return os.Remove(name) }
