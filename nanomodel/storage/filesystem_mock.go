package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MockFileSystem is an in-memory FileSystem for tests. The error fields,
// when set, are returned by the matching method.
type MockFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte

	StatError      error
	ReadFileError  error
	WriteFileError error
	RenameError    error
	RemoveError    error
}

type mockFileInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (fi mockFileInfo) Name() string       { return fi.name }
func (fi mockFileInfo) Size() int64        { return fi.size }
func (fi mockFileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi mockFileInfo) ModTime() time.Time { return time.Time{} }
func (fi mockFileInfo) IsDir() bool        { return false }
func (fi mockFileInfo) Sys() any           { return nil }

// NewMockFileSystem creates an empty mock file system.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{files: make(map[string][]byte)}
}

// Stat implements FileSystem.Stat
func (m *MockFileSystem) Stat(name string) (fs.FileInfo, error) {
	if m.StatError != nil {
		return nil, m.StatError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return mockFileInfo{name: filepath.Base(name), size: int64(len(content)), mode: 0644}, nil
}

// ReadFile implements FileSystem.ReadFile
func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if m.ReadFileError != nil {
		return nil, m.ReadFileError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return append([]byte(nil), content...), nil
}

// WriteFile implements FileSystem.WriteFile
func (m *MockFileSystem) WriteFile(name string, data []byte, _ fs.FileMode) error {
	if m.WriteFileError != nil {
		return m.WriteFileError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// Rename implements FileSystem.Rename
func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	if m.RenameError != nil {
		return m.RenameError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[oldpath]
	if !ok {
		return os.ErrNotExist
	}
	m.files[newpath] = content
	delete(m.files, oldpath)
	return nil
}

// Remove implements FileSystem.Remove
func (m *MockFileSystem) Remove(name string) error {
	if m.RemoveError != nil {
		return m.RemoveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return os.ErrNotExist
	}
	delete(m.files, name)
	return nil
}

// FileExists reports whether name was written.
func (m *MockFileSystem) FileExists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[name]
	return ok
}

// FileContent returns a copy of the content of name.
func (m *MockFileSystem) FileContent(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[name]
	return append([]byte(nil), content...), ok
}
