// Package storage holds the document backends the persistence manager
// writes to. Documents are addressed by slash separated paths
// (collection/id, nested as collection/id/collection/id) and hold column
// name keyed bodies.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/arthur-debert/nanomodel/types"
)

var (
	// ErrNotFound is returned when no document exists at a path.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidPath is returned for paths that do not address a document.
	ErrInvalidPath = errors.New("invalid document path")

	// ErrClosed is returned by backends used after Close.
	ErrClosed = errors.New("backend closed")
)

// Backend is a hierarchical document store.
type Backend interface {
	// Get returns the document at path, ErrNotFound when absent.
	Get(ctx context.Context, path string) (*types.StoredDoc, error)

	// Set writes data at path, creating the document when needed. With
	// merge the body is deep-merged into the existing document, otherwise
	// it replaces it.
	Set(ctx context.Context, path string, data types.Doc, merge bool) (*types.StoredDoc, error)

	// Update deep-merges data into an existing document, ErrNotFound when
	// absent.
	Update(ctx context.Context, path string, data types.Doc) (*types.StoredDoc, error)

	// Delete removes the document at path. Deleting a missing document is
	// not an error. Sub-collections are left alone.
	Delete(ctx context.Context, path string) error

	// Collections lists the collection names directly under the document
	// at docPath, or the top-level collections for "".
	Collections(ctx context.Context, docPath string) ([]string, error)

	// NewID returns a fresh document id.
	NewID() string

	Close() error
}

func checkDocumentPath(path string) error {
	if !types.IsDocumentPath(path) || types.IsPlaceholderKey(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}
