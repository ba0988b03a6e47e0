package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/arthur-debert/nanomodel/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	jsonFormatVersion = "1.0"

	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// JSONOption configures a JSON backend.
type JSONOption func(*JSON)

// WithFileSystem sets a custom FileSystem implementation
func WithFileSystem(fs FileSystem) JSONOption {
	return func(s *JSON) { s.fs = fs }
}

// WithFileLockFactory sets a custom FileLockFactory implementation
func WithFileLockFactory(factory FileLockFactory) JSONOption {
	return func(s *JSON) { s.lockFactory = factory }
}

// WithClock sets the time source used for document timestamps.
func WithClock(fn func() time.Time) JSONOption {
	return func(s *JSON) { s.now = fn }
}

// WithJSONLogger sets the logger.
func WithJSONLogger(l *zap.Logger) JSONOption {
	return func(s *JSON) { s.logger = l }
}

// jsonFile is the on-disk layout.
type jsonFile struct {
	Version   string             `json:"version"`
	UpdatedAt time.Time          `json:"updated_at"`
	Documents map[string]*record `json:"documents"`
}

// JSON is a Backend persisting every document to a single JSON file. Each
// operation reloads the file under a cross-process lock, and writes replace
// the file atomically, so several processes can share one file.
type JSON struct {
	path        string
	lockManager *LockManager
	fs          FileSystem
	lockFactory FileLockFactory
	fileLock    FileLock
	now         func() time.Time
	logger      *zap.Logger
	data        *table
	closed      bool
}

// NewJSON opens (or prepares to create) the JSON file at path.
func NewJSON(path string, opts ...JSONOption) (*JSON, error) {
	s := &JSON{
		path:        path,
		lockManager: NewLockManager(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = OSFileSystem{}
	}
	if s.lockFactory == nil {
		s.lockFactory = FlockFactory{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.data = newTable(s.now)
	s.fileLock = s.lockFactory.New(path + ".lock")

	if err := s.withFileLock(context.Background(), false, func() error { return nil }); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return s, nil
}

// Path returns the data file path.
func (s *JSON) Path() string { return s.path }

// Get implements Backend.Get.
func (s *JSON) Get(ctx context.Context, path string) (*types.StoredDoc, error) {
	return ExecuteWithResult(s.lockManager, ReadOperation, func() (doc *types.StoredDoc, err error) {
		err = s.withFileLock(ctx, false, func() error {
			doc, err = s.data.get(path)
			return err
		})
		return doc, err
	})
}

// Set implements Backend.Set.
func (s *JSON) Set(ctx context.Context, path string, data types.Doc, merge bool) (*types.StoredDoc, error) {
	return ExecuteWithResult(s.lockManager, WriteOperation, func() (doc *types.StoredDoc, err error) {
		err = s.withFileLock(ctx, true, func() error {
			doc, err = s.data.set(path, data, merge)
			return err
		})
		return doc, err
	})
}

// Update implements Backend.Update.
func (s *JSON) Update(ctx context.Context, path string, data types.Doc) (*types.StoredDoc, error) {
	return ExecuteWithResult(s.lockManager, WriteOperation, func() (doc *types.StoredDoc, err error) {
		err = s.withFileLock(ctx, true, func() error {
			doc, err = s.data.update(path, data)
			return err
		})
		return doc, err
	})
}

// Delete implements Backend.Delete.
func (s *JSON) Delete(ctx context.Context, path string) error {
	return s.lockManager.Execute(WriteOperation, func() error {
		return s.withFileLock(ctx, true, func() error {
			return s.data.delete(path)
		})
	})
}

// Collections implements Backend.Collections.
func (s *JSON) Collections(ctx context.Context, docPath string) ([]string, error) {
	return ExecuteWithResult(s.lockManager, ReadOperation, func() (names []string, err error) {
		err = s.withFileLock(ctx, false, func() error {
			names, err = s.data.collections(docPath)
			return err
		})
		return names, err
	})
}

// NewID implements Backend.NewID.
func (s *JSON) NewID() string {
	return uuid.New().String()
}

// Close implements Backend.Close.
func (s *JSON) Close() error {
	return s.lockManager.Execute(WriteOperation, func() error {
		s.closed = true
		return nil
	})
}

// withFileLock reloads the file, runs fn and, for writes, saves the result,
// all while holding the cross-process lock. A failed fn leaves the file
// untouched.
func (s *JSON) withFileLock(ctx context.Context, write bool, fn func() error) error {
	if s.closed {
		return ErrClosed
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lockTimeout)
		defer cancel()
	}
	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer func() { _ = s.fileLock.Unlock() }()

	if err := s.load(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	if !write {
		return nil
	}
	return s.save()
}

// acquireLock attempts to acquire an exclusive file lock with retry logic
func (s *JSON) acquireLock(ctx context.Context) error {
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := s.fileLock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}

// load reads the JSON file into the table. Caller holds the file lock.
func (s *JSON) load() error {
	s.data.docs = make(map[string]*record)

	if _, err := s.fs.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	raw, err := s.fs.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	var file jsonFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if file.Documents != nil {
		s.data.docs = file.Documents
	}
	for _, r := range s.data.docs {
		normalizeNumbers(r.Data)
	}
	return nil
}

// save writes the table atomically (temp file, then rename). Caller holds
// the file lock.
func (s *JSON) save() error {
	file := jsonFile{
		Version:   jsonFormatVersion,
		UpdatedAt: s.now().UTC(),
		Documents: s.data.docs,
	}
	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmpFile := s.path + ".tmp"
	if err := s.fs.WriteFile(tmpFile, raw, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := s.fs.Rename(tmpFile, s.path); err != nil {
		_ = s.fs.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	s.logger.Debug("saved documents", zap.String("path", s.path), zap.Int("count", len(s.data.docs)))
	return nil
}

// normalizeNumbers turns decoded float64 values that hold integers back
// into int64, so numbers survive a round trip through the file unchanged.
func normalizeNumbers(d types.Doc) {
	for k, v := range d {
		d[k] = normalizeNumber(v)
	}
}

func normalizeNumber(v any) any {
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
		return t
	case map[string]any:
		normalizeNumbers(t)
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumber(e)
		}
		return t
	default:
		return v
	}
}
