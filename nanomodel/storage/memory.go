package storage

import (
	"context"
	"time"

	"github.com/arthur-debert/nanomodel/types"
	"github.com/google/uuid"
)

// MemoryOption configures a memory backend.
type MemoryOption func(*Memory)

// WithMemoryClock sets the time source used for document timestamps.
func WithMemoryClock(fn func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.data.now = fn
	}
}

// Memory is an in-process Backend. It is safe for concurrent use.
type Memory struct {
	lockManager *LockManager
	data        *table
	closed      bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		lockManager: NewLockManager(),
		data:        newTable(time.Now),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Backend.Get.
func (m *Memory) Get(ctx context.Context, path string) (*types.StoredDoc, error) {
	return ExecuteWithResult(m.lockManager, ReadOperation, func() (*types.StoredDoc, error) {
		if err := m.check(ctx); err != nil {
			return nil, err
		}
		return m.data.get(path)
	})
}

// Set implements Backend.Set.
func (m *Memory) Set(ctx context.Context, path string, data types.Doc, merge bool) (*types.StoredDoc, error) {
	return ExecuteWithResult(m.lockManager, WriteOperation, func() (*types.StoredDoc, error) {
		if err := m.check(ctx); err != nil {
			return nil, err
		}
		return m.data.set(path, data, merge)
	})
}

// Update implements Backend.Update.
func (m *Memory) Update(ctx context.Context, path string, data types.Doc) (*types.StoredDoc, error) {
	return ExecuteWithResult(m.lockManager, WriteOperation, func() (*types.StoredDoc, error) {
		if err := m.check(ctx); err != nil {
			return nil, err
		}
		return m.data.update(path, data)
	})
}

// Delete implements Backend.Delete.
func (m *Memory) Delete(ctx context.Context, path string) error {
	return m.lockManager.Execute(WriteOperation, func() error {
		if err := m.check(ctx); err != nil {
			return err
		}
		return m.data.delete(path)
	})
}

// Collections implements Backend.Collections.
func (m *Memory) Collections(ctx context.Context, docPath string) ([]string, error) {
	return ExecuteWithResult(m.lockManager, ReadOperation, func() ([]string, error) {
		if err := m.check(ctx); err != nil {
			return nil, err
		}
		return m.data.collections(docPath)
	})
}

// NewID implements Backend.NewID.
func (m *Memory) NewID() string {
	return uuid.New().String()
}

// Close implements Backend.Close. Further calls fail with ErrClosed.
func (m *Memory) Close() error {
	return m.lockManager.Execute(WriteOperation, func() error {
		m.closed = true
		return nil
	})
}

func (m *Memory) check(ctx context.Context) error {
	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}
