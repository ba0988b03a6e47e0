package storage

import (
	"context"
	"sync"
	"time"
)

// MockFileLock is a FileLock for tests that never touches the disk.
type MockFileLock struct {
	mu       sync.Mutex
	locked   bool
	lockErr  error
	attempts int
	unlocks  int
}

// TryLockContext implements FileLock.TryLockContext. A held lock reports
// false without blocking.
func (l *MockFileLock) TryLockContext(_ context.Context, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	if l.lockErr != nil {
		return false, l.lockErr
	}
	if l.locked {
		return false, nil
	}
	l.locked = true
	return true, nil
}

// Unlock implements FileLock.Unlock
func (l *MockFileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlocks++
	l.locked = false
	return nil
}

// Hold marks the lock as taken by someone else.
func (l *MockFileLock) Hold() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = true
}

// SetLockError makes every lock attempt fail with err.
func (l *MockFileLock) SetLockError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lockErr = err
}

// Attempts returns the number of lock attempts and unlocks.
func (l *MockFileLock) Attempts() (locks, unlocks int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts, l.unlocks
}

// MockFileLockFactory hands out one MockFileLock per path.
type MockFileLockFactory struct {
	mu    sync.Mutex
	locks map[string]*MockFileLock
}

// NewMockFileLockFactory creates a new mock factory
func NewMockFileLockFactory() *MockFileLockFactory {
	return &MockFileLockFactory{locks: make(map[string]*MockFileLock)}
}

// New implements FileLockFactory.New
func (f *MockFileLockFactory) New(path string) FileLock {
	return f.Lock(path)
}

// Lock returns the mock lock for path, creating it when needed.
func (f *MockFileLockFactory) Lock(path string) *MockFileLock {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.locks[path]; ok {
		return l
	}
	l := &MockFileLock{}
	f.locks[path] = l
	return l
}
