package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/arthur-debert/nanomodel/nanomodel"
	"github.com/arthur-debert/nanomodel/types"
	"go.uber.org/zap"
)

type writeKind int

const (
	writeSet writeKind = iota
	writeUpdate
	writeDelete
)

type write struct {
	kind  writeKind
	model *nanomodel.Model
	path  string
	data  types.Doc
	merge bool
}

// Batch queues writes until Commit. Pass it as the batch handle of Save,
// Upsert or Update; the queued models are repopulated on commit.
type Batch struct {
	manager *Manager

	mu     sync.Mutex
	writes []write
}

// NewBatch creates an empty batch.
func (mgr *Manager) NewBatch() *Batch {
	return &Batch{manager: mgr}
}

func (b *Batch) add(w write) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = append(b.writes, w)
}

// Delete queues the deletion of the document at key.
func (b *Batch) Delete(key string) {
	b.add(write{kind: writeDelete, path: key})
}

// Len returns the number of queued writes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.writes)
}

// Commit applies the queued writes in order and empties the batch. It stops
// at the first failure; writes before it stay applied.
func (b *Batch) Commit(ctx context.Context) error {
	b.mu.Lock()
	writes := b.writes
	b.writes = nil
	b.mu.Unlock()

	backend := b.manager.backend
	for i, w := range writes {
		var (
			stored *types.StoredDoc
			err    error
		)
		switch w.kind {
		case writeSet:
			stored, err = backend.Set(ctx, w.path, w.data, w.merge)
		case writeUpdate:
			stored, err = backend.Update(ctx, w.path, w.data)
			err = notFound(w.path, err)
		case writeDelete:
			err = backend.Delete(ctx, w.path)
		}
		if err != nil {
			return fmt.Errorf("batch write %d of %d (%s): %w", i+1, len(writes), w.path, err)
		}
		if w.model != nil && stored != nil {
			if err := load(w.model, stored); err != nil {
				return err
			}
		}
	}
	b.manager.logger.Debug("batch committed", zap.Int("writes", len(writes)))
	return nil
}
