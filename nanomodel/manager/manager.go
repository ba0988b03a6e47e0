// Package manager is the reference persistence collaborator: it carries
// the lifecycle operations of nanomodel models to a storage.Backend and
// loads the stored documents back into the instances.
package manager

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/arthur-debert/nanomodel/nanomodel"
	"github.com/arthur-debert/nanomodel/nanomodel/storage"
	"github.com/arthur-debert/nanomodel/types"
	"go.uber.org/zap"
)

var (
	// ErrDocumentNotFound is returned when an operation needs a stored
	// document that does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrTransactionsUnsupported is returned when a transaction handle is
	// passed to this manager.
	ErrTransactionsUnsupported = errors.New("transactions are not supported")

	// ErrForeignBatch is returned for batch handles this manager did not
	// create.
	ErrForeignBatch = errors.New("batch does not belong to this manager")
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager implements nanomodel.Manager and nanomodel.SubcollectionLister.
// It is safe for concurrent use as long as the backend is; the models it
// is handed are not.
type Manager struct {
	backend storage.Backend
	logger  *zap.Logger
}

var (
	_ nanomodel.Manager             = (*Manager)(nil)
	_ nanomodel.SubcollectionLister = (*Manager)(nil)
)

// New creates a manager over backend.
func New(backend storage.Backend, opts ...Option) *Manager {
	m := &Manager{backend: backend}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Backend returns the storage backend.
func (mgr *Manager) Backend() storage.Backend { return mgr.backend }

// Create implements nanomodel.Manager.Create. fields are assigned to the
// instance first; a pending identifier is replaced by a backend generated
// id.
func (mgr *Manager) Create(ctx context.Context, m *nanomodel.Model, opts nanomodel.WriteOptions, fields map[string]any) (*nanomodel.Model, error) {
	if opts.Transaction != nil {
		return nil, ErrTransactionsUnsupported
	}
	batch, err := mgr.batch(opts.Batch)
	if err != nil {
		return nil, err
	}

	for name, v := range fields {
		if reflect.DeepEqual(m.Get(name), v) {
			continue
		}
		if err := m.Set(name, v); err != nil {
			return nil, err
		}
	}
	if m.ResolveID().Pending {
		m.SetID(mgr.backend.NewID())
	}
	path, err := m.DocumentPath()
	if err != nil {
		return nil, err
	}
	data, err := m.ToDBDict(types.DumpOptions{IgnoreDefaultNone: true})
	if err != nil {
		return nil, err
	}

	if batch != nil {
		batch.add(write{kind: writeSet, model: m, path: path, data: data, merge: opts.Merge})
		return m, nil
	}

	mgr.logger.Debug("create", zap.String("path", path), zap.Bool("merge", opts.Merge))
	stored, err := mgr.backend.Set(ctx, path, data, opts.Merge)
	if err != nil {
		return nil, fmt.Errorf("saving %s: %w", path, err)
	}
	if opts.NoReturn {
		return nil, nil
	}
	return m, load(m, stored)
}

// Update implements nanomodel.Manager.Update. Only changed fields are
// written; the document must exist.
func (mgr *Manager) Update(ctx context.Context, m *nanomodel.Model, opts nanomodel.WriteOptions) (*nanomodel.Model, error) {
	if opts.Transaction != nil {
		return nil, ErrTransactionsUnsupported
	}
	batch, err := mgr.batch(opts.Batch)
	if err != nil {
		return nil, err
	}

	path, err := m.DocumentPath()
	if err != nil {
		return nil, err
	}
	data, err := m.ToDBDict(types.DumpOptions{
		IgnoreUnchanged: true,
		IgnoreRequired:  true,
		IgnoreDefault:   true,
	})
	if err != nil {
		return nil, err
	}

	if batch != nil {
		batch.add(write{kind: writeUpdate, model: m, path: path, data: data})
		return m, nil
	}

	mgr.logger.Debug("update", zap.String("path", path), zap.Int("fields", len(data)))
	stored, err := mgr.backend.Update(ctx, path, data)
	if err != nil {
		return nil, notFound(path, err)
	}
	if opts.NoReturn {
		return nil, nil
	}
	return m, load(m, stored)
}

// Refresh implements nanomodel.Manager.Refresh.
func (mgr *Manager) Refresh(ctx context.Context, m *nanomodel.Model, tx nanomodel.Transaction) (*nanomodel.Model, error) {
	if tx != nil {
		return nil, ErrTransactionsUnsupported
	}
	path, err := m.DocumentPath()
	if err != nil {
		return nil, err
	}
	stored, err := mgr.backend.Get(ctx, path)
	if err != nil {
		return nil, notFound(path, err)
	}
	return m, load(m, stored)
}

// Get loads the document at key into a new instance of meta.
func (mgr *Manager) Get(ctx context.Context, meta *nanomodel.Meta, key string) (*nanomodel.Model, error) {
	key = types.JoinPath(key)
	if !types.IsDocumentPath(key) || types.CollectionFromKey(key) != meta.CollectionName() {
		return nil, fmt.Errorf("%w: %q is not a %s key", nanomodel.ErrInvalidKey, key, meta.Name())
	}
	stored, err := mgr.backend.Get(ctx, key)
	if err != nil {
		return nil, notFound(key, err)
	}
	m, err := meta.New(nanomodel.WithParent(types.ParentFromKey(key)))
	if err != nil {
		return nil, err
	}
	return m, load(m, stored)
}

// Delete removes the document at key.
func (mgr *Manager) Delete(ctx context.Context, key string) error {
	mgr.logger.Debug("delete", zap.String("path", key))
	return mgr.backend.Delete(ctx, key)
}

// Subcollections implements nanomodel.SubcollectionLister.
func (mgr *Manager) Subcollections(ctx context.Context, m *nanomodel.Model) ([]string, error) {
	path, err := m.DocumentPath()
	if err != nil {
		return nil, err
	}
	return mgr.backend.Collections(ctx, path)
}

// Collections lists the top-level collections of the backend.
func (mgr *Manager) Collections(ctx context.Context) ([]string, error) {
	return mgr.backend.Collections(ctx, "")
}

func (mgr *Manager) batch(h nanomodel.Batch) (*Batch, error) {
	if h == nil {
		return nil, nil
	}
	b, ok := h.(*Batch)
	if !ok || b == nil || b.manager != mgr {
		return nil, ErrForeignBatch
	}
	return b, nil
}

// load repopulates m from a stored document. The identifier is put back
// under its column so it is loaded without being marked changed.
func load(m *nanomodel.Model, stored *types.StoredDoc) error {
	doc := types.CloneDoc(stored.Data)
	if doc == nil {
		doc = types.Doc{}
	}
	_, idField := m.Meta().ID()
	doc[idField.ColumnName()] = stored.ID

	err := m.PopulateFromDocDict(doc, nanomodel.PopulateOptions{Stored: true, ByColumnName: true})
	if err != nil {
		return err
	}
	m.SetTimestamps(stored.CreateTime, stored.UpdateTime)
	return nil
}

// notFound maps storage.ErrNotFound to ErrDocumentNotFound; nil stays nil.
func notFound(path string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s: %w", ErrDocumentNotFound, path, err)
	}
	return err
}
