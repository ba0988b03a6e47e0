package nanomodel

import (
	"context"
	"fmt"

	"github.com/arthur-debert/nanomodel/types"
	"go.uber.org/zap"
)

// Transaction is an opaque transaction handle owned by the Manager
// implementation.
type Transaction any

// Batch is an opaque write batch handle owned by the Manager
// implementation.
type Batch any

// WriteOptions are passed through to the Manager untouched.
type WriteOptions struct {
	Transaction Transaction
	Batch       Batch
	Merge       bool
	NoReturn    bool
}

// Manager is the persistence collaborator the lifecycle operations
// delegate to. Implementations are expected to repopulate the model from
// the stored document through PopulateFromDocDict with Stored set.
type Manager interface {
	// Create writes the model, merging into an existing document when
	// opts.Merge is set. fields are the model's attribute values.
	Create(ctx context.Context, m *Model, opts WriteOptions, fields map[string]any) (*Model, error)

	// Update writes the changed fields to the existing document.
	Update(ctx context.Context, m *Model, opts WriteOptions) (*Model, error)

	// Refresh reloads the model from its stored document.
	Refresh(ctx context.Context, m *Model, tx Transaction) (*Model, error)
}

// SubcollectionLister is implemented by managers that can list the
// collections nested under a document.
type SubcollectionLister interface {
	Subcollections(ctx context.Context, m *Model) ([]string, error)
}

func (m *Model) manager() (Manager, error) {
	mgr := m.meta.Manager()
	if mgr == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoManager, m.meta.name)
	}
	return mgr, nil
}

// Save creates (or, with opts.Merge, merges into) the model's document.
func (m *Model) Save(ctx context.Context, opts WriteOptions) (*Model, error) {
	mgr, err := m.manager()
	if err != nil {
		return nil, err
	}
	Logger().Debug("save",
		zap.String("model", m.meta.name),
		zap.String("key", m.Key()),
		zap.Bool("merge", opts.Merge))
	return mgr.Create(ctx, m, opts, m.FieldValues(FieldFilter{IgnoreDefaultNone: true}))
}

// Upsert creates the document or merges into it when it exists; fields
// that are not set are never overwritten.
func (m *Model) Upsert(ctx context.Context, tx Transaction, batch Batch) (*Model, error) {
	return m.Save(ctx, WriteOptions{Transaction: tx, Batch: batch, Merge: true})
}

// Update writes the changed fields to an existing document. With an empty
// key the model's own key is used, and an instance that was never stored
// fails with ErrInvalidKey. A usable key also re-derives the parent and id
// of the instance.
func (m *Model) Update(ctx context.Context, key string, tx Transaction, batch Batch) (*Model, error) {
	explicit := key != ""
	if !explicit {
		key = m.Key()
		if types.IsPlaceholderKey(key) {
			return nil, fmt.Errorf("%w: can not update %s before it is saved", ErrInvalidKey, m.meta.name)
		}
	}
	if !types.IsPlaceholderKey(key) {
		m.SetParent(types.ParentFromKey(key))
		m.SetID(types.IDFromKey(key))
	}

	mgr, err := m.manager()
	if err != nil {
		return nil, err
	}
	Logger().Debug("update",
		zap.String("model", m.meta.name),
		zap.String("key", key),
		zap.Strings("changed", m.ChangedFields()))
	return mgr.Update(ctx, m, WriteOptions{Transaction: tx, Batch: batch})
}

// Refresh reloads the instance from storage.
func (m *Model) Refresh(ctx context.Context, tx Transaction) (*Model, error) {
	if types.IsPlaceholderKey(m.Key()) {
		return nil, fmt.Errorf("%w: %s must have a key to refresh", ErrMissingKey, m.meta.name)
	}
	mgr, err := m.manager()
	if err != nil {
		return nil, err
	}
	Logger().Debug("refresh", zap.String("model", m.meta.name), zap.String("key", m.Key()))
	return mgr.Refresh(ctx, m, tx)
}

// Subcollections lists the collections stored under the instance's
// document.
func (m *Model) Subcollections(ctx context.Context) ([]string, error) {
	mgr, err := m.manager()
	if err != nil {
		return nil, err
	}
	lister, ok := mgr.(SubcollectionLister)
	if !ok {
		return nil, fmt.Errorf("manager %T can not list subcollections", mgr)
	}
	return lister.Subcollections(ctx, m)
}
