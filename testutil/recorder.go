package testutil

import (
	"context"
	"sync"

	"github.com/arthur-debert/nanomodel/nanomodel"
)

// Call is one recorded Manager invocation.
type Call struct {
	Op      string // create, update or refresh
	Key     string
	Options nanomodel.WriteOptions
	Fields  map[string]any
	Changed []string
}

// RecordingManager is a nanomodel.Manager that records its calls and
// touches no storage. Err, when set, is returned by every call.
type RecordingManager struct {
	Err error

	mu    sync.Mutex
	calls []Call
}

var _ nanomodel.Manager = (*RecordingManager)(nil)

func (r *RecordingManager) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns the recorded calls in order.
func (r *RecordingManager) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Last returns the most recent call; ok is false when there is none.
func (r *RecordingManager) Last() (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return Call{}, false
	}
	return r.calls[len(r.calls)-1], true
}

// Create implements nanomodel.Manager.Create.
func (r *RecordingManager) Create(_ context.Context, m *nanomodel.Model, opts nanomodel.WriteOptions, fields map[string]any) (*nanomodel.Model, error) {
	r.record(Call{Op: "create", Key: m.Key(), Options: opts, Fields: fields, Changed: m.ChangedFields()})
	if r.Err != nil {
		return nil, r.Err
	}
	return m, nil
}

// Update implements nanomodel.Manager.Update.
func (r *RecordingManager) Update(_ context.Context, m *nanomodel.Model, opts nanomodel.WriteOptions) (*nanomodel.Model, error) {
	r.record(Call{Op: "update", Key: m.Key(), Options: opts, Changed: m.ChangedFields()})
	if r.Err != nil {
		return nil, r.Err
	}
	return m, nil
}

// Refresh implements nanomodel.Manager.Refresh.
func (r *RecordingManager) Refresh(_ context.Context, m *nanomodel.Model, tx nanomodel.Transaction) (*nanomodel.Model, error) {
	r.record(Call{Op: "refresh", Key: m.Key(), Options: nanomodel.WriteOptions{Transaction: tx}})
	if r.Err != nil {
		return nil, r.Err
	}
	return m, nil
}
