package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/vendoriq-client/internal/errors"
	"github.com/jrsteele09/vendoriq-client/store"
)

var _ store.Store = (*MemStore)(nil)

// MemStore is an in-process Store. It does not survive a restart and is
// used for tests and for the "memory" backend.
type MemStore struct {
	values map[string]string
	closed bool
	lock   sync.RWMutex
}

func New() *MemStore {
	return &MemStore{
		values: make(map[string]string),
	}
}

// NewWithValues returns a MemStore pre-populated with values.
func NewWithValues(values map[string]string) *MemStore {
	ms := New()
	for k, v := range values {
		ms.values[k] = v
	}
	return ms
}

func (ms *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	if ms.closed {
		return "", false, errors.ErrStoreClosed
	}
	v, ok := ms.values[key]
	return v, ok, nil
}

func (ms *MemStore) SetMany(_ context.Context, values map[string]string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	if ms.closed {
		return errors.ErrStoreClosed
	}
	for k, v := range values {
		ms.values[k] = v
	}
	return nil
}

func (ms *MemStore) Delete(_ context.Context, keys ...string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	if ms.closed {
		return errors.ErrStoreClosed
	}
	for _, k := range keys {
		delete(ms.values, k)
	}
	return nil
}

func (ms *MemStore) Close() error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.closed = true
	return nil
}

// Snapshot returns a copy of every stored entry.
func (ms *MemStore) Snapshot() map[string]string {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	out := make(map[string]string, len(ms.values))
	for k, v := range ms.values {
		out[k] = v
	}
	return out
}
