// Package memstore is an in-process credential store backend.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/jrsteele09/crec-session/credstore"
)

var _ credstore.Backend = (*Backend)(nil)

type Backend struct {
	values map[string]string
	lock   sync.RWMutex
}

func New() *Backend {
	return &Backend{values: make(map[string]string)}
}

func (b *Backend) Get(_ context.Context, key string) (string, bool, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	v, ok := b.values[key]
	return v, ok, nil
}

func (b *Backend) SetMany(_ context.Context, entries map[string]string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	maps.Copy(b.values, entries)
	return nil
}

func (b *Backend) SetIfPresent(_ context.Context, guard string, entries map[string]string) (bool, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if _, ok := b.values[guard]; !ok {
		return false, nil
	}
	maps.Copy(b.values, entries)
	return true, nil
}

func (b *Backend) Delete(_ context.Context, keys ...string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, k := range keys {
		delete(b.values, k)
	}
	return nil
}

// Raw sets key without going through a Store; tests use it to plant corrupt values.
func (b *Backend) Raw(key, value string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.values[key] = value
}

// Len returns the number of stored keys.
func (b *Backend) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.values)
}

func (b *Backend) Close() error {
	return nil
}
