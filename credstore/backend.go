// Package credstore holds the persisted session record: one independent key per
// field on top of a pluggable key/value Backend.
package credstore

import "context"

// Backend is local persistent key/value storage. SetMany, SetIfPresent and
// Delete apply all of their keys or none. Delete of an absent key is not an error.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetMany(ctx context.Context, entries map[string]string) error
	// SetIfPresent writes entries only while guard exists, checked in the same
	// atomic step as the write. It reports whether it wrote.
	SetIfPresent(ctx context.Context, guard string, entries map[string]string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
