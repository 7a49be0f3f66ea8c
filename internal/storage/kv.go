// Package storage provides the durable key-value backends behind the session record.
package storage

import "errors"

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("storage: not found")

// KV is a small durable key-value store, the client's equivalent of
// browser local storage. Values are opaque bytes.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	Close() error
}
