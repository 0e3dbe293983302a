// Package engine provides the key/value storage engines behind the Comply-X
// repositories: an in-memory store with JSON snapshot persistence and a
// durable BadgerDB store.
package engine

import "errors"

var (
	// ErrKeyNotFound is returned when a requested key does not exist within a bucket.
	ErrKeyNotFound = errors.New("key not found")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
	// ErrInvalidValue is returned when a value is not a JSON document.
	ErrInvalidValue = errors.New("value is not valid JSON")
)

// KVReader defines the read operations of a store.
type KVReader interface {
	// Get retrieves the value stored under bucket and key.
	Get(bucket, key string) ([]byte, error)
	// List returns every key/value in bucket whose key starts with prefix.
	// An empty prefix lists the whole bucket. Missing buckets yield an empty map.
	List(bucket, prefix string) (map[string][]byte, error)
	// Buckets returns the names of all non-empty buckets.
	Buckets() ([]string, error)
}

// KVWriter defines the write operations of a store. Values must be JSON documents.
type KVWriter interface {
	Set(bucket, key string, val []byte) error
	Delete(bucket, key string) error
}

// KV is the storage contract implemented by MemStore and BadgerStore.
type KV interface {
	KVReader
	KVWriter
	// Close flushes pending writes and releases resources.
	Close() error
}
