// Package collection persists an ordered list of records as a JSON array in
// a single storage slot.
package collection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/starford/devnotes/internal/apperr"
	"github.com/starford/devnotes/internal/storage"
)

// CorruptSuffix is appended to the key of the slot that preserves unparseable content.
const CorruptSuffix = ".corrupt"

// Collection reads and writes one slot holding []T.
type Collection[T any] struct {
	store storage.Provider
	key   string
}

// New returns a collection bound to key in store.
func New[T any](store storage.Provider, key string) *Collection[T] {
	return &Collection[T]{store: store, key: key}
}

// Key returns the slot key.
func (c *Collection[T]) Key() string { return c.key }

// Load reads the slot. An absent or empty slot yields an empty collection.
// Unparseable content also yields an empty collection, together with an
// error wrapping apperr.ErrCorrupt; the raw bytes are first copied to the
// <key>.corrupt slot so that a later Save cannot destroy them.
func (c *Collection[T]) Load() ([]T, error) {
	raw, err := c.Raw()
	if err != nil {
		return []T{}, err
	}
	return c.Decode(raw)
}

// Raw returns the serialized slot content, nil when the slot is absent.
func (c *Collection[T]) Raw() ([]byte, error) {
	raw, err := c.store.Get(c.key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("collection: load %s: %w", c.key, err)
	}
	return raw, nil
}

// Decode parses serialized slot content with the same fallback rules as Load.
func (c *Collection[T]) Decode(raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	var records []T
	if err := json.Unmarshal(trimmed, &records); err != nil {
		if putErr := c.store.Put(c.key+CorruptSuffix, raw); putErr != nil {
			return []T{}, fmt.Errorf("collection: %s: %w: %v (backup failed: %v)", c.key, apperr.ErrCorrupt, err, putErr)
		}
		return []T{}, fmt.Errorf("collection: %s: %w: %v", c.key, apperr.ErrCorrupt, err)
	}
	return records, nil
}

// Encode serializes records the way Save writes them.
func Encode[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	return json.Marshal(records)
}

// Save serializes the full collection and overwrites the slot.
// It returns the bytes written.
func (c *Collection[T]) Save(records []T) ([]byte, error) {
	data, err := Encode(records)
	if err != nil {
		return nil, fmt.Errorf("collection: encode %s: %w", c.key, err)
	}
	if err := c.store.Put(c.key, data); err != nil {
		return nil, fmt.Errorf("collection: save %s: %w", c.key, err)
	}
	return data, nil
}
