// Package storage defines the persisted-slot abstraction: named locations
// that each hold one serialized value.
package storage

// Drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Provider is the interface for slot operations.
//
// Get on an absent slot returns an error matching os.ErrNotExist.
type Provider interface {
	// Get returns the raw bytes stored under key.
	Get(key string) ([]byte, error)
	// Put atomically replaces the value stored under key.
	Put(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Keys lists every slot currently present.
	Keys() ([]string, error)
	// Close releases the underlying resources.
	Close() error
}
