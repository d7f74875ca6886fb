package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Open returns the provider for driver rooted at path.
// The file driver creates path as a directory, the sqlite driver creates the
// parent directory of the database file.
func Open(driver, path string) (Provider, error) {
	switch driver {
	case DriverFile:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create slot dir: %w", err)
		}
		return NewFS(path)
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("storage: create db dir: %w", err)
		}
		return OpenSQLite(path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
