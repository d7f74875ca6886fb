// Package idgen generates record ids.
package idgen

import (
	"sync"
	"time"
)

// Monotonic hands out strictly increasing ids based on the wall clock in
// milliseconds. When the clock has not advanced (or moved backwards) since the
// previous id, the previous id plus one is returned instead.
type Monotonic struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewMonotonic returns a generator reading the given clock. A nil clock means time.Now.
func NewMonotonic(now func() time.Time) *Monotonic {
	if now == nil {
		now = time.Now
	}
	return &Monotonic{now: now}
}

// Next returns a new id, greater than every id returned or observed before.
func (m *Monotonic) Next() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.now().UnixMilli()
	if id <= m.last {
		id = m.last + 1
	}
	m.last = id
	return id
}

// Observe records an id that already exists so Next never returns it again.
func (m *Monotonic) Observe(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id > m.last {
		m.last = id
	}
}
