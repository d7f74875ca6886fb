// Package store implements the store facade: the only component allowed to
// mutate a collection. Every mutation runs the pure reducer and writes the
// full collection back to its slot before returning.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/devnotes/internal/apperr"
	"github.com/starford/devnotes/internal/checksum"
	"github.com/starford/devnotes/internal/collection"
	"github.com/starford/devnotes/internal/idgen"
	"github.com/starford/devnotes/internal/reducer"
)

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("store: closed")

// Event kinds passed to observers.
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
	EventReloaded = "reloaded"
)

// Entity is the contract a record type must satisfy to live in a Store.
type Entity[T any] interface {
	reducer.Record
	Created() time.Time
	Stamped(id int64, createdAt time.Time) T
	Normalized() T
	Validate() error
}

// Observer is called after every successful mutation. For EventReloaded the
// record is the zero value.
type Observer[T any] func(kind string, record T)

// Option configures a Store.
type Option func(*options)

type options struct {
	name   string
	logger *slog.Logger
	now    func() time.Time
}

// WithName sets the entity name used in logs ("note", "error").
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now for id and createdAt stamping.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Store holds one collection in memory and mirrors it to its slot.
type Store[T Entity[T]] struct {
	mu        sync.Mutex
	coll      *collection.Collection[T]
	records   []T
	lastSum   string
	dirty     bool
	closed    bool
	ids       *idgen.Monotonic
	observers []Observer[T]

	name   string
	logger *slog.Logger
	now    func() time.Time
}

// New loads the collection once and returns a store seeded with it.
// Corrupt slot content is logged and absorbed: the store starts empty and
// the slot is left as found until the first mutation. An absent slot is
// written by Close.
func New[T Entity[T]](coll *collection.Collection[T], opts ...Option) (*Store[T], error) {
	o := options{name: coll.Key(), logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[T]{
		coll:   coll,
		ids:    idgen.NewMonotonic(o.now),
		name:   o.name,
		logger: o.logger,
		now:    o.now,
	}

	raw, err := coll.Raw()
	if err != nil {
		return nil, err
	}
	records, err := coll.Decode(raw)
	if err != nil {
		if !errors.Is(err, apperr.ErrCorrupt) {
			return nil, err
		}
		s.logger.Warn("store: corrupt slot, starting empty",
			slog.String("store", s.name),
			slog.String("key", coll.Key()),
			slog.String("error", err.Error()))
	} else {
		s.lastSum = checksum.Sum(raw)
		s.dirty = raw == nil
	}

	s.records = records
	for _, r := range records {
		s.ids.Observe(r.RecordID())
	}
	s.logger.Debug("store: loaded", slog.String("store", s.name), slog.Int("records", len(records)))
	return s, nil
}

// Observe registers fn to be called after every successful mutation.
func (s *Store[T]) Observe(fn Observer[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Name returns the entity name.
func (s *Store[T]) Name() string { return s.name }

// List returns a snapshot of the collection, most recent first.
func (s *Store[T]) List() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]T, 0, len(s.records)), s.records...)
}

// Len returns the number of records.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Get returns the record with the given id.
func (s *Store[T]) Get(id int64) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.find(id); ok {
		return r, nil
	}
	var zero T
	return zero, fmt.Errorf("store: %s %d: %w", s.name, id, apperr.ErrNotFound)
}

// Add validates in, stamps a fresh id and creation time, prepends it and saves.
func (s *Store[T]) Add(in T) (T, error) {
	var zero T
	r := in.Normalized()
	if err := r.Validate(); err != nil {
		return zero, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return zero, ErrClosed
	}
	r = r.Stamped(s.ids.Next(), s.now())
	_, err := s.commit(reducer.Add(r))
	observers := s.observers
	s.mu.Unlock()

	if err != nil {
		return zero, err
	}
	notify(observers, EventCreated, r)
	return r, nil
}

// Update replaces the record carrying r's id. The original creation time is
// kept. A missing id yields apperr.ErrNotFound and leaves the slot untouched.
func (s *Store[T]) Update(r T) (T, error) {
	var zero T
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return zero, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return zero, ErrClosed
	}
	existing, ok := s.find(r.RecordID())
	if !ok {
		s.mu.Unlock()
		return zero, fmt.Errorf("store: update %s %d: %w", s.name, r.RecordID(), apperr.ErrNotFound)
	}
	r = r.Stamped(existing.RecordID(), existing.Created())
	_, err := s.commit(reducer.Update(r))
	observers := s.observers
	s.mu.Unlock()

	if err != nil {
		return zero, err
	}
	notify(observers, EventUpdated, r)
	return r, nil
}

// Delete removes the record with the given id.
func (s *Store[T]) Delete(id int64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	existing, ok := s.find(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("store: delete %s %d: %w", s.name, id, apperr.ErrNotFound)
	}
	_, err := s.commit(reducer.Delete[T](id))
	observers := s.observers
	s.mu.Unlock()

	if err != nil {
		return err
	}
	notify(observers, EventDeleted, existing)
	return nil
}

// Reload re-reads the slot and replaces the in-memory collection when the
// slot no longer matches what this store last wrote. It reports whether the
// collection was replaced. Corrupt content leaves the current state in place.
func (s *Store[T]) Reload() (bool, error) {
	s.mu.Lock()
	raw, err := s.coll.Raw()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	sum := checksum.Sum(raw)
	if sum == s.lastSum {
		s.mu.Unlock()
		return false, nil
	}
	records, err := s.coll.Decode(raw)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.records = records
	s.lastSum = sum
	s.dirty = false
	for _, r := range records {
		s.ids.Observe(r.RecordID())
	}
	observers := s.observers
	s.mu.Unlock()

	s.logger.Info("store: reloaded from slot", slog.String("store", s.name), slog.Int("records", len(records)))
	var zero T
	notify(observers, EventReloaded, zero)
	return true, nil
}

// Close writes a slot that was absent at load and rejects further
// mutations. Reads keep working.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.flush()
}

func (s *Store[T]) flush() error {
	if !s.dirty {
		return nil
	}
	written, err := s.coll.Save(s.records)
	if err != nil {
		return err
	}
	s.lastSum = checksum.Sum(written)
	s.dirty = false
	return nil
}

// commit runs the reducer and persists the result. The in-memory state only
// changes once the save succeeded. Callers hold s.mu.
func (s *Store[T]) commit(a reducer.Action[T]) (bool, error) {
	next, changed := reducer.Reduce(s.records, a)
	if !changed {
		return false, nil
	}
	written, err := s.coll.Save(next)
	if err != nil {
		s.logger.Error("store: save failed",
			slog.String("store", s.name),
			slog.String("action", string(a.Kind)),
			slog.String("error", err.Error()))
		return false, err
	}
	s.records = next
	s.lastSum = checksum.Sum(written)
	s.dirty = false
	return true, nil
}

func (s *Store[T]) find(id int64) (T, bool) {
	for _, r := range s.records {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

func notify[T any](observers []Observer[T], kind string, r T) {
	for _, fn := range observers {
		fn(kind, r)
	}
}
