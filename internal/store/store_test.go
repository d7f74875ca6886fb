package store

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/devnotes/internal/apperr"
	"github.com/starford/devnotes/internal/collection"
	"github.com/starford/devnotes/internal/models"
	"github.com/starford/devnotes/internal/storage"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newNotes(t *testing.T, p storage.Provider, opts ...Option) *Store[models.Note] {
	t.Helper()
	opts = append([]Option{WithName("note"), WithLogger(quiet)}, opts...)
	s, err := New(collection.New[models.Note](p, models.NotesKey), opts...)
	require.NoError(t, err)
	return s
}

func persisted(t *testing.T, p storage.Provider) []models.Note {
	t.Helper()
	got, err := collection.New[models.Note](p, models.NotesKey).Load()
	require.NoError(t, err)
	return got
}

func TestAddStampsAndPrepends(t *testing.T) {
	p := storage.NewMemory()
	at := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)
	s := newNotes(t, p, WithClock(func() time.Time { return at }))

	first, err := s.Add(models.Note{Title: "first", Content: "a"})
	require.NoError(t, err)
	second, err := s.Add(models.Note{Title: "second", Content: "b"})
	require.NoError(t, err)

	assert.Equal(t, at.UnixMilli(), first.ID)
	assert.Greater(t, second.ID, first.ID, "same clock tick must not collide")
	assert.Equal(t, at, first.CreatedAt)
	assert.Equal(t, models.TypeCodeSnippet, first.Type)
	assert.Equal(t, models.DefaultLanguage, first.Language)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, list, persisted(t, p), "slot must match memory after Add")
}

func TestAddDeduplicatesTags(t *testing.T) {
	p := storage.NewMemory()
	s := newNotes(t, p)

	n, err := s.Add(models.Note{Title: "X", Content: "y", Tags: []string{"a", "a"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, n.Tags)
	assert.Equal(t, []string{"a"}, persisted(t, p)[0].Tags)
}

func TestAddValidation(t *testing.T) {
	p := storage.NewMemory()
	s := newNotes(t, p)

	for _, in := range []models.Note{
		{Title: "", Content: "x"},
		{Title: "t", Content: ""},
		{Title: "   ", Content: "x"},
		{Title: "t", Content: "x", Type: "Poem"},
	} {
		_, err := s.Add(in)
		require.ErrorIs(t, err, apperr.ErrValidation, "%+v", in)
		var verrs validation.Errors
		assert.True(t, errors.As(err, &verrs), "ozzo errors must stay reachable")
	}
	assert.Zero(t, s.Len())
	keys, _ := p.Keys()
	assert.Empty(t, keys, "rejected input must not touch the slot")
}

func TestUpdateKeepsCreatedAtAndOrder(t *testing.T) {
	p := storage.NewMemory()
	s := newNotes(t, p)
	a, _ := s.Add(models.Note{Title: "a", Content: "1"})
	b, _ := s.Add(models.Note{Title: "b", Content: "2"})

	edited := a
	edited.Title = "a2"
	edited.CreatedAt = time.Time{}
	got, err := s.Update(edited)
	require.NoError(t, err)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)

	list := s.List()
	assert.Equal(t, []int64{b.ID, a.ID}, []int64{list[0].ID, list[1].ID})
	assert.Equal(t, "a2", persisted(t, p)[1].Title)
}

func TestUpdateIsIdempotent(t *testing.T) {
	s := newNotes(t, storage.NewMemory())
	a, _ := s.Add(models.Note{Title: "a", Content: "1"})
	a.Content = "2"

	_, err := s.Update(a)
	require.NoError(t, err)
	once := s.List()
	_, err = s.Update(a)
	require.NoError(t, err)
	assert.Equal(t, once, s.List())
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	p := storage.NewMemory()
	s := newNotes(t, p)
	_, _ = s.Add(models.Note{Title: "a", Content: "1"})
	before := s.List()

	_, err := s.Update(models.Note{ID: 12345, Title: "ghost", Content: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, before, s.List())
}

func TestDeleteRoundTrip(t *testing.T) {
	p := storage.NewMemory()
	s := newNotes(t, p)
	_, _ = s.Add(models.Note{Title: "keep", Content: "1"})
	before := s.List()

	added, err := s.Add(models.Note{Title: "temp", Content: "2"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(added.ID))

	assert.Equal(t, before, s.List())
	assert.Equal(t, before, persisted(t, p))
}

func TestDeleteMissing(t *testing.T) {
	s := newNotes(t, storage.NewMemory())
	_, _ = s.Add(models.Note{Title: "keep", Content: "1"})
	before := s.List()

	assert.ErrorIs(t, s.Delete(999), apperr.ErrNotFound)
	assert.Equal(t, before, s.List())
}

func TestNewLoadsExistingAndAvoidsIDReuse(t *testing.T) {
	p := storage.NewMemory()
	future := time.Now().Add(time.Hour)
	seed := []models.Note{{ID: future.UnixMilli(), Title: "old", Content: "x", Tags: []string{}}}
	_, err := collection.New[models.Note](p, models.NotesKey).Save(seed)
	require.NoError(t, err)

	s := newNotes(t, p)
	require.Equal(t, 1, s.Len())
	n, err := s.Add(models.Note{Title: "new", Content: "y"})
	require.NoError(t, err)
	assert.Greater(t, n.ID, seed[0].ID)
}

func TestNewCorruptSlotStartsEmpty(t *testing.T) {
	p := storage.NewMemory()
	require.NoError(t, p.Put(models.NotesKey, []byte("{not json")))

	s := newNotes(t, p)
	assert.Zero(t, s.Len())

	_, err := s.Add(models.Note{Title: "fresh", Content: "start"})
	require.NoError(t, err)
	backup, err := p.Get(models.NotesKey + collection.CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))
}

type failingPut struct {
	storage.Provider
	fail bool
}

func (f *failingPut) Put(key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Provider.Put(key, value)
}

func TestSaveFailureRollsBack(t *testing.T) {
	p := &failingPut{Provider: storage.NewMemory()}
	s := newNotes(t, p)
	a, err := s.Add(models.Note{Title: "a", Content: "1"})
	require.NoError(t, err)

	p.fail = true
	_, err = s.Add(models.Note{Title: "b", Content: "2"})
	require.Error(t, err)
	assert.Error(t, s.Delete(a.ID))
	assert.Equal(t, 1, s.Len(), "memory must not diverge from the slot")
}

func TestObserversSeeMutations(t *testing.T) {
	s := newNotes(t, storage.NewMemory())
	var kinds []string
	s.Observe(func(kind string, n models.Note) { kinds = append(kinds, kind+":"+n.Title) })

	n, _ := s.Add(models.Note{Title: "a", Content: "1"})
	n.Title = "b"
	_, _ = s.Update(n)
	_ = s.Delete(n.ID)
	_ = s.Delete(n.ID)

	assert.Equal(t, []string{"created:a", "updated:b", "deleted:b"}, kinds)
}

func TestListIsSnapshot(t *testing.T) {
	s := newNotes(t, storage.NewMemory())
	_, _ = s.Add(models.Note{Title: "a", Content: "1"})

	snap := s.List()
	snap[0].Title = "mutated"
	assert.Equal(t, "a", s.List()[0].Title)
}

func TestReloadPicksUpExternalWrite(t *testing.T) {
	p := storage.NewMemory()
	s := newNotes(t, p)
	_, _ = s.Add(models.Note{Title: "a", Content: "1"})

	changed, err := s.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "own write must not trigger a reload")

	external := []models.Note{{ID: 1, Title: "from elsewhere", Content: "x", Tags: []string{}}}
	_, err = collection.New[models.Note](p, models.NotesKey).Save(external)
	require.NoError(t, err)

	var reloaded bool
	s.Observe(func(kind string, _ models.Note) { reloaded = kind == EventReloaded })
	changed, err = s.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, reloaded)
	assert.Equal(t, "from elsewhere", s.List()[0].Title)
}

func TestReloadCorruptKeepsState(t *testing.T) {
	p := storage.NewMemory()
	s := newNotes(t, p)
	_, _ = s.Add(models.Note{Title: "a", Content: "1"})
	require.NoError(t, p.Put(models.NotesKey, []byte("garbage")))

	_, err := s.Reload()
	assert.ErrorIs(t, err, apperr.ErrCorrupt)
	assert.Equal(t, 1, s.Len())
}

func TestCloseRejectsMutations(t *testing.T) {
	s := newNotes(t, storage.NewMemory())
	require.NoError(t, s.Close())
	_, err := s.Add(models.Note{Title: "a", Content: "1"})
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
}

func TestCloseWritesAbsentSlot(t *testing.T) {
	p := storage.NewMemory()
	s := newNotes(t, p)
	require.NoError(t, s.Close())
	raw, err := p.Get(models.NotesKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestCloseLeavesLoadedSlotUntouched(t *testing.T) {
	cases := map[string]string{
		"corrupt":   "{not json",
		"formatted": "[\n  ]\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			p := storage.NewMemory()
			require.NoError(t, p.Put(models.NotesKey, []byte(content)))

			s := newNotes(t, p)
			require.NoError(t, s.Close())

			raw, err := p.Get(models.NotesKey)
			require.NoError(t, err)
			assert.Equal(t, content, string(raw))
		})
	}
}

func TestConcurrentAddsStayConsistent(t *testing.T) {
	p := storage.NewMemory()
	s := newNotes(t, p)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Add(models.Note{Title: "t", Content: "c"})
		}()
	}
	wg.Wait()

	list := s.List()
	assert.Len(t, list, 50)
	assert.Equal(t, list, persisted(t, p))
	seen := map[int64]bool{}
	for _, n := range list {
		assert.False(t, seen[n.ID], "duplicate id %d", n.ID)
		seen[n.ID] = true
	}
}

func TestErrorLogStore(t *testing.T) {
	p := storage.NewMemory()
	s, err := New(collection.New[models.ErrorLog](p, models.ErrorsKey), WithName("error"), WithLogger(quiet))
	require.NoError(t, err)

	_, err = s.Add(models.ErrorLog{Title: "boom"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	e, err := s.Add(models.ErrorLog{Title: "boom", Message: "panic: nil map", Tags: []string{" go ", "go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, e.Tags)
	assert.Empty(t, e.Solution)
}
