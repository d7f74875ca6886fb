package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/devnotes/internal/apperr"
	"github.com/starford/devnotes/internal/storage"
)

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestLoadAbsentSlotIsEmpty(t *testing.T) {
	c := New[item](storage.NewMemory(), "items")

	got, err := c.Load()
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadEmptyAndNullSlot(t *testing.T) {
	for _, raw := range []string{"", "  \n", "null"} {
		mem := storage.NewMemory()
		require.NoError(t, mem.Put("items", []byte(raw)))

		got, err := New[item](mem, "items").Load()
		require.NoError(t, err, "raw=%q", raw)
		assert.Empty(t, got)
	}
}

func TestSaveThenLoadKeepsOrder(t *testing.T) {
	mem := storage.NewMemory()
	c := New[item](mem, "items")

	in := []item{{ID: 3, Name: "c"}, {ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	_, err := c.Save(in)
	require.NoError(t, err)

	got, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestSaveNilWritesEmptyArray(t *testing.T) {
	mem := storage.NewMemory()
	data, err := New[item](mem, "items").Save(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestLoadCorruptFallsBackToEmpty(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.Put("items", []byte(`[{"id": 1, "name": `)))

	got, err := New[item](mem, "items").Load()
	require.ErrorIs(t, err, apperr.ErrCorrupt)
	assert.Empty(t, got)

	backup, err := mem.Get("items" + CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, `[{"id": 1, "name": `, string(backup))
}

func TestLoadWrongShapeIsCorrupt(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.Put("items", []byte(`{"id": 1}`)))

	got, err := New[item](mem, "items").Load()
	assert.ErrorIs(t, err, apperr.ErrCorrupt)
	assert.Empty(t, got)
}
