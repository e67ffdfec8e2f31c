package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_WriteRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Write("draft", []byte("chapter one"))
	require.NoError(t, err)
	assert.Contains(t, ref, "draft-")

	content, err := store.Read(ref)
	require.NoError(t, err)
	assert.Equal(t, "chapter one", string(content))
}

func TestFileStore_DistinctRefs(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ref1, err := store.Write("draft", []byte("a"))
	require.NoError(t, err)
	ref2, err := store.Write("draft", []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, ref1, ref2)
}

func TestFileStore_ReadUnknown(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("missing")
	assert.Error(t, err)
}

func TestMemStore_WriteRead(t *testing.T) {
	store := NewMemStore()

	ref, err := store.Write("formatted", []byte("<p>hi</p>"))
	require.NoError(t, err)

	content, err := store.Read(ref)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(content))

	_, err = store.Read("nope")
	assert.Error(t, err)
}
