package boltstore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkiosk/donation-engine/internal/adapters/boltstore"
)

func newTestStore(t *testing.T) *boltstore.Store {
	t.Helper()
	s, err := boltstore.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetAbsent(t *testing.T) {
	s := newTestStore(t)

	v, err := s.Get("keys", "missing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestStore_SetGet(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("keys", "txn-1", []byte("key-abc")))

	v, err := s.Get("keys", "txn-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("key-abc"), v)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := boltstore.New(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("keys", "txn-1", []byte("key-abc")))
	require.NoError(t, s.Close())

	reopened, err := boltstore.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get("keys", "txn-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("key-abc"), v)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("keys", "txn-1", []byte("key-abc")))
	require.NoError(t, s.Delete("keys", "txn-1"))

	v, err := s.Get("keys", "txn-1")
	require.NoError(t, err)
	assert.Nil(t, v)

	// Deleting again is a no-op, not an error
	require.NoError(t, s.Delete("keys", "txn-1"))
	// Deleting from a bucket that never existed is also fine
	require.NoError(t, s.Delete("nope", "txn-1"))
}

func TestStore_DeleteAll(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("keys", "a", []byte("1")))
	require.NoError(t, s.Set("keys", "b", []byte("2")))
	require.NoError(t, s.Set("other", "c", []byte("3")))

	require.NoError(t, s.DeleteAll("keys"))

	v, err := s.Get("keys", "a")
	require.NoError(t, err)
	assert.Nil(t, v)

	// Other buckets are untouched
	v, err = s.Get("other", "c")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)

	// Dropping an absent bucket is a no-op
	require.NoError(t, s.DeleteAll("keys"))
}
