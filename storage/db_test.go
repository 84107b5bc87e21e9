package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	level, err := NewLevelDB(filepath.Join(dir, "level"))
	require.NoError(t, err)
	bolt, err := NewBoltDB(filepath.Join(dir, "state.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		level.Close()
		bolt.Close()
	})
	return map[string]Database{
		"memory":  NewMemDB(),
		"leveldb": level,
		"bolt":    bolt,
	}
}

func TestDatabaseRoundTrip(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get([]byte("missing"))
			require.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, db.Put([]byte("a"), []byte("1")))
			value, err := db.Get([]byte("a"))
			require.NoError(t, err)
			require.Equal(t, []byte("1"), value)

			require.NoError(t, db.Delete([]byte("a")))
			_, err = db.Get([]byte("a"))
			require.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestBatchAppliesAllWrites(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("gone"), []byte("x")))

			batch := db.NewBatch()
			batch.Put([]byte("k/1"), []byte("one"))
			batch.Put([]byte("k/2"), []byte("two"))
			batch.Delete([]byte("gone"))
			require.Equal(t, 3, batch.Len())

			_, err := db.Get([]byte("k/1"))
			require.True(t, errors.Is(err, ErrNotFound), "batch must not apply before Write")

			require.NoError(t, batch.Write())
			value, err := db.Get([]byte("k/2"))
			require.NoError(t, err)
			require.Equal(t, []byte("two"), value)
			_, err = db.Get([]byte("gone"))
			require.True(t, errors.Is(err, ErrNotFound))
		})
	}
}
