package goleveldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

func TestDB_Open(t *testing.T) {
	s, err := store.Open(StorageName, store.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &DB{}, s)
}

func TestDB_StoreRetrieve(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.StoreItem(25, []byte("x")))

	item, err := db.RetrieveItem(25)
	require.NoError(t, err)
	assert.Equal(t, store.Found([]byte("x")), item)

	item, err = db.RetrieveItem(26)
	require.NoError(t, err)
	assert.False(t, item.Found)
}

func TestDB_Reopen(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.StoreItem(7, []byte("persisted")))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	item, err := db.RetrieveItem(7)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), item.Value)
}

func TestDB_Iterate(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	for _, k := range []ring.ID{22, 2, 11} {
		require.NoError(t, db.StoreItem(k, []byte("v")))
	}

	var keys []ring.ID
	require.NoError(t, db.Iterate(func(key ring.ID, _ []byte) error {
		keys = append(keys, key)
		return nil
	}))
	assert.Equal(t, []ring.ID{2, 11, 22}, keys)
}
