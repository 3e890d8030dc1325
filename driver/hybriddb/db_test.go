package hybriddb

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

func newTestDB(t *testing.T) *DB {
	db, err := Open(t.TempDir(), 16)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_Open(t *testing.T) {
	s, err := store.Open(StorageName, store.Config{DataDir: t.TempDir(), HotCacheSize: 8})
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &DB{}, s)
}

func TestDB_StoreRetrieve(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.StoreItem(25, []byte("x")))

	item, err := db.RetrieveItem(25)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), item.Value)

	// Test cache hit
	db.Wait()
	item, err = db.RetrieveItem(25)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), item.Value)
}

func TestCacheConsistency_Overwrite(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.StoreItem(3, []byte("v1")))
	db.Wait()
	require.NoError(t, db.StoreItem(3, []byte("v2")))
	db.Wait()

	item, err := db.RetrieveItem(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), item.Value)

	cold, err := db.cold.RetrieveItem(3)
	require.NoError(t, err)
	assert.Equal(t, item, cold, "Cache and cold storage should have same value")
}

func TestDB_Absent(t *testing.T) {
	db := newTestDB(t)

	item, err := db.RetrieveItem(4)
	require.NoError(t, err)
	assert.False(t, item.Found)
}

func TestDB_IterateUsesColdTier(t *testing.T) {
	db := newTestDB(t)

	for _, k := range []ring.ID{17, 7} {
		require.NoError(t, db.StoreItem(k, []byte("v")))
	}

	n := 0
	require.NoError(t, db.Iterate(func(ring.ID, []byte) error {
		n++
		return nil
	}))
	assert.Equal(t, 2, n)
}

func TestCacheConsistency_ConcurrentReadThrough(t *testing.T) {
	db := newTestDB(t)

	for round := 0; round < 300; round++ {
		key := ring.ID(round)
		require.NoError(t, db.cold.StoreItem(key, []byte("old")))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = db.RetrieveItem(key)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, db.StoreItem(key, []byte("new")))
		}()
		wg.Wait()
		db.Wait()

		item, err := db.RetrieveItem(key)
		require.NoError(t, err)
		require.Equal(t, []byte("new"), item.Value, "round %d", round)
	}
}

func TestDB_ReturnedValueIsCopy(t *testing.T) {
	db := newTestDB(t)

	value := []byte("abc")
	require.NoError(t, db.StoreItem(5, value))
	value[0] = 'x'
	db.Wait()

	item, err := db.RetrieveItem(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), item.Value)

	item.Value[0] = 'z'
	item, err = db.RetrieveItem(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), item.Value)
}
