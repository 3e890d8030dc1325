// Package memory is the default storage engine: a buntdb database that
// never touches disk.
package memory

import (
	"errors"

	"github.com/tidwall/buntdb"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

const StorageName = "memory"

func init() {
	store.Register(Store{})
}

type Store struct{}

func (s Store) String() string {
	return StorageName
}

func (s Store) Open(_ store.Config) (store.Store, error) {
	return NewDB()
}

var _ store.Store = (*DB)(nil)

type DB struct {
	db *buntdb.DB
}

func NewDB() (*DB, error) {
	bdb, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}
	return &DB{db: bdb}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) StoreItem(key ring.ID, value []byte) error {
	return d.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(string(store.EncodeKey(key)), string(value), nil)
		return err
	})
}

func (d *DB) RetrieveItem(key ring.ID) (store.Item, error) {
	item := store.Absent
	err := d.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(string(store.EncodeKey(key)))
		if err != nil {
			return err
		}
		item = store.Found([]byte(val))
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return store.Absent, nil
	}
	return item, err
}

func (d *DB) Iterate(fn func(key ring.ID, value []byte) error) error {
	var iterErr error
	err := d.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(k, v string) bool {
			id, err := store.DecodeKey([]byte(k))
			if err != nil {
				iterErr = err
				return false
			}
			if err := fn(id, []byte(v)); err != nil {
				iterErr = err
				return false
			}
			return true
		})
	})
	if err != nil {
		return err
	}
	return iterErr
}
