package badger

import (
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

var _ store.Store = (*DB)(nil)

type DB struct {
	db           *badger.DB
	iteratorOpts badger.IteratorOptions
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) StoreItem(key ring.ID, value []byte) error {
	return db.db.Update(func(txn *badger.Txn) error {
		return txn.Set(store.EncodeKey(key), value)
	})
}

func (db *DB) RetrieveItem(key ring.ID) (store.Item, error) {
	var v []byte
	err := db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(store.EncodeKey(key))
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.Absent, nil
	}
	if err != nil {
		return store.Absent, err
	}
	if v == nil {
		v = []byte{}
	}
	return store.Found(v), nil
}

func (db *DB) Iterate(fn func(key ring.ID, value []byte) error) error {
	return db.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(db.iteratorOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id, err := store.DecodeKey(item.KeyCopy(nil))
			if err != nil {
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(id, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) GetStorageEngine() *badger.DB {
	return db.db
}
