package goleveldb

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

const (
	StorageName       = "goleveldb"
	defaultFilterBits = 10
)

func init() {
	store.Register(Store{})
}

type Store struct{}

func (s Store) String() string {
	return StorageName
}

func (s Store) Open(cfg store.Config) (store.Store, error) {
	return Open(filepath.Join(cfg.DataDir, StorageName))
}

var _ store.Store = (*DB)(nil)

type DB struct {
	path string
	db   *leveldb.DB

	iteratorOpts *opt.ReadOptions
}

// Open opens (or creates) a leveldb database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(path, fs.ModePerm); err != nil {
		return nil, err
	}
	ldb, err := leveldb.OpenFile(path, NewOptions())
	if err != nil {
		return nil, err
	}
	return Wrap(path, ldb), nil
}

// Wrap adapts an already open leveldb handle.
func Wrap(path string, ldb *leveldb.DB) *DB {
	return &DB{
		path:         path,
		db:           ldb,
		iteratorOpts: &opt.ReadOptions{DontFillCache: true},
	}
}

// NewOptions returns the leveldb options shared by the disk engines.
func NewOptions() *opt.Options {
	opts := &opt.Options{}
	opts.ErrorIfMissing = false
	opts.Filter = filter.NewBloomFilter(defaultFilterBits)
	opts.Compression = opt.SnappyCompression
	opts.CompactionTableSize = 32 * 1024 * 1024
	opts.WriteL0SlowdownTrigger = 16
	opts.WriteL0PauseTrigger = 64
	return opts
}

func (db *DB) GetStorageEngine() *leveldb.DB {
	return db.db
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) StoreItem(key ring.ID, value []byte) error {
	return db.db.Put(store.EncodeKey(key), value, nil)
}

func (db *DB) RetrieveItem(key ring.ID) (store.Item, error) {
	v, err := db.db.Get(store.EncodeKey(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return store.Absent, nil
		}
		return store.Absent, err
	}
	return store.Found(v), nil
}

func (db *DB) Iterate(fn func(key ring.ID, value []byte) error) error {
	it := db.db.NewIterator(nil, db.iteratorOpts)
	defer it.Release()

	for ok := it.First(); ok; ok = it.Next() {
		id, err := store.DecodeKey(it.Key())
		if err != nil {
			return err
		}
		value := make([]byte, len(it.Value()))
		copy(value, it.Value())
		if err := fn(id, value); err != nil {
			return err
		}
	}
	return it.Error()
}
