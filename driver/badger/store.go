package badger

import (
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Chord/store"
)

const StorageName = "badger"

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

// Open opens a badger database in dir. badger's own logging is routed
// through logrus at warning level and above.
func Open(dir string) (*DB, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(logrus.WithField("driver", StorageName)).
		WithLoggingLevel(badger.WARNING)
	return open(opts)
}

// OpenInMemory opens a badger database that keeps everything in memory.
func OpenInMemory() (*DB, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	return open(opts)
}

func open(opts badger.Options) (*DB, error) {
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DB{
		db:           bdb,
		iteratorOpts: badger.DefaultIteratorOptions,
	}, nil
}
