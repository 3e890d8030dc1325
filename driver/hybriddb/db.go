package hybriddb

import (
	"path/filepath"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Chord/driver/goleveldb"
	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

const (
	StorageName                = "hybriddb"
	MB                         = 1024 * 1024
	defaultHotCacheSize        = 1024 // unit:MB 1G
	defaultHotCacheNumCounters = 1e7
	lockStripes                = 64
)

func init() {
	store.Register(Store{})
}

type Store struct{}

func (s Store) String() string {
	return StorageName
}

func (s Store) Open(cfg store.Config) (store.Store, error) {
	return Open(filepath.Join(cfg.DataDir, StorageName), cfg.HotCacheSize)
}

var _ store.Store = (*DB)(nil)

// DB keeps every item in leveldb (cold tier) and the recently used ones in
// a ristretto cache (hot tier). Writes go through both tiers.
type DB struct {
	cold  *goleveldb.DB
	cache *ristretto.Cache[uint64, []byte]

	// serializes cold access and cache fills per key stripe
	locks [lockStripes]sync.Mutex
}

// Open opens the cold tier at path with a hot tier of hotCacheSize MB.
func Open(path string, hotCacheSize int64) (*DB, error) {
	if hotCacheSize <= 0 {
		hotCacheSize = defaultHotCacheSize
	}

	cold, err := goleveldb.Open(path)
	if err != nil {
		return nil, err
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
		MaxCost:     hotCacheSize * MB,
		NumCounters: defaultHotCacheNumCounters,
		BufferItems: 64,
		Metrics:     true,
		Cost: func(value []byte) int64 {
			return int64(len(value))
		},
	})
	if err != nil {
		cold.Close()
		return nil, err
	}

	return &DB{cold: cold, cache: cache}, nil
}

func (db *DB) Close() error {
	db.cache.Close()
	return db.cold.Close()
}

func (db *DB) lock(key ring.ID) *sync.Mutex {
	return &db.locks[uint64(key)%lockStripes]
}

func (db *DB) StoreItem(key ring.ID, value []byte) error {
	mu := db.lock(key)
	mu.Lock()
	defer mu.Unlock()

	if err := db.cold.StoreItem(key, value); err != nil {
		return err
	}
	// Del is applied in order with pending fills, a dropped Set only costs a miss.
	db.cache.Del(uint64(key))
	db.cache.Set(uint64(key), clone(value), int64(len(value)))
	return nil
}

func (db *DB) RetrieveItem(key ring.ID) (store.Item, error) {
	if v, ok := db.cache.Get(uint64(key)); ok {
		return store.Found(clone(v)), nil
	}

	mu := db.lock(key)
	mu.Lock()
	defer mu.Unlock()

	item, err := db.cold.RetrieveItem(key)
	if err != nil || !item.Found {
		return item, err
	}
	db.cache.Set(uint64(key), clone(item.Value), int64(len(item.Value)))
	return item, nil
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// Iterate walks the cold tier, which always holds every item.
func (db *DB) Iterate(fn func(key ring.ID, value []byte) error) error {
	return db.cold.Iterate(fn)
}

// Wait blocks until buffered cache writes are applied.
func (db *DB) Wait() {
	db.cache.Wait()
}

// LogMetrics logs the hot tier hit ratio.
func (db *DB) LogMetrics() {
	m := db.cache.Metrics
	if m == nil {
		return
	}
	logrus.WithFields(logrus.Fields{
		"hits":   m.Hits(),
		"misses": m.Misses(),
		"ratio":  m.Ratio(),
	}).Info("hybriddb hot tier")
}
