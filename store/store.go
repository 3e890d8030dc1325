// Package store defines the local key/value mapping a Chord node keeps for
// the keys it owns, and a registry of storage engines that implement it.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
)

var (
	ErrUnknownDriver   = errors.New("store: unknown storage driver")
	ErrDuplicateDriver = errors.New("store: driver registered twice")
	ErrInvalidKey      = errors.New("store: invalid encoded key")
)

// Item is the outcome of a lookup. Found distinguishes an absent key from a
// stored empty value.
type Item struct {
	Value []byte
	Found bool
}

// Found builds a present Item.
func Found(value []byte) Item {
	return Item{Value: value, Found: true}
}

// Absent is the Item returned for keys that were never stored.
var Absent = Item{}

// Store is the local mapping from ring keys to opaque values.
// Implementations must be safe for concurrent use.
type Store interface {
	// StoreItem inserts or overwrites key.
	StoreItem(key ring.ID, value []byte) error
	// RetrieveItem returns the stored value or Absent.
	RetrieveItem(key ring.ID) (Item, error)
	// Iterate visits every stored pair. Order is engine specific.
	Iterate(fn func(key ring.ID, value []byte) error) error
	Close() error
}

// Config carries the engine options read from the node configuration.
type Config struct {
	DataDir      string
	HotCacheSize int64 // MB, hybriddb only
	OSS          OSSConfig
}

type OSSConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// Driver opens a Store.
type Driver interface {
	String() string
	Open(cfg Config) (Store, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics on duplicates, like
// database/sql and ledisdb drivers do.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	name := d.String()
	if _, ok := drivers[name]; ok {
		panic(fmt.Errorf("%w: %s", ErrDuplicateDriver, name))
	}
	drivers[name] = d
}

// Drivers lists registered driver names.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the named driver.
func Open(name string, cfg Config) (Store, error) {
	driversMu.RLock()
	d, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
	return d.Open(cfg)
}

// EncodeKey returns the 8 byte big-endian form of key so that byte-ordered
// engines iterate in ring order.
func EncodeKey(key ring.ID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(key))
	return b
}

// DecodeKey reverses EncodeKey.
func DecodeKey(b []byte) (ring.ID, error) {
	if len(b) != 8 {
		return 0, ErrInvalidKey
	}
	return ring.ID(binary.BigEndian.Uint64(b)), nil
}
