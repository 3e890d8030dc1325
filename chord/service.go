package chord

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/router"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

// Service implements put and get on top of owner resolution.
type Service struct {
	id     ring.ID
	topo   *ring.Topology
	store  store.Store
	router *router.Router
	log    *logrus.Entry
}

func (s *Service) validKey(key int64) (ring.ID, error) {
	id, ok := s.topo.Valid(key)
	if !ok {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrKeyOutOfRange, key, s.topo.Size())
	}
	return id, nil
}

// Lookup resolves the owner of id and the peers asked on the way.
func (s *Service) Lookup(ctx context.Context, id ring.ID) (router.Route, error) {
	return s.router.Lookup(ctx, id)
}

// Put stores value under key on the node that owns key. Keys outside the
// identifier space fail before any peer is contacted.
func (s *Service) Put(ctx context.Context, key int64, value []byte) error {
	id, err := s.validKey(key)
	if err != nil {
		return err
	}
	owner, err := s.router.FindSuccessor(ctx, id)
	if err != nil {
		return err
	}

	if owner == s.id {
		return s.store.StoreItem(id, value)
	}

	peer, err := s.router.Dial(owner)
	if err != nil {
		return &router.RoutingError{Op: router.OpDial, Peer: owner, Target: id, Err: err}
	}
	ok, err := peer.StoreItem(ctx, id, value)
	if err != nil {
		return &router.RoutingError{Op: router.OpStoreItem, Peer: owner, Target: id, Err: err}
	}
	if !ok {
		return fmt.Errorf("%w: node %d key %d", ErrWriteRejected, owner, id)
	}
	s.log.WithFields(logrus.Fields{"key": id, "owner": owner}).Debug("put forwarded")
	return nil
}

// Get reads key from the node that owns it. Keys outside the identifier
// space are rejected like in Put.
func (s *Service) Get(ctx context.Context, key int64) (store.Item, error) {
	id, err := s.validKey(key)
	if err != nil {
		return store.Absent, err
	}
	owner, err := s.router.FindSuccessor(ctx, id)
	if err != nil {
		return store.Absent, err
	}

	if owner == s.id {
		return s.store.RetrieveItem(id)
	}

	peer, err := s.router.Dial(owner)
	if err != nil {
		return store.Absent, &router.RoutingError{Op: router.OpDial, Peer: owner, Target: id, Err: err}
	}
	item, err := peer.RetrieveItem(ctx, id)
	if err != nil {
		return store.Absent, &router.RoutingError{Op: router.OpRetrieveItem, Peer: owner, Target: id, Err: err}
	}
	return item, nil
}
