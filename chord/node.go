// Package chord wires a ring member together: its router, its local store
// and the put/get service clients talk to.
package chord

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/router"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

var (
	ErrNotMember       = errors.New("chord: node id is not a ring member")
	ErrKeyOutOfRange   = errors.New("chord: key outside identifier space")
	ErrWriteRejected   = errors.New("chord: owner rejected write")
	ErrMissingStore    = errors.New("chord: store is required")
	ErrMissingDialer   = errors.New("chord: dialer is required")
	ErrMissingTopology = errors.New("chord: topology is required")
)

type Options struct {
	ID       ring.ID
	Topology *ring.Topology
	Store    store.Store
	Dialer   router.Dialer
	Mode     router.Mode
	MaxHops  int
	Observer router.Observer
}

// Node is one ring member. It serves the inbound peer operations and,
// through the embedded Service, put and get.
type Node struct {
	*Service
}

func New(opts Options) (*Node, error) {
	switch {
	case opts.Topology == nil:
		return nil, ErrMissingTopology
	case opts.Store == nil:
		return nil, ErrMissingStore
	case opts.Dialer == nil:
		return nil, ErrMissingDialer
	case !opts.Topology.Contains(opts.ID):
		return nil, fmt.Errorf("%w: %d not in %s", ErrNotMember, opts.ID, opts.Topology)
	}

	r := router.New(router.Options{
		Self:     opts.ID,
		Topology: opts.Topology,
		Dialer:   opts.Dialer,
		Mode:     opts.Mode,
		MaxHops:  opts.MaxHops,
		Observer: opts.Observer,
	})
	n := &Node{Service: &Service{
		id:     opts.ID,
		topo:   opts.Topology,
		store:  opts.Store,
		router: r,
		log:    logrus.WithField("node", opts.ID),
	}}

	n.log.WithFields(logrus.Fields{
		"ring":       opts.Topology.String(),
		"successor":  r.Successor(),
		"fingers":    r.Fingers(),
		"route_mode": r.Mode(),
		"max_hops":   r.MaxHops(),
	}).Info("node created")
	return n, nil
}

func (n *Node) ID() ring.ID { return n.id }

func (n *Node) Topology() *ring.Topology { return n.topo }

func (n *Node) Successor() ring.ID { return n.router.Successor() }

func (n *Node) Fingers() router.FingerTable { return n.router.Fingers() }

func (n *Node) Router() *router.Router { return n.router }

func (n *Node) Store() store.Store { return n.store }

// FindSuccessor serves a recursive lookup forwarded by a peer.
func (n *Node) FindSuccessor(ctx context.Context, id ring.ID, hops int) (ring.ID, error) {
	return n.router.Resolve(ctx, id, hops)
}

// NextHop serves one step of an iterative lookup.
func (n *Node) NextHop(_ context.Context, id ring.ID) (router.Hop, error) {
	return n.router.NextHop(id), nil
}

// StoreItem writes to the local store unconditionally.
func (n *Node) StoreItem(_ context.Context, key ring.ID, value []byte) (bool, error) {
	if err := n.store.StoreItem(key, value); err != nil {
		return false, err
	}
	return true, nil
}

// RetrieveItem reads from the local store.
func (n *Node) RetrieveItem(_ context.Context, key ring.ID) (store.Item, error) {
	return n.store.RetrieveItem(key)
}
