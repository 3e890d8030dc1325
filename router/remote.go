package router

import (
	"context"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

// RemoteNode is a handle on a peer, addressed by its ring id.
type RemoteNode interface {
	// FindSuccessor forwards a recursive lookup. hops counts the forwards
	// already made, including this one.
	FindSuccessor(ctx context.Context, id ring.ID, hops int) (ring.ID, error)
	// NextHop runs a single routing step on the peer.
	NextHop(ctx context.Context, id ring.ID) (Hop, error)
	StoreItem(ctx context.Context, key ring.ID, value []byte) (bool, error)
	RetrieveItem(ctx context.Context, key ring.ID) (store.Item, error)
}

type Dialer interface {
	Dial(id ring.ID) (RemoteNode, error)
}

// Hop is the outcome of one routing step. When Done is set ID owns the
// target, otherwise ID is the next peer to ask.
type Hop struct {
	Done bool
	ID   ring.ID
}

// Observer is notified about remote calls and finished lookups.
type Observer interface {
	ObserveRemoteCall(op string, err error)
	ObserveLookup(hops int, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRemoteCall(string, error) {}
func (nopObserver) ObserveLookup(int, error)        {}

const (
	OpFindSuccessor = "findsuccessor"
	OpNextHop       = "nexthop"
	OpStoreItem     = "storeitem"
	OpRetrieveItem  = "retrieveitem"
	OpDial          = "dial"
)

// observedNode reports every call on the wrapped node to an Observer.
type observedNode struct {
	RemoteNode
	obs Observer
}

func (n observedNode) FindSuccessor(ctx context.Context, id ring.ID, hops int) (ring.ID, error) {
	owner, err := n.RemoteNode.FindSuccessor(ctx, id, hops)
	n.obs.ObserveRemoteCall(OpFindSuccessor, err)
	return owner, err
}

func (n observedNode) NextHop(ctx context.Context, id ring.ID) (Hop, error) {
	hop, err := n.RemoteNode.NextHop(ctx, id)
	n.obs.ObserveRemoteCall(OpNextHop, err)
	return hop, err
}

func (n observedNode) StoreItem(ctx context.Context, key ring.ID, value []byte) (bool, error) {
	ok, err := n.RemoteNode.StoreItem(ctx, key, value)
	n.obs.ObserveRemoteCall(OpStoreItem, err)
	return ok, err
}

func (n observedNode) RetrieveItem(ctx context.Context, key ring.ID) (store.Item, error) {
	item, err := n.RemoteNode.RetrieveItem(ctx, key)
	n.obs.ObserveRemoteCall(OpRetrieveItem, err)
	return item, err
}
