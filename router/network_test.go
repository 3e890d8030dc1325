package router

import (
	"context"
	"errors"
	"sync"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

var errPeerDown = errors.New("peer down")

// fakeNet is an in-process network of routers. It counts every remote
// call so tests can check hop bounds.
type fakeNet struct {
	mu      sync.Mutex
	routers map[ring.ID]*Router
	down    map[ring.ID]bool
	calls   int
}

func newFakeNet(t *ring.Topology, mode Mode, maxHops int) *fakeNet {
	n := &fakeNet{
		routers: make(map[ring.ID]*Router),
		down:    make(map[ring.ID]bool),
	}
	for _, id := range t.Members() {
		n.routers[id] = New(Options{
			Self:     id,
			Topology: t,
			Dialer:   n,
			Mode:     mode,
			MaxHops:  maxHops,
		})
	}
	return n
}

func (n *fakeNet) Dial(id ring.ID) (RemoteNode, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.routers[id]; !ok || n.down[id] {
		return nil, errPeerDown
	}
	return fakeRemote{net: n, id: id}, nil
}

func (n *fakeNet) count() {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
}

func (n *fakeNet) resetCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := n.calls
	n.calls = 0
	return c
}

type fakeRemote struct {
	net *fakeNet
	id  ring.ID
}

func (f fakeRemote) FindSuccessor(ctx context.Context, id ring.ID, hops int) (ring.ID, error) {
	f.net.count()
	return f.net.routers[f.id].Resolve(ctx, id, hops)
}

func (f fakeRemote) NextHop(_ context.Context, id ring.ID) (Hop, error) {
	f.net.count()
	return f.net.routers[f.id].NextHop(id), nil
}

func (f fakeRemote) StoreItem(context.Context, ring.ID, []byte) (bool, error) {
	return false, errors.New("not supported")
}

func (f fakeRemote) RetrieveItem(context.Context, ring.ID) (store.Item, error) {
	return store.Absent, errors.New("not supported")
}

// loopDialer returns peers that never finish a lookup.
type loopDialer struct{}

func (loopDialer) Dial(id ring.ID) (RemoteNode, error) {
	return loopRemote{}, nil
}

type loopRemote struct{ fakeRemote }

func (loopRemote) NextHop(context.Context, ring.ID) (Hop, error) {
	return Hop{ID: 7}, nil
}

type countingObserver struct {
	mu      sync.Mutex
	remote  map[string]int
	lookups []int
}

func (o *countingObserver) ObserveRemoteCall(op string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.remote == nil {
		o.remote = make(map[string]int)
	}
	o.remote[op]++
}

func (o *countingObserver) ObserveLookup(hops int, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lookups = append(o.lookups, hops)
}
