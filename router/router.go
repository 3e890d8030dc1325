// Package router resolves the owner of a ring identifier using the local
// finger table and, when needed, a chain of peers.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
)

type Mode string

const (
	// ModeIterative keeps the lookup loop on the originating node.
	ModeIterative Mode = "iterative"
	// ModeRecursive hands the lookup to the next peer, which continues it.
	ModeRecursive Mode = "recursive"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeIterative, nil
	case ModeIterative, ModeRecursive:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

type Options struct {
	Self     ring.ID
	Topology *ring.Topology
	Dialer   Dialer
	Mode     Mode
	// MaxHops bounds the remote calls of one lookup. Zero means the
	// number of ring members.
	MaxHops  int
	Observer Observer
}

// Route is the result of a lookup. Path lists the peers that were asked,
// in order. In recursive mode only the first forward is known locally.
type Route struct {
	Owner ring.ID
	Path  []ring.ID
}

func (r Route) Hops() int {
	return len(r.Path)
}

type Router struct {
	self    ring.ID
	topo    *ring.Topology
	fingers FingerTable
	dialer  Dialer
	mode    Mode
	maxHops int
	obs     Observer
	log     *logrus.Entry
}

func New(opts Options) *Router {
	r := &Router{
		self:    opts.Self,
		topo:    opts.Topology,
		fingers: NewFingerTable(opts.Self, opts.Topology),
		dialer:  opts.Dialer,
		mode:    opts.Mode,
		maxHops: opts.MaxHops,
		obs:     opts.Observer,
		log:     logrus.WithField("node", opts.Self),
	}
	if r.mode == "" {
		r.mode = ModeIterative
	}
	if r.maxHops <= 0 {
		r.maxHops = opts.Topology.Len()
	}
	if r.obs == nil {
		r.obs = nopObserver{}
	}
	return r
}

func (r *Router) Self() ring.ID { return r.self }

func (r *Router) Mode() Mode { return r.mode }

func (r *Router) MaxHops() int { return r.maxHops }

func (r *Router) Successor() ring.ID { return r.fingers.Successor() }

// Fingers returns a copy of the finger table.
func (r *Router) Fingers() FingerTable {
	return append(FingerTable(nil), r.fingers...)
}

// Dial returns an observed handle on peer id.
func (r *Router) Dial(id ring.ID) (RemoteNode, error) {
	n, err := r.dialer.Dial(id)
	if err != nil {
		r.obs.ObserveRemoteCall(OpDial, err)
		return nil, err
	}
	return observedNode{RemoteNode: n, obs: r.obs}, nil
}

// ClosestPrecedingNode scans the fingers from the highest index down and
// returns the first one strictly between self and id. It returns self when
// none qualifies.
func (r *Router) ClosestPrecedingNode(id ring.ID) ring.ID {
	for i := len(r.fingers) - 1; i >= 0; i-- {
		if f := r.fingers[i]; ring.Between(f, r.self, id) {
			return f
		}
	}
	return r.self
}

// NextHop runs one routing step for id using only local state.
func (r *Router) NextHop(id ring.ID) Hop {
	if id == r.self {
		return Hop{Done: true, ID: r.self}
	}
	succ := r.fingers.Successor()
	if ring.BetweenRightIncl(id, r.self, succ) {
		return Hop{Done: true, ID: succ}
	}
	n := r.ClosestPrecedingNode(id)
	if n == r.self {
		return Hop{Done: true, ID: r.self}
	}
	return Hop{ID: n}
}

// FindSuccessor returns the node that owns id.
func (r *Router) FindSuccessor(ctx context.Context, id ring.ID) (ring.ID, error) {
	route, err := r.Lookup(ctx, id)
	return route.Owner, err
}

// Lookup resolves id in the configured mode.
func (r *Router) Lookup(ctx context.Context, id ring.ID) (route Route, err error) {
	defer func() {
		r.obs.ObserveLookup(route.Hops(), err)
	}()

	if r.mode == ModeRecursive {
		hop := r.NextHop(id)
		if hop.Done {
			return Route{Owner: hop.ID}, nil
		}
		owner, err := r.forward(ctx, id, hop.ID, 1)
		if err != nil {
			return Route{Path: []ring.ID{hop.ID}}, err
		}
		return Route{Owner: owner, Path: []ring.ID{hop.ID}}, nil
	}
	return r.iterate(ctx, id)
}

func (r *Router) iterate(ctx context.Context, id ring.ID) (Route, error) {
	var route Route
	hop := r.NextHop(id)
	for !hop.Done {
		if len(route.Path) >= r.maxHops {
			return route, fmt.Errorf("%w: %d hops resolving %d", ErrHopLimit, len(route.Path), id)
		}
		if err := ctx.Err(); err != nil {
			return route, err
		}

		peer := hop.ID
		route.Path = append(route.Path, peer)
		r.log.WithFields(logrus.Fields{
			"target": id,
			"peer":   peer,
			"hops":   len(route.Path),
		}).Debug("next hop")

		n, err := r.Dial(peer)
		if err != nil {
			return route, &RoutingError{Op: OpDial, Peer: peer, Target: id, Err: err}
		}
		hop, err = n.NextHop(ctx, id)
		if err != nil {
			return route, &RoutingError{Op: OpNextHop, Peer: peer, Target: id, Err: err}
		}
	}
	route.Owner = hop.ID
	return route, nil
}

// Resolve serves a recursive lookup that has already been forwarded hops
// times.
func (r *Router) Resolve(ctx context.Context, id ring.ID, hops int) (ring.ID, error) {
	hop := r.NextHop(id)
	if hop.Done {
		return hop.ID, nil
	}
	return r.forward(ctx, id, hop.ID, hops+1)
}

// forward hands id to peer as forward number hops.
func (r *Router) forward(ctx context.Context, id, peer ring.ID, hops int) (ring.ID, error) {
	if hops > r.maxHops {
		return 0, fmt.Errorf("%w: %d hops resolving %d", ErrHopLimit, hops-1, id)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.log.WithFields(logrus.Fields{
		"target": id,
		"peer":   peer,
		"hops":   hops,
	}).Debug("forward find successor")

	n, err := r.Dial(peer)
	if err != nil {
		return 0, &RoutingError{Op: OpDial, Peer: peer, Target: id, Err: err}
	}
	owner, err := n.FindSuccessor(ctx, id, hops)
	if err != nil {
		return 0, &RoutingError{Op: OpFindSuccessor, Peer: peer, Target: id, Err: err}
	}
	return owner, nil
}
