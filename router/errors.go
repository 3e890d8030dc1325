package router

import (
	"errors"
	"fmt"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
)

var (
	ErrHopLimit    = errors.New("router: hop limit exceeded")
	ErrInvalidMode = errors.New("router: invalid routing mode")
)

// RoutingError reports a failed call to a peer while serving a request.
// It is never used for absent keys.
type RoutingError struct {
	Op     string
	Peer   ring.ID
	Target ring.ID
	Err    error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("router: %s on node %d for %d: %v", e.Op, e.Peer, e.Target, e.Err)
}

func (e *RoutingError) Unwrap() error {
	return e.Err
}
