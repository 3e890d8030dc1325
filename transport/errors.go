package transport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/IceFireDB/IceFireDB-Chord/chord"
	"github.com/IceFireDB/IceFireDB-Chord/router"
)

// Error reply prefixes. The client maps them back to the sentinel errors.
const (
	prefixHopLimit = "HOPLIMIT"
	prefixKeyRange = "KEYRANGE"
	prefixRouting  = "ROUTING"
	prefixErr      = "ERR"
)

var (
	ErrRemote    = errors.New("transport: remote routing failure")
	ErrBadReply  = errors.New("transport: unexpected reply")
	ErrNoAddress = errors.New("transport: no address for node")
)

func errorReply(err error) string {
	var rerr *router.RoutingError
	switch {
	case errors.Is(err, router.ErrHopLimit):
		return prefixHopLimit + " " + err.Error()
	case errors.Is(err, chord.ErrKeyOutOfRange):
		return prefixKeyRange + " " + err.Error()
	case errors.As(err, &rerr):
		return prefixRouting + " " + err.Error()
	}
	msg := err.Error()
	if strings.HasPrefix(msg, prefixErr+" ") {
		return msg
	}
	return prefixErr + " " + msg
}

// replyError turns an error reply from a peer back into a typed error.
func replyError(err error) error {
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		return err
	}
	msg := rerr.Error()
	switch {
	case strings.HasPrefix(msg, prefixHopLimit+" "):
		return fmt.Errorf("%w: %s", router.ErrHopLimit, strings.TrimPrefix(msg, prefixHopLimit+" "))
	case strings.HasPrefix(msg, prefixKeyRange+" "):
		return fmt.Errorf("%w: %s", chord.ErrKeyOutOfRange, strings.TrimPrefix(msg, prefixKeyRange+" "))
	case strings.HasPrefix(msg, prefixRouting+" "):
		return fmt.Errorf("%w: %s", ErrRemote, strings.TrimPrefix(msg, prefixRouting+" "))
	}
	return err
}
