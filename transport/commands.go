package transport

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
	"github.com/tidwall/redcon"

	"github.com/IceFireDB/IceFireDB-Chord/chord"
	"github.com/IceFireDB/IceFireDB-Chord/ring"
)

// parseID reads an identifier and checks it against the ring size.
func (s *Server) parseID(arg string) (ring.ID, error) {
	v, err := cast.ToUint64E(arg)
	if err != nil {
		return 0, err
	}
	if size := s.h.Topology().Size(); v >= size {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", chord.ErrKeyOutOfRange, v, size)
	}
	return ring.ID(v), nil
}

func idsReply(ids []ring.ID) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = redcon.SimpleInt(id)
	}
	return out
}

func cmdPING(_ context.Context, _ *Server, args []string) (interface{}, error) {
	switch len(args) {
	case 1:
		return redcon.SimpleString("PONG"), nil
	case 2:
		return args[1], nil
	default:
		return nil, ErrWrongNumArgs
	}
}

func cmdQUIT(_ context.Context, _ *Server, _ []string) (interface{}, error) {
	return quitClose{}, nil
}

func cmdINFO(_ context.Context, s *Server, args []string) (interface{}, error) {
	section := ""
	if len(args) > 1 {
		section = args[1]
	}
	return s.dumpInfo(section), nil
}

// cmdFINDSUCCESSOR id [hops]
func cmdFINDSUCCESSOR(ctx context.Context, s *Server, args []string) (interface{}, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, ErrWrongNumArgs
	}
	id, err := s.parseID(args[1])
	if err != nil {
		return nil, err
	}
	hops := 0
	if len(args) == 3 {
		if hops, err = cast.ToIntE(args[2]); err != nil {
			return nil, err
		}
	}
	owner, err := s.h.FindSuccessor(ctx, id, hops)
	if err != nil {
		return nil, err
	}
	return redcon.SimpleInt(owner), nil
}

// cmdNEXTHOP id -> [done, id]
func cmdNEXTHOP(ctx context.Context, s *Server, args []string) (interface{}, error) {
	if len(args) != 2 {
		return nil, ErrWrongNumArgs
	}
	id, err := s.parseID(args[1])
	if err != nil {
		return nil, err
	}
	hop, err := s.h.NextHop(ctx, id)
	if err != nil {
		return nil, err
	}
	done := 0
	if hop.Done {
		done = 1
	}
	return []interface{}{redcon.SimpleInt(done), redcon.SimpleInt(hop.ID)}, nil
}

func cmdSTOREITEM(ctx context.Context, s *Server, args []string) (interface{}, error) {
	if len(args) != 3 {
		return nil, ErrWrongNumArgs
	}
	key, err := s.parseID(args[1])
	if err != nil {
		return nil, err
	}
	ok, err := s.h.StoreItem(ctx, key, []byte(args[2]))
	if err != nil {
		return nil, err
	}
	if ok {
		return redcon.SimpleInt(1), nil
	}
	return redcon.SimpleInt(0), nil
}

func cmdRETRIEVEITEM(ctx context.Context, s *Server, args []string) (interface{}, error) {
	if len(args) != 2 {
		return nil, ErrWrongNumArgs
	}
	key, err := s.parseID(args[1])
	if err != nil {
		return nil, err
	}
	item, err := s.h.RetrieveItem(ctx, key)
	if err != nil {
		return nil, err
	}
	if !item.Found {
		return nil, nil
	}
	return item.Value, nil
}

func cmdPUT(ctx context.Context, s *Server, args []string) (interface{}, error) {
	if len(args) != 3 {
		return nil, ErrWrongNumArgs
	}
	key, err := cast.ToInt64E(args[1])
	if err != nil {
		return nil, err
	}
	if err := s.h.Put(ctx, key, []byte(args[2])); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func cmdGET(ctx context.Context, s *Server, args []string) (interface{}, error) {
	if len(args) != 2 {
		return nil, ErrWrongNumArgs
	}
	key, err := cast.ToInt64E(args[1])
	if err != nil {
		return nil, err
	}
	item, err := s.h.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !item.Found {
		return nil, nil
	}
	return item.Value, nil
}

// cmdLOOKUP id -> [owner, peer...]
func cmdLOOKUP(ctx context.Context, s *Server, args []string) (interface{}, error) {
	if len(args) != 2 {
		return nil, ErrWrongNumArgs
	}
	id, err := s.parseID(args[1])
	if err != nil {
		return nil, err
	}
	route, err := s.h.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return idsReply(append([]ring.ID{route.Owner}, route.Path...)), nil
}

func cmdFINGERS(_ context.Context, s *Server, args []string) (interface{}, error) {
	if len(args) != 1 {
		return nil, ErrWrongNumArgs
	}
	return idsReply(s.h.Fingers()), nil
}
