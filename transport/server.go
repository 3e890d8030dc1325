// Package transport carries the node operations over RESP. Peers and
// clients speak the same protocol, so redis-cli works against any node.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/redcon"
	"go.uber.org/atomic"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/router"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

var (
	ErrWrongNumArgs   = errors.New("ERR wrong number of arguments")
	ErrUnknownCommand = errors.New("ERR unknown command")
)

// Handler is the node behind a Server.
type Handler interface {
	router.RemoteNode

	Put(ctx context.Context, key int64, value []byte) error
	Get(ctx context.Context, key int64) (store.Item, error)
	Lookup(ctx context.Context, id ring.ID) (router.Route, error)

	ID() ring.ID
	Successor() ring.ID
	Fingers() router.FingerTable
	Topology() *ring.Topology
}

// Observer is notified about served commands and client connections.
type Observer interface {
	ObserveRequest(cmd string, err error)
	SetConnectedClients(n int64)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, error) {}
func (nopObserver) SetConnectedClients(int64)    {}

type command func(ctx context.Context, s *Server, args []string) (interface{}, error)

type quitClose struct{}

type Server struct {
	h    Handler
	srv  *redcon.Server
	cmds map[string]command
	obs  Observer
	log  *logrus.Entry

	clients   atomic.Int64
	processed atomic.Uint64
}

func NewServer(h Handler, addr string) *Server {
	s := &Server{
		h:    h,
		cmds: make(map[string]command),
		obs:  nopObserver{},
		log:  logrus.WithFields(logrus.Fields{"node": h.ID(), "addr": addr}),
	}
	s.addCommand("ping", cmdPING)
	s.addCommand("quit", cmdQUIT)
	s.addCommand("info", cmdINFO)
	s.addCommand("findsuccessor", cmdFINDSUCCESSOR)
	s.addCommand("nexthop", cmdNEXTHOP)
	s.addCommand("storeitem", cmdSTOREITEM)
	s.addCommand("retrieveitem", cmdRETRIEVEITEM)
	s.addCommand("put", cmdPUT)
	s.addCommand("get", cmdGET)
	s.addCommand("lookup", cmdLOOKUP)
	s.addCommand("fingers", cmdFINGERS)

	s.srv = redcon.NewServer(addr, s.serveRESP, s.opened, s.closed)
	s.srv.AcceptError = func(err error) {
		s.log.WithError(err).Warn("accept")
	}
	return s
}

// SetObserver must be called before serving.
func (s *Server) SetObserver(obs Observer) {
	if obs == nil {
		obs = nopObserver{}
	}
	s.obs = obs
}

func (s *Server) addCommand(name string, fn command) {
	s.cmds[strings.ToLower(name)] = fn
}

func (s *Server) ListenAndServe() error {
	s.log.Info("resp server listening")
	return s.srv.ListenAndServe()
}

// ListenServeAndSignal reports the listen result on signal before serving.
func (s *Server) ListenServeAndSignal(signal chan error) error {
	return s.srv.ListenServeAndSignal(signal)
}

func (s *Server) Serve(ln net.Listener) error {
	s.log.WithField("addr", ln.Addr().String()).Info("resp server listening")
	return s.srv.Serve(ln)
}

func (s *Server) Close() error {
	return s.srv.Close()
}

// ConnectedClients returns the number of open connections.
func (s *Server) ConnectedClients() int64 {
	return s.clients.Load()
}

func (s *Server) opened(conn redcon.Conn) bool {
	s.obs.SetConnectedClients(s.clients.Inc())
	return true
}

func (s *Server) closed(conn redcon.Conn, err error) {
	s.obs.SetConnectedClients(s.clients.Dec())
}

func commandToArgs(cmd redcon.Command) []string {
	args := make([]string, len(cmd.Args))
	args[0] = strings.ToLower(string(cmd.Args[0]))
	for i := 1; i < len(cmd.Args); i++ {
		args[i] = string(cmd.Args[i])
	}
	return args
}

func (s *Server) serveRESP(conn redcon.Conn, cmd redcon.Command) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("command panic: %v\n%s", r, debug.Stack())
			conn.WriteError("ERR internal error")
		}
	}()

	args := [][]string{commandToArgs(cmd)}
	for _, cmd := range conn.ReadPipeline() {
		args = append(args, commandToArgs(cmd))
	}

	for _, a := range args {
		resp, err := s.exec(a)
		s.processed.Inc()
		s.obs.ObserveRequest(a[0], err)
		if err != nil {
			conn.WriteError(errorReply(err))
			continue
		}
		if _, ok := resp.(quitClose); ok {
			conn.WriteString("OK")
			conn.Close()
			return
		}
		conn.WriteAny(resp)
	}
}

func (s *Server) exec(args []string) (interface{}, error) {
	fn, ok := s.cmds[args[0]]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownCommand, args[0])
	}
	return fn(context.Background(), s, args)
}
