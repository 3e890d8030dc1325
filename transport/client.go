package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/router"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

const (
	defaultDialTimeout  = 2 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	defaultPoolSize     = 8
)

type Options struct {
	Addr         AddrFunc
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

func (o Options) redisOptions(addr string) *redis.Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PoolSize <= 0 {
		o.PoolSize = defaultPoolSize
	}
	return &redis.Options{
		Addr:            addr,
		Protocol:        2,
		DisableIdentity: true,
		DialTimeout:     o.DialTimeout,
		ReadTimeout:     o.ReadTimeout,
		WriteTimeout:    o.WriteTimeout,
		PoolSize:        o.PoolSize,
		// lookups fail fast; callers decide about retries
		MaxRetries: -1,
	}
}

var _ router.RemoteNode = (*Client)(nil)

// Client talks to a single node.
type Client struct {
	addr string
	rdb  *redis.Client
}

func NewClient(addr string, opts Options) *Client {
	return &Client{addr: addr, rdb: redis.NewClient(opts.redisOptions(addr))}
}

func (c *Client) Addr() string { return c.addr }

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return replyError(c.rdb.Ping(ctx).Err())
}

func (c *Client) FindSuccessor(ctx context.Context, id ring.ID, hops int) (ring.ID, error) {
	v, err := c.rdb.Do(ctx, "FINDSUCCESSOR", uint64(id), hops).Uint64()
	if err != nil {
		return 0, replyError(err)
	}
	return ring.ID(v), nil
}

func (c *Client) NextHop(ctx context.Context, id ring.ID) (router.Hop, error) {
	vals, err := c.rdb.Do(ctx, "NEXTHOP", uint64(id)).Uint64Slice()
	if err != nil {
		return router.Hop{}, replyError(err)
	}
	if len(vals) != 2 {
		return router.Hop{}, fmt.Errorf("%w: NEXTHOP returned %d values", ErrBadReply, len(vals))
	}
	return router.Hop{Done: vals[0] == 1, ID: ring.ID(vals[1])}, nil
}

func (c *Client) StoreItem(ctx context.Context, key ring.ID, value []byte) (bool, error) {
	v, err := c.rdb.Do(ctx, "STOREITEM", uint64(key), value).Int64()
	if err != nil {
		return false, replyError(err)
	}
	return v == 1, nil
}

func (c *Client) RetrieveItem(ctx context.Context, key ring.ID) (store.Item, error) {
	return c.item(c.rdb.Do(ctx, "RETRIEVEITEM", uint64(key)))
}

// Put stores value under key through the node's put service.
func (c *Client) Put(ctx context.Context, key int64, value []byte) error {
	return replyError(c.rdb.Do(ctx, "PUT", key, value).Err())
}

func (c *Client) Get(ctx context.Context, key int64) (store.Item, error) {
	return c.item(c.rdb.Do(ctx, "GET", key))
}

func (c *Client) Lookup(ctx context.Context, id ring.ID) (router.Route, error) {
	vals, err := c.rdb.Do(ctx, "LOOKUP", uint64(id)).Uint64Slice()
	if err != nil {
		return router.Route{}, replyError(err)
	}
	if len(vals) == 0 {
		return router.Route{}, fmt.Errorf("%w: empty LOOKUP reply", ErrBadReply)
	}
	route := router.Route{Owner: ring.ID(vals[0])}
	for _, v := range vals[1:] {
		route.Path = append(route.Path, ring.ID(v))
	}
	return route, nil
}

func (c *Client) Fingers(ctx context.Context) (router.FingerTable, error) {
	vals, err := c.rdb.Do(ctx, "FINGERS").Uint64Slice()
	if err != nil {
		return nil, replyError(err)
	}
	ft := make(router.FingerTable, len(vals))
	for i, v := range vals {
		ft[i] = ring.ID(v)
	}
	return ft, nil
}

func (c *Client) Info(ctx context.Context, section string) (string, error) {
	args := []interface{}{"INFO"}
	if section != "" {
		args = append(args, section)
	}
	s, err := c.rdb.Do(ctx, args...).Text()
	return s, replyError(err)
}

func (c *Client) item(cmd *redis.Cmd) (store.Item, error) {
	s, err := cmd.Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.Absent, nil
		}
		return store.Absent, replyError(err)
	}
	return store.Found([]byte(s)), nil
}

var _ router.Dialer = (*Pool)(nil)

// Pool keeps one Client per peer.
type Pool struct {
	opts Options

	mu      sync.Mutex
	clients map[ring.ID]*Client
}

func NewPool(opts Options) *Pool {
	return &Pool{opts: opts, clients: make(map[ring.ID]*Client)}
}

func (p *Pool) Dial(id ring.ID) (router.RemoteNode, error) {
	return p.Client(id)
}

// Client returns the cached client for id, creating it on first use.
func (p *Pool) Client(id ring.ID) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[id]; ok {
		return c, nil
	}
	addr := ""
	if p.opts.Addr != nil {
		addr = p.opts.Addr(id)
	}
	if addr == "" {
		return nil, fmt.Errorf("%w %d", ErrNoAddress, id)
	}
	c := NewClient(addr, p.opts)
	p.clients[id] = c
	return c, nil
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for id, c := range p.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.clients, id)
	}
	return errors.Join(errs...)
}
