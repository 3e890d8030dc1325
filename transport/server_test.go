package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IceFireDB/IceFireDB-Chord/chord"
	"github.com/IceFireDB/IceFireDB-Chord/driver/memory"
	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/router"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

var testMembers = []ring.ID{2, 7, 11, 17, 22, 27}

type testRing struct {
	addrs   map[ring.ID]string
	servers map[ring.ID]*Server
	pool    *Pool
}

// startRing runs every member on a loopback listener.
func startRing(t *testing.T, mode router.Mode, maxHops int) *testRing {
	topo, err := ring.New(5, testMembers)
	require.NoError(t, err)

	tr := &testRing{
		addrs:   make(map[ring.ID]string),
		servers: make(map[ring.ID]*Server),
	}
	tr.pool = NewPool(Options{Addr: StaticAddrs(tr.addrs, nil), DialTimeout: time.Second})
	t.Cleanup(func() { tr.pool.Close() })

	listeners := make(map[ring.ID]net.Listener)
	for _, id := range testMembers {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		listeners[id] = ln
		tr.addrs[id] = ln.Addr().String()
	}

	for _, id := range testMembers {
		db, err := memory.NewDB()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		node, err := chord.New(chord.Options{
			ID:       id,
			Topology: topo,
			Store:    db,
			Dialer:   tr.pool,
			Mode:     mode,
			MaxHops:  maxHops,
		})
		require.NoError(t, err)

		srv := NewServer(node, tr.addrs[id])
		tr.servers[id] = srv
		ln := listeners[id]
		go srv.Serve(ln)
		t.Cleanup(func() { srv.Close() })
	}
	return tr
}

func (tr *testRing) client(t *testing.T, id ring.ID) *Client {
	c := NewClient(tr.addrs[id], Options{})
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGetOverRESP(t *testing.T) {
	ctx := context.Background()
	for _, mode := range []router.Mode{router.ModeIterative, router.ModeRecursive} {
		t.Run(string(mode), func(t *testing.T) {
			tr := startRing(t, mode, 0)

			require.NoError(t, tr.client(t, 2).Put(ctx, 25, []byte("x")))
			for _, id := range testMembers {
				item, err := tr.client(t, id).Get(ctx, 25)
				require.NoError(t, err)
				assert.Equal(t, store.Found([]byte("x")), item, "get from %d", id)
			}

			item, err := tr.client(t, 27).RetrieveItem(ctx, 25)
			require.NoError(t, err)
			assert.True(t, item.Found)
		})
	}
}

func TestPeerOperations(t *testing.T) {
	ctx := context.Background()
	tr := startRing(t, router.ModeIterative, 0)
	c := tr.client(t, 2)

	require.NoError(t, c.Ping(ctx))

	owner, err := c.FindSuccessor(ctx, 25, 0)
	require.NoError(t, err)
	assert.Equal(t, ring.ID(27), owner)

	hop, err := c.NextHop(ctx, 25)
	require.NoError(t, err)
	assert.Equal(t, router.Hop{ID: 22}, hop)

	hop, err = c.NextHop(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, router.Hop{Done: true, ID: 7}, hop)

	ok, err := c.StoreItem(ctx, 1, []byte{})
	require.NoError(t, err)
	assert.True(t, ok)

	item, err := c.RetrieveItem(ctx, 1)
	require.NoError(t, err)
	assert.True(t, item.Found)
	assert.Empty(t, item.Value)

	item, err = c.RetrieveItem(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, store.Absent, item)

	ft, err := c.Fingers(ctx)
	require.NoError(t, err)
	assert.Equal(t, router.FingerTable{7, 7, 7, 11, 22}, ft)

	route, err := c.Lookup(ctx, 25)
	require.NoError(t, err)
	assert.Equal(t, router.Route{Owner: 27, Path: []ring.ID{22}}, route)

	info, err := c.Info(ctx, "chord")
	require.NoError(t, err)
	assert.Contains(t, info, "node_id:2\r\n")
	assert.Contains(t, info, "fingers:7,7,7,11,22\r\n")
}

func TestErrorReplies(t *testing.T) {
	ctx := context.Background()
	tr := startRing(t, router.ModeIterative, 0)
	c := tr.client(t, 7)

	err := c.Put(ctx, 32, []byte("v"))
	assert.ErrorIs(t, err, chord.ErrKeyOutOfRange)

	_, err = c.Get(ctx, -1)
	assert.ErrorIs(t, err, chord.ErrKeyOutOfRange)

	_, err = c.FindSuccessor(ctx, 40, 0)
	assert.ErrorIs(t, err, chord.ErrKeyOutOfRange)

	err = c.rdb.Do(ctx, "NOSUCHCMD").Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR unknown command 'nosuchcmd'")

	err = c.rdb.Do(ctx, "GET").Err()
	assert.EqualError(t, err, ErrWrongNumArgs.Error())
}

func TestHopLimitOverRESP(t *testing.T) {
	ctx := context.Background()
	tr := startRing(t, router.ModeRecursive, 1)

	// 2 -> 11 -> 17 needs a second forward
	_, err := tr.client(t, 2).FindSuccessor(ctx, 20, 0)
	assert.ErrorIs(t, err, router.ErrHopLimit)

	owner, err := tr.client(t, 2).FindSuccessor(ctx, 25, 0)
	require.NoError(t, err)
	assert.Equal(t, ring.ID(27), owner)
}

func TestUnreachableOwner(t *testing.T) {
	ctx := context.Background()
	tr := startRing(t, router.ModeIterative, 0)
	require.NoError(t, tr.client(t, 27).Ping(ctx))
	require.NoError(t, tr.servers[27].Close())

	err := tr.client(t, 2).Put(ctx, 25, []byte("x"))
	assert.ErrorIs(t, err, ErrRemote)

	// keys owned by live nodes still work
	require.NoError(t, tr.client(t, 2).Put(ctx, 5, []byte("y")))
}

func TestConnectedClients(t *testing.T) {
	ctx := context.Background()
	tr := startRing(t, router.ModeIterative, 0)

	c := tr.client(t, 11)
	require.NoError(t, c.Ping(ctx))
	assert.Eventually(t, func() bool {
		return tr.servers[11].ConnectedClients() >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestQuit(t *testing.T) {
	ctx := context.Background()
	tr := startRing(t, router.ModeIterative, 0)

	rdb := redis.NewClient(&redis.Options{Addr: tr.addrs[2], Protocol: 2, DisableIdentity: true})
	defer rdb.Close()

	assert.Equal(t, "PONG", rdb.Ping(ctx).Val())
	assert.Equal(t, "hello", rdb.Do(ctx, "PING", "hello").Val())
	assert.NoError(t, rdb.Do(ctx, "QUIT").Err())
}

func TestAddrTemplate(t *testing.T) {
	f := AddrTemplate("node_%d:1234")
	assert.Equal(t, "node_7:1234", f(7))

	s := StaticAddrs(map[ring.ID]string{2: "10.0.0.2:1234"}, f)
	assert.Equal(t, "10.0.0.2:1234", s(2))
	assert.Equal(t, "node_11:1234", s(11))

	_, err := NewPool(Options{Addr: StaticAddrs(nil, nil)}).Dial(3)
	assert.ErrorIs(t, err, ErrNoAddress)
}
