package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IceFireDB/IceFireDB-Chord/chord"
	"github.com/IceFireDB/IceFireDB-Chord/driver/memory"
	"github.com/IceFireDB/IceFireDB-Chord/pkg/config"
	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/transport"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "node.sds")

	src, err := memory.NewDB()
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.StoreItem(25, []byte("x")))
	require.NoError(t, src.StoreItem(3, []byte{}))

	n, err := persistSnapshot(path, src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst, err := memory.NewDB()
	require.NoError(t, err)
	defer dst.Close()

	n, err = restoreSnapshot(path, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	item, err := dst.RetrieveItem(3)
	require.NoError(t, err)
	assert.True(t, item.Found)

	matches, err := filepath.Glob(path + ".tmp-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRestoreSnapshotMissingFile(t *testing.T) {
	db, err := memory.NewDB()
	require.NoError(t, err)
	defer db.Close()

	n, err := restoreSnapshot(filepath.Join(t.TempDir(), "absent.sds"), db)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPeerAddrs(t *testing.T) {
	addr, err := peerAddrs(config.PeerS{
		AddrTemplate: "node_%d:1234",
		Addrs:        map[string]string{"7": "10.0.0.7:6000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7:6000", addr(7))
	assert.Equal(t, "node_11:1234", addr(11))

	_, err = peerAddrs(config.PeerS{Addrs: map[string]string{"seven": "x"}})
	assert.Error(t, err)
}

func TestMemberIDs(t *testing.T) {
	assert.Equal(t, []ring.ID{2, 7}, memberIDs([]uint64{2, 7}))
}

func TestWaitForSuccessor(t *testing.T) {
	topo, err := ring.New(5, []ring.ID{2, 7})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addrs := map[ring.ID]string{7: ln.Addr().String()}
	pool := transport.NewPool(transport.Options{Addr: transport.StaticAddrs(addrs, nil), DialTimeout: time.Second})
	defer pool.Close()

	db, err := memory.NewDB()
	require.NoError(t, err)
	defer db.Close()
	node, err := chord.New(chord.Options{ID: 7, Topology: topo, Store: db, Dialer: pool})
	require.NoError(t, err)

	srv := transport.NewServer(node, addrs[7])
	go srv.Serve(ln)
	defer srv.Close()

	require.NoError(t, waitForSuccessor(context.Background(), pool, 2, 7, 5*time.Second))
}

func TestWaitForSuccessorGivesUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	pool := transport.NewPool(transport.Options{
		Addr:        transport.StaticAddrs(map[ring.ID]string{7: addr}, nil),
		DialTimeout: 100 * time.Millisecond,
	})
	defer pool.Close()

	start := time.Now()
	err = waitForSuccessor(context.Background(), pool, 2, 7, 300*time.Millisecond)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitForSuccessorSelf(t *testing.T) {
	assert.NoError(t, waitForSuccessor(context.Background(), nil, 2, 2, time.Second))
}

func TestSetupLogger(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	require.NoError(t, setupLogger(config.LogS{Level: "debug", Format: "json"}))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	assert.Error(t, setupLogger(config.LogS{Level: "loud", Format: "text"}))
}

func TestNewApp(t *testing.T) {
	app := newApp()

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"put", "get", "lookup", "info"}, names)
	assert.NotNil(t, app.Before)
}

func TestBootstrapFailureClosesServer(t *testing.T) {
	topo, err := ring.New(5, []ring.ID{2, 7})
	require.NoError(t, err)

	down, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	downAddr := down.Addr().String()
	require.NoError(t, down.Close())

	pool := transport.NewPool(transport.Options{
		Addr:        transport.StaticAddrs(map[ring.ID]string{7: downAddr}, nil),
		DialTimeout: 100 * time.Millisecond,
	})
	defer pool.Close()

	db, err := memory.NewDB()
	require.NoError(t, err)
	defer db.Close()
	node, err := chord.New(chord.Options{ID: 2, Topology: topo, Store: db, Dialer: pool})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	srv := transport.NewServer(node, addr)
	go srv.Serve(ln)

	c := transport.NewClient(addr, transport.Options{})
	defer c.Close()
	require.NoError(t, c.Ping(context.Background()))

	n := &nodeRuntime{pool: pool, node: node, server: srv}
	err = n.bootstrap(context.Background(), config.BootstrapS{WaitForSuccessor: true, MaxWait: 300})
	require.Error(t, err)

	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err)
}

func TestBootstrapDisabled(t *testing.T) {
	n := &nodeRuntime{}
	assert.NoError(t, n.bootstrap(context.Background(), config.BootstrapS{}))
}
