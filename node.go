package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/urfave/cli"

	"github.com/IceFireDB/IceFireDB-Chord/chord"
	"github.com/IceFireDB/IceFireDB-Chord/driver/hybriddb"
	"github.com/IceFireDB/IceFireDB-Chord/pkg/config"
	"github.com/IceFireDB/IceFireDB-Chord/pkg/monitor"
	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/router"
	"github.com/IceFireDB/IceFireDB-Chord/store"
	"github.com/IceFireDB/IceFireDB-Chord/transport"
	"github.com/IceFireDB/IceFireDB-Chord/utils"
)

func start(c *cli.Context) error {
	printBanner()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n, err := newNodeRuntime(config.Get())
	if err != nil {
		return err
	}
	defer n.shutdown()

	wg := sync.WaitGroup{}
	if err := n.serve(&wg); err != nil {
		return err
	}
	logrus.Infof("node %d listening on %s", n.node.ID(), config.Get().Node.Listen)

	if err := n.bootstrap(ctx, config.Get().Bootstrap); err != nil {
		return err
	}

	// Listening to the offline
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	for sig := range sigs {
		switch sig {
		case syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT:
			logrus.Info("Received shutdown signal, initiating graceful shutdown...")
			cancel()
			_ = n.server.Close()

			ok := make(chan struct{})
			go func() {
				wg.Wait()
				close(ok)
			}()
			select {
			case <-ok:
				logrus.Info("resp server stopped")
			case <-time.After(5 * time.Second):
				logrus.Warn("Context deadline exceeded, forcing shutdown.")
			}
			return nil
		case syscall.SIGHUP:
			logrus.Info("Received SIGHUP signal, the ring is static and nothing is reloaded.")
		}
	}
	return nil
}

// nodeRuntime owns everything a running node opened.
type nodeRuntime struct {
	cfg     *config.Config
	db      store.Store
	pool    *transport.Pool
	node    *chord.Node
	server  *transport.Server
	metrics interface{ Close() error }
}

func newNodeRuntime(cfg *config.Config) (*nodeRuntime, error) {
	topo, err := ring.New(cfg.Ring.Bits, memberIDs(cfg.Ring.Members))
	if err != nil {
		return nil, err
	}
	mode, err := router.ParseMode(cfg.Routing.Mode)
	if err != nil {
		return nil, err
	}
	addr, err := peerAddrs(cfg.Peer)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.Storage.Backend, cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	n := &nodeRuntime{cfg: cfg, db: db}

	if cfg.Storage.SnapshotPath != "" {
		restored, err := restoreSnapshot(cfg.Storage.SnapshotPath, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		logrus.Infof("restored %d items from %s", restored, cfg.Storage.SnapshotPath)
	}

	n.pool = transport.NewPool(transport.Options{
		Addr:         addr,
		DialTimeout:  time.Duration(cfg.Peer.ConnTimeout) * time.Millisecond,
		ReadTimeout:  time.Duration(cfg.Peer.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Peer.WriteTimeout) * time.Millisecond,
		PoolSize:     cfg.Peer.PoolSize,
	})

	var mon *monitor.Monitor
	if cfg.Monitor.Enable {
		reg := monitor.NewRegistry()
		mon = monitor.New(reg, utils.GetHostname())
		n.metrics = monitor.Serve(cfg.Monitor.Address, reg)
	}

	opts := chord.Options{
		ID:       ring.ID(cfg.Node.ID),
		Topology: topo,
		Store:    db,
		Dialer:   n.pool,
		Mode:     mode,
		MaxHops:  cfg.Routing.MaxHops,
	}
	if mon != nil {
		opts.Observer = mon
	}
	n.node, err = chord.New(opts)
	if err != nil {
		n.shutdown()
		return nil, err
	}

	n.server = transport.NewServer(n.node, cfg.Node.Listen)
	if mon != nil {
		n.server.SetObserver(mon)
	}
	return n, nil
}

// serve starts the resp server and returns once the listener is bound.
func (n *nodeRuntime) serve(wg *sync.WaitGroup) error {
	errSignal := make(chan error, 1)
	wg.Add(1)
	utils.GoWithRecover(func() {
		defer wg.Done()
		if err := n.server.ListenServeAndSignal(errSignal); err != nil {
			logrus.Errorf("resp server stopped: %v", err)
		}
	}, nil)
	return <-errSignal
}

// bootstrap waits for the successor when configured. The server is closed
// on failure so nothing is accepted while the snapshot is written.
func (n *nodeRuntime) bootstrap(ctx context.Context, c config.BootstrapS) error {
	if !c.WaitForSuccessor {
		return nil
	}
	maxWait := time.Duration(c.MaxWait) * time.Millisecond
	if err := waitForSuccessor(ctx, n.pool, n.node.ID(), n.node.Successor(), maxWait); err != nil {
		if cerr := n.server.Close(); cerr != nil {
			logrus.Errorf("close resp server: %v", cerr)
		}
		return err
	}
	return nil
}

// shutdown persists the snapshot and releases resources. Safe on a
// partially built runtime.
func (n *nodeRuntime) shutdown() {
	if n.metrics != nil {
		_ = n.metrics.Close()
	}
	if n.pool != nil {
		_ = n.pool.Close()
	}
	if n.db == nil {
		return
	}
	if h, ok := n.db.(*hybriddb.DB); ok {
		h.LogMetrics()
	}
	if path := n.cfg.Storage.SnapshotPath; path != "" && n.node != nil {
		count, err := persistSnapshot(path, n.db)
		if err != nil {
			logrus.Errorf("persist snapshot %s: %v", path, err)
		} else {
			logrus.Infof("persisted %d items to %s", count, path)
		}
	}
	if err := n.db.Close(); err != nil {
		logrus.Errorf("close store: %v", err)
	}
	n.db = nil
}

func memberIDs(members []uint64) []ring.ID {
	ids := make([]ring.ID, len(members))
	for i, m := range members {
		ids[i] = ring.ID(m)
	}
	return ids
}

// peerAddrs builds the id -> address mapping from explicit entries and the
// template.
func peerAddrs(c config.PeerS) (transport.AddrFunc, error) {
	static := make(map[ring.ID]string, len(c.Addrs))
	for k, v := range c.Addrs {
		id, err := cast.ToUint64E(k)
		if err != nil {
			return nil, fmt.Errorf("peer.addrs key %q: %w", k, err)
		}
		static[ring.ID(id)] = v
	}
	var fallback transport.AddrFunc
	if c.AddrTemplate != "" {
		fallback = transport.AddrTemplate(c.AddrTemplate)
	}
	return transport.StaticAddrs(static, fallback), nil
}

// waitForSuccessor pings the successor with exponential backoff until it
// answers or maxWait elapses.
func waitForSuccessor(ctx context.Context, pool *transport.Pool, self, succ ring.ID, maxWait time.Duration) error {
	if succ == self {
		return nil
	}
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
		backoff.WithMaxElapsedTime(maxWait),
	)
	op := func() error {
		c, err := pool.Client(succ)
		if err != nil {
			return backoff.Permanent(err)
		}
		return c.Ping(ctx)
	}
	notify := func(err error, d time.Duration) {
		logrus.WithError(err).Warnf("successor %d not reachable, retry in %s", succ, d)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("wait for successor %d: %w", succ, err)
	}
	logrus.Infof("successor %d is up", succ)
	return nil
}

func restoreSnapshot(path string, db store.Store) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()
	return store.Restore(f, db)
}

// persistSnapshot writes to a temp file and renames it over path.
func persistSnapshot(path string, db store.Store) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	count, err := store.Persist(tmp, db)
	if err != nil {
		tmp.Close()
		return count, err
	}
	if err := tmp.Close(); err != nil {
		return count, err
	}
	return count, os.Rename(tmp.Name(), path)
}
