package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/IceFireDB/IceFireDB-Chord/router"
	"github.com/IceFireDB/IceFireDB-Chord/store"
)

var (
	ErrConfigNotInit       = errors.New("config not init")
	ErrDuplicateInitConfig = errors.New("duplicate init config")
	ErrInvalidConfig       = errors.New("invalid config")
)

// Do not use config directly in the request path to prevent race
// Global configuration
var _config *Config

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("node.listen", ":1234")
	v.SetDefault("ring.bits", 5)
	v.SetDefault("ring.members", []uint64{2, 7, 11, 17, 22, 27})
	v.SetDefault("peer.addr_template", "node_%d:1234")
	v.SetDefault("peer.conn_timeout", 2000)
	v.SetDefault("peer.read_timeout", 3000)
	v.SetDefault("peer.write_timeout", 3000)
	v.SetDefault("peer.pool_size", 8)
	v.SetDefault("routing.mode", string(router.ModeIterative))
	v.SetDefault("routing.max_hops", 0)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.hot_cache_size", 1024)
	v.SetDefault("bootstrap.wait_for_successor", false)
	v.SetDefault("bootstrap.max_wait", 30000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("monitor.enable", false)
	v.SetDefault("monitor.address", ":19090")
	v.SetDefault("pprof_debug.enable", false)
	v.SetDefault("pprof_debug.port", 16060)
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}
	c.Routing.Mode = strings.ToLower(c.Routing.Mode)
	c.Log.Format = strings.ToLower(c.Log.Format)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// InitConfig loads the global viper instance into the process-wide config.
func InitConfig() error {
	if _config != nil {
		return ErrDuplicateInitConfig
	}
	c, err := Load(viper.GetViper())
	if err != nil {
		return err
	}
	_config = c
	return nil
}

func Get() *Config {
	return _config
}

func (c *Config) Validate() error {
	if _, err := router.ParseMode(c.Routing.Mode); err != nil {
		return fmt.Errorf("%w: routing.mode: %v", ErrInvalidConfig, err)
	}
	if c.Routing.MaxHops < 0 {
		return fmt.Errorf("%w: routing.max_hops must not be negative", ErrInvalidConfig)
	}
	if !registered(c.Storage.Backend) {
		return fmt.Errorf("%w: storage.backend %q not in %v", ErrInvalidConfig, c.Storage.Backend, store.Drivers())
	}
	for name, ms := range map[string]int{
		"peer.conn_timeout":  c.Peer.ConnTimeout,
		"peer.read_timeout":  c.Peer.ReadTimeout,
		"peer.write_timeout": c.Peer.WriteTimeout,
	} {
		if ms <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}
	if c.Peer.AddrTemplate == "" && len(c.Peer.Addrs) == 0 {
		return fmt.Errorf("%w: peer.addr_template or peer.addrs is required", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// StoreConfig maps the storage section onto the engine options.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		DataDir:      c.Storage.DataDir,
		HotCacheSize: c.Storage.HotCacheSize,
		OSS: store.OSSConfig{
			Endpoint:  c.Storage.OSS.Endpoint,
			Region:    c.Storage.OSS.Region,
			Bucket:    c.Storage.OSS.Bucket,
			Prefix:    c.Storage.OSS.Prefix,
			AccessKey: c.Storage.OSS.AccessKey,
			SecretKey: c.Storage.OSS.SecretKey,
		},
	}
}

func registered(name string) bool {
	for _, d := range store.Drivers() {
		if d == name {
			return true
		}
	}
	return false
}
