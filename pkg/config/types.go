package config

type Config struct {
	Node       NodeS       `mapstructure:"node"`
	Ring       RingS       `mapstructure:"ring"`
	Peer       PeerS       `mapstructure:"peer"`
	Routing    RoutingS    `mapstructure:"routing"`
	Storage    StorageS    `mapstructure:"storage"`
	Bootstrap  BootstrapS  `mapstructure:"bootstrap"`
	Log        LogS        `mapstructure:"log"`
	Monitor    MonitorS    `mapstructure:"monitor"`
	PprofDebug PprofDebugS `mapstructure:"pprof_debug"`
}

type NodeS struct {
	ID     uint64 `mapstructure:"id" json:"id"`
	Listen string `mapstructure:"listen" json:"listen"`
}

type RingS struct {
	// identifier bits, the space is [0, 2^bits)
	Bits    uint     `mapstructure:"bits" json:"bits"`
	Members []uint64 `mapstructure:"members" json:"members"`
}

type PeerS struct {
	// fmt template applied to the node id, e.g. node_%d:1234
	AddrTemplate string `mapstructure:"addr_template" json:"addr_template"`
	// explicit id -> host:port entries, checked before the template
	Addrs map[string]string `mapstructure:"addrs" json:"addrs"`
	// Unit: ms
	ConnTimeout  int `mapstructure:"conn_timeout" json:"conn_timeout"`
	ReadTimeout  int `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout" json:"write_timeout"`
	// connections per peer
	PoolSize int `mapstructure:"pool_size" json:"pool_size"`
}

type RoutingS struct {
	// iterative or recursive
	Mode string `mapstructure:"mode" json:"mode"`
	// 0 means the number of ring members
	MaxHops int `mapstructure:"max_hops" json:"max_hops"`
}

type StorageS struct {
	Backend string `mapstructure:"backend" json:"backend"`
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
	// hybriddb hot tier, unit: MB
	HotCacheSize int64 `mapstructure:"hot_cache_size" json:"hot_cache_size"`
	// sds snapshot restored at start and written at shutdown, empty disables
	SnapshotPath string `mapstructure:"snapshot_path" json:"snapshot_path"`
	OSS          OSSS   `mapstructure:"oss" json:"oss"`
}

type OSSS struct {
	Endpoint  string `mapstructure:"endpoint" json:"endpoint"`
	Region    string `mapstructure:"region" json:"region"`
	Bucket    string `mapstructure:"bucket" json:"bucket"`
	Prefix    string `mapstructure:"prefix" json:"prefix"`
	AccessKey string `mapstructure:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" json:"secret_key"`
}

type BootstrapS struct {
	WaitForSuccessor bool `mapstructure:"wait_for_successor" json:"wait_for_successor"`
	// Unit: ms
	MaxWait int `mapstructure:"max_wait" json:"max_wait"`
}

type LogS struct {
	Level string `mapstructure:"level"`
	// text or json
	Format string `mapstructure:"format"`
}

type MonitorS struct {
	Enable  bool   `mapstructure:"enable"`
	Address string `mapstructure:"address"`
}

type PprofDebugS struct {
	Enable bool   `mapstructure:"enable"`
	Port   uint16 `mapstructure:"port"`
}
