// Package config loads the module's configuration types from a YAML file
// with environment-variable override, grounded on
// vison888-open-im-server's pkg/common/config.LoadConfig (a viper.New
// instance per call, SetEnvPrefix + AutomaticEnv + a "." -> "_" key
// replacer, then Unmarshal with the mapstructure tag name).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ServerConfig configures one objectserver listener.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	Capacity        uint64        `mapstructure:"capacity"`
	MaxClients      int           `mapstructure:"max_clients"`
	MaxFrameSize    int           `mapstructure:"max_frame_size"`
	BackendDir      string        `mapstructure:"backend_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ClientConfig configures one engine instance.
type ClientConfig struct {
	ServerAddr    string        `mapstructure:"server_addr"`
	NumConns      int           `mapstructure:"num_connections"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	RequestQueue  int           `mapstructure:"request_queue_size"`
	MaxFrameSize  int           `mapstructure:"max_frame_size"`
}

// CacheConfig configures a client-side cache manager.
type CacheConfig struct {
	MaxSize  int    `mapstructure:"max_size"`
	Eviction string `mapstructure:"eviction"` // "fifo"
	Prefetch string `mapstructure:"prefetch"` // "ordered" | "none"
}

// IteratorConfig configures a forward cursor.
type IteratorConfig struct {
	First     uint64 `mapstructure:"first"`
	Last      uint64 `mapstructure:"last"`
	ReadAhead int    `mapstructure:"read_ahead"`
}

// DefaultServerConfig returns the baseline values applied before a config
// file/environment is merged in, so partial configuration files are valid.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      "127.0.0.1:9999",
		Capacity:        1 << 30, // 1 GiB
		MaxClients:      256,
		MaxFrameSize:    64 << 20,
		ShutdownTimeout: 5 * time.Second,
	}
}

// DefaultClientConfig returns the baseline values for ClientConfig.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		NumConns:     1,
		DialTimeout:  5 * time.Second,
		RequestQueue: 1024,
		MaxFrameSize: 64 << 20,
	}
}

// DefaultCacheConfig returns the baseline values for CacheConfig.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxSize:  1024,
		Eviction: "fifo",
		Prefetch: "none",
	}
}

// Load reads path (YAML, by extension) into dst, which must be a pointer
// to one of the Config types above (or a struct embedding them). Values
// already set on dst are used as defaults; the file and then the
// environment (prefixed with envPrefix, "." replaced with "_", e.g.
// CIRRUS_SERVER_LISTEN_ADDR) override them.
func Load(path, envPrefix string, dst any) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(dst, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
	}); err != nil {
		return fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return nil
}
