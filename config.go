package cirrus

import "github.com/jcarreira/cirrus/internal/config"

// ServerConfig, ClientConfig, CacheConfig and IteratorConfig are
// re-exported from internal/config so callers never import an internal
// package directly.
type (
	ServerConfig   = config.ServerConfig
	ClientConfig   = config.ClientConfig
	CacheConfig    = config.CacheConfig
	IteratorConfig = config.IteratorConfig
)

// DefaultServerConfig returns the baseline ServerConfig a Server is
// constructed with when no overrides are applied.
func DefaultServerConfig() ServerConfig { return config.DefaultServerConfig() }

// DefaultClientConfig returns the baseline ClientConfig a Client is
// constructed with when no overrides are applied.
func DefaultClientConfig() ClientConfig { return config.DefaultClientConfig() }

// DefaultCacheConfig returns the baseline CacheConfig values. NewCache
// does not read a CacheConfig; it takes its capacity and policies as
// arguments.
func DefaultCacheConfig() CacheConfig { return config.DefaultCacheConfig() }

// LoadServerConfig reads a ServerConfig from a YAML file at path,
// overridable by environment variables prefixed with envPrefix (e.g.
// CIRRUS_SERVER_LISTEN_ADDR for listen_addr).
func LoadServerConfig(path, envPrefix string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	err := config.Load(path, envPrefix, &cfg)
	return cfg, err
}

// LoadClientConfig reads a ClientConfig from a YAML file at path,
// overridable by environment variables prefixed with envPrefix.
func LoadClientConfig(path, envPrefix string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	err := config.Load(path, envPrefix, &cfg)
	return cfg, err
}
