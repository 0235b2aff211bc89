// Package config loads node configuration from an optional YAML file, the environment and command line flags using viper.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tapmesh/tapmesh/internal/log"
	"github.com/tapmesh/tapmesh/network"
	"github.com/tapmesh/tapmesh/types"
)

// EnvPrefix prefixes every environment override, e.g. TAPMESH_CONTROL_LISTEN.
const EnvPrefix = "TAPMESH"

// DefaultName is used when neither the config nor HOSTNAME or HOST name the node.
const DefaultName = "peer-01"

type Config struct {
	Name      string          `mapstructure:"name"`
	Ifname    string          `mapstructure:"ifname"`
	MTU       int             `mapstructure:"mtu"`
	Address   string          `mapstructure:"address"` // optional CIDR assigned to the device
	Auto      bool            `mapstructure:"auto"`
	Peers     []types.Peer    `mapstructure:"peers"`
	Control   ControlConfig   `mapstructure:"control"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Liveness  LivenessConfig  `mapstructure:"liveness"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Data      DataConfig      `mapstructure:"data"`
	Log       log.Config      `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ControlConfig struct {
	Listen  netip.AddrPort `mapstructure:"listen"`
	Group   netip.AddrPort `mapstructure:"group"`
	Timeout time.Duration  `mapstructure:"timeout"` // admin client timeout
}

type DiscoveryConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Window   time.Duration `mapstructure:"window"`
}

type LivenessConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ResolverConfig struct {
	Retry   time.Duration `mapstructure:"retry"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DataConfig struct {
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"name":           "name",
	"ifname":         "ifname",
	"mtu":            "mtu",
	"address":        "address",
	"auto":           "auto",
	"peers":          "peers",
	"control":        "control.listen",
	"group":          "control.group",
	"timeout":        "control.timeout",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"metrics":        "metrics.enabled",
	"metrics-listen": "metrics.listen",
}

// Load reads configuration with precedence flags > environment > file > defaults.
// path may be empty, flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("name", EnvPrefix+"_NAME", "HOSTNAME", "HOST"); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", DefaultName)
	v.SetDefault("ifname", "tap0")
	v.SetDefault("mtu", 1500)
	v.SetDefault("address", "")
	v.SetDefault("auto", false)
	v.SetDefault("peers", "")

	v.SetDefault("control.listen", fmt.Sprintf("0.0.0.0:%d", types.DefaultControlPort))
	v.SetDefault("control.group", fmt.Sprintf("224.0.0.100:%d", types.DefaultControlPort))
	v.SetDefault("control.timeout", "10s")

	v.SetDefault("discovery.interval", "60s")
	v.SetDefault("discovery.window", "2s")
	v.SetDefault("liveness.interval", "120s")
	v.SetDefault("liveness.timeout", "5s")
	v.SetDefault("resolver.retry", "15s")
	v.SetDefault("resolver.timeout", "2s")
	v.SetDefault("data.write_timeout", "5s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "/var/log/tapmesh/tapmesh.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9910")
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the values that would otherwise fail late, deep inside the node.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if c.Control.Listen.Port() < 2 {
		return fmt.Errorf("control.listen port must be at least 2, got %s", c.Control.Listen)
	}
	if c.MTU <= 0 {
		return fmt.Errorf("invalid mtu: %d", c.MTU)
	}
	if c.Address != "" {
		if _, err := netip.ParsePrefix(c.Address); err != nil {
			return fmt.Errorf("invalid address %q: %w", c.Address, err)
		}
	}
	for name, d := range map[string]time.Duration{
		"control.timeout":    c.Control.Timeout,
		"discovery.interval": c.Discovery.Interval,
		"discovery.window":   c.Discovery.Window,
		"liveness.interval":  c.Liveness.Interval,
		"liveness.timeout":   c.Liveness.Timeout,
		"resolver.retry":     c.Resolver.Retry,
		"resolver.timeout":   c.Resolver.Timeout,
		"data.write_timeout": c.Data.WriteTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// NodeOptions translates the config into options for network.NewNode.
func (c *Config) NodeOptions() []network.Option {
	return []network.Option{
		network.WithControlAddr(c.Control.Listen),
		network.WithDiscoveryGroup(c.Control.Group),
		network.WithAutoDiscovery(c.Auto),
		network.WithDiscoveryInterval(c.Discovery.Interval),
		network.WithDiscoveryWindow(c.Discovery.Window),
		network.WithLivenessInterval(c.Liveness.Interval),
		network.WithPingTimeout(c.Liveness.Timeout),
		network.WithResolveRetry(c.Resolver.Retry),
		network.WithResolveTimeout(c.Resolver.Timeout),
		network.WithWriteTimeout(c.Data.WriteTimeout),
		network.WithMaxFrameSize(c.MTU + types.EthernetHeaderSize + 4),
	}
}
