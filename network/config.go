package network

import (
	"net"
	"net/netip"
	"time"

	"github.com/tapmesh/tapmesh/types"
)

type config struct {
	controlAddr        netip.AddrPort
	discoveryGroup     netip.AddrPort
	multicastInterface *net.Interface
	autoDiscovery      bool
	discoveryInterval  time.Duration
	discoveryWindow    time.Duration
	livenessInterval   time.Duration
	pingTimeout        time.Duration
	resolveTimeout     time.Duration
	resolveRetry       time.Duration
	pollInterval       time.Duration
	writeTimeout       time.Duration
	maxFrameSize       int
}

type Option func(*config)

func configDefaults() Option {
	return func(c *config) {
		c.controlAddr = netip.AddrPortFrom(netip.IPv4Unspecified(), types.DefaultControlPort)
		c.discoveryGroup = netip.AddrPortFrom(netip.AddrFrom4([4]byte{224, 0, 0, 100}), types.DefaultControlPort)
		c.autoDiscovery = false
		c.discoveryInterval = time.Minute
		c.discoveryWindow = 2 * time.Second
		c.livenessInterval = 2 * time.Minute
		c.pingTimeout = 5 * time.Second
		c.resolveTimeout = 2 * time.Second
		c.resolveRetry = 15 * time.Second
		c.pollInterval = time.Second
		c.writeTimeout = 5 * time.Second
		c.maxFrameSize = 65535
	}
}

// WithControlAddr sets the local control endpoint. The data endpoint binds the same IP, one port lower.
func WithControlAddr(addr netip.AddrPort) Option {
	return func(c *config) {
		c.controlAddr = addr
	}
}

// WithDiscoveryGroup sets where discovery requests are sent. A multicast address is joined by the control server.
func WithDiscoveryGroup(group netip.AddrPort) Option {
	return func(c *config) {
		c.discoveryGroup = group
	}
}

func WithMulticastInterface(intf *net.Interface) Option {
	return func(c *config) {
		c.multicastInterface = intf
	}
}

func WithAutoDiscovery(enabled bool) Option {
	return func(c *config) {
		c.autoDiscovery = enabled
	}
}

func WithDiscoveryInterval(duration time.Duration) Option {
	return func(c *config) {
		c.discoveryInterval = duration
	}
}

func WithDiscoveryWindow(duration time.Duration) Option {
	return func(c *config) {
		c.discoveryWindow = duration
	}
}

func WithLivenessInterval(duration time.Duration) Option {
	return func(c *config) {
		c.livenessInterval = duration
	}
}

func WithPingTimeout(duration time.Duration) Option {
	return func(c *config) {
		c.pingTimeout = duration
	}
}

func WithResolveTimeout(duration time.Duration) Option {
	return func(c *config) {
		c.resolveTimeout = duration
	}
}

func WithResolveRetry(duration time.Duration) Option {
	return func(c *config) {
		c.resolveRetry = duration
	}
}

// WithPollInterval bounds how long the control and data loops block before checking for shutdown.
func WithPollInterval(duration time.Duration) Option {
	return func(c *config) {
		c.pollInterval = duration
	}
}

func WithWriteTimeout(duration time.Duration) Option {
	return func(c *config) {
		c.writeTimeout = duration
	}
}

func WithMaxFrameSize(size int) Option {
	return func(c *config) {
		c.maxFrameSize = size
	}
}
