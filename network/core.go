package network

import (
	"fmt"

	"github.com/tapmesh/tapmesh/types"
)

type core struct {
	config    config        // options, with defaults applied
	device    types.Device  // the local Ethernet interface
	registry  registry      // the peer table, shared by everything below
	control   controlServer // answers control requests
	discovery discovery     // periodic multicast discovery
	liveness  liveness      // periodic ping and eviction
	resolver  resolver      // fills in missing hardware addresses
	data      dataplane     // frames between the device and peers
	closed    chan struct{}
}

func (c *core) init(name string, device types.Device, opts []Option) error {
	configDefaults()(&c.config)
	for _, opt := range opts {
		opt(&c.config)
	}
	if c.config.controlAddr.Port() < 2 {
		return fmt.Errorf("control port of %s must be at least 2", c.config.controlAddr)
	}
	c.device = device
	c.closed = make(chan struct{})
	c.registry.init(name, device.HardwareAddr())
	c.discovery.init(c)
	c.liveness.init(c)
	c.resolver.init(c)
	if err := c.control.init(c); err != nil {
		return err
	}
	if err := c.data.init(c); err != nil {
		c.control.conn.Close()
		return err
	}
	return nil
}

func (c *core) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
