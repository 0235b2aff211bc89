package network

import (
	"context"
	"errors"
	"net/netip"
	"sync"

	"github.com/tapmesh/tapmesh/internal/log"
	"github.com/tapmesh/tapmesh/types"
)

// Node is one member of the mesh: a local device bridged to every known peer.
type Node struct {
	core       core
	Debug      Debug
	closeMutex sync.Mutex
}

// NewNode binds the control and data sockets for a node called name, bridging dev.
// The node takes ownership of dev and closes it in Close.
func NewNode(name string, dev types.Device, opts ...Option) (*Node, error) {
	n := new(Node)
	if err := n.core.init(name, dev, opts); err != nil {
		return nil, err
	}
	n.Debug.init(&n.core)
	return n, nil
}

// AddPeers registers peers, typically from the command line, and starts resolving them.
func (n *Node) AddPeers(peers []types.Peer) {
	if len(peers) == 0 {
		return
	}
	n.core.registry.upsertMany(peers)
	n.core.resolver.kick(nil)
}

// Run starts the background tasks and forwards frames from the device until ctx is
// cancelled or the node is closed. It closes the node before returning.
func (n *Node) Run(ctx context.Context) error {
	c := &n.core
	if c.isClosed() {
		return ClosedError{}
	}
	l := log.Component("node")
	l.WithField("name", c.registry.name).
		WithField("hw_addr", c.registry.hwAddr.String()).
		WithField("control", n.ControlAddr().String()).
		WithField("device", c.device.Name()).
		Info("node started")
	go c.control.serve()
	go c.data.readFromPeers()
	go c.liveness.run()
	if c.config.autoDiscovery {
		go c.discovery.run()
	}
	c.resolver.kick(nil)
	go func() {
		select {
		case <-ctx.Done():
			_ = n.Close()
		case <-c.closed:
		}
	}()
	c.data.pumpFromDevice()
	_ = n.Close()
	l.Info("node stopped")
	return ctx.Err()
}

// ControlAddr returns the bound control endpoint.
func (n *Node) ControlAddr() netip.AddrPort {
	return n.core.control.localAddr()
}

// Close stops the timers and closes the sockets and the device.
func (n *Node) Close() error {
	n.closeMutex.Lock()
	defer n.closeMutex.Unlock()
	c := &n.core
	if c.isClosed() {
		return ClosedError{}
	}
	close(c.closed)
	c.resolver.stop()
	return errors.Join(
		c.control.conn.Close(),
		c.data.conn.Close(),
		c.device.Close(),
	)
}
