package network

import (
	"net/netip"

	"github.com/tapmesh/tapmesh/types"
)

type Debug struct {
	c *core
}

func (d *Debug) init(c *core) {
	d.c = c
}

type DebugSelfInfo struct {
	Name         string
	HardwareAddr types.HardwareAddr
	ControlAddr  netip.AddrPort
	DataAddr     netip.AddrPort
	Device       string
	Peers        int
	Unresolved   int
}

func (d *Debug) GetSelf() (info DebugSelfInfo) {
	info.Name = d.c.registry.name
	info.HardwareAddr = d.c.registry.hwAddr
	info.ControlAddr = d.c.control.localAddr()
	info.DataAddr = types.DataAddrFor(info.ControlAddr)
	info.Device = d.c.device.Name()
	info.Peers, info.Unresolved = d.c.registry.counts()
	return
}

func (d *Debug) GetPeers() []types.Peer {
	return d.c.registry.snapshot()
}
