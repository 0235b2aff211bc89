package network

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/tapmesh/tapmesh/internal/log"
	"github.com/tapmesh/tapmesh/internal/metrics"
	"github.com/tapmesh/tapmesh/types"
)

// dataplane moves Ethernet frames between the local device and the peers' data ports.
// Frames travel as the raw UDP payload, without any framing of their own.
type dataplane struct {
	core *core
	conn *net.UDPConn
	log  log.Logger
}

func (d *dataplane) init(c *core) error {
	d.core = c
	d.log = log.Component("dispatch")
	addr := types.DataAddrFor(c.config.controlAddr)
	// the data port is never shared, frames would be split between listeners
	conn, err := listenUDP(addr, false)
	if err != nil {
		return fmt.Errorf("bind data socket %s: %w", addr, err)
	}
	d.conn = conn
	return nil
}

// dispatch forwards an outbound frame. Broadcasts go to every peer except ones sharing the
// local hardware address; anything else goes to the peer owning the destination, if known.
func (d *dataplane) dispatch(frame *types.Frame) {
	if frame.IsBroadcast() {
		local := d.core.registry.hwAddr
		d.core.registry.forEach(func(peer *types.Peer) {
			if peer.HardwareAddr == local {
				return
			}
			d.send(peer.DataAddr, frame.Data, "broadcast")
		})
		return
	}
	peer, ok := d.core.registry.lookup(frame.Dst)
	if !ok {
		metrics.FramesDroppedTotal.WithLabelValues("unknown_destination").Inc()
		if d.log.IsDebugEnabled() {
			d.log.WithField("dst", frame.Dst.String()).Debug("no peer for destination, dropping frame")
		}
		return
	}
	d.send(peer.DataAddr, frame.Data, "unicast")
}

func (d *dataplane) send(addr netip.AddrPort, data []byte, kind string) {
	_ = d.conn.SetWriteDeadline(time.Now().Add(d.core.config.writeTimeout))
	if _, err := d.conn.WriteToUDPAddrPort(data, addr); err != nil {
		metrics.FramesDroppedTotal.WithLabelValues("send_error").Inc()
		d.log.WithError(err).WithField("to", addr.String()).Warn("failed to send frame")
		return
	}
	metrics.FramesSentTotal.WithLabelValues(kind).Inc()
}

// pumpFromDevice reads frames from the device and dispatches them until the node closes.
// The frame borrows the read buffer, so it is dispatched before the next read.
func (d *dataplane) pumpFromDevice() {
	buf := make([]byte, d.core.config.maxFrameSize)
	for {
		n, err := d.core.device.Read(buf)
		if err != nil {
			if d.core.isClosed() || errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) {
				return
			}
			d.log.WithError(err).Error("failed to read from device")
			continue
		}
		frame, err := types.ParseFrame(buf[:n])
		if err != nil {
			metrics.FramesDroppedTotal.WithLabelValues("malformed").Inc()
			continue
		}
		d.dispatch(&frame)
	}
}

// readFromPeers writes every datagram received on the data port to the device, unmodified.
func (d *dataplane) readFromPeers() {
	buf := make([]byte, d.core.config.maxFrameSize)
	for {
		if d.core.isClosed() {
			return
		}
		_ = d.conn.SetReadDeadline(time.Now().Add(d.core.config.pollInterval))
		n, from, err := d.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if d.core.isClosed() {
				return
			}
			d.log.WithError(err).Error("failed to receive frame")
			continue
		}
		if _, err := d.core.device.Write(buf[:n]); err != nil {
			if d.core.isClosed() {
				return
			}
			d.log.WithError(err).WithField("from", from.String()).Warn("failed to write frame to device")
			continue
		}
		metrics.FramesReceivedTotal.Inc()
	}
}
