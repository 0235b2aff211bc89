package network

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/tapmesh/tapmesh/internal/log"
	"github.com/tapmesh/tapmesh/internal/metrics"
)

// controlServer answers control requests arriving on the control port, unicast or multicast.
type controlServer struct {
	core *core
	conn *net.UDPConn
	log  log.Logger
}

func (s *controlServer) init(c *core) error {
	s.core = c
	s.log = log.Component("control")
	// only wildcard binds share the port, explicit ones fail on conflicts
	conn, err := listenUDP(c.config.controlAddr, c.config.controlAddr.Addr().IsUnspecified())
	if err != nil {
		return fmt.Errorf("bind control socket %s: %w", c.config.controlAddr, err)
	}
	s.conn = conn
	group := c.config.discoveryGroup.Addr()
	if group.IsMulticast() {
		if err := joinGroup(conn, group, c.config.multicastInterface); err != nil {
			s.log.WithError(err).WithField("group", group.String()).Warn("failed to join discovery group, serving unicast only")
		}
	}
	return nil
}

func (s *controlServer) localAddr() netip.AddrPort {
	return unmapAddrPort(s.conn.LocalAddr().(*net.UDPAddr).AddrPort())
}

func (s *controlServer) serve() {
	buf := make([]byte, maxControlMessageSize)
	for {
		if s.core.isClosed() {
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.core.config.pollInterval))
		n, from, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if s.core.isClosed() {
				return
			}
			s.log.WithError(err).Error("failed to receive control message")
			continue
		}
		from = unmapAddrPort(from)
		msg, err := wireDecode(buf[:n])
		if err != nil {
			metrics.ControlDecodeErrorsTotal.Inc()
			s.log.WithError(err).WithField("from", from.String()).Warn("dropping malformed control message")
			continue
		}
		metrics.ControlMessagesTotal.WithLabelValues(msg.wireType().String()).Inc()
		if reply := s.handle(msg, from); reply != nil {
			s.reply(reply, from)
		}
	}
}

func (s *controlServer) reply(msg message, to netip.AddrPort) {
	bs, err := encodeMessage(msg)
	if err != nil {
		s.log.WithError(err).Errorf("failed to encode %s", msg.wireType())
		return
	}
	defer freeBytes(bs)
	if _, err := s.conn.WriteToUDPAddrPort(bs, to); err != nil {
		s.log.WithError(err).WithField("to", to.String()).Warnf("failed to send %s", msg.wireType())
	}
}

// handle returns the reply to msg, or nil if it gets none.
func (s *controlServer) handle(msg message, from netip.AddrPort) message {
	reg := &s.core.registry
	switch m := msg.(type) {
	case *discoveryRequest:
		return &discoveryReply{name: reg.name, hwAddr: reg.hwAddr}
	case *hwAddrRequest:
		return &hwAddrReply{hwAddr: reg.hwAddr}
	case *ping:
		return new(pong)
	case *addPeerRequest:
		peer := m.peer
		if !peer.IsResolved() {
			hw, err := NewClient(peer.ControlAddr, s.core.config.resolveTimeout).HardwareAddr()
			if err != nil || hw.IsZero() {
				s.log.WithError(err).WithField("peer", peer.String()).Warn("rejecting peer, hardware address unresolved")
				return &addPeerReply{wireBoolReply{ok: false}}
			}
			peer.HardwareAddr = hw
		}
		reg.upsert(peer)
		s.log.WithField("peer", peer.String()).WithField("hw_addr", peer.HardwareAddr.String()).Info("peer added")
		return &addPeerReply{wireBoolReply{ok: true}}
	case *listPeerRequest:
		return &listPeerReply{wirePeerList{peers: reg.snapshot()}}
	case *removePeerRequest:
		removed := reg.remove(m.name, m.host)
		s.log.WithField("removed", removed).Info("remove peer request handled")
		return &removePeerReply{wireBoolReply{ok: true}}
	case *scanNodeRequest:
		peers, err := s.core.discovery.scan()
		if err != nil {
			s.log.WithError(err).Warn("scan failed")
			return &scanNodeReply{}
		}
		reg.merge(peers)
		return &scanNodeReply{wirePeerList{peers: peers}}
	default:
		s.log.WithField("from", from.String()).Warnf("ignoring unexpected %s", msg.wireType())
		return nil
	}
}
