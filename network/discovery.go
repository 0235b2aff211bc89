package network

import (
	"fmt"
	"time"

	"github.com/tapmesh/tapmesh/internal/log"
	"github.com/tapmesh/tapmesh/types"
)

// discovery periodically asks the discovery group who is out there and merges the answers.
type discovery struct {
	core *core
	log  log.Logger
}

func (d *discovery) init(c *core) {
	d.core = c
	d.log = log.Component("discovery")
}

func (d *discovery) run() {
	ticker := time.NewTicker(d.core.config.discoveryInterval)
	defer ticker.Stop()
	for {
		d.round()
		select {
		case <-ticker.C:
		case <-d.core.closed:
			return
		}
	}
}

func (d *discovery) round() {
	peers, err := d.scan()
	if err != nil {
		d.log.WithError(err).Warn("discovery round failed")
		return
	}
	if len(peers) > 0 {
		d.core.registry.merge(peers)
		d.core.resolver.kick(nil)
	}
	d.log.WithField("found", len(peers)).Debug("discovery round done")
}

// scan runs a single discovery round and returns the peers that answered, excluding this node.
func (d *discovery) scan() ([]types.Peer, error) {
	group := d.core.config.discoveryGroup
	conn, err := newMulticastSender(group.Addr(), d.core.config.multicastInterface)
	if err != nil {
		return nil, fmt.Errorf("open discovery socket: %w", err)
	}
	defer conn.Close()
	bs, err := encodeMessage(new(discoveryRequest))
	if err != nil {
		return nil, err
	}
	defer freeBytes(bs)
	if err := conn.SetReadDeadline(time.Now().Add(d.core.config.discoveryWindow)); err != nil {
		return nil, err
	}
	if _, err := conn.WriteToUDPAddrPort(bs, group); err != nil {
		return nil, fmt.Errorf("send discovery request to %s: %w", group, err)
	}
	buf := allocBytes(maxControlMessageSize)
	defer freeBytes(buf)
	var peers []types.Peer
	for {
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if !isTimeout(err) {
				d.log.WithError(err).Warn("discovery receive failed, ending round early")
			}
			break
		}
		from = unmapAddrPort(from)
		msg, err := wireDecode(buf[:n])
		if err != nil {
			d.log.WithError(err).WithField("from", from.String()).Warn("skipping malformed discovery reply")
			continue
		}
		reply, ok := msg.(*discoveryReply)
		if !ok {
			d.log.WithField("from", from.String()).Warnf("skipping unexpected %s", msg.wireType())
			continue
		}
		if reply.name == d.core.registry.name {
			continue
		}
		peer, err := types.NewPeer(reply.name, from, reply.hwAddr)
		if err != nil {
			d.log.WithError(err).Warn("skipping discovery reply")
			continue
		}
		peers = appendPeer(peers, peer)
	}
	return peers, nil
}

// appendPeer appends peer, replacing an earlier entry with the same control address.
func appendPeer(peers []types.Peer, peer types.Peer) []types.Peer {
	for idx := range peers {
		if peers[idx].ControlAddr == peer.ControlAddr {
			peers[idx] = peer
			return peers
		}
	}
	return append(peers, peer)
}
