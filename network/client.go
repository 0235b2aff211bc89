package network

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/tapmesh/tapmesh/types"
)

const maxControlMessageSize = 65535

// exchange sends one request from a fresh ephemeral socket and waits for a single reply.
func exchange(addr netip.AddrPort, req message, timeout time.Duration) (message, error) {
	conn, err := newSender(addr.Addr())
	if err != nil {
		return nil, fmt.Errorf("open socket: %w", err)
	}
	defer conn.Close()
	bs, err := encodeMessage(req)
	if err != nil {
		return nil, err
	}
	defer freeBytes(bs)
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	if _, err := conn.WriteToUDPAddrPort(bs, addr); err != nil {
		return nil, fmt.Errorf("send %s to %s: %w", req.wireType(), addr, err)
	}
	buf := allocBytes(maxControlMessageSize)
	defer freeBytes(buf)
	n, _, err := conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s to %s: %w", req.wireType(), addr, DeadlineError{})
		}
		return nil, fmt.Errorf("receive from %s: %w", addr, err)
	}
	return wireDecode(buf[:n])
}

// Client talks to the control server of a node, local or remote.
type Client struct {
	addr    netip.AddrPort
	timeout time.Duration
}

func NewClient(addr netip.AddrPort, timeout time.Duration) *Client {
	return &Client{addr: addr, timeout: timeout}
}

func (c *Client) Addr() netip.AddrPort {
	return c.addr
}

func (c *Client) request(req message, want wireMessageType) (message, error) {
	reply, err := exchange(c.addr, req, c.timeout)
	if err != nil {
		return nil, err
	}
	if reply.wireType() != want {
		return nil, UnexpectedReplyError{Want: byte(want), Kind: byte(reply.wireType())}
	}
	return reply, nil
}

// Ping reports nil if the node answered with a pong in time.
func (c *Client) Ping() error {
	_, err := c.request(new(ping), wirePong)
	return err
}

func (c *Client) HardwareAddr() (types.HardwareAddr, error) {
	reply, err := c.request(new(hwAddrRequest), wireHwAddrReply)
	if err != nil {
		return types.HardwareAddr{}, err
	}
	return reply.(*hwAddrReply).hwAddr, nil
}

// Identify asks the node for its name and hardware address, like a unicast discovery probe.
func (c *Client) Identify() (types.Peer, error) {
	reply, err := c.request(new(discoveryRequest), wireDiscoveryReply)
	if err != nil {
		return types.Peer{}, err
	}
	dr := reply.(*discoveryReply)
	return types.NewPeer(dr.name, c.addr, dr.hwAddr)
}

func (c *Client) ListPeers() ([]types.Peer, error) {
	reply, err := c.request(new(listPeerRequest), wireListPeerReply)
	if err != nil {
		return nil, err
	}
	return reply.(*listPeerReply).peers, nil
}

// AddPeer asks the node to add peer. A RejectedError means the node could not resolve it.
func (c *Client) AddPeer(peer types.Peer) error {
	reply, err := c.request(&addPeerRequest{peer: peer}, wireAddPeerReply)
	if err != nil {
		return err
	}
	if !reply.(*addPeerReply).ok {
		return RejectedError{}
	}
	return nil
}

// RemovePeer removes peers by name, by control IP, or both. Pass nil and an invalid
// netip.Addr to skip a filter.
func (c *Client) RemovePeer(name *string, host netip.Addr) error {
	reply, err := c.request(&removePeerRequest{name: name, host: host}, wireRemovePeerReply)
	if err != nil {
		return err
	}
	if !reply.(*removePeerReply).ok {
		return RejectedError{}
	}
	return nil
}

// ScanNodes makes the node run a discovery round and returns what it found.
// The timeout must cover the node's discovery window.
func (c *Client) ScanNodes() ([]types.Peer, error) {
	reply, err := c.request(new(scanNodeRequest), wireScanNodeReply)
	if err != nil {
		return nil, err
	}
	return reply.(*scanNodeReply).peers, nil
}
