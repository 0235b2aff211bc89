package types

import (
	"net/netip"
	"strings"
)

// DefaultControlPort is the well-known control port. The data port is always one less.
const DefaultControlPort = 9909

// Peer is one remote mesh member.
type Peer struct {
	Name         string         `json:"name" yaml:"name"`
	ControlAddr  netip.AddrPort `json:"control_addr" yaml:"control_addr"`
	DataAddr     netip.AddrPort `json:"data_addr" yaml:"data_addr"`
	HardwareAddr HardwareAddr   `json:"hw_addr" yaml:"hw_addr"`
}

// NewPeer builds a Peer whose data address is derived from the control address.
// The control port must be at least 2 so that the data port is a usable port.
func NewPeer(name string, controlAddr netip.AddrPort, hw HardwareAddr) (Peer, error) {
	if !controlAddr.IsValid() || controlAddr.Port() < 2 {
		return Peer{}, &PeerParseError{Input: controlAddr.String(), Reason: "invalid control address"}
	}
	return Peer{
		Name:         name,
		ControlAddr:  controlAddr,
		DataAddr:     DataAddrFor(controlAddr),
		HardwareAddr: hw,
	}, nil
}

// DataAddrFor returns the data endpoint that belongs to a control endpoint.
func DataAddrFor(controlAddr netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(controlAddr.Addr(), controlAddr.Port()-1)
}

// IsResolved reports whether the peer's hardware address is known.
func (p *Peer) IsResolved() bool {
	return !p.HardwareAddr.IsZero()
}

func (p Peer) String() string {
	return p.Name + "=" + p.ControlAddr.String()
}

// ParseAddr parses "ip:port" or a bare "ip", which gets DefaultControlPort.
func ParseAddr(s string) (netip.AddrPort, error) {
	s = strings.TrimSpace(s)
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return netipUnmap(ap), nil
	}
	addr, err := netip.ParseAddr(strings.Trim(s, "[]"))
	if err != nil {
		return netip.AddrPort{}, &PeerParseError{Input: s, Reason: "invalid address"}
	}
	return netipUnmap(netip.AddrPortFrom(addr, DefaultControlPort)), nil
}

// ParsePeer parses a "name=addr" string, as given on the command line.
// The hardware address starts out unresolved.
func ParsePeer(s string) (Peer, error) {
	pairs := strings.Split(s, "=")
	if len(pairs) != 2 || strings.TrimSpace(pairs[0]) == "" {
		return Peer{}, &PeerParseError{Input: s, Reason: "expected name=addr"}
	}
	addr, err := ParseAddr(pairs[1])
	if err != nil {
		return Peer{}, &PeerParseError{Input: s, Reason: "invalid address"}
	}
	return NewPeer(strings.TrimSpace(pairs[0]), addr, HardwareAddr{})
}

// ParsePeers parses a comma separated list of "name=addr" strings. Empty items are skipped.
func ParsePeers(s string) ([]Peer, error) {
	var peers []Peer
	for _, item := range strings.Split(s, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		peer, err := ParsePeer(item)
		if err != nil {
			return nil, err
		}
		peers = append(peers, peer)
	}
	return peers, nil
}

func netipUnmap(ap netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
