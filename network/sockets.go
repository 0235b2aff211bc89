package network

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

func udpNetwork(addr netip.Addr) string {
	if addr.Unmap().Is4() {
		return "udp4"
	}
	return "udp6"
}

// listenUDP binds addr. With reuse set the socket gets SO_REUSEADDR and SO_REUSEPORT,
// which lets several listeners on one host share the discovery group port.
func listenUDP(addr netip.AddrPort, reuse bool) (*net.UDPConn, error) {
	var lc net.ListenConfig
	if reuse {
		lc.Control = func(network, address string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				if serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); serr != nil {
					return
				}
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return serr
		}
	}
	conn, err := lc.ListenPacket(context.Background(), udpNetwork(addr.Addr()), addr.String())
	if err != nil {
		return nil, err
	}
	return conn.(*net.UDPConn), nil
}

// newSender opens an ephemeral socket able to reach dst.
func newSender(dst netip.Addr) (*net.UDPConn, error) {
	network := udpNetwork(dst)
	laddr := &net.UDPAddr{}
	if network == "udp4" {
		laddr.IP = net.IPv4zero
	} else {
		laddr.IP = net.IPv6unspecified
	}
	return net.ListenUDP(network, laddr)
}

// newMulticastSender is newSender with the IPv4 multicast options discovery needs.
func newMulticastSender(group netip.Addr, intf *net.Interface) (*net.UDPConn, error) {
	conn, err := newSender(group)
	if err != nil {
		return nil, err
	}
	if !group.IsMulticast() || !group.Unmap().Is4() {
		return conn, nil
	}
	pconn := ipv4.NewPacketConn(conn)
	if err := pconn.SetMulticastTTL(1); err != nil {
		conn.Close()
		return nil, err
	}
	if err := pconn.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, err
	}
	if intf != nil {
		if err := pconn.SetMulticastInterface(intf); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// joinGroup subscribes conn to an IPv4 multicast group.
func joinGroup(conn *net.UDPConn, group netip.Addr, intf *net.Interface) error {
	if !group.Unmap().Is4() {
		return errors.New("only IPv4 discovery groups are supported")
	}
	pconn := ipv4.NewPacketConn(conn)
	return pconn.JoinGroup(intf, &net.UDPAddr{IP: net.IP(group.Unmap().AsSlice())})
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func unmapAddrPort(addr netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
}
