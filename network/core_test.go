package network

import (
	"context"
	"math/rand/v2"
	"net"
	"net/netip"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapmesh/tapmesh/types"
)

var loopback = netip.MustParseAddr("127.0.0.1")

func TestTwoNodes(t *testing.T) {
	hwA := types.HardwareAddr{0x02, 0, 0, 0, 0, 0x0a}
	hwB := types.HardwareAddr{0x02, 0, 0, 0, 0, 0x0b}
	a, devA := newTestNode(t, "node-a", hwA)
	b, devB := newTestNode(t, "node-b", hwB)
	runTestNode(t, a)
	runTestNode(t, b)

	peerB, err := types.NewPeer("node-b", b.ControlAddr(), types.HardwareAddr{})
	require.NoError(t, err)
	peerA, err := types.NewPeer("node-a", a.ControlAddr(), types.HardwareAddr{})
	require.NoError(t, err)
	require.NoError(t, NewClient(a.ControlAddr(), 2*time.Second).AddPeer(peerB))
	require.NoError(t, NewClient(b.ControlAddr(), 2*time.Second).AddPeer(peerA))

	peers, err := NewClient(a.ControlAddr(), 2*time.Second).ListPeers()
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "node-b", peers[0].Name)
	assert.Equal(t, hwB, peers[0].HardwareAddr)
	assert.Equal(t, types.DataAddrFor(b.ControlAddr()), peers[0].DataAddr)

	broadcast := testFrame(types.BroadcastAddr, hwA, "who-has")
	devA.in <- broadcast
	assert.Equal(t, broadcast, expectFrame(t, devB))

	unicast := testFrame(hwA, hwB, "reply")
	devB.in <- unicast
	assert.Equal(t, unicast, expectFrame(t, devA))

	// no peer owns this address, so nothing arrives
	devA.in <- testFrame(types.HardwareAddr{0x02, 0, 0, 0, 0, 0xff}, hwA, "lost")
	select {
	case bs := <-devB.out:
		t.Fatalf("unexpected frame %x", bs)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDataPortNotShared(t *testing.T) {
	hw := types.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	for attempt := 0; attempt < 50; attempt++ {
		port := uint16(20000 + rand.IntN(40000))
		opts := []Option{
			WithControlAddr(netip.AddrPortFrom(netip.IPv4Unspecified(), port)),
			WithDiscoveryGroup(netip.AddrPortFrom(loopback, port)),
		}
		first, err := NewNode("first", newDummyDevice("first", hw), opts...)
		if err != nil {
			continue
		}
		defer first.Close()
		_, err = NewNode("second", newDummyDevice("second", hw), opts...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bind data socket")
		return
	}
	t.Fatal("no free port pair")
}

func TestRunStopsOnCancel(t *testing.T) {
	n, dev := newTestNode(t, "node", types.HardwareAddr{0x02, 0, 0, 0, 0, 1})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.ErrorIs(t, n.Close(), ClosedError{})
	select {
	case <-dev.closed:
	default:
		t.Fatal("device was not closed")
	}
}

func TestAddPeersResolves(t *testing.T) {
	n, _ := newTestNode(t, "node", types.HardwareAddr{0x02, 0, 0, 0, 0, 1}, WithResolveRetry(20*time.Millisecond))
	r := newResponder(t, "remote", types.HardwareAddr{0x02, 0, 0, 0, 0, 2})
	r.drop.Store(1)
	n.AddPeers([]types.Peer{r.peer()})
	require.Eventually(t, func() bool {
		return n.Debug.GetSelf().Unresolved == 0
	}, 5*time.Second, 10*time.Millisecond)
	peers := n.Debug.GetPeers()
	require.Len(t, peers, 1)
	assert.Equal(t, r.hw, peers[0].HardwareAddr)
}

/*********************
 * Testing utilities *
 *********************/

// newTestNode builds a node on a random loopback port pair. It is not running.
func newTestNode(t *testing.T, name string, hw types.HardwareAddr, opts ...Option) (*Node, *dummyDevice) {
	t.Helper()
	for attempt := 0; attempt < 50; attempt++ {
		port := uint16(20000 + rand.IntN(40000))
		dev := newDummyDevice(name, hw)
		all := append([]Option{
			WithControlAddr(netip.AddrPortFrom(loopback, port)),
			WithDiscoveryGroup(netip.AddrPortFrom(loopback, port)),
			WithPollInterval(20 * time.Millisecond),
			WithResolveTimeout(500 * time.Millisecond),
			WithPingTimeout(200 * time.Millisecond),
			WithDiscoveryWindow(300 * time.Millisecond),
			WithMaxFrameSize(2048),
		}, opts...)
		n, err := NewNode(name, dev, all...)
		if err != nil {
			continue
		}
		t.Cleanup(func() { _ = n.Close() })
		return n, dev
	}
	t.Fatal("no free port pair")
	return nil, nil
}

func runTestNode(t *testing.T, n *Node) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func testFrame(dst, src types.HardwareAddr, payload string) []byte {
	bs := append([]byte(nil), dst[:]...)
	bs = append(bs, src[:]...)
	bs = append(bs, 0x08, 0x00)
	return append(bs, payload...)
}

func expectFrame(t *testing.T, dev *dummyDevice) []byte {
	t.Helper()
	select {
	case bs := <-dev.out:
		return bs
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for frame")
		return nil
	}
}

type dummyDevice struct {
	name      string
	hw        types.HardwareAddr
	in        chan []byte
	out       chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newDummyDevice(name string, hw types.HardwareAddr) *dummyDevice {
	return &dummyDevice{
		name:   name,
		hw:     hw,
		in:     make(chan []byte),
		out:    make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (d *dummyDevice) Read(buf []byte) (int, error) {
	select {
	case <-d.closed:
		return 0, os.ErrClosed
	case bs := <-d.in:
		return copy(buf, bs), nil
	}
}

func (d *dummyDevice) Write(frame []byte) (int, error) {
	bs := append([]byte(nil), frame...)
	select {
	case <-d.closed:
		return 0, os.ErrClosed
	case d.out <- bs:
		return len(bs), nil
	}
}

func (d *dummyDevice) HardwareAddr() types.HardwareAddr { return d.hw }

func (d *dummyDevice) Name() string { return d.name }

func (d *dummyDevice) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}

// responder is a minimal fake node answering discovery, hardware address and ping requests.
type responder struct {
	name      string
	hw        types.HardwareAddr
	conn      *net.UDPConn
	drop      atomic.Int32 // requests left to ignore
	wrongKind atomic.Bool  // answer everything with a hwaddr reply
	requests  atomic.Int32
}

func newResponder(t *testing.T, name string, hw types.HardwareAddr) *responder {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	r := &responder{name: name, hw: hw, conn: conn}
	t.Cleanup(func() { conn.Close() })
	go r.serve()
	return r
}

func (r *responder) serve() {
	buf := make([]byte, maxControlMessageSize)
	for {
		n, from, err := r.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			return
		}
		msg, err := wireDecode(buf[:n])
		if err != nil {
			continue
		}
		r.requests.Add(1)
		if r.drop.Load() > 0 {
			r.drop.Add(-1)
			continue
		}
		var reply message
		switch {
		case r.wrongKind.Load():
			reply = &hwAddrReply{hwAddr: r.hw}
		case msg.wireType() == wireHwAddrRequest:
			reply = &hwAddrReply{hwAddr: r.hw}
		case msg.wireType() == wirePing:
			reply = new(pong)
		case msg.wireType() == wireDiscoveryRequest:
			reply = &discoveryReply{name: r.name, hwAddr: r.hw}
		default:
			continue
		}
		bs, _ := wireEncode(nil, reply)
		_, _ = r.conn.WriteToUDPAddrPort(bs, from)
	}
}

func (r *responder) addr() netip.AddrPort {
	return unmapAddrPort(r.conn.LocalAddr().(*net.UDPAddr).AddrPort())
}

// peer returns an unresolved registry entry pointing at the responder.
func (r *responder) peer() types.Peer {
	p, _ := types.NewPeer(r.name, r.addr(), types.HardwareAddr{})
	return p
}

func (r *responder) close() {
	r.conn.Close()
}
