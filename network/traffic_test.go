package network

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapmesh/tapmesh/internal/metrics"
	"github.com/tapmesh/tapmesh/types"
)

// sink stands in for a peer's data port.
type sink struct {
	conn *net.UDPConn
}

func newSink(t *testing.T) *sink {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &sink{conn: conn}
}

func (s *sink) peer(name string, hw types.HardwareAddr) types.Peer {
	addr := unmapAddrPort(s.conn.LocalAddr().(*net.UDPAddr).AddrPort())
	return types.Peer{
		Name:         name,
		ControlAddr:  netip.AddrPortFrom(addr.Addr(), addr.Port()+1),
		DataAddr:     addr,
		HardwareAddr: hw,
	}
}

// drain returns every datagram that arrives within wait.
func (s *sink) drain(wait time.Duration) [][]byte {
	var got [][]byte
	buf := make([]byte, 2048)
	_ = s.conn.SetReadDeadline(time.Now().Add(wait))
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			return got
		}
		got = append(got, append([]byte(nil), buf[:n]...))
	}
}

func TestDispatchBroadcast(t *testing.T) {
	local := types.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	n, _ := newTestNode(t, "self", local)
	other, unresolved, alias := newSink(t), newSink(t), newSink(t)
	n.core.registry.upsertMany([]types.Peer{
		other.peer("other", types.HardwareAddr{0x02, 0, 0, 0, 0, 2}),
		unresolved.peer("unresolved", types.HardwareAddr{}),
		alias.peer("alias", local),
	})

	data := testFrame(types.BroadcastAddr, local, "arp")
	frame, err := types.ParseFrame(data)
	require.NoError(t, err)
	n.core.data.dispatch(&frame)

	assert.Equal(t, [][]byte{data}, other.drain(200*time.Millisecond))
	assert.Equal(t, [][]byte{data}, unresolved.drain(50*time.Millisecond))
	assert.Empty(t, alias.drain(50*time.Millisecond))
}

func TestDispatchUnicast(t *testing.T) {
	local := types.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	n, _ := newTestNode(t, "self", local)
	a, b := newSink(t), newSink(t)
	hwA := types.HardwareAddr{0x02, 0, 0, 0, 0, 0xa}
	hwB := types.HardwareAddr{0x02, 0, 0, 0, 0, 0xb}
	n.core.registry.upsertMany([]types.Peer{a.peer("a", hwA), b.peer("b", hwB)})

	data := testFrame(hwB, local, "to b")
	frame, err := types.ParseFrame(data)
	require.NoError(t, err)
	n.core.data.dispatch(&frame)
	assert.Equal(t, [][]byte{data}, b.drain(200*time.Millisecond))
	assert.Empty(t, a.drain(50*time.Millisecond))
}

func TestDispatchUnicastMiss(t *testing.T) {
	n, _ := newTestNode(t, "self", types.HardwareAddr{0x02, 0, 0, 0, 0, 1})
	a := newSink(t)
	n.core.registry.upsert(a.peer("a", types.HardwareAddr{0x02, 0, 0, 0, 0, 0xa}))

	dropped := metrics.FramesDroppedTotal.WithLabelValues("unknown_destination")
	before := testutil.ToFloat64(dropped)
	frame, err := types.ParseFrame(testFrame(types.HardwareAddr{0x02, 9, 9, 9, 9, 9}, types.HardwareAddr{}, "x"))
	require.NoError(t, err)
	assert.NotPanics(t, func() { n.core.data.dispatch(&frame) })
	assert.Empty(t, a.drain(100*time.Millisecond))
	assert.Equal(t, before+1, testutil.ToFloat64(dropped))
}

func TestDispatchZeroDestination(t *testing.T) {
	n, _ := newTestNode(t, "self", types.HardwareAddr{0x02, 0, 0, 0, 0, 1})
	a := newSink(t)
	n.core.registry.upsert(a.peer("a", types.HardwareAddr{}))

	dropped := metrics.FramesDroppedTotal.WithLabelValues("unknown_destination")
	before := testutil.ToFloat64(dropped)
	frame, err := types.ParseFrame(testFrame(types.HardwareAddr{}, types.HardwareAddr{0x02, 0, 0, 0, 0, 1}, "x"))
	require.NoError(t, err)
	n.core.data.dispatch(&frame)
	assert.Empty(t, a.drain(100*time.Millisecond))
	assert.Equal(t, before+1, testutil.ToFloat64(dropped))
}

func TestDispatchSkipsFailedPeer(t *testing.T) {
	local := types.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	n, _ := newTestNode(t, "self", local)
	good := newSink(t)
	// an IPv6 destination cannot be reached from the IPv4 data socket
	broken := types.Peer{
		Name:         "broken",
		ControlAddr:  netip.MustParseAddrPort("[::1]:9909"),
		DataAddr:     netip.MustParseAddrPort("[::1]:9908"),
		HardwareAddr: types.HardwareAddr{0x02, 0, 0, 0, 0, 3},
	}
	n.core.registry.upsertMany([]types.Peer{broken, good.peer("good", types.HardwareAddr{0x02, 0, 0, 0, 0, 2})})

	data := testFrame(types.BroadcastAddr, local, "hello")
	frame, err := types.ParseFrame(data)
	require.NoError(t, err)
	n.core.data.dispatch(&frame)
	assert.Equal(t, [][]byte{data}, good.drain(200*time.Millisecond))
}

func TestPumpDropsShortFrames(t *testing.T) {
	local := types.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	n, dev := newTestNode(t, "self", local)
	a := newSink(t)
	n.core.registry.upsert(a.peer("a", types.HardwareAddr{0x02, 0, 0, 0, 0, 2}))
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.core.data.pumpFromDevice()
	}()
	dev.in <- []byte{0xff, 0xff, 0xff}
	data := testFrame(types.BroadcastAddr, local, "ok")
	dev.in <- data
	assert.Equal(t, [][]byte{data}, a.drain(200*time.Millisecond))
	require.NoError(t, n.Close())
	<-done
}
