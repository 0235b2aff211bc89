package types

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeer(t *testing.T) {
	peer, err := ParsePeer("b=10.0.0.2:9909")
	require.NoError(t, err)
	assert.Equal(t, "b", peer.Name)
	assert.Equal(t, netip.MustParseAddrPort("10.0.0.2:9909"), peer.ControlAddr)
	assert.Equal(t, netip.MustParseAddrPort("10.0.0.2:9908"), peer.DataAddr)
	assert.False(t, peer.IsResolved())
}

func TestParsePeerDefaultPort(t *testing.T) {
	peer, err := ParsePeer("c=192.168.1.7")
	require.NoError(t, err)
	assert.Equal(t, uint16(DefaultControlPort), peer.ControlAddr.Port())
	assert.Equal(t, uint16(DefaultControlPort-1), peer.DataAddr.Port())
}

func TestParsePeerErrors(t *testing.T) {
	for _, input := range []string{"", "noaddr", "a=b=c", "=10.0.0.1:9909", "a=not-an-ip", "a=10.0.0.1:1"} {
		_, err := ParsePeer(input)
		var perr *PeerParseError
		assert.True(t, errors.As(err, &perr), "input %q", input)
	}
}

func TestParsePeers(t *testing.T) {
	peers, err := ParsePeers("a=10.0.0.1:9909, b=10.0.0.2:9919,")
	require.NoError(t, err)
	require.Len(t, peers, 2)
	assert.Equal(t, "a", peers[0].Name)
	assert.Equal(t, uint16(9918), peers[1].DataAddr.Port())

	_, err = ParsePeers("a=10.0.0.1:9909,broken")
	assert.Error(t, err)
}

func TestHardwareAddrText(t *testing.T) {
	var hw HardwareAddr
	require.NoError(t, hw.UnmarshalText([]byte("02:00:00:aa:bb:cc")))
	assert.Equal(t, "02:00:00:aa:bb:cc", hw.String())
	assert.False(t, hw.IsZero())
	assert.True(t, BroadcastAddr.IsBroadcast())
	assert.Error(t, hw.UnmarshalText([]byte("zz")))
}
