package main

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapmesh/tapmesh/types"
)

func samplePeers(t *testing.T) []types.Peer {
	a, err := types.NewPeer("node-a", netip.MustParseAddrPort("10.0.0.1:9909"), types.HardwareAddr{0x02, 0, 0, 0, 0, 0x0a})
	require.NoError(t, err)
	b, err := types.NewPeer("node-b", netip.MustParseAddrPort("10.0.0.2:9909"), types.HardwareAddr{})
	require.NoError(t, err)
	return []types.Peer{a, b}
}

func TestTableFormatter(t *testing.T) {
	out := NewFormatter("table").Format(samplePeers(t))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "CONTROL_ADDR", "DATA_ADDR", "HW_ADDR"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"node-a", "10.0.0.1:9909", "10.0.0.1:9908", "02:00:00:00:00:0a"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"node-b", "10.0.0.2:9909", "10.0.0.2:9908", "00:00:00:00:00:00"}, strings.Fields(lines[2]))

	assert.Equal(t, "No peers found.\n", NewFormatter("").Format([]types.Peer{}))
}

func TestJSONFormatter(t *testing.T) {
	out := NewFormatter("JSON").Format(samplePeers(t))
	assert.Contains(t, out, `"name": "node-a"`)
	assert.Contains(t, out, `"control_addr": "10.0.0.1:9909"`)
	assert.Contains(t, out, `"hw_addr": "02:00:00:00:00:0a"`)
}

func TestYAMLFormatter(t *testing.T) {
	out := NewFormatter("yaml").Format(samplePeers(t))
	assert.Contains(t, out, "name: node-b")
	assert.Contains(t, out, "data_addr: 10.0.0.2:9908")
	assert.Contains(t, out, "00:00:00:00:00:00")
}
