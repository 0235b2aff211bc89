package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapmesh/tapmesh/types"
)

func TestResolverConverges(t *testing.T) {
	n, _ := newTestNode(t, "self", types.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		WithResolveTimeout(100*time.Millisecond),
		WithResolveRetry(time.Hour),
	)
	var responders []*responder
	for idx := 0; idx < 3; idx++ {
		r := newResponder(t, "r", types.HardwareAddr{0x02, 0, 0, 0, 1, byte(idx + 1)})
		r.drop.Store(int32(idx)) // the i-th peer answers on pass i+1
		responders = append(responders, r)
		n.core.registry.upsert(r.peer())
	}
	assert.Equal(t, 2, n.core.resolver.pass())
	assert.Equal(t, 1, n.core.resolver.pass())
	assert.Equal(t, 0, n.core.resolver.pass())
	for _, r := range responders {
		p, ok := n.core.registry.lookup(r.hw)
		require.True(t, ok)
		assert.Equal(t, r.addr(), p.ControlAddr)
	}
	// nothing left to do, so nobody is queried again
	before := responders[0].requests.Load()
	assert.Equal(t, 0, n.core.resolver.pass())
	assert.Equal(t, before, responders[0].requests.Load())
}

func TestResolverRetriesOnTimer(t *testing.T) {
	n, _ := newTestNode(t, "self", types.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		WithResolveTimeout(100*time.Millisecond),
		WithResolveRetry(10*time.Millisecond),
	)
	r := newResponder(t, "r", types.HardwareAddr{0x02, 0, 0, 0, 0, 2})
	r.drop.Store(3)
	n.core.registry.upsert(r.peer())
	n.core.resolver.kick(nil)
	require.Eventually(t, func() bool {
		_, unresolved := n.core.registry.counts()
		return unresolved == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(4), r.requests.Load())
}

func TestResolverStop(t *testing.T) {
	n, _ := newTestNode(t, "self", types.HardwareAddr{0x02, 0, 0, 0, 0, 1})
	r := newResponder(t, "r", types.HardwareAddr{0x02, 0, 0, 0, 0, 2})
	n.core.registry.upsert(r.peer())
	n.core.resolver.stop()
	assert.Equal(t, 0, n.core.resolver.pass())
	assert.Equal(t, int32(0), r.requests.Load())
}
