package network

import (
	"sync"
	"time"

	"github.com/tapmesh/tapmesh/internal/log"
	"github.com/tapmesh/tapmesh/internal/metrics"
	"github.com/tapmesh/tapmesh/types"
)

// liveness pings every peer on an interval and evicts the ones that do not answer.
type liveness struct {
	core *core
	log  log.Logger
}

func (l *liveness) init(c *core) {
	l.core = c
	l.log = log.Component("liveness")
}

func (l *liveness) run() {
	ticker := time.NewTicker(l.core.config.livenessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.round()
		case <-l.core.closed:
			return
		}
	}
}

// round probes a snapshot of the registry concurrently and returns the evicted peers.
func (l *liveness) round() []types.Peer {
	peers := l.core.registry.snapshot()
	failed := make([]bool, len(peers))
	var wg sync.WaitGroup
	for idx := range peers {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if err := NewClient(peers[idx].ControlAddr, l.core.config.pingTimeout).Ping(); err != nil {
				l.log.WithError(err).WithField("peer", peers[idx].String()).Debug("ping failed")
				failed[idx] = true
			}
		}(idx)
	}
	wg.Wait()
	var dead []types.Peer
	for idx := range peers {
		if failed[idx] {
			dead = append(dead, peers[idx])
		}
	}
	if removed := l.core.registry.removeUnchanged(dead); removed > 0 {
		metrics.PeersEvictedTotal.Add(float64(removed))
		for _, peer := range dead {
			l.log.WithField("peer", peer.String()).Info("evicted unresponsive peer")
		}
	}
	return dead
}
