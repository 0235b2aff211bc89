package network

import (
	"time"

	"github.com/Arceliar/phony"

	"github.com/tapmesh/tapmesh/internal/log"
)

// resolver fills in missing hardware addresses. Each pass queries every unresolved peer;
// while any remain, the next pass is scheduled on a single reusable timer.
type resolver struct {
	phony.Inbox
	core    *core
	log     log.Logger
	timer   *time.Timer
	stopped bool
}

func (r *resolver) init(c *core) {
	r.core = c
	r.log = log.Component("resolver")
	r.timer = time.AfterFunc(time.Hour, func() {
		r.Act(nil, func() { r._pass() })
	})
	r.timer.Stop()
}

// kick runs a pass soon, e.g. after new peers were added.
func (r *resolver) kick(from phony.Actor) {
	r.Act(from, func() { r._pass() })
}

// pass runs one pass synchronously and returns how many peers are still unresolved.
func (r *resolver) pass() (remaining int) {
	phony.Block(r, func() {
		remaining = r._pass()
	})
	return
}

func (r *resolver) stop() {
	r.Act(nil, func() {
		r.stopped = true
		r.timer.Stop()
	})
}

func (r *resolver) _pass() int {
	if r.stopped {
		return 0
	}
	for _, peer := range r.core.registry.unresolved() {
		hw, err := NewClient(peer.ControlAddr, r.core.config.resolveTimeout).HardwareAddr()
		if err != nil {
			r.log.WithError(err).WithField("peer", peer.String()).Debug("hardware address query failed")
			continue
		}
		if hw.IsZero() {
			continue
		}
		if r.core.registry.setHardwareAddr(peer.ControlAddr, hw) {
			r.log.WithField("peer", peer.String()).WithField("hw_addr", hw.String()).Info("peer resolved")
		}
	}
	_, remaining := r.core.registry.counts()
	if remaining > 0 {
		r.timer.Reset(r.core.config.resolveRetry)
	} else {
		r.timer.Stop()
	}
	return remaining
}
