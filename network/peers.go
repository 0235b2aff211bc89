package network

import (
	"net/netip"
	"sync"

	"github.com/tapmesh/tapmesh/internal/metrics"
	"github.com/tapmesh/tapmesh/types"
)

// registry is the peer table shared by every component of a node.
// Readers (dispatch, control replies) take the read lock; mutations take the write lock.
// Nobody holds either lock across network I/O.
type registry struct {
	mutex  sync.RWMutex
	name   string
	hwAddr types.HardwareAddr
	peers  []types.Peer
}

func (r *registry) init(name string, hwAddr types.HardwareAddr) {
	r.name = name
	r.hwAddr = hwAddr
}

// _index returns the position of the peer with the given control address, or -1.
func (r *registry) _index(controlAddr netip.AddrPort) int {
	for idx := range r.peers {
		if r.peers[idx].ControlAddr == controlAddr {
			return idx
		}
	}
	return -1
}

func (r *registry) _upsert(peer types.Peer, keepHardwareAddr bool) {
	idx := r._index(peer.ControlAddr)
	if idx < 0 {
		r.peers = append(r.peers, peer)
		return
	}
	existing := &r.peers[idx]
	existing.Name = peer.Name
	if keepHardwareAddr && existing.IsResolved() {
		return
	}
	existing.HardwareAddr = peer.HardwareAddr
}

// upsert inserts the peer, or overwrites the name and hardware address of the entry with the same control address.
func (r *registry) upsert(peer types.Peer) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r._upsert(peer, false)
	r._updateGauges()
}

func (r *registry) upsertMany(peers []types.Peer) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, peer := range peers {
		r._upsert(peer, false)
	}
	r._updateGauges()
}

// merge is the discovery flavour of upsert: an already resolved hardware address is kept.
func (r *registry) merge(peers []types.Peer) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, peer := range peers {
		r._upsert(peer, true)
	}
	r._updateGauges()
}

// setHardwareAddr records a resolved hardware address. It reports false if the peer is gone.
func (r *registry) setHardwareAddr(controlAddr netip.AddrPort, hwAddr types.HardwareAddr) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	idx := r._index(controlAddr)
	if idx < 0 {
		return false
	}
	r.peers[idx].HardwareAddr = hwAddr
	r._updateGauges()
	return true
}

// remove deletes every peer whose name equals name or whose control IP equals host.
// A nil name or an invalid host disables that filter; with both disabled nothing is removed.
func (r *registry) remove(name *string, host netip.Addr) int {
	if name == nil && !host.IsValid() {
		return 0
	}
	host = host.Unmap()
	return r._filter(func(peer *types.Peer) bool {
		if name != nil && peer.Name == *name {
			return true
		}
		return host.IsValid() && peer.ControlAddr.Addr() == host
	})
}

// removeUnchanged deletes the entries still equal to one of peers. An entry that was
// renamed or re-resolved since peers was read is kept.
func (r *registry) removeUnchanged(peers []types.Peer) int {
	if len(peers) == 0 {
		return 0
	}
	return r._filter(func(peer *types.Peer) bool {
		for idx := range peers {
			if *peer == peers[idx] {
				return true
			}
		}
		return false
	})
}

func (r *registry) _filter(drop func(*types.Peer) bool) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	kept := r.peers[:0]
	for idx := range r.peers {
		if !drop(&r.peers[idx]) {
			kept = append(kept, r.peers[idx])
		}
	}
	removed := len(r.peers) - len(kept)
	for idx := len(kept); idx < len(r.peers); idx++ {
		r.peers[idx] = types.Peer{}
	}
	r.peers = kept
	r._updateGauges()
	return removed
}

func (r *registry) snapshot() []types.Peer {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]types.Peer(nil), r.peers...)
}

// lookup finds the first peer with the given hardware address.
// The zero address never matches, it only marks unresolved peers.
func (r *registry) lookup(hwAddr types.HardwareAddr) (types.Peer, bool) {
	if hwAddr.IsZero() {
		return types.Peer{}, false
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for idx := range r.peers {
		if r.peers[idx].HardwareAddr == hwAddr {
			return r.peers[idx], true
		}
	}
	return types.Peer{}, false
}

// forEach calls fn for every peer while holding the read lock. fn must not touch the registry.
func (r *registry) forEach(fn func(peer *types.Peer)) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for idx := range r.peers {
		fn(&r.peers[idx])
	}
}

func (r *registry) unresolved() []types.Peer {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	var peers []types.Peer
	for idx := range r.peers {
		if !r.peers[idx].IsResolved() {
			peers = append(peers, r.peers[idx])
		}
	}
	return peers
}

func (r *registry) counts() (total, unresolved int) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r._counts()
}

func (r *registry) _counts() (total, unresolved int) {
	for idx := range r.peers {
		if !r.peers[idx].IsResolved() {
			unresolved++
		}
	}
	return len(r.peers), unresolved
}

func (r *registry) _updateGauges() {
	total, unresolved := r._counts()
	metrics.Peers.Set(float64(total))
	metrics.UnresolvedPeers.Set(float64(unresolved))
}
