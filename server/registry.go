package server

import (
	"sync"

	"cupgame-server/protocol"
)

// Registry maps player IDs to their connected peers. It is safe for
// concurrent register/unregister/iterate; broadcasts operate on a
// snapshot taken under the lock so membership changes during a fan-out
// never affect the iteration.
type Registry struct {
	mu    sync.RWMutex
	peers map[int]*Peer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{peers: make(map[int]*Peer)}
}

// Register adds a joined peer under its player ID
func (r *Registry) Register(p *Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[p.PlayerID()] = p
}

// Unregister removes the peer registered under the given player ID.
// Unregistering an unknown ID is a no-op.
func (r *Registry) Unregister(playerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, playerID)
}

// Get returns the peer registered under the given player ID, or nil.
func (r *Registry) Get(playerID int) *Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.peers[playerID]
}

// Peers returns a snapshot of the currently registered peers
func (r *Registry) Peers() []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		snapshot = append(snapshot, p)
	}
	return snapshot
}

// Count returns the number of registered peers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// Broadcast sends m to every registered peer and returns the peers whose
// send failed. A failure to one peer never aborts delivery to the rest.
func (r *Registry) Broadcast(m protocol.Message) []*Peer {
	var failed []*Peer
	for _, p := range r.Peers() {
		if err := p.Send(m); err != nil {
			failed = append(failed, p)
		}
	}
	return failed
}
