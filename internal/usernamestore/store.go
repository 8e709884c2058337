// Package usernamestore caches the bidirectional mapping between
// human-readable usernames and the peer ids that registered them, so
// repeated lookups for the same name don't need a fresh DHT round-trip.
package usernamestore

import (
	"strings"
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Store is a bidirectional, lowercase-insensitive username <-> peer id
// cache. The zero value is not usable; construct with New.
//
// The forward and reverse maps are always kept in lock-step: inserting a
// pair never leaves one half updated without the other. Entries are only
// removed when an overwrite evicts the stale halves of an older pair (the
// last DHT record seen for a name always wins, consistent with the
// underlying store's eventual consistency).
type Store struct {
	mu      sync.RWMutex
	forward map[string]peer.ID  // lowercased username -> peer id
	reverse map[peer.ID]string  // peer id -> original-case username
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		forward: make(map[string]peer.ID),
		reverse: make(map[peer.ID]string),
	}
}

// LookupPeerID returns the peer id registered for username, if any. The
// lookup is case-insensitive.
func (s *Store) LookupPeerID(username string) (peer.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.forward[strings.ToLower(username)]
	return id, ok
}

// LookupUsername returns the original-case username registered for id, if
// any.
func (s *Store) LookupUsername(id peer.ID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.reverse[id]
	return name, ok
}

// Insert atomically records that username resolves to id. If either half
// already maps to a different value, both halves are overwritten so the
// store never holds an inconsistent pair: last writer wins.
func (s *Store) Insert(username string, id peer.ID) {
	low := strings.ToLower(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if oldID, ok := s.forward[low]; ok && oldID != id {
		delete(s.reverse, oldID)
	}
	if oldName, ok := s.reverse[id]; ok && strings.ToLower(oldName) != low {
		delete(s.forward, strings.ToLower(oldName))
	}
	s.forward[low] = id
	s.reverse[id] = username
}
