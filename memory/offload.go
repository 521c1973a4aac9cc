package memory

import (
	"sync"

	"github.com/orvane/agentcore/types"
)

// OffloadStore keeps full message content that has been replaced by a
// preview in the working log, keyed by an opaque reference ID.
type OffloadStore struct {
	mu      sync.RWMutex
	entries map[string][]types.Message
}

// NewOffloadStore creates an empty offload store.
func NewOffloadStore() *OffloadStore {
	return &OffloadStore{entries: make(map[string][]types.Message)}
}

// Put stores the given messages under id, replacing any previous entry.
func (s *OffloadStore) Put(id string, msgs []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]types.Message, len(msgs))
	copy(stored, msgs)
	s.entries[id] = stored
}

// Get returns the messages stored under id.
func (s *OffloadStore) Get(id string) ([]types.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out, true
}

// Delete removes the entry stored under id, if any.
func (s *OffloadStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Clear removes all entries.
func (s *OffloadStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]types.Message)
}

// Len returns the number of stored entries.
func (s *OffloadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IDs returns the reference IDs of all stored entries in unspecified order.
func (s *OffloadStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns a copy of the full store contents.
func (s *OffloadStore) Snapshot() map[string][]types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]types.Message, len(s.entries))
	for id, msgs := range s.entries {
		cp := make([]types.Message, len(msgs))
		copy(cp, msgs)
		out[id] = cp
	}
	return out
}

// Restore replaces the store contents with the given snapshot.
func (s *OffloadStore) Restore(entries map[string][]types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]types.Message, len(entries))
	for id, msgs := range entries {
		cp := make([]types.Message, len(msgs))
		copy(cp, msgs)
		s.entries[id] = cp
	}
}
