package application

import (
	"sort"
	"sync"
)

// ComponentSerializer orders workflows per component id. Each id owns a FIFO queue of
// scan ids; a workflow owns its components once it heads the queue of every one of them.
// A workflow is queued on all of its ids in one step, so two workflows sharing
// components are ordered the same way on each and never wait on each other in a cycle.
//
// Nothing blocks here. A workflow that does not own its components yet is parked, and
// Leave reports the parked workflows that became owners.
type ComponentSerializer struct {
	mu     sync.Mutex
	queues map[string][]string
	claims map[string][]string
}

// NewComponentSerializer creates an empty serializer.
func NewComponentSerializer() *ComponentSerializer {
	return &ComponentSerializer{
		queues: make(map[string][]string),
		claims: make(map[string][]string),
	}
}

// Enter queues scanID behind earlier workflows on each of ids and reports whether it
// owns all of them now. Entering twice keeps the original place.
func (s *ComponentSerializer) Enter(scanID string, ids []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[scanID]; ok {
		return s.ownsLocked(scanID)
	}
	keys := sortedUnique(ids)
	s.claims[scanID] = keys
	for _, id := range keys {
		s.queues[id] = append(s.queues[id], scanID)
	}
	return s.ownsLocked(scanID)
}

// Leave drops scanID from every queue, whether it owned its ids or was still waiting,
// and returns the workflows that own all of their ids as a result.
func (s *ComponentSerializer) Leave(scanID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, ok := s.claims[scanID]
	if !ok {
		return nil
	}
	delete(s.claims, scanID)

	var heads []string
	for _, id := range keys {
		q := s.queues[id]
		wasHead := len(q) > 0 && q[0] == scanID
		q = without(q, scanID)
		if len(q) == 0 {
			delete(s.queues, id)
			continue
		}
		s.queues[id] = q
		if wasHead {
			heads = append(heads, q[0])
		}
	}

	var granted []string
	seen := make(map[string]bool, len(heads))
	for _, h := range heads {
		if seen[h] {
			continue
		}
		seen[h] = true
		if s.ownsLocked(h) {
			granted = append(granted, h)
		}
	}
	return granted
}

// Owns reports whether scanID heads the queue of every id it entered with.
func (s *ComponentSerializer) Owns(scanID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[scanID]; !ok {
		return false
	}
	return s.ownsLocked(scanID)
}

// Waiters returns the number of owners and waiters queued on id.
func (s *ComponentSerializer) Waiters(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[id])
}

func (s *ComponentSerializer) ownsLocked(scanID string) bool {
	for _, id := range s.claims[scanID] {
		q := s.queues[id]
		if len(q) == 0 || q[0] != scanID {
			return false
		}
	}
	return true
}

func without(q []string, scanID string) []string {
	for i, v := range q {
		if v == scanID {
			return append(q[:i:i], q[i+1:]...)
		}
	}
	return q
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
