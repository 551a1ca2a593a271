package session

import "sync"

// Hub pushes snapshots to subscribers per session key. The publisher never
// blocks on a slow subscriber: each subscription keeps its own ordered queue.
//
// Resolution cycles are tracked per key. Begin starts a cycle and publishes an
// unresolved snapshot; Complete publishes the result only if no newer cycle
// has started, so a late answer cannot overwrite a sign-out.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	current    Snapshot
	hasCurrent bool
	version    uint64
	cycle      uint64
	pending    bool
	subs       map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]*topic)}
}

func (h *Hub) topicLocked(key string) *topic {
	t, ok := h.topics[key]
	if !ok {
		t = &topic{subs: make(map[*Subscription]struct{})}
		h.topics[key] = t
	}
	return t
}

// Subscribe registers a subscriber for key. The current snapshot, if any, is
// delivered first.
func (h *Hub) Subscribe(key string) *Subscription {
	sub := &Subscription{
		hub:  h,
		key:  key,
		wake: make(chan struct{}, 1),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topicLocked(key)
	t.subs[sub] = struct{}{}
	if t.hasCurrent {
		sub.push(t.current)
	}
	return sub
}

// Current returns the latest snapshot published for key.
func (h *Hub) Current(key string) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[key]
	if !ok || !t.hasCurrent {
		return Snapshot{}, false
	}
	return t.current, true
}

// Begin starts a resolution cycle for key and publishes an unresolved
// snapshot. The returned cycle number is passed to Complete.
func (h *Hub) Begin(key string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topicLocked(key)
	t.cycle++
	t.pending = true
	h.publishLocked(t, Unresolved())
	return t.cycle
}

// Complete publishes the result of cycle. It returns false and publishes
// nothing when a newer cycle has started since.
func (h *Hub) Complete(key string, cycle uint64, s Snapshot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[key]
	if !ok || t.cycle != cycle {
		return false
	}
	t.pending = false
	h.publishLocked(t, s)
	if len(t.subs) == 0 {
		delete(h.topics, key)
	}
	return true
}

// Range calls fn with every live key and its current snapshot. fn runs
// without the hub lock held.
func (h *Hub) Range(fn func(key string, current Snapshot)) {
	type entry struct {
		key  string
		snap Snapshot
	}
	h.mu.Lock()
	entries := make([]entry, 0, len(h.topics))
	for key, t := range h.topics {
		if t.hasCurrent {
			entries = append(entries, entry{key: key, snap: t.current})
		}
	}
	h.mu.Unlock()

	for _, e := range entries {
		fn(e.key, e.snap)
	}
}

func (h *Hub) publishLocked(t *topic, s Snapshot) {
	t.version++
	s.Version = t.version
	t.current = s
	t.hasCurrent = true
	for sub := range t.subs {
		sub.push(s)
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[sub.key]
	if !ok {
		return
	}
	delete(t.subs, sub)
	if len(t.subs) == 0 && !t.pending {
		delete(h.topics, sub.key)
	}
}

// Subscription receives snapshots for one key in publish order.
type Subscription struct {
	hub *Hub
	key string

	mu     sync.Mutex
	queue  []Snapshot
	closed bool
	wake   chan struct{}
}

func (s *Subscription) push(snap Snapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, snap)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Ready is signalled when snapshots are waiting to be drained.
func (s *Subscription) Ready() <-chan struct{} {
	return s.wake
}

// Drain returns all queued snapshots in publish order and empties the queue.
func (s *Subscription) Drain() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.queue
	s.queue = nil
	return out
}

// Close unsubscribes. Snapshots published afterwards are dropped.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	s.hub.unsubscribe(s)
}
