package jobs

import "sync"

// Store is the shared, concurrency-safe holder of the current collection.
// All mutation goes through Reconcile or Patch, each of which replaces the
// collection reference atomically.
type Store struct {
	mu      sync.RWMutex
	jobs    Collection
	version uint64
	subs    map[int]func(Collection)
	nextSub int

	// notifyMu serializes fan-out; delivered is the last version sent.
	notifyMu  sync.Mutex
	delivered uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{subs: make(map[int]func(Collection))}
}

// Snapshot returns the current collection reference. Callers must not mutate it.
func (s *Store) Snapshot() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs
}

// Version increments each time the reference changes.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of jobs held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Get returns the job with id from the current snapshot.
func (s *Store) Get(id string) (*Job, bool) {
	return s.Snapshot().Find(id)
}

// Reconcile merges a full server snapshot. It reports whether the reference
// changed; subscribers are notified only in that case.
func (s *Store) Reconcile(incoming Collection) bool {
	return s.swap(func(current Collection) Collection {
		return Reconcile(current, incoming)
	})
}

// Patch applies a partial update to one job.
func (s *Store) Patch(id string, patch Patch) bool {
	return s.swap(func(current Collection) Collection {
		return ApplyPatch(current, id, patch)
	})
}

func (s *Store) swap(next func(Collection) Collection) bool {
	s.mu.Lock()
	current := s.jobs
	updated := next(current)
	if Same(current, updated) {
		s.mu.Unlock()
		return false
	}
	s.jobs = updated
	s.version++
	s.mu.Unlock()

	s.notify()
	return true
}

// notify sends the newest collection to subscribers. Deliveries never go
// back in version, so a swap overtaken by a later one is folded into it.
// Subscribers must not mutate the store from the callback.
func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.RLock()
	list, version := s.jobs, s.version
	subs := make([]func(Collection), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	if version <= s.delivered {
		return
	}
	s.delivered = version
	for _, fn := range subs {
		fn(list)
	}
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(Collection)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
