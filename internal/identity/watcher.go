package identity

import "sync"

// Watcher delivers session changes. Subscribers receive the current session
// on subscribe and nil after sign-out.
type Watcher struct {
	mu      sync.Mutex
	current *Session
	subs    map[uint64]func(*Session)
	next    uint64
}

func NewWatcher() *Watcher {
	return &Watcher{subs: make(map[uint64]func(*Session))}
}

// Subscription stops delivery when closed.
type Subscription struct {
	once sync.Once
	stop func()
}

// Close is idempotent.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.stop)
}

// OnSessionChange registers cb and immediately calls it with the current
// session, which may be nil.
func (w *Watcher) OnSessionChange(cb func(*Session)) *Subscription {
	w.mu.Lock()
	id := w.next
	w.next++
	w.subs[id] = cb
	current := copySession(w.current)
	w.mu.Unlock()

	cb(current)
	return &Subscription{stop: func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}}
}

// Publish records s as the current session and notifies subscribers. Pass
// nil on sign-out.
func (w *Watcher) Publish(s *Session) {
	w.mu.Lock()
	w.current = copySession(s)
	cbs := make([]func(*Session), 0, len(w.subs))
	for _, cb := range w.subs {
		cbs = append(cbs, cb)
	}
	w.mu.Unlock()

	for _, cb := range cbs {
		cb(copySession(s))
	}
}

// Current returns the last published session.
func (w *Watcher) Current() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copySession(w.current)
}

func copySession(s *Session) *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
