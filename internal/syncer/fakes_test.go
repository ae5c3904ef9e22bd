package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"financeiro/internal/docstore"
	"financeiro/internal/ledger"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualClock records scheduled callbacks so tests decide when they fire.
type manualClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *manualClock) afterFunc(d time.Duration, f func()) stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fireAll runs every timer, including stopped ones, the way a real timer
// whose Stop lost the race would.
func (c *manualClock) fireAll() {
	c.mu.Lock()
	timers := append([]*fakeTimer(nil), c.timers...)
	c.mu.Unlock()
	for _, t := range timers {
		t.f()
	}
}

func (c *manualClock) live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type setCall struct {
	key   string
	doc   ledger.Document
	merge bool
}

type fakeStore struct {
	mu      sync.Mutex
	getErrs []error
	doc     *ledger.Document
	setErr  error
	sets    []setCall
	gets    int
}

var _ docstore.Store = (*fakeStore)(nil)

func (s *fakeStore) Get(ctx context.Context, key string) (ledger.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if len(s.getErrs) > 0 {
		err := s.getErrs[0]
		s.getErrs = s.getErrs[1:]
		return ledger.Document{}, err
	}
	if s.doc == nil {
		return ledger.Document{}, docstore.ErrNotFound
	}
	return *s.doc, nil
}

func (s *fakeStore) Set(ctx context.Context, key string, doc ledger.Document, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.sets = append(s.sets, setCall{key: key, doc: doc, merge: merge})
	return nil
}

func (s *fakeStore) setCalls() []setCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]setCall(nil), s.sets...)
}

var errNetwork = errors.New("network unreachable")
