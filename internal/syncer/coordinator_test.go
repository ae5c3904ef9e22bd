package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/core"
	"financeiro/internal/docstore/memory"
	"financeiro/internal/ledger"
	"financeiro/internal/log"
)

type recordingNotifier struct {
	mu       sync.Mutex
	versions []int64
}

func (n *recordingNotifier) NotifySynced(_ context.Context, _ string, version int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.versions = append(n.versions, version)
	return nil
}

type harness struct {
	store *fakeStore
	clock *manualClock
	house *ledger.Household
	coord *Coordinator
	mu    sync.Mutex
	errs  []error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: &fakeStore{}, clock: &manualClock{}, house: ledger.NewHousehold()}
	snapshot := func() ledger.Document { return h.house.Snapshot(time.Unix(0, 0)) }
	h.coord = NewCoordinator(h.store, "u1", snapshot, Config{}, log.Discard())
	h.coord.debounce.afterFunc = h.clock.afterFunc
	h.coord.OnResult(func(err error) {
		h.mu.Lock()
		h.errs = append(h.errs, err)
		h.mu.Unlock()
	})
	h.house.SetOnChange(h.coord.Touch)
	return h
}

func expense(amount string) core.Transaction {
	return core.Transaction{Owner: core.MemberA, Type: core.Expense, CategoryID: "e1", Description: "x", Amount: decimal.RequireFromString(amount)}
}

func TestRapidMutationsProduceOneWrite(t *testing.T) {
	h := newHarness(t)
	h.coord.MarkLoaded()

	for i := 1; i <= 5; i++ {
		h.house.Transactions.Add(expense("1"))
	}
	h.clock.fireAll()

	sets := h.store.setCalls()
	require.Len(t, sets, 1)
	assert.Len(t, sets[0].doc.Transactions, 5, "state as of the last mutation")
	assert.True(t, sets[0].merge)
	assert.Equal(t, "u1", sets[0].key)
}

func TestNoWritesBeforeLoad(t *testing.T) {
	h := newHarness(t)

	h.house.Transactions.Add(expense("1"))
	h.clock.fireAll()
	assert.False(t, h.coord.Pending())
	assert.Empty(t, h.store.setCalls())

	h.coord.MarkLoaded()
	h.house.Categories.Add("Pets", core.Expense)
	assert.True(t, h.coord.Pending())
	assert.True(t, h.coord.Flush())
	assert.Len(t, h.store.setCalls(), 1)
}

func TestFailedWriteIsReportedAndRetriedOnNextMutation(t *testing.T) {
	h := newHarness(t)
	h.coord.MarkLoaded()
	h.store.setErr = errNetwork

	h.house.Transactions.Add(expense("1"))
	h.coord.Flush()
	require.Len(t, h.errs, 1)
	assert.True(t, core.IsSyncError(h.errs[0]))
	assert.ErrorIs(t, h.errs[0], errNetwork)
	assert.Equal(t, 1, h.house.Transactions.Len(), "local state kept")

	h.store.setErr = nil
	h.house.SetMemberNames(core.MemberNames{MemberA: "Ana"})
	h.coord.Flush()
	require.Len(t, h.errs, 2)
	assert.NoError(t, h.errs[1])
	sets := h.store.setCalls()
	require.Len(t, sets, 1)
	assert.Len(t, sets[0].doc.Transactions, 1)
}

func TestNotifierSeesSuccessfulWrites(t *testing.T) {
	h := newHarness(t)
	n := &recordingNotifier{}
	h.coord.SetNotifier(n)
	h.coord.MarkLoaded()

	h.house.Transactions.Add(expense("1"))
	h.coord.Flush()
	h.house.Transactions.Add(expense("2"))
	h.coord.Flush()

	assert.Equal(t, []int64{1, 2}, n.versions)
}

func TestCloseCancelsPendingWrite(t *testing.T) {
	h := newHarness(t)
	h.coord.MarkLoaded()

	h.house.Transactions.Add(expense("1"))
	h.coord.Close()
	h.clock.fireAll()
	h.house.Transactions.Add(expense("2"))
	h.coord.Flush()

	assert.Empty(t, h.store.setCalls())
	assert.False(t, h.coord.Pending())
}

// gatedStore holds the first Set until release is closed.
type gatedStore struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Set(ctx context.Context, key string, doc ledger.Document, merge bool) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.Store.Set(ctx, key, doc, merge)
}

func (c *manualClock) fire(i int) {
	c.mu.Lock()
	t := c.timers[i]
	c.mu.Unlock()
	t.f()
}

func TestOverlappingWritesLandInOrder(t *testing.T) {
	store := &gatedStore{Store: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	clock := &manualClock{}
	house := ledger.NewHousehold()
	coord := NewCoordinator(store, "u1", func() ledger.Document { return house.Snapshot(time.Unix(0, 0)) }, Config{}, log.Discard())
	coord.debounce.afterFunc = clock.afterFunc
	var errs []error
	var mu sync.Mutex
	coord.OnResult(func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	house.SetOnChange(coord.Touch)
	coord.MarkLoaded()

	house.Transactions.Add(expense("1"))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		clock.fire(0)
	}()
	<-store.entered

	house.Transactions.Add(expense("2"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		clock.fire(1)
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	got, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, got.Transactions, 2, "latest state stored")
	assert.Equal(t, int64(2), got.Version)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
}
