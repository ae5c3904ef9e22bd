package ledger

import (
	"slices"
	"time"

	"financeiro/internal/core"
)

// SortKey selects the ordering of a derived transaction view.
type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByAmount SortKey = "amount"
)

// Transactions is the ordered transaction collection, most recent first.
// It is not safe for concurrent use; the owning workspace serializes access.
type Transactions struct {
	items    []core.Transaction
	now      func() time.Time
	onChange func()
}

// NewTransactions builds a store from persisted entries. Later duplicates of
// an id are dropped.
func NewTransactions(items []core.Transaction) *Transactions {
	s := &Transactions{now: time.Now}
	s.Reset(items)
	return s
}

// SetOnChange registers the hook run after every mutation.
func (s *Transactions) SetOnChange(fn func()) {
	s.onChange = fn
}

// Reset replaces the contents without running the change hook.
func (s *Transactions) Reset(items []core.Transaction) {
	s.items = make([]core.Transaction, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, tx := range items {
		if _, dup := seen[tx.ID]; dup {
			continue
		}
		seen[tx.ID] = struct{}{}
		s.items = append(s.items, clone(tx))
	}
}

// Add assigns ID and CreatedAt when absent and prepends the entry. An entry
// whose id is already present replaces the existing one in place.
func (s *Transactions) Add(tx core.Transaction) core.Transaction {
	tx = s.prepare(tx)
	if i := s.index(tx.ID); i >= 0 {
		s.items[i] = tx
	} else {
		s.items = append([]core.Transaction{tx}, s.items...)
	}
	s.changed()
	return clone(tx)
}

// AddAll prepends a batch keeping its order and runs the change hook once.
func (s *Transactions) AddAll(txs []core.Transaction) []core.Transaction {
	if len(txs) == 0 {
		return nil
	}
	fresh := make([]core.Transaction, 0, len(txs))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		tx = s.prepare(tx)
		switch i, j := s.index(tx.ID), slices.IndexFunc(fresh, sameID(tx.ID)); {
		case i >= 0:
			s.items[i] = tx
		case j >= 0:
			fresh[j] = tx
		default:
			fresh = append(fresh, tx)
		}
		out = append(out, clone(tx))
	}
	s.items = append(fresh, s.items...)
	s.changed()
	return out
}

// Remove deletes the entry with id. Removing an absent id is a no-op.
func (s *Transactions) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.changed()
	return true
}

// Update replaces the entry with the same id. Unknown ids are ignored.
func (s *Transactions) Update(tx core.Transaction) bool {
	i := s.index(tx.ID)
	if i < 0 {
		return false
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.items[i].CreatedAt
	}
	tx.Tags = core.NormalizeTags(tx.Tags)
	s.items[i] = tx
	s.changed()
	return true
}

func (s *Transactions) Get(id string) (core.Transaction, bool) {
	i := s.index(id)
	if i < 0 {
		return core.Transaction{}, false
	}
	return clone(s.items[i]), true
}

// All returns a copy of every entry in store order.
func (s *Transactions) All() []core.Transaction {
	return s.FilterByUser(core.ViewAll)
}

func (s *Transactions) Len() int {
	return len(s.items)
}

// FilterByUser returns the entries visible under view in store order.
func (s *Transactions) FilterByUser(view core.ViewFilter) []core.Transaction {
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		if view.Matches(tx.Owner) {
			out = append(out, clone(tx))
		}
	}
	return out
}

// Sorted returns the filtered view ordered by key. Ties keep store order.
func (s *Transactions) Sorted(view core.ViewFilter, key SortKey, desc bool) []core.Transaction {
	out := s.FilterByUser(view)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		var c int
		switch key {
		case SortByAmount:
			c = a.Amount.Cmp(b.Amount)
		default:
			c = a.Date.Compare(b.Date)
		}
		if desc {
			return -c
		}
		return c
	})
	return out
}

func (s *Transactions) prepare(tx core.Transaction) core.Transaction {
	now := s.now()
	if tx.ID == "" {
		tx.ID = core.NewID(now)
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.Tags = core.NormalizeTags(tx.Tags)
	return tx
}

func (s *Transactions) index(id string) int {
	return slices.IndexFunc(s.items, sameID(id))
}

func sameID(id string) func(core.Transaction) bool {
	return func(tx core.Transaction) bool { return tx.ID == id }
}

func (s *Transactions) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func clone(tx core.Transaction) core.Transaction {
	tx.Tags = slices.Clone(tx.Tags)
	if tx.Tags == nil {
		tx.Tags = []string{}
	}
	return tx
}
