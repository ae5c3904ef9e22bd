// Package staging holds extracted expenses while the user reviews them
// before they become ledger transactions.
package staging

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financeiro/internal/core"
	"financeiro/internal/ledger"
)

// State of the buffer. Committed and cancelled are transitions back to Empty.
type State string

const (
	Empty  State = "empty"
	Staged State = "staged"
)

// Editable fields for UpdateField.
const (
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldDate        = "date"
	FieldOwner       = "owner"
	FieldTags        = "tags"
)

// fallbackCategory receives items committed without a category.
const fallbackCategory = "Other"

var (
	ErrAlreadyStaged   = errors.New("staging: items already staged")
	ErrNothingToImport = errors.New("staging: no items to import")
	ErrItemNotFound    = errors.New("staging: item not found")
	ErrUnknownField    = errors.New("staging: unknown field")
	ErrUnknownCategory = errors.New("staging: unknown category")
	ErrInvalidCategory = errors.New("staging: invalid category name")
)

// Buffer is the import staging area of one workspace. Not safe for
// concurrent use.
type Buffer struct {
	txs     *ledger.Transactions
	cats    *ledger.Categories
	items   []core.StagedTransaction
	state   State
	counter uint64
	now     func() time.Time
}

func New(txs *ledger.Transactions, cats *ledger.Categories) *Buffer {
	return &Buffer{txs: txs, cats: cats, state: Empty, now: time.Now}
}

// Stage loads extracted items and assigns each a temporary id. An empty list
// leaves the buffer empty.
func (b *Buffer) Stage(items []core.StagedTransaction) ([]core.StagedTransaction, error) {
	if b.state == Staged {
		return nil, ErrAlreadyStaged
	}
	if len(items) == 0 {
		return nil, nil
	}
	ingested := strconv.FormatInt(b.now().UnixMilli(), 10)
	staged := make([]core.StagedTransaction, 0, len(items))
	for _, item := range items {
		if item.Amount.IsNegative() {
			return nil, &core.ValidationError{Field: FieldAmount, Err: core.ErrInvalidAmount}
		}
		if !item.Owner.IsValid() {
			return nil, &core.ValidationError{Field: FieldOwner, Err: core.ErrInvalidMember}
		}
		b.counter++
		item.TempID = ingested + "-" + strconv.FormatUint(b.counter, 10)
		item.Type = core.Expense
		item.Tags = core.NormalizeTags(item.Tags)
		staged = append(staged, item)
	}
	b.items = staged
	b.state = Staged
	return b.Items(), nil
}

func (b *Buffer) State() State {
	return b.state
}

func (b *Buffer) Items() []core.StagedTransaction {
	out := make([]core.StagedTransaction, len(b.items))
	for i, item := range b.items {
		item.Tags = slices.Clone(item.Tags)
		out[i] = item
	}
	return out
}

func (b *Buffer) Len() int {
	return len(b.items)
}

// Total is the running sum of staged amounts.
func (b *Buffer) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.items {
		total = total.Add(item.Amount)
	}
	return total
}

// PendingCategories lists staged category names with no matching expense
// category. Commit creates them.
func (b *Buffer) PendingCategories() []string {
	var out []string
	for _, item := range b.items {
		if _, ok := b.cats.FindByName(item.Category, core.Expense); ok {
			continue
		}
		if !slices.ContainsFunc(out, func(s string) bool { return strings.EqualFold(s, item.Category) }) {
			out = append(out, item.Category)
		}
	}
	return out
}

// UpdateField edits one field of a staged item. Invalid input leaves the
// item unchanged.
func (b *Buffer) UpdateField(tempID, field, value string) error {
	i := b.index(tempID)
	if i < 0 {
		return ErrItemNotFound
	}
	item := b.items[i]
	switch field {
	case FieldAmount:
		amount, err := core.ParseAmount(value)
		if err != nil {
			return &core.ValidationError{Field: FieldAmount, Err: err}
		}
		item.Amount = amount
	case FieldDescription:
		item.Description = strings.TrimSpace(value)
	case FieldCategory:
		cat, ok := b.cats.FindByName(value, core.Expense)
		if !ok {
			return ErrUnknownCategory
		}
		item.Category = cat.Name
	case FieldDate:
		if _, err := core.ParseDate(value); err != nil {
			return &core.ValidationError{Field: FieldDate, Err: err}
		}
		item.Date = strings.TrimSpace(value)
	case FieldOwner:
		m := core.Member(value)
		if !m.IsValid() {
			return &core.ValidationError{Field: FieldOwner, Err: core.ErrInvalidMember}
		}
		item.Owner = m
	case FieldTags:
		item.Tags = core.SplitTags(value)
	default:
		return ErrUnknownField
	}
	b.items[i] = item
	return nil
}

// Remove drops one item. Removing the last item keeps the buffer staged.
func (b *Buffer) Remove(tempID string) bool {
	i := b.index(tempID)
	if i < 0 {
		return false
	}
	b.items = slices.Delete(b.items, i, i+1)
	return true
}

// CreateCategory adds an expense category named name, unless one already
// matches, and points the item at it.
func (b *Buffer) CreateCategory(tempID, name string) (core.Category, error) {
	i := b.index(tempID)
	if i < 0 {
		return core.Category{}, ErrItemNotFound
	}
	cat, ok := b.cats.FindByName(name, core.Expense)
	if !ok {
		cat, ok = b.cats.Add(name, core.Expense)
		if !ok {
			return core.Category{}, ErrInvalidCategory
		}
	}
	b.items[i].Category = cat.Name
	return cat, nil
}

// Commit turns every staged item into a ledger transaction and empties the
// buffer. Nothing is committed if any date cannot be normalized.
func (b *Buffer) Commit() ([]core.Transaction, error) {
	if len(b.items) == 0 {
		return nil, ErrNothingToImport
	}
	dates := make([]time.Time, len(b.items))
	for i, item := range b.items {
		d, err := core.ParseDate(item.Date)
		if err != nil {
			return nil, &core.ValidationError{Field: FieldDate, Err: err}
		}
		dates[i] = d
	}

	batch := make([]core.Transaction, 0, len(b.items))
	for i, item := range b.items {
		batch = append(batch, core.Transaction{
			Owner:       item.Owner,
			Type:        core.Expense,
			CategoryID:  b.resolveCategory(item.Category),
			Description: item.Description,
			Amount:      item.Amount,
			Tags:        item.Tags,
			Date:        dates[i],
		})
	}
	committed := b.txs.AddAll(batch)
	b.reset()
	return committed, nil
}

// Cancel discards every staged item and returns how many were dropped.
func (b *Buffer) Cancel() int {
	n := len(b.items)
	b.reset()
	return n
}

func (b *Buffer) resolveCategory(name string) string {
	if cat, ok := b.cats.FindByName(name, core.Expense); ok {
		return cat.ID
	}
	if cat, ok := b.cats.Add(name, core.Expense); ok {
		return cat.ID
	}
	// blank names end up under Other, recreated if it was deleted
	if cat, ok := b.cats.FindByName(fallbackCategory, core.Expense); ok {
		return cat.ID
	}
	cat, _ := b.cats.Add(fallbackCategory, core.Expense)
	return cat.ID
}

func (b *Buffer) reset() {
	b.items = nil
	b.state = Empty
}

func (b *Buffer) index(tempID string) int {
	return slices.IndexFunc(b.items, func(item core.StagedTransaction) bool { return item.TempID == tempID })
}
