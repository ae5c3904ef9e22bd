// Package ledger owns the in-memory household state: transactions,
// categories and member display names, plus the document they sync as.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"financeiro/internal/core"
)

// Document is the synced shape of a household. Nil sections mean "not
// present" and are left untouched by a merge.
type Document struct {
	Transactions []core.Transaction `json:"transactions"`
	Categories   []core.Category    `json:"categories"`
	MemberNames  *core.MemberNames  `json:"memberNames,omitempty"`
	Version      int64              `json:"version"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// ErrStaleVersion rejects a merge that is not newer than the stored document.
var ErrStaleVersion = errors.New("document version is not newer than the stored one")

// Merge overlays patch on base section by section. A patch with a non-zero
// version must be newer than base.
func Merge(base, patch Document) (Document, error) {
	if patch.Version != 0 && patch.Version <= base.Version {
		return base, fmt.Errorf("%w: stored %d, got %d", ErrStaleVersion, base.Version, patch.Version)
	}
	out := base
	if patch.Transactions != nil {
		out.Transactions = patch.Transactions
	}
	if patch.Categories != nil {
		out.Categories = patch.Categories
	}
	if patch.MemberNames != nil {
		names := *patch.MemberNames
		out.MemberNames = &names
	}
	if patch.Version > out.Version {
		out.Version = patch.Version
	}
	if patch.UpdatedAt.After(out.UpdatedAt) {
		out.UpdatedAt = patch.UpdatedAt
	}
	return out, nil
}

// Household bundles the stores of one signed-in identity.
type Household struct {
	Transactions *Transactions
	Categories   *Categories
	names        core.MemberNames
	onChange     func()
	version      int64
}

// NewHousehold returns a household seeded with defaults.
func NewHousehold() *Household {
	h := &Household{
		Transactions: NewTransactions(nil),
		Categories:   NewCategories(DefaultCategories()),
		names:        core.DefaultMemberNames(),
	}
	return h
}

// SetOnChange wires fn to every store mutation.
func (h *Household) SetOnChange(fn func()) {
	h.onChange = fn
	h.Transactions.SetOnChange(fn)
	h.Categories.SetOnChange(fn)
}

// Load replaces the state with doc without running the change hook.
// Missing sections fall back to defaults.
func (h *Household) Load(doc Document) {
	h.Transactions.Reset(doc.Transactions)
	if doc.Categories != nil {
		h.Categories.Reset(doc.Categories)
	} else {
		h.Categories.Reset(DefaultCategories())
	}
	h.names = core.DefaultMemberNames()
	if doc.MemberNames != nil && !doc.MemberNames.IsZero() {
		h.names = *doc.MemberNames
	}
	h.version = doc.Version
}

// Reset restores defaults without running the change hook.
func (h *Household) Reset() {
	h.Load(Document{})
}

// Snapshot captures the full state as a document with a bumped version.
func (h *Household) Snapshot(now time.Time) Document {
	h.version++
	names := h.names
	return Document{
		Transactions: h.Transactions.All(),
		Categories:   h.Categories.All(),
		MemberNames:  &names,
		Version:      h.version,
		UpdatedAt:    now,
	}
}

func (h *Household) MemberNames() core.MemberNames {
	return h.names
}

// SetMemberNames updates display names. Blank names keep the previous value.
func (h *Household) SetMemberNames(n core.MemberNames) {
	if n.MemberA != "" {
		h.names.MemberA = n.MemberA
	}
	if n.MemberB != "" {
		h.names.MemberB = n.MemberB
	}
	if h.onChange != nil {
		h.onChange()
	}
}
