package ledger

import (
	"slices"
	"strings"
	"time"

	"financeiro/internal/core"
)

// Categories holds the income and expense labels. Names are unique per type,
// ignoring case. Not safe for concurrent use.
type Categories struct {
	items    []core.Category
	now      func() time.Time
	onChange func()
}

// DefaultCategories is the vocabulary seeded for a household with no data.
func DefaultCategories() []core.Category {
	return []core.Category{
		{ID: "e1", Name: "Food", Type: core.Expense},
		{ID: "e2", Name: "Housing", Type: core.Expense},
		{ID: "e3", Name: "Transport", Type: core.Expense},
		{ID: "e4", Name: "Leisure", Type: core.Expense},
		{ID: "e5", Name: "Health", Type: core.Expense},
		{ID: "e6", Name: "Other", Type: core.Expense},
		{ID: "i1", Name: "Salary", Type: core.Income},
		{ID: "i2", Name: "Freelance", Type: core.Income},
		{ID: "i3", Name: "Investments", Type: core.Income},
		{ID: "i4", Name: "Other", Type: core.Income},
	}
}

func NewCategories(items []core.Category) *Categories {
	c := &Categories{now: time.Now}
	c.Reset(items)
	return c
}

func (c *Categories) SetOnChange(fn func()) {
	c.onChange = fn
}

// Reset replaces the contents without running the change hook. Entries with
// an invalid type or a duplicate id are dropped.
func (c *Categories) Reset(items []core.Category) {
	c.items = make([]core.Category, 0, len(items))
	for _, cat := range items {
		if !cat.Type.IsValid() || c.index(cat.ID) >= 0 {
			continue
		}
		c.items = append(c.items, cat)
	}
}

// Add creates a category unless the name is blank or already used by a
// category of the same type.
func (c *Categories) Add(name string, t core.TransactionType) (core.Category, bool) {
	name = strings.TrimSpace(name)
	if name == "" || !t.IsValid() {
		return core.Category{}, false
	}
	if _, exists := c.FindByName(name, t); exists {
		return core.Category{}, false
	}
	cat := core.Category{ID: core.NewID(c.now()), Name: name, Type: t}
	c.items = append(c.items, cat)
	c.changed()
	return cat, true
}

// Rename changes the name of the category with id inside the type partition.
// The id is kept, so referencing transactions see the new name.
func (c *Categories) Rename(id, newName string, t core.TransactionType) bool {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return false
	}
	i := c.indexOf(id, t)
	if i < 0 {
		return false
	}
	if other, exists := c.FindByName(newName, t); exists && other.ID != id {
		return false
	}
	c.items[i].Name = newName
	c.changed()
	return true
}

// Delete removes the category with id inside the type partition.
// Transactions that reference it are left untouched.
func (c *Categories) Delete(id string, t core.TransactionType) bool {
	i := c.indexOf(id, t)
	if i < 0 {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	c.changed()
	return true
}

func (c *Categories) Get(id string) (core.Category, bool) {
	i := c.index(id)
	if i < 0 {
		return core.Category{}, false
	}
	return c.items[i], true
}

// Lookup resolves id for display, falling back to the "not found"
// placeholder for dangling references.
func (c *Categories) Lookup(id string, t core.TransactionType) core.Category {
	if cat, ok := c.Get(id); ok {
		return cat
	}
	return core.MissingCategory(id, t)
}

// FindByName matches name case-insensitively within type t.
func (c *Categories) FindByName(name string, t core.TransactionType) (core.Category, bool) {
	name = strings.TrimSpace(name)
	for _, cat := range c.items {
		if cat.Type == t && strings.EqualFold(cat.Name, name) {
			return cat, true
		}
	}
	return core.Category{}, false
}

func (c *Categories) ByType(t core.TransactionType) []core.Category {
	out := make([]core.Category, 0, len(c.items))
	for _, cat := range c.items {
		if cat.Type == t {
			out = append(out, cat)
		}
	}
	return out
}

// Names lists the names of type t in store order.
func (c *Categories) Names(t core.TransactionType) []string {
	cats := c.ByType(t)
	names := make([]string, len(cats))
	for i, cat := range cats {
		names[i] = cat.Name
	}
	return names
}

func (c *Categories) All() []core.Category {
	return slices.Clone(c.items)
}

func (c *Categories) index(id string) int {
	return slices.IndexFunc(c.items, func(cat core.Category) bool { return cat.ID == id })
}

func (c *Categories) indexOf(id string, t core.TransactionType) int {
	return slices.IndexFunc(c.items, func(cat core.Category) bool { return cat.ID == id && cat.Type == t })
}

func (c *Categories) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
