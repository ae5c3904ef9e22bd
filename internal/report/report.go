// Package report derives totals from a transaction list. Every function is
// pure and leaves its inputs untouched.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"financeiro/internal/core"
)

type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

type CategoryTotal struct {
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
}

type MonthTotal struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Report is the combined dashboard projection.
type Report struct {
	Summary           Summary         `json:"summary"`
	ExpenseByCategory []CategoryTotal `json:"expenseByCategory"`
	IncomeByCategory  []CategoryTotal `json:"incomeByCategory"`
	ByMonth           []MonthTotal    `json:"byMonth"`
}

// CategoryResolver maps an id of a given type to a category, returning the
// "not found" placeholder for dangling ids.
type CategoryResolver interface {
	Lookup(id string, t core.TransactionType) core.Category
	ByType(t core.TransactionType) []core.Category
}

func Totals(txs []core.Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			s.Income = s.Income.Add(tx.Amount)
		case core.Expense:
			s.Expense = s.Expense.Add(tx.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s
}

// ByCategory sums transactions of type t per category. Known categories come
// first in store order; dangling ids follow, grouped under the placeholder
// name. Zero totals are omitted.
func ByCategory(txs []core.Transaction, cats CategoryResolver, t core.TransactionType) []CategoryTotal {
	sums := make(map[string]*CategoryTotal)
	known := make(map[string]struct{})
	for _, c := range cats.ByType(t) {
		known[c.ID] = struct{}{}
	}
	var dangling *CategoryTotal
	for _, tx := range txs {
		if tx.Type != t {
			continue
		}
		if _, ok := known[tx.CategoryID]; !ok {
			if dangling == nil {
				dangling = &CategoryTotal{Name: core.MissingCategoryName}
			}
			dangling.Total = dangling.Total.Add(tx.Amount)
			dangling.Count++
			continue
		}
		ct, ok := sums[tx.CategoryID]
		if !ok {
			c := cats.Lookup(tx.CategoryID, t)
			ct = &CategoryTotal{CategoryID: c.ID, Name: c.Name}
			sums[tx.CategoryID] = ct
		}
		ct.Total = ct.Total.Add(tx.Amount)
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(sums)+1)
	for _, c := range cats.ByType(t) {
		if ct, ok := sums[c.ID]; ok && !ct.Total.IsZero() {
			out = append(out, *ct)
		}
	}
	if dangling != nil && !dangling.Total.IsZero() {
		out = append(out, *dangling)
	}
	return out
}

// ByMonth groups by calendar month of the transaction date, oldest first.
func ByMonth(txs []core.Transaction) []MonthTotal {
	months := make(map[string]*MonthTotal)
	for _, tx := range txs {
		key := tx.Date.Format("2006-01")
		m, ok := months[key]
		if !ok {
			m = &MonthTotal{Month: key}
			months[key] = m
		}
		switch tx.Type {
		case core.Income:
			m.Income = m.Income.Add(tx.Amount)
		case core.Expense:
			m.Expense = m.Expense.Add(tx.Amount)
		}
	}
	out := make([]MonthTotal, 0, len(months))
	for _, m := range months {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func Build(txs []core.Transaction, cats CategoryResolver) Report {
	return Report{
		Summary:           Totals(txs),
		ExpenseByCategory: ByCategory(txs, cats, core.Expense),
		IncomeByCategory:  ByCategory(txs, cats, core.Income),
		ByMonth:           ByMonth(txs),
	}
}
