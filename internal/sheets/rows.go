package sheets

import (
	"strings"

	"financeiro/internal/core"
	"financeiro/internal/ledger"
	"financeiro/internal/report"
)

// Header is the first row of every exported tab.
var Header = []any{"Date", "Member", "Type", "Category", "Description", "Amount", "Tags", "ID"}

// LedgerRows renders doc as spreadsheet rows: the header, one row per
// transaction newest first, a blank row and the totals.
func LedgerRows(doc ledger.Document) [][]any {
	h := ledger.NewHousehold()
	h.Load(doc)
	names := h.MemberNames()
	txs := h.Transactions.Sorted(core.ViewAll, ledger.SortByDate, true)

	rows := make([][]any, 0, len(txs)+5)
	rows = append(rows, Header)
	for _, tx := range txs {
		cat := h.Categories.Lookup(tx.CategoryID, tx.Type)
		rows = append(rows, []any{
			tx.Date.Format("2006-01-02"),
			names.Name(tx.Owner),
			string(tx.Type),
			cat.Name,
			tx.Description,
			core.FormatAmount(tx.Amount),
			strings.Join(tx.Tags, ", "),
			tx.ID,
		})
	}

	sum := report.Totals(txs)
	rows = append(rows,
		[]any{},
		[]any{"Income", "", "", "", "", core.FormatAmount(sum.Income)},
		[]any{"Expense", "", "", "", "", core.FormatAmount(sum.Expense)},
		[]any{"Balance", "", "", "", "", core.FormatAmount(sum.Balance)},
	)
	return rows
}
