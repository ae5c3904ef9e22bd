package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/core"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```JSON {\"a\":1}```", `{"a":1}`},
		{"```\n[1]\n```", `[1]`},
		{"  \n```json\n{}\n```  ", `{}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFence(tt.in))
	}
}

func TestParseReceipt(t *testing.T) {
	got, err := ParseReceipt("```json\n"+`{"amount": 75.50, "category": "Food", "description": " Corner Market ", "date": "2025-03-01", "tags": ["market", "groceries", "market"]}`+"\n```", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "75.5", got.Amount.String())
	assert.Equal(t, "Food", got.Category)
	assert.Equal(t, "Corner Market", got.Description)
	assert.Equal(t, "2025-03-01", got.Date)
	assert.Equal(t, []string{"market", "groceries"}, got.Tags)
}

func TestParseReceiptDefaults(t *testing.T) {
	got, err := ParseReceipt(`{"amount": 0, "description": "", "date": "", "tags": []}`, fixedNow)
	require.NoError(t, err)
	assert.True(t, got.Amount.IsZero())
	assert.Equal(t, "Other", got.Category)
	assert.Equal(t, "Receipt expense", got.Description)
	assert.Equal(t, "2025-06-15", got.Date)
	assert.Empty(t, got.Tags)
}

func TestParseReceiptMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"amount is a string", `{"amount": "abc", "description": "x", "date": "", "tags": []}`},
		{"negative amount", `{"amount": -3, "description": "x", "date": "", "tags": []}`},
		{"missing amount", `{"description": "x", "date": "", "tags": []}`},
		{"missing description", `{"amount": 1, "date": "", "tags": []}`},
		{"missing date", `{"amount": 1, "description": "x", "tags": []}`},
		{"missing tags", `{"amount": 1, "description": "x", "date": ""}`},
		{"tags not strings", `{"amount": 1, "description": "x", "date": "", "tags": [1]}`},
		{"category not string", `{"amount": 1, "description": "x", "date": "", "tags": [], "category": 3}`},
		{"array instead of object", `[{"amount": 1}]`},
		{"not json", `I could not read this receipt`},
		{"truncated json", `{"amount": 1,`},
		{"trailing garbage", `{"amount": 1, "description": "x", "date": "", "tags": []} extra`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReceipt(tt.body, fixedNow)
			assert.True(t, core.IsExtractionError(err, core.MalformedResponse), "got %v", err)
		})
	}
}

func TestParseStatement(t *testing.T) {
	body := `[
		{"amount": 50.00, "category": "Food", "description": "Bakery", "date": "2025-03-01"},
		{"amount": 20, "category": "", "description": "", "date": "2025-03-02"}
	]`
	items, err := ParseStatement(body, core.MemberB, fixedNow)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, core.MemberB, items[0].Owner)
	assert.Equal(t, core.Expense, items[0].Type)
	assert.Equal(t, "Bakery", items[0].Description)
	assert.Empty(t, items[0].TempID)
	assert.Equal(t, "Other", items[1].Category)
	assert.Equal(t, "Statement entry", items[1].Description)
}

func TestParseStatementMalformed(t *testing.T) {
	for _, body := range []string{
		`{"amount": 1, "description": "x", "date": "2025-01-01"}`,
		`[{"amount": "1", "description": "x", "date": "2025-01-01"}]`,
		`[{"amount": 1, "date": "2025-01-01"}]`,
		`[{"amount": 1, "description": "x"}]`,
		`["line"]`,
		`nope`,
	} {
		_, err := ParseStatement(body, core.MemberA, fixedNow)
		assert.True(t, core.IsExtractionError(err, core.MalformedResponse), "body %s: %v", body, err)
	}
}

func TestParseStatementEmptyArray(t *testing.T) {
	items, err := ParseStatement(`[]`, core.MemberA, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, items)
}
