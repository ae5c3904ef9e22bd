package extraction

import (
	"fmt"
	"strings"
)

func receiptPrompt(categories []string) string {
	return fmt.Sprintf(`Analyze the image of this receipt or invoice for a single expense. Extract the following and return them STRICTLY as a JSON object:
1. "amount": the total as a number (for example 123.45). Use 0 if not found.
2. "category": a suggested category. Prefer one of the existing categories when it fits: [%s]. Otherwise use "Other".
3. "description": a short description such as the merchant name. Use "" if not found.
4. "date": the purchase date as YYYY-MM-DD. Use "" if not found.
5. "tags": an array of 3 to 5 relevant lowercase tags. Use [] if none apply.

Return only the JSON object with no extra text or markdown.

Example:
{"amount": 75.50, "category": "Food", "description": "Corner Market", "date": "2025-03-01", "tags": ["market", "groceries"]}`,
		quoteList(categories))
}

func statementPrompt(categories []string) string {
	return fmt.Sprintf(`Analyze the image of this card statement and extract every expense transaction.
Prefer these existing categories when one fits: [%s].
Dates must be YYYY-MM-DD; when the year is unclear use the current year.`,
		quoteList(categories))
}

// statementSchema is the response schema hint for statement extraction.
func statementSchema(categories []string) *Schema {
	return &Schema{
		Type: "ARRAY",
		Items: &Schema{
			Type: "OBJECT",
			Properties: map[string]Schema{
				"amount":      {Type: "NUMBER", Description: "The expense amount."},
				"category":    {Type: "STRING", Description: "Suggested category. Existing categories: " + strings.Join(categories, ", ") + "."},
				"description": {Type: "STRING", Description: "Item description or merchant name."},
				"date":        {Type: "STRING", Description: "Transaction date as YYYY-MM-DD."},
			},
			Required: []string{"amount", "description", "date", "category"},
		},
	}
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
