package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financeiro/internal/core"
)

const (
	defaultCategory          = "Other"
	defaultReceiptDesc       = "Receipt expense"
	defaultStatementItemDesc = "Statement entry"
)

var (
	errNotJSON      = errors.New("response is not valid JSON")
	errNotObject    = errors.New("expected a JSON object")
	errNotArray     = errors.New("expected a JSON array of transactions")
	errTrailingData = errors.New("unexpected data after JSON value")
)

// StripCodeFence removes a markdown code fence (``` or ```json) around the
// model output.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseReceipt validates a receipt response: amount must be a number,
// description and date strings and tags an array of strings.
func ParseReceipt(text string, now time.Time) (core.ExpenseFields, error) {
	raw, err := decode(text)
	if err != nil {
		return core.ExpenseFields{}, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return core.ExpenseFields{}, malformed(errNotObject)
	}
	f, err := parseFields(obj, true)
	if err != nil {
		return core.ExpenseFields{}, malformed(err)
	}
	f.applyDefaults(defaultReceiptDesc, now)
	return core.ExpenseFields{
		Amount:      f.amount,
		Category:    f.category,
		Description: f.description,
		Tags:        f.tags,
		Date:        f.date,
	}, nil
}

// ParseStatement validates a statement response: a JSON array whose items
// follow the receipt rules except that tags are optional. Every item is
// stamped as an expense of owner.
func ParseStatement(text string, owner core.Member, now time.Time) ([]core.StagedTransaction, error) {
	raw, err := decode(text)
	if err != nil {
		return nil, err
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, malformed(errNotArray)
	}
	out := make([]core.StagedTransaction, 0, len(list))
	for i, el := range list {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, malformed(fmt.Errorf("item %d: %w", i, errNotObject))
		}
		f, err := parseFields(obj, false)
		if err != nil {
			return nil, malformed(fmt.Errorf("item %d: %w", i, err))
		}
		f.applyDefaults(defaultStatementItemDesc, now)
		out = append(out, core.StagedTransaction{
			Owner:       owner,
			Type:        core.Expense,
			Category:    f.category,
			Description: f.description,
			Amount:      f.amount,
			Tags:        f.tags,
			Date:        f.date,
		})
	}
	return out, nil
}

type fields struct {
	amount      decimal.Decimal
	category    string
	description string
	date        string
	tags        []string
}

func parseFields(obj map[string]any, requireTags bool) (fields, error) {
	var f fields

	num, ok := obj["amount"].(json.Number)
	if !ok {
		return f, errors.New("amount must be a number")
	}
	amount, err := decimal.NewFromString(num.String())
	if err != nil {
		return f, fmt.Errorf("amount: %w", err)
	}
	if amount.IsNegative() {
		return f, errors.New("amount must not be negative")
	}
	f.amount = amount

	if f.description, ok = obj["description"].(string); !ok {
		return f, errors.New("description must be a string")
	}
	if f.date, ok = obj["date"].(string); !ok {
		return f, errors.New("date must be a string")
	}
	if v, present := obj["category"]; present && v != nil {
		if f.category, ok = v.(string); !ok {
			return f, errors.New("category must be a string")
		}
	}

	tags, present := obj["tags"]
	switch {
	case !present || tags == nil:
		if requireTags {
			return f, errors.New("tags must be an array")
		}
	default:
		list, ok := tags.([]any)
		if !ok {
			return f, errors.New("tags must be an array")
		}
		for _, t := range list {
			s, ok := t.(string)
			if !ok {
				return f, errors.New("tags must contain strings")
			}
			f.tags = append(f.tags, s)
		}
	}
	return f, nil
}

func (f *fields) applyDefaults(description string, now time.Time) {
	f.category = strings.TrimSpace(f.category)
	if f.category == "" {
		f.category = defaultCategory
	}
	f.description = strings.TrimSpace(f.description)
	if f.description == "" {
		f.description = description
	}
	f.date = strings.TrimSpace(f.date)
	if f.date == "" {
		f.date = core.Today(now)
	}
	f.tags = core.NormalizeTags(f.tags)
}

func decode(text string) (any, error) {
	body := StripCodeFence(text)
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, malformed(fmt.Errorf("%w: %v", errNotJSON, err))
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, malformed(errTrailingData)
	}
	return v, nil
}

func malformed(err error) error {
	var ee *core.ExtractionError
	if errors.As(err, &ee) {
		return err
	}
	return &core.ExtractionError{Kind: core.MalformedResponse, Err: err}
}
