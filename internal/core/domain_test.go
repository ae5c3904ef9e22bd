package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() Transaction {
	return Transaction{
		Owner:       MemberA,
		Type:        Expense,
		CategoryID:  "e1",
		Description: "groceries",
		Amount:      decimal.RequireFromString("12.50"),
		Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name  string
		mut   func(*Transaction)
		field string
	}{
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, "type"},
		{"bad owner", func(tx *Transaction) { tx.Owner = "" }, "owner"},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }, "amount"},
		{"blank description", func(tx *Transaction) { tx.Description = "   " }, "description"},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("x", 201) }, "description"},
		{"no category", func(tx *Transaction) { tx.CategoryID = "" }, "category"},
		{"no date", func(tx *Transaction) { tx.Date = time.Time{} }, "date"},
	}
	for _, tc := range cases {
		tx := validTransaction()
		tc.mut(&tx)
		err := tx.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
		if ve.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %q", tc.name, tc.field, ve.Field)
		}
	}
}

func TestSigned(t *testing.T) {
	tx := validTransaction()
	if !tx.Signed().Equal(decimal.RequireFromString("-12.50")) {
		t.Fatalf("expense should be negative, got %s", tx.Signed())
	}
	tx.Type = Income
	if !tx.Signed().Equal(tx.Amount) {
		t.Fatalf("income should be positive, got %s", tx.Signed())
	}
}

func TestSplitTags(t *testing.T) {
	got := SplitTags(" market, food ,,market, home ")
	want := []string{"market", "food", "home"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(SplitTags("")) != 0 {
		t.Fatalf("expected no tags for empty input")
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2025-03-01T10:30:00Z", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), true},
		{"2025-03-01T10:30:00", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), true},
		{"01/03/2025", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want) {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestViewFilter(t *testing.T) {
	if !ViewAll.Matches(MemberA) || !ViewAll.Matches(MemberB) {
		t.Fatalf("all should match every member")
	}
	if ViewFilter(MemberB).Matches(MemberA) {
		t.Fatalf("member_b filter matched member_a")
	}
	if ViewFilter("nobody").IsValid() {
		t.Fatalf("unknown filter reported valid")
	}
}

func TestErrorClassification(t *testing.T) {
	err := errors.Join(errors.New("ctx"), &ExtractionError{Kind: MalformedResponse, Err: errors.New("bad json")})
	if !IsExtractionError(err, MalformedResponse) {
		t.Fatalf("expected malformed extraction error")
	}
	if IsExtractionError(err, ExtractionUnavailable) {
		t.Fatalf("kind should not match")
	}
	if !IsAuthError(&AuthError{Reason: InvalidCredential}, "") {
		t.Fatalf("expected any auth error to match")
	}
	if (&AuthError{Reason: InvalidCredential}).Retryable() {
		t.Fatalf("invalid credential must not be retryable")
	}
}

func TestNewID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a, b := NewID(now), NewID(now)
	if a == b {
		t.Fatalf("ids must differ: %s", a)
	}
	if !strings.HasPrefix(a, "1700000000000-") {
		t.Fatalf("unexpected id %s", a)
	}
}
