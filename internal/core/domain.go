package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	MemberA Member = "member_a"
	MemberB Member = "member_b"
)

// ViewAll is the filter sentinel that selects every member.
const ViewAll ViewFilter = "all"

// MissingCategoryName is shown for transactions whose category was deleted.
const MissingCategoryName = "not found"

type (
	TransactionType string

	// Member identifies one of the two people sharing the ledger.
	Member string

	// ViewFilter is either a Member or ViewAll.
	ViewFilter string

	Category struct {
		ID   string          `json:"id"`
		Name string          `json:"name"`
		Type TransactionType `json:"type"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Owner       Member          `json:"owner"`
		Type        TransactionType `json:"type"`
		CategoryID  string          `json:"categoryId"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Tags        []string        `json:"tags"`
		Date        time.Time       `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// ExpenseFields is what a receipt extraction yields.
	ExpenseFields struct {
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Tags        []string        `json:"tags"`
		Date        string          `json:"date"`
	}

	// StagedTransaction is an extracted expense awaiting commit. Category
	// holds a name and Date the raw extracted date until commit.
	StagedTransaction struct {
		TempID      string          `json:"tempId"`
		Owner       Member          `json:"owner"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Tags        []string        `json:"tags"`
		Date        string          `json:"date"`
	}

	// MemberNames are the display names chosen for each member.
	MemberNames struct {
		MemberA string `json:"memberA"`
		MemberB string `json:"memberB"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidMember      = errors.New("invalid member")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// MissingCategory returns the placeholder for a dangling category id.
func MissingCategory(id string, t TransactionType) Category {
	return Category{ID: id, Name: MissingCategoryName, Type: t}
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (m Member) IsValid() bool {
	return m == MemberA || m == MemberB
}

// Matches reports whether a transaction owned by m is visible under f.
func (f ViewFilter) Matches(m Member) bool {
	return f == ViewAll || Member(f) == m
}

func (f ViewFilter) IsValid() bool {
	return f == ViewAll || Member(f).IsValid()
}

// DefaultMemberNames returns the names used before anyone edits them.
func DefaultMemberNames() MemberNames {
	return MemberNames{MemberA: "Member A", MemberB: "Member B"}
}

// Name returns the display name for m.
func (n MemberNames) Name(m Member) string {
	if m == MemberA {
		return n.MemberA
	}
	return n.MemberB
}

// IsZero reports whether no name was set.
func (n MemberNames) IsZero() bool {
	return n.MemberA == "" && n.MemberB == ""
}

// Validate checks the fields a manually entered transaction must carry.
func (tx Transaction) Validate() error {
	if !tx.Type.IsValid() {
		return &ValidationError{Field: "type", Err: ErrInvalidType}
	}
	if !tx.Owner.IsValid() {
		return &ValidationError{Field: "owner", Err: ErrInvalidMember}
	}
	if tx.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	desc := strings.TrimSpace(tx.Description)
	if desc == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if len(desc) > 200 {
		return &ValidationError{Field: "description", Err: ErrDescriptionTooLong}
	}
	if strings.TrimSpace(tx.CategoryID) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	if tx.Date.IsZero() {
		return &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return nil
}

// Signed returns the amount with the sign implied by the type.
func (tx Transaction) Signed() decimal.Decimal {
	if tx.Type == Expense {
		return tx.Amount.Neg()
	}
	return tx.Amount
}

// NormalizeTags trims tags, drops empties and keeps the first occurrence
// of each one.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// SplitTags parses a comma separated tag list.
func SplitTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 instant and
// returns a full instant. Calendar dates become midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}

// Today returns the current calendar date as 2006-01-02.
func Today(now time.Time) string {
	return now.Format("2006-01-02")
}
