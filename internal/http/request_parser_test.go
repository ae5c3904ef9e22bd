package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"financeiro/internal/core"
	"financeiro/internal/ledger"
)

func TestParseLedgerQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    LedgerQuery
		wantErr error
	}{
		{
			name:  "defaults",
			query: url.Values{},
			want:  LedgerQuery{View: core.ViewAll, Sort: ledger.SortByDate, Desc: true},
		},
		{
			name:  "member view by amount ascending",
			query: url.Values{"view": {"member_a"}, "sort": {"amount"}, "order": {"ASC"}},
			want:  LedgerQuery{View: core.ViewFilter(core.MemberA), Sort: ledger.SortByAmount, Desc: false},
		},
		{
			name:    "invalid view",
			query:   url.Values{"view": {"everyone"}},
			wantErr: errInvalidView,
		},
		{
			name:    "invalid sort",
			query:   url.Values{"sort": {"name"}},
			wantErr: errInvalidSort,
		},
		{
			name:    "invalid order",
			query:   url.Values{"order": {"sideways"}},
			wantErr: errInvalidOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLedgerQuery(tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				var bad badRequest
				if !errors.As(err, &bad) {
					t.Errorf("error should be a bad request: %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"Food"}`, false},
		{"empty", "  ", true},
		{"unknown field", `{"name":"Food","x":1}`, true},
		{"two objects", `{"name":"a"}{"name":"b"}`, true},
		{"malformed", `{"name":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(req, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.Name != "Food" {
				t.Errorf("name = %q", p.Name)
			}
		})
	}
}

func TestDecodeJSONTooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", maxJSONBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var p struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(req, &p); err == nil {
		t.Fatal("expected an error for an oversized body")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, err := bearerToken(req)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("bearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Groceries  ", "Groceries"},
		{"line\x00break\x07", "linebreak"},
		{"tab\tkept", "tab\tkept"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.input); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
