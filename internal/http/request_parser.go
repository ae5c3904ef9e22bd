package http

// This file implements parsing of request bodies, query strings and
// uploads.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"financeiro/internal/core"
	"financeiro/internal/extraction"
	"financeiro/internal/ledger"
)

const maxJSONBody = 1 << 20

var (
	errEmptyBody     = errors.New("request body is empty")
	errMissingFile   = errors.New("multipart field \"file\" is required")
	errFileTooLarge  = errors.New("uploaded file is too large")
	errInvalidView   = errors.New("view must be all, member_a or member_b")
	errInvalidSort   = errors.New("sort must be date or amount")
	errInvalidOrder  = errors.New("order must be asc or desc")
	errMissingBearer = errors.New("missing bearer token")
)

// badRequest marks errors caused by a malformed request.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

// decodeJSON reads exactly one JSON object into dst. Unknown fields are
// rejected.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return badRequest{fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxJSONBody {
		return badRequest{errors.New("request body too large")}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest{errEmptyBody}
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest{fmt.Errorf("decode body: %w", err)}
	}
	if dec.More() {
		return badRequest{errors.New("request body must hold a single JSON object")}
	}
	return nil
}

// LedgerQuery holds the view and ordering of a ledger listing.
type LedgerQuery struct {
	View core.ViewFilter
	Sort ledger.SortKey
	Desc bool
}

// ParseView reads the view query parameter, defaulting to all members.
func ParseView(query url.Values) (core.ViewFilter, error) {
	v := strings.TrimSpace(query.Get("view"))
	if v == "" {
		return core.ViewAll, nil
	}
	view := core.ViewFilter(v)
	if !view.IsValid() {
		return "", badRequest{errInvalidView}
	}
	return view, nil
}

// ParseLedgerQuery reads view, sort and order. Defaults are all members,
// newest first.
func ParseLedgerQuery(query url.Values) (LedgerQuery, error) {
	view, err := ParseView(query)
	if err != nil {
		return LedgerQuery{}, err
	}
	q := LedgerQuery{View: view, Sort: ledger.SortByDate, Desc: true}
	switch s := strings.TrimSpace(query.Get("sort")); s {
	case "":
	case string(ledger.SortByDate), string(ledger.SortByAmount):
		q.Sort = ledger.SortKey(s)
	default:
		return LedgerQuery{}, badRequest{errInvalidSort}
	}
	switch o := strings.ToLower(strings.TrimSpace(query.Get("order"))); o {
	case "", "desc":
	case "asc":
		q.Desc = false
	default:
		return LedgerQuery{}, badRequest{errInvalidOrder}
	}
	return q, nil
}

// readUpload reads the multipart "file" field up to maxBytes.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (extraction.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<16)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return extraction.File{}, badRequest{errFileTooLarge}
		}
		return extraction.File{}, badRequest{fmt.Errorf("parse upload: %w", err)}
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		return extraction.File{}, badRequest{errMissingFile}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return extraction.File{}, badRequest{fmt.Errorf("read upload: %w", err)}
	}
	if int64(len(data)) > maxBytes {
		return extraction.File{}, badRequest{errFileTooLarge}
	}
	return extraction.File{
		Name:     sanitizeInput(header.Filename),
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingBearer
	}
	return strings.TrimSpace(token), nil
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
