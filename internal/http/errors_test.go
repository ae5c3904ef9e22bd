package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"financeiro/internal/core"
	"financeiro/internal/services"
	"financeiro/internal/staging"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"bad request", badRequest{errEmptyBody}, http.StatusBadRequest, "bad_request"},
		{"validation", &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}, http.StatusUnprocessableEntity, "validation"},
		{"invalid credential", &core.AuthError{Reason: core.InvalidCredential}, http.StatusUnauthorized, "invalid_credential"},
		{"auth unavailable", &core.AuthError{Reason: core.AuthUnavailable}, http.StatusServiceUnavailable, "auth_unavailable"},
		{"malformed extraction", &core.ExtractionError{Kind: core.MalformedResponse}, http.StatusUnprocessableEntity, string(core.MalformedResponse)},
		{"extraction unavailable", &core.ExtractionError{Kind: core.ExtractionUnavailable}, http.StatusServiceUnavailable, "extraction_unavailable"},
		{"sync", &core.SyncError{Kind: core.SyncUnavailable, Op: "save"}, http.StatusServiceUnavailable, "sync_unavailable"},
		{"already staged", staging.ErrAlreadyStaged, http.StatusConflict, "conflict"},
		{"wrapped not found", fmt.Errorf("get: %w", services.ErrTransactionNotFound), http.StatusNotFound, "not_found"},
		{"unknown staging field", staging.ErrUnknownField, http.StatusUnprocessableEntity, "validation"},
		{"closed workspace", services.ErrWorkspaceClosed, http.StatusUnauthorized, "session_expired"},
		{"anything else", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("classify() = %d %q, want %d %q", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/ledger", nil)
	writeError(w, r, errors.New("database password is hunter2"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Status code = %d", w.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Message != "internal error" {
		t.Errorf("message = %q", body.Error.Message)
	}
}

func TestWriteErrorValidationField(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	writeError(w, r, &core.ValidationError{Field: "date", Err: core.ErrInvalidDate})

	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Field != "date" || body.Error.Code != "validation" {
		t.Errorf("unexpected error body: %+v", body)
	}
}
