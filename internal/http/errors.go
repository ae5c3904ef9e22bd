package http

import (
	"errors"
	"net/http"

	"financeiro/internal/core"
	"financeiro/internal/log"
	"financeiro/internal/services"
	"financeiro/internal/staging"
)

// classify maps a domain error to a status and an error code.
func classify(err error) (int, string) {
	var (
		verr *core.ValidationError
		aerr *core.AuthError
		eerr *core.ExtractionError
		serr *core.SyncError
		bad  badRequest
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "validation"
	case errors.As(err, &aerr):
		if aerr.Reason == core.AuthUnavailable {
			return http.StatusServiceUnavailable, "auth_unavailable"
		}
		return http.StatusUnauthorized, string(aerr.Reason)
	case errors.As(err, &eerr):
		if eerr.Kind == core.MalformedResponse {
			return http.StatusUnprocessableEntity, string(eerr.Kind)
		}
		return http.StatusServiceUnavailable, "extraction_unavailable"
	case errors.As(err, &serr):
		return http.StatusServiceUnavailable, "sync_unavailable"
	case errors.Is(err, staging.ErrAlreadyStaged),
		errors.Is(err, staging.ErrNothingToImport),
		errors.Is(err, services.ErrCategoryConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, staging.ErrItemNotFound),
		errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, services.ErrCategoryNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, staging.ErrUnknownField),
		errors.Is(err, staging.ErrUnknownCategory),
		errors.Is(err, staging.ErrInvalidCategory):
		return http.StatusUnprocessableEntity, "validation"
	case errors.Is(err, services.ErrWorkspaceClosed):
		return http.StatusUnauthorized, string(core.SessionExpired)
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError classifies err, logs it and writes the error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	detail := ErrorDetail{Code: code, Message: err.Error()}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		detail.Field = verr.Field
	}

	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.LogError(r.Context(), "Request failed", err, errorType(status, code), r.Method+" "+r.URL.Path, nil)
		if status == http.StatusInternalServerError {
			detail.Message = "internal error"
		}
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldStatusCode, status)
	}

	NewJSONResponse().Status(status).Body(ErrorBody{Error: detail}).Write(w)
}

func errorType(status int, code string) string {
	switch code {
	case "extraction_unavailable":
		return log.ErrorTypeExtraction
	case "sync_unavailable":
		return log.ErrorTypeSync
	case "auth_unavailable":
		return log.ErrorTypeAuth
	}
	if status == http.StatusServiceUnavailable {
		return log.ErrorTypeNetwork
	}
	return log.ErrorTypeInternal
}
