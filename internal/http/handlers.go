package http

import (
	"context"
	"net/http"
	"time"

	"financeiro/internal/core"
	"financeiro/internal/log"
	"financeiro/internal/middleware/ratelimit"
	"financeiro/internal/middleware/security"
	"financeiro/internal/middleware/trace"
	"financeiro/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

type readyChecks struct {
	Store     string                    `json:"store"`
	Sessions  int                       `json:"sessions"`
	RateLimit ratelimit.Metrics         `json:"rateLimit"`
	Security  security.DetectionMetrics `json:"security"`
	Requests  trace.Metrics             `json:"requests"`
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := readyChecks{
		Store:     "ok",
		RateLimit: s.rateLimiter.GetMetrics(),
		Security:  s.securityDetector.GetMetrics(),
		Requests:  s.traceMiddleware.GetMetrics(),
	}
	if s.sessions != nil {
		checks.Sessions = s.sessions.Len()
	}
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			checks.Store = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token     string      `json:"token"`
	Member    core.Member `json:"member"`
	UserID    string      `json:"userId"`
	Email     string      `json:"email"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.sessions.SignIn(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(signInResponse{
		Token:     res.Token,
		Member:    res.Member,
		UserID:    res.Session.UserID,
		Email:     res.Session.Email,
		ExpiresAt: res.Session.ExpiresAt,
	}).Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		ErrorResponse(http.StatusUnauthorized, "unauthenticated", err.Error()).Write(w)
		return
	}
	if err := s.sessions.SignOut(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

type changePasswordRequest struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		ErrorResponse(http.StatusUnauthorized, "unauthenticated", err.Error()).Write(w)
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.sessions.ChangePassword(r.Context(), token, req.Current, req.Next); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	NewJSONResponse().Body(map[string]any{"notices": ws.Notices()}).Write(w)
}

func (s *Server) handleDismissNotice(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	if !ws.DismissNotice(r.PathValue("id")) {
		NotFoundError("notice not found").Write(w)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	flushed := ws.Flush()
	NewJSONResponse().Body(map[string]bool{"flushed": flushed}).Write(w)
}
