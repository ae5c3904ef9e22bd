package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"financeiro/internal/log"
	"financeiro/internal/middleware/ratelimit"
	"financeiro/internal/middleware/security"
	"financeiro/internal/middleware/trace"
	"financeiro/internal/services"
)

// Config holds the server dependencies.
type Config struct {
	Addr     string
	Sessions *services.SessionManager
	// Ready reports whether the backing stores are reachable. Optional.
	Ready          func(ctx context.Context) error
	MaxUploadBytes int64
	RateLimit      ratelimit.Config
	Logger         *log.Logger
}

// Server is the JSON API server.
type Server struct {
	http.Server
	sessions  *services.SessionManager
	ready     func(ctx context.Context) error
	maxUpload int64
	logger    *log.Logger
	started   time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	detector := security.NewDetector()
	s := &Server{
		sessions:         cfg.Sessions,
		ready:            cfg.Ready,
		maxUpload:        cfg.MaxUploadBytes,
		logger:           logger.WithComponent(log.ComponentHTTP),
		started:          time.Now(),
		rateLimiter:      ratelimit.NewLimiter(cfg.RateLimit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/session", s.handleSignIn)
	mux.HandleFunc("DELETE /api/session", s.handleSignOut)
	mux.HandleFunc("POST /api/session/password", s.handleChangePassword)

	mux.HandleFunc("GET /api/ledger", s.withWorkspace(s.handleLedger))
	mux.HandleFunc("POST /api/transactions", s.withWorkspace(s.handleAddTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.withWorkspace(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withWorkspace(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withWorkspace(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/categories", s.withWorkspace(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withWorkspace(s.handleAddCategory))
	mux.HandleFunc("PUT /api/categories/{type}/{id}", s.withWorkspace(s.handleRenameCategory))
	mux.HandleFunc("DELETE /api/categories/{type}/{id}", s.withWorkspace(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/members", s.withWorkspace(s.handleGetMembers))
	mux.HandleFunc("PUT /api/members", s.withWorkspace(s.handleUpdateMembers))

	mux.HandleFunc("POST /api/receipts", s.withWorkspace(s.handleReceipt))
	mux.HandleFunc("POST /api/statements", s.withWorkspace(s.handleStatement))
	mux.HandleFunc("GET /api/staging", s.withWorkspace(s.handleGetStaging))
	mux.HandleFunc("DELETE /api/staging", s.withWorkspace(s.handleCancelStaging))
	mux.HandleFunc("POST /api/staging/commit", s.withWorkspace(s.handleCommitStaging))
	mux.HandleFunc("PATCH /api/staging/{tempId}", s.withWorkspace(s.handleUpdateStaged))
	mux.HandleFunc("DELETE /api/staging/{tempId}", s.withWorkspace(s.handleRemoveStaged))
	mux.HandleFunc("POST /api/staging/{tempId}/category", s.withWorkspace(s.handleStagedCategory))

	mux.HandleFunc("GET /api/report", s.withWorkspace(s.handleReport))
	mux.HandleFunc("GET /api/notices", s.withWorkspace(s.handleNotices))
	mux.HandleFunc("DELETE /api/notices/{id}", s.withWorkspace(s.handleDismissNotice))
	mux.HandleFunc("POST /api/sync/flush", s.withWorkspace(s.handleFlush))

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
	})

	var handler http.Handler = mux
	handler = limited(handler)
	handler = detector.Middleware(s.logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// workspaceHandler is a handler that needs a signed-in workspace.
type workspaceHandler func(w http.ResponseWriter, r *http.Request, ws *services.Workspace)

// withWorkspace resolves the bearer token to its workspace.
func (s *Server) withWorkspace(next workspaceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			ErrorResponse(http.StatusUnauthorized, "unauthenticated", err.Error()).Write(w)
			return
		}
		ws, err := s.sessions.Workspace(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		r = r.WithContext(log.IntoContext(r.Context(),
			log.FromContext(r.Context()).With(log.FieldUserID, ws.Session().UserID)))
		next(w, r, ws)
	}
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
