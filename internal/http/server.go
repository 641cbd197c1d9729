package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"pokertracker/internal/auth"
	"pokertracker/internal/core"
	"pokertracker/internal/log"
	"pokertracker/internal/middleware/ratelimit"
	"pokertracker/internal/middleware/security"
	"pokertracker/internal/middleware/trace"
	"pokertracker/internal/services"
	"pokertracker/internal/stats"
)

// SessionManager is the session CRUD the handlers need.
type SessionManager interface {
	Create(ctx context.Context, id auth.Identity, s core.Session) (core.Session, error)
	Get(ctx context.Context, id auth.Identity, sessionID uuid.UUID) (core.Session, error)
	List(ctx context.Context, id auth.Identity) ([]core.Session, error)
	Update(ctx context.Context, id auth.Identity, sessionID uuid.UUID, u core.SessionUpdate) (core.Session, error)
	Delete(ctx context.Context, id auth.Identity, sessionID uuid.UUID) error
}

type StatsReporter interface {
	Report(ctx context.Context, id auth.Identity, r stats.ChartRange) (stats.Report, error)
	Export(ctx context.Context, id auth.Identity, r stats.ExportRange) ([]core.Session, error)
}

type Authenticator interface {
	Register(ctx context.Context, in core.UserInput) (services.AuthResult, error)
	Login(ctx context.Context, email, password string) (services.AuthResult, error)
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
	Me(ctx context.Context, id auth.Identity) (core.User, error)
	UpdateCookieConsent(ctx context.Context, id auth.Identity, consent bool) (core.User, error)
	ChangePassword(ctx context.Context, id auth.Identity, current, next string) error
}

// ReadinessChecker is pinged by /readyz.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services behind the routes.
type Dependencies struct {
	Sessions SessionManager
	Stats    StatsReporter
	Auth     Authenticator
	Ready    ReadinessChecker
}

type ServerConfig struct {
	Addr               string
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server

	deps     Dependencies
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// identityHandler receives the authenticated caller explicitly.
type identityHandler func(w http.ResponseWriter, r *http.Request, id auth.Identity)

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		deps:     deps,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector: security.NewDetector(logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("GET /api/auth/me", s.requireAuth(s.handleMe))
	mux.Handle("PUT /api/auth/cookie-consent", s.requireAuth(s.handleCookieConsent))
	mux.Handle("POST /api/auth/change-password", s.requireAuth(s.handleChangePassword))

	mux.Handle("GET /api/sessions", s.requireAuth(s.handleListSessions))
	mux.Handle("POST /api/sessions", s.requireAuth(s.handleCreateSession))
	mux.Handle("GET /api/sessions/export", s.requireAuth(s.handleExportSessions))
	mux.Handle("GET /api/sessions/{id}", s.requireAuth(s.handleGetSession))
	mux.Handle("PUT /api/sessions/{id}", s.requireAuth(s.handleUpdateSession))
	mux.Handle("DELETE /api/sessions/{id}", s.requireAuth(s.handleDeleteSession))

	mux.Handle("GET /api/stats", s.requireAuth(s.handleStats))

	tracer := trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = s.detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// requireAuth resolves the bearer token, stores the identity in the context
// and tags the request logger with the owner.
func (s *Server) requireAuth(next identityHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			UnauthorizedError("Missing bearer token").Write(w)
			return
		}
		id, err := s.deps.Auth.Authenticate(r.Context(), token)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		ctx := auth.WithIdentity(r.Context(), id)
		ctx = log.WithContext(ctx, log.FromContext(ctx).With(log.FieldOwnerID, id.UserID.String()))
		next(w, r.WithContext(ctx), id)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.NewFields().
			WithClientIP(s.detector.ExtractClientIP(r)).
			WithHTTPRequest(r.Method, r.URL.Path, "", "").
			ToSlice()...)
	TooManyRequestsError().Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
