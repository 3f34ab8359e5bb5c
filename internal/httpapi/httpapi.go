package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/hellofresh/health-go/v5"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/draft"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/metrics"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/service"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/upstream"
)

const maxBodyBytes = 1 << 20

type Options struct {
	AllowedOrigin string
	Logger        *slog.Logger
	Version       string
	HealthChecks  []HealthCheck
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	logger        *slog.Logger
	health        *health.Health
	validate      *validator.Validate
	loginLimiter  *attemptLimiter
	pinLimiter    *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, opts Options) (*API, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h, err := newHealth(opts.Version, opts.HealthChecks)
	if err != nil {
		return nil, err
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: opts.AllowedOrigin,
		logger:        logger,
		health:        h,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		pinLimiter:    newAttemptLimiter(8, time.Minute),
	}, nil
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{a.allowedOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware)
	r.Use(limitBody)

	r.Method(http.MethodGet, "/healthz", a.health.Handler())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Post("/auth/logout", a.handleLogout)
			r.Get("/auth/me", a.handleMe)
			r.Get("/dashboard", a.handleDashboard)

			a.catalogRoutes(r)
			a.draftRoutes(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		a.logger.Log(r.Context(), level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(startedAt).Milliseconds()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// requireAuth resolves the bearer token to a live gateway session.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.auth.ParseToken(strings.TrimSpace(authorization[len("Bearer "):]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		session, err := a.service.ResolveSession(r.Context(), claims.SessionID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		if session.UserID != claims.UserID {
			writeError(w, http.StatusUnauthorized, errInvalidToken.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithSession(r.Context(), session)))
	})
}

var (
	errEmptyBody = errors.New("request body is required")
	errBadPath   = errors.New("path parameter must be an integer")
)

// decodeJSON reads one JSON document and validates it.
func (a *API) decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return a.validate.Struct(dest)
}

// decodeOptionalJSON is decodeJSON for bodies that may be left out. It
// reports whether a body was present.
func (a *API) decodeOptionalJSON(r *http.Request, dest any) (bool, error) {
	err := a.decodeJSON(r, dest)
	if errors.Is(err, errEmptyBody) {
		return false, nil
	}
	return err == nil, err
}

func pathIndex(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errBadPath, name)
	}
	return n, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name))); err == nil {
		return n
	}
	return fallback
}

// fail maps err onto a status and writes it. extra holds key/value pairs
// added to the body, such as the draft a rejection left behind.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error, extra ...any) {
	status, body := a.describe(r, err)
	for i := 0; i+1 < len(extra); i += 2 {
		if key, ok := extra[i].(string); ok && !isNil(extra[i+1]) {
			body[key] = extra[i+1]
		}
	}
	writeJSON(w, status, body)
}

func (a *API) describe(r *http.Request, err error) (int, map[string]any) {
	var apiErr *upstream.Error
	var validationErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	if rejection, ok := draft.AsRejection(err); ok {
		return http.StatusUnprocessableEntity, map[string]any{"error": rejection.Message, "code": rejection.Code}
	}
	switch {
	case errors.Is(err, draft.ErrSubmitInFlight), errors.Is(err, draft.ErrAlreadySubmitted), errors.Is(err, store.ErrConflict):
		return http.StatusConflict, map[string]any{"error": err.Error()}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, map[string]any{"error": "not found"}
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, map[string]any{"error": err.Error()}
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrInvalidPIN):
		return http.StatusForbidden, map[string]any{"error": err.Error()}
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status >= http.StatusInternalServerError || status < http.StatusBadRequest {
			a.logger.WarnContext(r.Context(), "backend call failed", "status", apiErr.Status, "error", apiErr.Message)
			status = http.StatusBadGateway
		}
		return status, map[string]any{"error": apiErr.Message}
	case errors.Is(err, upstream.ErrUnavailable):
		return http.StatusServiceUnavailable, map[string]any{"error": upstream.Message(err)}
	case errors.As(err, &validationErrs):
		return http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": fieldErrors(validationErrs)}
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, map[string]any{"error": "request body too large"}
	case errors.Is(err, errEmptyBody), errors.Is(err, errBadPath), errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		strings.HasPrefix(err.Error(), "json: unknown field"):
		return http.StatusBadRequest, map[string]any{"error": err.Error()}
	}
	a.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	return http.StatusInternalServerError, map[string]any{"error": "internal server error"}
}

func fieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch x := v.(type) {
	case *service.SaleDraftView:
		return x == nil
	case *service.ReturnDraftView:
		return x == nil
	case *service.PurchaseDraftView:
		return x == nil
	case *service.CategoryDraftView:
		return x == nil
	}
	return false
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
