package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"github.com/Jasani8259/Final-Capstone/internal/auth"
	"github.com/Jasani8259/Final-Capstone/internal/backend"
	"github.com/Jasani8259/Final-Capstone/internal/config"
	"github.com/Jasani8259/Final-Capstone/internal/dashboard"
	"github.com/Jasani8259/Final-Capstone/internal/metrics"
	"github.com/Jasani8259/Final-Capstone/internal/navigation"
)

const (
	cookieName    = "healthdesk_session"
	cookieSession = "sid"
	labReportPath = "/lab_reports"
)

type LabReportSaver interface {
	SaveLabReport(ctx context.Context, report backend.LabReport) error
}

type Server struct {
	cfg      config.Config
	verifier *auth.Verifier
	sessions *dashboard.Manager
	views    *navigation.Registry
	labs     LabReportSaver
	metrics  *metrics.Recorder
	cookies  *sessions.CookieStore
	log      zerolog.Logger
	now      func() time.Time
}

func NewServer(cfg config.Config, verifier *auth.Verifier, manager *dashboard.Manager, views *navigation.Registry, labs LabReportSaver, recorder *metrics.Recorder, log zerolog.Logger) *Server {
	cookies := sessions.NewCookieStore([]byte(cfg.CookieSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if recorder == nil {
		recorder = metrics.New()
	}
	return &Server{
		cfg:      cfg,
		verifier: verifier,
		sessions: manager,
		views:    views,
		labs:     labs,
		metrics:  recorder,
		cookies:  cookies,
		log:      log,
		now:      time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/me", s.handleGetMe)

		r.Get("/pages", s.handlePage)
		r.Get("/pages/*", s.handlePage)
		r.Get("/summaries", s.handleSummaries)
		r.Get("/summaries/{sourceId}", s.handleSummary)

		r.With(s.requireView(labReportPath)).Post("/lab_reports", s.handleSaveLabReport)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
