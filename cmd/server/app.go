package main

import (
	"net/http"
	"time"

	"github.com/diewo77/devinvoice/auth"
	"github.com/diewo77/devinvoice/httpx"
	"github.com/diewo77/devinvoice/i18n"
	"github.com/diewo77/devinvoice/internal/metrics"
	"github.com/diewo77/devinvoice/internal/policy"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux         *http.ServeMux
	routerCfg   *policy.RouterConfig
	metricsPath string
}

// NewApp creates a new application with all routes configured.
func NewApp(routerCfg *policy.RouterConfig, metricsPath string) *App {
	app := &App{
		mux:         http.NewServeMux(),
		routerCfg:   routerCfg,
		metricsPath: metricsPath,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Global middleware: request logger and metrics, auth context, language.
	handler := a.withObservability(auth.Middleware(withPreferences(a.mux)))
	handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	ah := a.routerCfg.AuthHandler

	a.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.mux.HandleFunc("POST /signup", ah.Signup)
	a.mux.HandleFunc("POST /login", ah.Login)
	a.mux.HandleFunc("POST /logout", ah.Logout)
	if a.metricsPath != "" {
		a.mux.Handle("GET "+a.metricsPath, metrics.Handler())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated API routes. Every query is scoped to the session user.
	// ─────────────────────────────────────────────────────────────────────────
	ph := a.routerCfg.ProfileHandler
	a.mux.Handle("GET /api/profile", requireAuth(ph.Get))
	a.mux.Handle("PUT /api/profile/business", requireAuth(ph.UpdateBusiness))
	a.mux.Handle("PUT /api/profile/settings", requireAuth(ph.UpdateSettings))

	a.mux.Handle("GET /api/dashboard", requireAuth(a.routerCfg.DashboardHandler.Get))

	ch := a.routerCfg.ClientHandler
	a.mux.Handle("GET /api/clients", requireAuth(ch.List))
	a.mux.Handle("POST /api/clients", requireAuth(ch.Create))
	a.mux.Handle("GET /api/clients/{id}", requireAuth(ch.Get))
	a.mux.Handle("PUT /api/clients/{id}", requireAuth(ch.Update))
	a.mux.Handle("DELETE /api/clients/{id}", requireAuth(ch.Delete))

	ih := a.routerCfg.InvoiceHandler
	a.mux.Handle("GET /api/invoices", requireAuth(ih.List))
	a.mux.Handle("POST /api/invoices", requireAuth(ih.Create))
	a.mux.Handle("GET /api/invoices/overdue", requireAuth(ih.Overdue))
	a.mux.Handle("GET /api/invoices/{id}", requireAuth(ih.Get))
	a.mux.Handle("PUT /api/invoices/{id}", requireAuth(ih.Update))
	a.mux.Handle("POST /api/invoices/{id}/status", requireAuth(ih.ChangeStatus))
	a.mux.Handle("GET /api/invoices/{id}/pdf", requireAuth(ih.PDF))
	a.mux.Handle("POST /api/invoices/{id}/send", requireAuth(ih.Send))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

func requireAuth(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(h)
}

// withPreferences injects the language from the lang query, the lang cookie or
// Accept-Language, in that order.
func withPreferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
			lang = i18n.DetectLanguage(c.Value)
		}
		if q := r.URL.Query().Get("lang"); q != "" {
			lang = i18n.DetectLanguage(q)
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    lang,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
			})
		}
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withObservability attaches a request-scoped logger, then logs and measures
// each request under its route pattern.
func (a *App) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		_, pattern := a.mux.Handler(r)

		reqLog := log.Logger.With().Str("request_id", uuid.NewString()).Logger()
		r = r.WithContext(reqLog.WithContext(r.Context()))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		metrics.ObserveRequest(r.Method, pattern, rec.status, elapsed)
		reqLog.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}
