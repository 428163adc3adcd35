package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nimbusboard/nimbusboard/internal/application"
)

// Handler is the HTTP adapter entrypoint for session use-cases.
// Keeping only the application dependency here preserves clean adapter
// boundaries.
type Handler struct {
	service       *application.Service
	metrics       *httpMetrics
	secureCookies bool
}

type HandlerConfig struct {
	// SecureCookies marks every issued cookie Secure. Off only for local
	// plain-HTTP development.
	SecureCookies bool
	Registry      *prometheus.Registry
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, cfg HandlerConfig) *Handler {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Handler{
		service:       service,
		metrics:       newHTTPMetrics(reg),
		secureCookies: cfg.SecureCookies,
	}
}

// NewRouter registers the session subsystem's HTTP routes and middleware
// stack. Centralizing routes here keeps cookie and error behavior
// consistent across endpoints.
func NewRouter(handler *Handler, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(handler.metrics.middleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler(registry))
	}

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/login/code", handler.sendLoginCode)
		r.Post("/login/verify", handler.verifyLoginCode)
		r.Get("/oauth/authorize", handler.oauthAuthorize)
		r.Get("/oauth/callback", handler.oauthCallback)

		r.Get("/accounts", handler.listAccounts)
		r.Post("/accounts/switch", handler.switchAccount)
		r.Post("/logout", handler.logout)

		r.Group(func(r chi.Router) {
			r.Use(handler.sessionAuth)
			r.Get("/me", handler.me)
			r.Get("/sessions", handler.listSessions)
			r.Delete("/sessions/{session_id}", handler.revokeSession)
			r.Delete("/sessions", handler.revokeAllSessions)
			r.Post("/email/change-request", handler.emailChangeRequest)
			r.Post("/email/change-verify", handler.emailChangeVerify)
			r.Get("/oauth/link", handler.oauthLink)
		})
	})

	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
