package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/mandrill-gateway/internal/config"
	"github.com/ignite/mandrill-gateway/internal/pkg/httputil"
	"github.com/ignite/mandrill-gateway/internal/pkg/logger"
)

// adminTokenHeader carries cfg.AdminToken on state-changing admin routes.
const adminTokenHeader = "X-Admin-Token"

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, cfg config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id", adminTokenHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/send-template", h.SendTemplate)

		r.Route("/gateway", func(r chi.Router) {
			r.Get("/ping", h.Ping)
			r.Get("/environment", h.GetEnvironment)
			r.With(requireAdminToken(cfg.AdminToken)).Post("/environment", h.SetEnvironment)
		})

		r.Get("/sends", h.RecentSends)
	})

	return r
}

// requireAdminToken rejects requests whose X-Admin-Token does not match token.
// An empty token lets every request through.
func requireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(adminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logger.Warn("api: admin token rejected",
					"path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()),
				)
				httputil.Error(w, http.StatusUnauthorized, "admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request through the structured logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logger.Info("api: request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
