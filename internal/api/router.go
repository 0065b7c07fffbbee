package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vvka-141/imdbload/internal/backuplog"
	"github.com/vvka-141/imdbload/internal/metrics"
)

// Deps are the collaborators behind the routes. Metrics may be nil.
type Deps struct {
	Names   NameStore
	Roles   RoleReporter
	Backups backuplog.Store
	Metrics *metrics.Recorder
	Logger  *zap.Logger
}

// NewRouter mounts the name, health, backup log and metrics routes.
func NewRouter(d Deps) chi.Router {
	if d.Names == nil || d.Roles == nil || d.Backups == nil {
		panic("router dependencies cannot be nil")
	}
	if d.Logger == nil {
		panic("logger cannot be nil")
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(d.Logger, d.Metrics))

	r.Get("/health", Health(d.Roles))
	r.Post("/name_basics", PostName(d.Names))
	r.Post("/name_basics/batch", PostNameBatch(d.Names))
	r.Route("/backup", func(r chi.Router) {
		r.Post("/log", PostBackupLog(d.Backups))
		r.Get("/logs", GetBackupLogs(d.Backups))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	return r
}

// accessLog logs each request and counts it by route pattern.
func accessLog(log *zap.Logger, rec *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			rec.ObserveRequest(route, strconv.Itoa(status))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			}
			if status >= http.StatusInternalServerError {
				log.Warn("request failed", fields...)
				return
			}
			log.Info("request", fields...)
		})
	}
}
