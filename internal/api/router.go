package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/elihu-analytics/clinic-scheduler/internal/http/middleware"
	"github.com/elihu-analytics/clinic-scheduler/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Scheduler          *Handler
	MetricsHandler     http.Handler
	LiveHandler        http.Handler // websocket fan-out, mounted at /ws
	CORSAllowedOrigins []string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.LiveHandler != nil {
		r.Handle("/ws", cfg.LiveHandler)
	}

	if cfg.Scheduler != nil {
		r.Group(func(apiRoutes chi.Router) {
			cfg.Scheduler.RegisterRoutes(apiRoutes)
		})
	}

	return r
}
