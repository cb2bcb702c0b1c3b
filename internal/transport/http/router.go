package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"casetrack/internal/authz"
	obsmw "casetrack/internal/observability/middleware"
	"casetrack/internal/service"
)

type Services struct {
	Cases    *service.CaseService
	Users    *service.UserService
	Workflow *service.WorkflowService
}

type Options struct {
	CORSOrigins string // comma separated; empty → wildcard
	RatePerMin  int
}

func NewRouter(svc Services, auth *authz.Validator, opts Options) http.Handler {
	h := &handler{svc: svc}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	if opts.RatePerMin > 0 {
		r.Use(httprate.LimitByIP(opts.RatePerMin, 1*time.Minute))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(opts.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(obsmw.WithRequestAndTrace)
	r.Use(obsmw.WithMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.createUser)
			r.Get("/", h.listUsers)
			r.Get("/{id}", h.getUser)
			r.Patch("/{id}/active", h.setUserActive)
			r.Get("/{id}/workload", h.userWorkload)
		})

		r.Route("/cases", func(r chi.Router) {
			r.Post("/", h.createCase)
			r.Get("/", h.listCases)
			r.Get("/{id}", h.getCase)
			r.Patch("/{id}", h.updateCase)
			r.Delete("/{id}", h.deleteCase)
			r.Get("/{id}/log", h.caseTrail)
			r.Post("/{id}/transition", h.transitionCase)
		})
	})

	return r
}

func splitOrigins(s string) []string {
	if s == "" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
