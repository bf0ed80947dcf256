package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/ryabich/flarecloud/internal/api/handler"
	mw "github.com/ryabich/flarecloud/internal/api/middleware"
	"github.com/ryabich/flarecloud/internal/challenge"
	"github.com/ryabich/flarecloud/internal/core"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	corePool       *pgxpool.Pool
	temporalClient temporalclient.Client
	bridge         challenge.Bridge
}

func NewServer(logger zerolog.Logger, coreDB *pgxpool.Pool, temporalClient temporalclient.Client, bridge challenge.Bridge) *Server {
	services := core.NewServices(coreDB, temporalClient)

	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		corePool:       coreDB,
		temporalClient: temporalClient,
		bridge:         bridge,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	// ACME HTTP-01 challenge responder. Public by protocol; the CA's
	// validation probes carry no credentials.
	ch := handler.NewChallenge(s.bridge)
	s.router.Get("/.well-known/acme-challenge/{token}", ch.Resolve)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Domains
		domain := handler.NewDomain(s.services.Domain)
		r.Get("/domains", domain.List)
		r.Post("/domains", domain.Create)
		r.Get("/domains/{id}", domain.Get)
		r.Delete("/domains/{id}", domain.Delete)
		r.Post("/domains/{id}/suspend", domain.Suspend)
		r.Post("/domains/{id}/unsuspend", domain.Unsuspend)

		// Certificates
		cert := handler.NewCertificate(s.services.Certificate)
		r.Get("/domains/{domainID}/certificates", cert.ListByDomain)
		r.Post("/domains/{domainID}/certificates", cert.Issue)
		r.Get("/domains/{domainID}/certificates/{id}", cert.Get)
		r.Delete("/domains/{domainID}/certificates/{id}", cert.Delete)
		r.Post("/domains/{domainID}/certificates/{id}/renew", cert.Renew)
		r.Get("/domains/{domainID}/certificates/{id}/logs", cert.Logs)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.corePool.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
