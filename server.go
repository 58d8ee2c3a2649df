package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/civiclens/permit-crawler/common/config"
	"github.com/civiclens/permit-crawler/common/db"
	"github.com/civiclens/permit-crawler/common/messaging"
	"github.com/civiclens/permit-crawler/handler"
	"github.com/civiclens/permit-crawler/middlewares"
)

type AppHttpServer struct {
	router     *chi.Mux
	cfg        config.Config
	server     *http.Server
	db         *db.DB
	natsClient *messaging.NatsBroker
}

func NewAppHttpServer(cfg config.Config) (*AppHttpServer, error) {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-KEY"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	server := &AppHttpServer{
		router: r,
		cfg:    cfg,
	}
	return server, nil
}

// SetDB sets the database dependency
func (s *AppHttpServer) SetDB(db *db.DB) {
	s.db = db
}

// SetNatsClient sets the NATS client dependency
func (s *AppHttpServer) SetNatsClient(client *messaging.NatsBroker) {
	s.natsClient = client
}

func (s *AppHttpServer) setupRoute() {
	r := s.router

	// Public health endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"permit-crawler"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middlewares.ApiKey(s.cfg.Security.BackendApiKey))

		crawlHandler := handler.NewCrawlHandler(s.db, s.natsClient)
		siteHandler := handler.NewSiteHandler()
		permitHandler := handler.NewPermitHandler(s.db)
		healthHandler := handler.NewHealthHandler(s.db)

		r.Mount("/crawls", crawlHandler.Router())
		r.Mount("/sites", siteHandler.Router())
		r.Mount("/permits", permitHandler.Router())
		r.Mount("/health", healthHandler.Router())
	})
}

func (s *AppHttpServer) start() error {
	cfg := s.cfg
	log.Info().Msg("Starting up server...")

	s.server = &http.Server{
		Addr:         cfg.Listen.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// stop gracefully shuts down the server
func (s *AppHttpServer) stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
