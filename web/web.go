// Package web exposes the sync engine over HTTP: enqueueing tasks,
// driving the processor, triggering full syncs and managing OAuth
// integrations.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jarvisapp/jarvis-sync/models"
	"github.com/jarvisapp/jarvis-sync/pkg/encryption"
	"github.com/jarvisapp/jarvis-sync/queue"
	"github.com/jarvisapp/jarvis-sync/syncer"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Config wires the server's collaborators.
type Config struct {
	Addr         string
	APIKey       string
	Tasks        *queue.Service
	TaskStore    models.TaskRepository
	Processor    *queue.Processor
	Syncer       *syncer.Syncer
	Integrations models.IntegrationRepository
	Codec        *encryption.Codec
	OAuth        map[models.Provider]*oauth2.Config
	Logger       *zap.Logger
}

// Server is the HTTP front of the sync engine.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func New(cfg Config) *Server {
	h := &handler{
		tasks:        cfg.Tasks,
		taskStore:    cfg.TaskStore,
		processor:    cfg.Processor,
		syncer:       cfg.Syncer,
		integrations: cfg.Integrations,
		codec:        cfg.Codec,
		oauth:        cfg.OAuth,
		logger:       cfg.Logger,
	}

	authm := NewAuthMiddleware(cfg.APIKey)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authm.Authenticate)

	api.HandleFunc("/sync/tasks", h.addTask).Methods(http.MethodPost)
	api.HandleFunc("/sync/tasks/{id}", h.getTask).Methods(http.MethodGet)
	api.HandleFunc("/sync/process", h.processQueue).Methods(http.MethodPost)
	api.HandleFunc("/sync/all", h.syncAll).Methods(http.MethodPost)

	api.HandleFunc("/integrations", h.listIntegrations).Methods(http.MethodGet)
	api.HandleFunc("/integrations/{provider}", h.deleteIntegration).Methods(http.MethodDelete)
	api.HandleFunc("/integrations/{provider}/connect", h.connectIntegration).Methods(http.MethodGet)
	api.HandleFunc("/integrations/{provider}/callback", h.oauthCallback).Methods(http.MethodGet)

	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger: cfg.Logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))

		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.srv.Shutdown(shutdownCtx)
}
