package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/de-tools/workspace-steward/pkg/handlers/steward"

	stewardmiddleware "github.com/de-tools/workspace-steward/pkg/server/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
}

type Dependencies struct {
	Workspaces steward.WorkspaceReader
	Actions    steward.ActionReader
	Ledger     steward.LedgerReader
	Events     steward.EventReader
	Approver   steward.Approver
	Executor   steward.Executor
	Discovery  steward.DiscoveryRunner
	Logger     zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func ConfigureRouter(config Config) *chi.Mux {
	deps := config.Dependencies
	handler := steward.NewHandler(
		deps.Workspaces,
		deps.Actions,
		deps.Ledger,
		deps.Events,
		deps.Approver,
		deps.Executor,
		deps.Discovery,
	)

	router := chi.NewRouter()

	router.Use(stewardmiddleware.Logger(&deps.Logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/workspaces", handler.ListWorkspaces)
		r.Get("/workspaces/{id}/snapshots", handler.GetSnapshotHistory)
		r.Get("/actions", handler.ListActions)
		r.Get("/audit", handler.QueryAudit)
		r.Get("/costs/summary", handler.GetCostSummary)
		r.Get("/activity", handler.ListActivity)
		r.Post("/discovery/run", handler.RunDiscovery)
		r.Post("/actions/{id}/approve", handler.ApproveAction)
		r.Post("/actions/{id}/reject", handler.RejectAction)
		r.Post("/actions/{id}/cancel", handler.CancelAction)
		r.Post("/actions/{id}/retry", handler.RetryAction)
		r.Post("/actions/{id}/execute", handler.ExecuteAction)
	})
	router.Handle("/metrics", promhttp.Handler())

	return router
}

func NewWebAPI(config Config) *WebAPI {
	router := ConfigureRouter(config)
	logger := config.Dependencies.Logger

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
