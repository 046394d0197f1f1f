// Package api serves the ledger as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"game-ledger-bot/internal/config"
	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/service"
)

// SessionService is the session lifecycle used by the API.
type SessionService interface {
	Start(ctx context.Context, userID int64, multiAccount int, notes *string) (*model.Session, error)
	List(ctx context.Context, userID int64, status model.SessionStatus, limit int) ([]*model.Session, error)
	Settle(ctx context.Context, userID, id int64, endTime time.Time) (*model.Session, error)
	SettleWithTransactions(ctx context.Context, userID, id int64, endTime time.Time, txs []*model.Transaction) (*model.Session, []*model.Transaction, error)
	Archive(ctx context.Context, userID, id int64) (*model.Session, error)
	Update(ctx context.Context, userID, id int64, patch service.SessionPatch) (*model.Session, error)
	Delete(ctx context.Context, userID, id int64) error
}

// TransactionService records income and expenses.
type TransactionService interface {
	Create(ctx context.Context, userID int64, tx *model.Transaction) (*model.Transaction, error)
	CreateBatch(ctx context.Context, userID int64, txs []*model.Transaction) ([]*model.Transaction, error)
	List(ctx context.Context, userID int64, filter model.TransactionFilter, page, limit int) (*service.TransactionPage, error)
	Update(ctx context.Context, userID, id int64, upd model.TransactionUpdate) (*model.Transaction, error)
	Delete(ctx context.Context, userID, id int64) error
}

// AssetService manages owned assets.
type AssetService interface {
	Create(ctx context.Context, userID int64, a *model.Asset) (*model.Asset, error)
	List(ctx context.Context, userID int64, assetType model.AssetType) ([]*model.Asset, error)
	Update(ctx context.Context, userID, id int64, upd model.AssetUpdate) (*model.Asset, error)
	Delete(ctx context.Context, userID, id int64) error
}

// DashboardService aggregates an owner's ledger.
type DashboardService interface {
	Dashboard(ctx context.Context, userID int64, rng *model.DateRange) (model.DashboardMetrics, error)
	Location() *time.Location
}

// ImportService bulk-loads client data.
type ImportService interface {
	Import(ctx context.Context, userID int64, data service.ImportData) (*service.ImportResult, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds everything the handlers call.
type Dependencies struct {
	Sessions     SessionService
	Transactions TransactionService
	Assets       AssetService
	Dashboard    DashboardService
	Importer     ImportService
	Tokens       *JWTManager
	Health       HealthChecker
}

// Server is the HTTP API server.
type Server struct {
	cfg  *config.HTTPConfig
	deps Dependencies
	srv  *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg *config.HTTPConfig, deps Dependencies) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Routes builds the router with all middleware and endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}
	r.Use(bodyLimit(s.cfg.BodyLimit))

	r.Get("/health", s.health)
	if s.cfg.Metrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireAuth(s.deps.Tokens))

		r.Get("/overview/dashboard", s.dashboard)

		r.Get("/sessions", s.listSessions)
		r.Post("/sessions", s.createSession)
		r.Patch("/sessions/{id}", s.updateSession)
		r.Delete("/sessions/{id}", s.deleteSession)
		r.Post("/sessions/{id}/settle", s.settleSession)
		r.Post("/sessions/{id}/archive", s.archiveSession)

		r.Get("/transactions", s.listTransactions)
		r.Post("/transactions", s.createTransaction)
		r.Post("/transactions/batch", s.createTransactionBatch)
		r.Patch("/transactions/{id}", s.updateTransaction)
		r.Delete("/transactions/{id}", s.deleteTransaction)

		r.Get("/assets", s.listAssets)
		r.Post("/assets", s.createAsset)
		r.Patch("/assets/{id}", s.updateAsset)
		r.Delete("/assets/{id}", s.deleteAsset)

		r.Post("/data/migrate", s.migrate)
		r.Get("/data/export", s.export)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("HTTP API listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.HealthCheck(r.Context()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
