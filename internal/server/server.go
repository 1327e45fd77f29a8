// Package server provides the HTTP API for the support analytics dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/asolanog/conversia/internal/auth"
	"github.com/asolanog/conversia/internal/db"
	"github.com/asolanog/conversia/internal/metrics"
	"github.com/asolanog/conversia/internal/models"
	"github.com/asolanog/conversia/internal/service"
	"github.com/asolanog/conversia/internal/stats"
)

// UserDirectory gates operations on datastore-backed roles.
type UserDirectory interface {
	RequireRole(ctx context.Context, userID string, required models.Role) error
	EnsureProfile(ctx context.Context, id, email string, fullName *string) (*models.Profile, error)
	EffectiveRole(ctx context.Context, userID string) (models.Role, error)
}

// InvitationIssuer creates and redeems registration invitations.
type InvitationIssuer interface {
	Issue(ctx context.Context, email, createdBy string) (*models.RegistrationInvitation, string, error)
	Redeem(ctx context.Context, token string) (*models.RegistrationInvitation, error)
}

// ConversationReader serves dashboard conversation views.
type ConversationReader interface {
	List(ctx context.Context, channel string, limit int) ([]service.ConversationView, error)
	Get(ctx context.Context, id string) (*service.ConversationView, []models.Message, error)
}

// StatsReader serves the aggregate endpoints.
type StatsReader interface {
	TimeSeries(ctx context.Context, table, dateField string, start, end time.Time) ([]stats.DayCount, error)
	Products(ctx context.Context, start, end time.Time) ([]db.ProductStat, error)
	Referrals(ctx context.Context, start, end time.Time) ([]db.ReferralStat, error)
}

// SyncStarter creates a fresh sync runner per job.
type SyncStarter func() service.SyncRunner

// Config holds HTTP server settings.
type Config struct {
	Port string
}

// Server wires the HTTP API together.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	logger      *slog.Logger
	users       UserDirectory
	invitations InvitationIssuer
	convs       ConversationReader
	stats       StatsReader
	jobs        *service.JobManager
	newSync     SyncStarter
	tokens      *auth.TokenService
	notifier    *auth.Notifier
	collector   *metrics.Collector
}

// Deps carries everything the server needs.
type Deps struct {
	Logger      *slog.Logger
	Users       UserDirectory
	Invitations InvitationIssuer
	Convs       ConversationReader
	Stats       StatsReader
	Jobs        *service.JobManager
	NewSync     SyncStarter
	Tokens      *auth.TokenService
	Notifier    *auth.Notifier
	Collector   *metrics.Collector
}

// New builds the server and its routes.
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		logger:      deps.Logger,
		users:       deps.Users,
		invitations: deps.Invitations,
		convs:       deps.Convs,
		stats:       deps.Stats,
		jobs:        deps.Jobs,
		newSync:     deps.NewSync,
		tokens:      deps.Tokens,
		notifier:    deps.Notifier,
		collector:   deps.Collector,
	}

	r := chi.NewRouter()
	r.Use(LoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(AuthMiddleware(deps.Tokens, deps.Logger))

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Post("/send-invitation", s.RequireRole(models.RoleAdmin, s.handleSendInvitation))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/logout", s.handleLogout)
	})

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", s.RequireRole(models.RoleUsuario, s.handleListConversations))
		r.Get("/{id}", s.RequireRole(models.RoleUsuario, s.handleGetConversation))
	})

	r.Route("/stats", func(r chi.Router) {
		r.Get("/timeseries", s.RequireRole(models.RoleUsuario, s.handleTimeSeries))
		r.Get("/products", s.RequireRole(models.RoleUsuario, s.handleProductStats))
		r.Get("/referrals", s.RequireRole(models.RoleUsuario, s.handleReferralStats))
	})

	r.Route("/sync", func(r chi.Router) {
		r.Post("/jobs", s.RequireRole(models.RoleAdmin, s.handleStartSync))
		r.Get("/jobs", s.RequireRole(models.RoleAdmin, s.handleListJobs))
		r.Get("/jobs/{id}", s.RequireRole(models.RoleAdmin, s.handleGetJob))
	})

	r.Get("/ws/sync/{id}", s.RequireRole(models.RoleAdmin, s.handleSyncSocket))

	s.router = r
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down http server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
