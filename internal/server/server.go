package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"case-engine/internal/config"
	"case-engine/internal/database"
	"case-engine/internal/engine"
	"case-engine/internal/metrics"
	"case-engine/internal/notification"
	"case-engine/internal/rbac"
	"case-engine/internal/repository"
)

// Server wires the workflow engine together and runs the operational HTTP
// endpoint. The workflows themselves are consumed in process through the
// exported engine fields.
type Server struct {
	config *config.Config
	logger *zap.Logger
	db     *database.Database

	caseRepo          repository.CaseRepository
	suspectRepo       repository.SuspectRepository
	submissionRepo    repository.SubmissionRepository
	interrogationRepo repository.InterrogationRepository
	decisionRepo      repository.DecisionRepository
	trialRepo         repository.TrialRepository
	bailRepo          repository.BailRepository
	tipRepo           repository.TipOffRepository
	notificationRepo  repository.NotificationRepository
	userRepo          *repository.UserRepository

	authority  *rbac.Authority
	dispatcher *notification.Dispatcher
	collector  *metrics.Collector

	Cases          *engine.CaseLifecycle
	Suspects       *engine.SuspectTracker
	Submissions    *engine.SubmissionReview
	Interrogations *engine.InterrogationWorkflow
	Decisions      *engine.DecisionChain
	Trials         *engine.TrialWorkflow
	Bail           *engine.BailWorkflow
	Tips           *engine.TipOffWorkflow

	httpServer *http.Server
}

// New creates a new server instance.
func New(cfg *config.Config, logger *zap.Logger, db *database.Database) *Server {
	return &Server{
		config: cfg,
		logger: logger.Named("server"),
		db:     db,
	}
}

// Initialize sets up repositories, the notification dispatcher and the
// workflow engines.
func (s *Server) Initialize() error {
	s.logger.Info("Initializing case engine server")

	s.initRepositories()

	s.authority = rbac.NewAuthority(s.userRepo)
	s.collector = metrics.NewCollector()
	s.dispatcher = notification.NewDispatcher(
		s.notificationRepo, s.authority, s.config.Kafka, s.config.Redis, s.logger)

	if err := s.initEngines(); err != nil {
		return errors.Wrap(err, "failed to initialize engines")
	}
	s.initHTTPServer()

	s.logger.Info("Server initialized successfully")
	return nil
}

func (s *Server) initRepositories() {
	db := s.db.DB()

	s.caseRepo = repository.NewCaseRepository(db)
	s.suspectRepo = repository.NewSuspectRepository(db)
	s.submissionRepo = repository.NewSubmissionRepository(db)
	s.interrogationRepo = repository.NewInterrogationRepository(db)
	s.decisionRepo = repository.NewDecisionRepository(db)
	s.trialRepo = repository.NewTrialRepository(db)
	s.bailRepo = repository.NewBailRepository(db)
	s.tipRepo = repository.NewTipOffRepository(db)
	s.notificationRepo = repository.NewNotificationRepository(db)
	s.userRepo = repository.NewUserRepository(db)
}

func (s *Server) initEngines() error {
	clock := engine.SystemClock()

	s.Cases = engine.NewCaseLifecycle(
		s.caseRepo, s.authority, s.dispatcher, s.collector, s.logger)
	s.Suspects = engine.NewSuspectTracker(
		s.suspectRepo, s.caseRepo, s.Cases, s.authority, s.dispatcher,
		s.config.Pursuit, clock, s.collector, s.logger)
	s.Submissions = engine.NewSubmissionReview(
		s.submissionRepo, s.suspectRepo, s.Cases, s.authority,
		s.dispatcher, clock, s.collector, s.logger)
	s.Interrogations = engine.NewInterrogationWorkflow(
		s.interrogationRepo, s.suspectRepo, s.Cases, s.authority,
		s.dispatcher, s.collector, s.logger)
	s.Decisions = engine.NewDecisionChain(
		s.decisionRepo, s.interrogationRepo, s.caseRepo, s.Cases,
		s.authority, s.dispatcher, s.collector, s.logger)
	s.Trials = engine.NewTrialWorkflow(
		s.trialRepo, s.decisionRepo, s.suspectRepo, s.Cases, s.authority,
		s.dispatcher, s.collector, s.logger)
	s.Bail = engine.NewBailWorkflow(
		s.bailRepo, s.suspectRepo, s.caseRepo, s.authority, s.dispatcher,
		s.config.Bail, s.collector, s.logger)
	s.Tips = engine.NewTipOffWorkflow(
		s.tipRepo, s.suspectRepo, s.caseRepo, s.authority, s.dispatcher,
		s.config.Notifications, s.config.Pursuit, clock, s.collector, s.logger)

	return nil
}

func (s *Server) initHTTPServer() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.HTTPPort),
		Handler:      r,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Health(r.Context()); err != nil {
		s.logger.Warn("Readiness check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"unavailable"}`)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ready"}`)
}

// Start starts the operational HTTP server.
func (s *Server) Start() error {
	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server and releases the dispatcher and
// database.
func (s *Server) Stop() error {
	s.logger.Info("Shutting down case engine server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
	}
	if err := s.dispatcher.Close(); err != nil {
		s.logger.Error("Failed to close notification dispatcher", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	s.logger.Info("Case engine server shutdown completed")
	return nil
}
