package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/fileprediction/internal/api/http"
	"github.com/GriffinCanCode/fileprediction/internal/api/middleware"
	"github.com/GriffinCanCode/fileprediction/internal/config"
	"github.com/GriffinCanCode/fileprediction/internal/domain/navigation"
	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/eventlog"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/executor"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/fileprediction/internal/workspace"
	"github.com/GriffinCanCode/fileprediction/internal/ws"
)

const (
	tracerBuffer    = 1024
	shutdownTimeout = 10 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	pool     *executor.Pool
	tracer   *tracing.Tracer
	events   *eventlog.Broadcaster
	projects *project.Registry
	nav      *navigation.Service
	factory  *workspace.Factory
}

// NewServer creates a server logging according to cfg
func NewServer(cfg *config.Config) (*Server, error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Development = cfg.Logging.Development
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return New(cfg, logger, prometheus.NewRegistry())
}

// New creates a server with an existing logger and metrics registry
func New(cfg *config.Config, logger *logging.Logger, reg *prometheus.Registry) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Info("Initializing file prediction server",
		zap.String("port", cfg.Server.Port),
		zap.String("event_log", cfg.EventLog.Driver),
		zap.Float64("opened_file_probability", cfg.Sampling.OpenedFileProbability),
		zap.Float64("candidate_probability", cfg.Sampling.CandidateProbability),
	)

	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	store, err := eventlog.NewFromConfig(cfg.EventLog.Driver, cfg.EventLog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	eventLogger := logger.Component("eventlog")
	events := eventlog.NewBroadcaster(store, eventLogger, metrics).
		WithBreaker(resilience.New("eventlog:"+store.Name(), resilience.Settings{
			MaxFailures: cfg.Breaker.MaxFailures,
			Timeout:     cfg.Breaker.Timeout,
			OnStateChange: func(name string, from, to resilience.State) {
				eventLogger.Warn("breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}))

	tracer := tracing.New("file-prediction", logger.Component("tracing"), tracerBuffer)
	pool := executor.NewPool(executor.Config{
		Workers:   cfg.Executor.Workers,
		QueueSize: cfg.Executor.QueueSize,
	}, logger.Component("executor"), metrics)

	factory, err := workspace.NewFactory(cfg, workspace.Deps{
		Executor: pool,
		Sink:     events,
		Tracer:   tracer,
		Metrics:  metrics,
		Logger:   logger.Logger,
	})
	if err != nil {
		pool.Close(context.Background())
		tracer.Close()
		events.Close()
		return nil, err
	}

	projects := project.NewRegistry()
	nav := navigation.NewService(factory, metrics, logger.Component("navigation"))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.AccessLog(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSConfigFor(cfg.CORS.AllowOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfigFor(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)))
	}

	handlers := apihttp.NewHandlers(projects, nav, events, factory, metrics, logger.Component("api"))
	handlers.Register(router)

	wsHandler := ws.NewHandler(events, cfg.CORS.AllowOrigins, logger.Component("ws"))
	router.GET("/api/events/stream", wsHandler.HandleStream)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.GET("/debug/log-level", gin.WrapH(logger.Level()))
	router.PUT("/debug/log-level", gin.WrapH(logger.Level()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		pool:     pool,
		tracer:   tracer,
		events:   events,
		projects: projects,
		nav:      nav,
		factory:  factory,
	}, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Projects returns the project registry
func (s *Server) Projects() *project.Registry {
	return s.projects
}

// Navigation returns the navigation service
func (s *Server) Navigation() *navigation.Service {
	return s.nav
}

// Events returns the event broadcaster
func (s *Server) Events() *eventlog.Broadcaster {
	return s.events
}

// Run serves HTTP until ctx is done, then shuts down
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.Close(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	return s.Close(shutdownCtx)
}

// Close disposes every project, drains background work and closes the sink
func (s *Server) Close(ctx context.Context) error {
	s.projects.DisposeAll()

	var errs []error
	if err := s.pool.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("executor: %w", err))
	}
	s.tracer.Close()
	if err := s.events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("event log: %w", err))
	}

	s.logger.Info("Server stopped")
	s.logger.Close()
	return errors.Join(errs...)
}
