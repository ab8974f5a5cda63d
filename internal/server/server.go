package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/labelsmith/labelsmith/internal/cache"
	"github.com/labelsmith/labelsmith/internal/config"
	"github.com/labelsmith/labelsmith/internal/events"
	"github.com/labelsmith/labelsmith/internal/history"
	"github.com/labelsmith/labelsmith/internal/logger"
	"github.com/labelsmith/labelsmith/internal/zeroshot"
	"go.uber.org/zap"
)

// Server is the HTTP front end for the classification pipeline
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	pool       *zeroshot.Pool
	classifier zeroshot.Classifier
	cache      *cache.ResultCache
	history    *history.Store
	hub        *events.Hub
	router     *mux.Router
	server     *http.Server
	limiter    *ipRateLimiter
	startTime  time.Time
}

// New creates a new server instance and loads the model pool
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	pool, err := zeroshot.NewPool(
		zeroshot.WithModelPath(cfg.Model.Path),
		cfg.Model.PoolSize,
		zeroshot.WithMaxLength(cfg.Model.MaxLength),
		zeroshot.WithLogger(log.WithComponent("zeroshot").Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline pool: %w", err)
	}

	server := &Server{
		config:     cfg,
		logger:     log.WithComponent("server"),
		pool:       pool,
		classifier: pool,
		router:     mux.NewRouter(),
		startTime:  time.Now(),
	}

	if cfg.Cache.Enabled {
		resultCache, err := cache.NewResultCache(&cache.Config{
			RedisURL:  cfg.Cache.RedisURL,
			KeyPrefix: cfg.Cache.KeyPrefix,
			TTL:       cfg.Cache.TTL,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		server.cache = resultCache
	}

	if cfg.History.Enabled {
		store, err := history.NewStore(&history.Config{
			DatabaseURL:     cfg.History.DatabaseURL,
			MaxOpenConns:    cfg.History.MaxOpenConns,
			MaxIdleConns:    cfg.History.MaxIdleConns,
			ConnMaxLifetime: cfg.History.ConnMaxLifetime,
		}, log.WithComponent("history").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.history = store
	}

	if cfg.Events.Enabled {
		server.hub = events.NewHub(&events.HubConfig{
			BroadcastClassifications: cfg.Events.BroadcastClassifications,
			BroadcastConnections:     cfg.Events.BroadcastConnections,
		}, log.WithComponent("events").Logger)
	}

	if cfg.Server.RateLimit.Enabled {
		server.limiter = newIPRateLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/classify", s.handleClassify).Methods("POST")

	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting LabelSmith server",
		zap.Int("port", s.config.Server.Port),
		zap.String("model_path", s.pool.ModelPath()),
		zap.Int("pool_size", s.pool.Size()),
		zap.Bool("cache_enabled", s.cache != nil),
		zap.Bool("history_enabled", s.history != nil),
	)

	if s.hub != nil {
		go s.hub.Run()
	}
	if s.limiter != nil {
		s.limiter.startCleanupRoutine()
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the server and releases model resources
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping LabelSmith server")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("Failed to close result cache", zap.Error(err))
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn("Failed to close history store", zap.Error(err))
		}
	}

	return s.pool.Close()
}

// handleWebSocket hands the connection to the event hub
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.HandleWebSocket(w, r)
}
