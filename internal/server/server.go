package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bookvision/bookvision/internal/analysis"
	"github.com/bookvision/bookvision/internal/api"
	"github.com/bookvision/bookvision/internal/config"
	"github.com/bookvision/bookvision/internal/generate"
	"github.com/bookvision/bookvision/internal/home"
	"github.com/bookvision/bookvision/internal/knowledge"
	"github.com/bookvision/bookvision/internal/library"
	"github.com/bookvision/bookvision/internal/portraits"
	"github.com/bookvision/bookvision/internal/providers"
	"github.com/bookvision/bookvision/internal/server/endpoints"
	"github.com/bookvision/bookvision/internal/svcctx"
)

// Server is the main Bookvision HTTP server. It owns the library store,
// the provider registry, and the generation orchestrator, and injects
// them into request contexts.
type Server struct {
	httpServer   *http.Server
	home         *home.Dir
	registry     *providers.Registry
	configMgr    *config.Manager
	orchestrator *generate.Orchestrator
	logger       *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8870)
	Port string
	// Home is the bookvision home directory
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8870"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		h, err := home.New("")
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.Home = h
	}

	// Create provider registry
	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)

	// If config manager provided, set up providers and hot reload
	if cfg.ConfigManager != nil {
		registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())

		// Watch for config changes
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			cfg.Logger.Info("provider registry reloaded from config")
		})
	}

	s := &Server{
		home:      cfg.Home,
		registry:  registry,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  5 * time.Minute, // Uploads can be large
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server. It blocks until the context is cancelled or
// an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.home.EnsureExists(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	store, err := library.NewStore(s.home, s.logger)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to load library: %w", err)
	}

	// Pick up books dropped into uploads/ outside the API
	if added, err := store.ScanAndBackfill(); err != nil {
		s.logger.Warn("library backfill failed", "error", err)
	} else if added > 0 {
		s.logger.Info("backfilled library from uploads", "added", added)
	}

	cfg := s.currentConfig()
	gen := cfg.Generation

	manager := generate.NewManager(s.logger)
	prober := generate.NewProber(
		time.Duration(gen.Poll.InitialIntervalMS)*time.Millisecond,
		gen.Poll.GrowthFactor,
		time.Duration(gen.Poll.MaxIntervalMS)*time.Millisecond,
		gen.Poll.MaxAttempts,
	)
	s.orchestrator = generate.NewOrchestrator(manager, prober, s.registry, s.home, generate.Config{
		LLMProvider:         cfg.Defaults.LLMProvider,
		TTSChain:            cfg.TTSChain(),
		ImageProvider:       cfg.Defaults.ImageProvider,
		MaxAudioChars:       gen.MaxAudioChars,
		MaxPodcastChars:     gen.MaxPodcastChars,
		MaxConcurrentImages: gen.MaxConcurrentImages,
		DefaultSeed:         gen.DefaultSeed,
		DefaultStyle:        gen.DefaultStyle,
	}, s.logger)

	// Create services struct for context enrichment
	s.mu.Lock()
	s.services = &svcctx.Services{
		Home:         s.home,
		Config:       s.configMgr,
		Registry:     s.registry,
		Library:      store,
		Analyzer:     analysis.NewAnalyzer(s.registry, s.home, cfg.Defaults.LLMProvider, gen.MaxEntities, s.logger),
		Orchestrator: s.orchestrator,
		Portraits:    portraits.NewCache(s.registry, s.home, cfg.Defaults.ImageProvider, gen.DefaultStyle, gen.DefaultSeed, s.logger),
		Knowledge: knowledge.NewResolver(s.registry, knowledge.Config{
			LLMProvider:  cfg.Defaults.LLMProvider,
			ContextChars: gen.QAContextChars,
			Timeout:      time.Duration(gen.QATimeoutSeconds) * time.Second,
		}, s.logger),
		Logger: s.logger,
	}
	s.mu.Unlock()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// currentConfig returns the active configuration, falling back to
// defaults when the server was built without a config manager.
func (s *Server) currentConfig() *config.Config {
	if s.configMgr != nil {
		return s.configMgr.Get()
	}
	return config.DefaultConfig()
}

// shutdown performs graceful shutdown of the HTTP server and cancels
// any in-flight generation jobs.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.orchestrator != nil {
		s.orchestrator.Manager().Shutdown()
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Orchestrator returns the generation orchestrator.
// Returns nil if the server hasn't started yet.
func (s *Server) Orchestrator() *generate.Orchestrator {
	return s.orchestrator
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s.mu.RLock()
		services := s.services
		s.mu.RUnlock()
		if services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until Start has built the services.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svcctx.ServicesFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
