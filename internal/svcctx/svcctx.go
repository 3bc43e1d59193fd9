// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/bookvision/bookvision/internal/analysis"
	"github.com/bookvision/bookvision/internal/config"
	"github.com/bookvision/bookvision/internal/generate"
	"github.com/bookvision/bookvision/internal/home"
	"github.com/bookvision/bookvision/internal/knowledge"
	"github.com/bookvision/bookvision/internal/library"
	"github.com/bookvision/bookvision/internal/portraits"
	"github.com/bookvision/bookvision/internal/providers"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Home         *home.Dir
	Config       *config.Manager
	Registry     *providers.Registry
	Library      *library.Store
	Analyzer     *analysis.Analyzer
	Orchestrator *generate.Orchestrator
	Portraits    *portraits.Cache
	Knowledge    *knowledge.Resolver
	Logger       *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// LibraryFrom extracts the library store from context.
func LibraryFrom(ctx context.Context) *library.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Library
	}
	return nil
}

// AnalyzerFrom extracts the analyzer from context.
func AnalyzerFrom(ctx context.Context) *analysis.Analyzer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Analyzer
	}
	return nil
}

// OrchestratorFrom extracts the generation orchestrator from context.
func OrchestratorFrom(ctx context.Context) *generate.Orchestrator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Orchestrator
	}
	return nil
}

// PortraitsFrom extracts the portrait cache from context.
func PortraitsFrom(ctx context.Context) *portraits.Cache {
	if s := ServicesFrom(ctx); s != nil {
		return s.Portraits
	}
	return nil
}

// KnowledgeFrom extracts the Q&A resolver from context.
func KnowledgeFrom(ctx context.Context) *knowledge.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.Knowledge
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
