package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Registry holds all registered endpoints.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// RegisterRoutes registers all endpoint HTTP routes with the given mux.
// initMiddleware wraps handlers that require full server initialization.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		if ep.RequiresInit() {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}

// Grouped is implemented by endpoints whose CLI command lives under a
// named parent command (e.g. "library" or "generate").
type Grouped interface {
	Group() string
}

// BuildCommands returns a cobra.Command tree for all registered endpoints.
// Endpoints implementing Grouped are nested under their group command.
// getServerURL is called at runtime to get the server URL.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running server",
		Long: `API commands call the running Bookvision server via HTTP.

These commands require a running server (bookvision serve).
Use --server to specify a custom server URL.

Examples:
  bookvision api health               # Check server health
  bookvision api library list         # List books in the library
  bookvision api upload <file>        # Upload a book
  bookvision api generate audio       # Narrate the current book`,
	}

	groups := make(map[string]*cobra.Command)
	for _, ep := range r.endpoints {
		cmd := ep.Command(getServerURL)
		if cmd == nil {
			continue
		}

		parent := apiCmd
		if g, ok := ep.(Grouped); ok {
			name := g.Group()
			if groups[name] == nil {
				groups[name] = &cobra.Command{
					Use:   name,
					Short: name + " commands",
				}
				apiCmd.AddCommand(groups[name])
			}
			parent = groups[name]
		}
		parent.AddCommand(cmd)
	}

	return apiCmd
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
