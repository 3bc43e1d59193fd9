package endpoints

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bookvision/bookvision/internal/analysis"
	"github.com/bookvision/bookvision/internal/api"
	"github.com/bookvision/bookvision/internal/svcctx"
	"github.com/bookvision/bookvision/internal/types"
)

// EntityImageResponse describes a generated entity portrait.
type EntityImageResponse struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Version int    `json:"version"`
}

// EntityImageEndpoint handles GET /api/entity_image/{name}.
// Portraits are generated on first request and cached; pass
// regenerate=true to force a fresh render.
type EntityImageEndpoint struct{}

var _ api.Endpoint = (*EntityImageEndpoint)(nil)

func (e *EntityImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/entity_image/{name}", e.handler
}

func (e *EntityImageEndpoint) RequiresInit() bool { return true }

func (e *EntityImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "entity name is required")
		return
	}

	book, err := currentBook(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	bookAnalysis, err := analysis.Load(svcctx.HomeFrom(r.Context()), book.ID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	entity, entityIdx, ok := findEntity(bookAnalysis, name)
	if !ok {
		writeFailure(w, &types.NotFoundError{Resource: "entity", ID: name})
		return
	}

	portraits := svcctx.PortraitsFrom(r.Context())
	var path string
	if r.URL.Query().Get("regenerate") == "true" {
		path, err = portraits.Regenerate(r.Context(), book.ID, entity, entityIdx)
	} else {
		path, err = portraits.Get(r.Context(), book.ID, entity, entityIdx)
	}
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EntityImageResponse{
		Name:    entity.Name,
		URL:     assetURL(book.ID, filepath.Base(path)),
		Version: portraits.Version(book.ID, entity.Name),
	})
}

// findEntity locates an entity by case-insensitive name and returns it
// with its position in the analysis entity list.
func findEntity(a *types.Analysis, name string) (types.Entity, int, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, ent := range a.Entities {
		if strings.ToLower(ent.Name) == want {
			return ent, i, true
		}
	}
	return types.Entity{}, 0, false
}

func (e *EntityImageEndpoint) Command(getServerURL func() string) *cobra.Command {
	var session string
	var regenerate bool
	cmd := &cobra.Command{
		Use:   "entity-image <name>",
		Short: "Get or generate an entity portrait",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL()).WithSession(session)
			path := "/api/entity_image/" + args[0]
			if regenerate {
				path += "?regenerate=true"
			}
			var resp EntityImageResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session ID (defaults to the shared session)")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Force a fresh portrait render")
	return cmd
}
