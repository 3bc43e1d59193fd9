package endpoints

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bookvision/bookvision/internal/api"
	"github.com/bookvision/bookvision/internal/svcctx"
	"github.com/bookvision/bookvision/internal/types"
)

// AssetsEndpoint handles GET /api/assets/{book_id}/{name}, serving
// generated media files (narration, images, podcast segments).
// With ?wait=true the request blocks on the artifact poll schedule
// until the file materializes, returning 408 when the schedule is
// exhausted. Re-requesting restarts the schedule from its initial
// interval.
type AssetsEndpoint struct{}

var _ api.Endpoint = (*AssetsEndpoint)(nil)

func (e *AssetsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/assets/{book_id}/{name}", e.handler
}

func (e *AssetsEndpoint) RequiresInit() bool { return true }

func (e *AssetsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	bookID := r.PathValue("book_id")
	// Base-name only; no path traversal out of the media directory.
	name := filepath.Base(r.PathValue("name"))

	homeDir := svcctx.HomeFrom(r.Context())
	path := homeDir.MediaPath(bookID, name)

	if r.URL.Query().Get("wait") == "true" {
		orch := svcctx.OrchestratorFrom(r.Context())
		if err := orch.Prober().WaitFor(r.Context(), path); err != nil {
			writeFailure(w, err)
			return
		}
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		writeFailure(w, &types.NotFoundError{Resource: "asset", ID: name})
		return
	}

	http.ServeFile(w, r, path)
}

func (e *AssetsEndpoint) Command(_ func() string) *cobra.Command {
	// Assets are fetched by URL from job responses; no CLI command.
	return nil
}
