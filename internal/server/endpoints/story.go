package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bookvision/bookvision/internal/analysis"
	"github.com/bookvision/bookvision/internal/api"
	"github.com/bookvision/bookvision/internal/svcctx"
	"github.com/bookvision/bookvision/internal/types"
)

// StoryResponse describes the session's current book: its metadata,
// full text, and analysis when one exists.
type StoryResponse struct {
	Book     types.Book      `json:"book"`
	Body     string          `json:"body,omitempty"`
	Analysis *types.Analysis `json:"analysis,omitempty"`
}

// StoryEndpoint handles GET /api/story.
type StoryEndpoint struct{}

var _ api.Endpoint = (*StoryEndpoint)(nil)

func (e *StoryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/story", e.handler
}

func (e *StoryEndpoint) RequiresInit() bool { return true }

func (e *StoryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	book, err := currentBook(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	resp := StoryResponse{Book: book}
	if body, err := loadBookText(r, book); err == nil {
		resp.Body = body
	}
	if a, err := analysis.Load(svcctx.HomeFrom(r.Context()), book.ID); err == nil {
		resp.Analysis = a
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StoryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Show the current book and its analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL()).WithSession(session)
			var resp StoryResponse
			if err := client.Get(cmd.Context(), "/api/story", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session ID (defaults to the shared session)")
	return cmd
}
