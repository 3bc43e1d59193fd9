package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bookvision/bookvision/internal/analysis"
	"github.com/bookvision/bookvision/internal/api"
	"github.com/bookvision/bookvision/internal/library"
	"github.com/bookvision/bookvision/internal/svcctx"
	"github.com/bookvision/bookvision/internal/types"
)

// LibraryListResponse lists the books in the library.
type LibraryListResponse struct {
	Books []types.Book `json:"books"`
}

// LibraryListEndpoint handles GET /api/library.
type LibraryListEndpoint struct{}

var _ api.Endpoint = (*LibraryListEndpoint)(nil)

func (e *LibraryListEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/library", e.handler
}

func (e *LibraryListEndpoint) RequiresInit() bool { return true }

func (e *LibraryListEndpoint) Group() string { return "library" }

func (e *LibraryListEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	order := library.SortNewest
	switch r.URL.Query().Get("sort") {
	case "title":
		order = library.SortTitle
	case "date_asc", "oldest":
		order = library.SortOldest
	}

	store := svcctx.LibraryFrom(r.Context())
	writeJSON(w, http.StatusOK, LibraryListResponse{Books: store.List(order)})
}

func (e *LibraryListEndpoint) Command(getServerURL func() string) *cobra.Command {
	var sort string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp LibraryListResponse
			path := "/api/library"
			if sort != "" {
				path += "?sort=" + sort
			}
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&sort, "sort", "", "Sort order: newest or title")
	return cmd
}

// LibraryLoadEndpoint handles POST /api/library/load/{id}.
// It makes a previously uploaded book the session's current book.
type LibraryLoadEndpoint struct{}

var _ api.Endpoint = (*LibraryLoadEndpoint)(nil)

func (e *LibraryLoadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/library/load/{id}", e.handler
}

func (e *LibraryLoadEndpoint) RequiresInit() bool { return true }

func (e *LibraryLoadEndpoint) Group() string { return "library" }

func (e *LibraryLoadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LibraryFrom(r.Context())
	bookID := r.PathValue("id")

	if err := store.SetCurrent(sessionFrom(r), bookID); err != nil {
		writeFailure(w, err)
		return
	}

	book, err := store.Get(bookID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	resp := StoryResponse{Book: book}
	if a, err := analysis.Load(svcctx.HomeFrom(r.Context()), book.ID); err == nil {
		resp.Analysis = a
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *LibraryLoadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "load <book-id>",
		Short: "Load a library book as the current book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL()).WithSession(session)
			var resp StoryResponse
			if err := client.Post(cmd.Context(), "/api/library/load/"+args[0], nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session ID (defaults to the shared session)")
	return cmd
}

// LibraryDeleteEndpoint handles DELETE /api/library/{id}.
// Deletion cascades to the book's upload, analysis, and generated media.
type LibraryDeleteEndpoint struct{}

var _ api.Endpoint = (*LibraryDeleteEndpoint)(nil)

func (e *LibraryDeleteEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/library/{id}", e.handler
}

func (e *LibraryDeleteEndpoint) RequiresInit() bool { return true }

func (e *LibraryDeleteEndpoint) Group() string { return "library" }

func (e *LibraryDeleteEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LibraryFrom(r.Context())
	bookID := r.PathValue("id")

	if err := store.Delete(bookID); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": bookID})
}

func (e *LibraryDeleteEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book and all its derived data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/library/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted book %s\n", args[0])
			return nil
		},
	}
}
