package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bookvision/bookvision/internal/api"
	"github.com/bookvision/bookvision/internal/ingest"
	"github.com/bookvision/bookvision/internal/library"
	"github.com/bookvision/bookvision/internal/svcctx"
	"github.com/bookvision/bookvision/internal/types"
)

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeFailure maps a domain error to its HTTP status and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor maps domain error types to HTTP status codes.
// Unknown errors map to 500.
func statusFor(err error) int {
	var (
		notFound  *types.NotFoundError
		noContext *types.NoContextError
		timeout   *types.TimeoutError
		ingestErr *types.IngestionError
		analysis  *types.AnalysisError
		genFail   *types.GenerationFailure
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &noContext):
		return http.StatusNotFound
	case errors.As(err, &timeout):
		return http.StatusRequestTimeout
	case errors.As(err, &ingestErr):
		return http.StatusBadRequest
	case errors.As(err, &analysis):
		return http.StatusUnprocessableEntity
	case errors.As(err, &genFail):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// sessionFrom extracts the caller's session ID from the request headers.
func sessionFrom(r *http.Request) string {
	if s := r.Header.Get(api.SessionHeader); s != "" {
		return s
	}
	return library.DefaultSession
}

// currentBook resolves the session's currently loaded book.
// Returns *types.NoContextError when no book is loaded.
func currentBook(r *http.Request) (types.Book, error) {
	store := svcctx.LibraryFrom(r.Context())
	if store == nil {
		return types.Book{}, errors.New("library not initialized")
	}
	book, err := store.Current(sessionFrom(r))
	if err != nil {
		return types.Book{}, &types.NoContextError{}
	}
	return book, nil
}

// loadBookText re-extracts the text of a book from its stored upload.
func loadBookText(r *http.Request, book types.Book) (string, error) {
	homeDir := svcctx.HomeFrom(r.Context())
	if homeDir == nil {
		return "", errors.New("home directory not initialized")
	}
	result, err := ingest.Extract(homeDir.UploadPath(book.Filename), svcctx.LoggerFrom(r.Context()))
	if err != nil {
		return "", fmt.Errorf("failed to re-read book text: %w", err)
	}
	return result.Text, nil
}

// assetURL builds the public URL for a generated media file of a book.
func assetURL(bookID, base string) string {
	return fmt.Sprintf("/api/assets/%s/%s", bookID, base)
}
