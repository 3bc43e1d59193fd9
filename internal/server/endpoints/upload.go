package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bookvision/bookvision/internal/api"
	"github.com/bookvision/bookvision/internal/ingest"
	"github.com/bookvision/bookvision/internal/svcctx"
	"github.com/bookvision/bookvision/internal/types"
)

// UploadResponse is returned after a successful upload and analysis.
type UploadResponse struct {
	Book     types.Book      `json:"book"`
	Analysis *types.Analysis `json:"analysis,omitempty"`
}

// UploadEndpoint handles POST /api/upload with a multipart book file.
// The uploaded book is ingested, analyzed, and loaded as the session's
// current book in one step.
type UploadEndpoint struct{}

var _ api.Endpoint = (*UploadEndpoint)(nil)

func (e *UploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/upload", e.handler
}

func (e *UploadEndpoint) RequiresInit() bool { return true }

func (e *UploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 100 << 20 // 100MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	src, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer src.Close()

	if !ingest.Supported(header.Filename) {
		writeError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported file type: %s (supported: %s)",
				filepath.Ext(header.Filename), strings.Join(ingest.SupportedExtensions, ", ")))
		return
	}

	homeDir := svcctx.HomeFrom(r.Context())
	store := svcctx.LibraryFrom(r.Context())
	analyzer := svcctx.AnalyzerFrom(r.Context())
	logger := svcctx.LoggerFrom(r.Context())

	// Persist the original upload. The stored name is prefixed with the
	// book id so two uploads with the same filename never collide.
	bookID := uuid.New().String()
	storedName := bookID + "_" + filepath.Base(header.Filename)
	destPath := homeDir.UploadPath(storedName)
	dst, err := os.Create(destPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store upload: %v", err))
		return
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(destPath)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store upload: %v", err))
		return
	}
	dst.Close()

	result, err := ingest.Extract(destPath, logger)
	if err != nil {
		os.Remove(destPath)
		writeFailure(w, err)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = titleFromFilename(header.Filename)
	}

	book, err := store.Add(types.Book{
		ID:        bookID,
		Title:     title,
		Author:    r.FormValue("author"),
		Filename:  storedName,
		Format:    result.Format,
		CharCount: result.CharCount,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to index book: %v", err))
		return
	}

	resp := UploadResponse{Book: book}

	bookAnalysis, err := analyzer.Analyze(r.Context(), book, result.Text)
	if err != nil {
		// The book is in the library but unanalyzed. Report the analysis
		// failure; a retry can re-upload or re-load the book.
		var analysisErr *types.AnalysisError
		if errors.As(err, &analysisErr) {
			writeFailure(w, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.Analysis = bookAnalysis

	book.Status = types.StatusAnalyzed
	if err := store.Update(book); err != nil {
		logger.Error("failed to update book status", "book_id", book.ID, "error", err)
	}
	resp.Book = book

	if err := store.SetCurrent(sessionFrom(r), book.ID); err != nil {
		logger.Error("failed to set current book", "book_id", book.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *UploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title, author string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload and analyze a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp UploadResponse
			fields := map[string]string{"title": title, "author": author}
			if err := client.PostFile(cmd.Context(), "/api/upload", "file", args[0], fields, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Book title (derived from filename if not provided)")
	cmd.Flags().StringVar(&author, "author", "", "Book author")
	return cmd
}

// titleFromFilename derives a human-readable title from an upload filename.
func titleFromFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}
