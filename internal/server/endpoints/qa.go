package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bookvision/bookvision/internal/analysis"
	"github.com/bookvision/bookvision/internal/api"
	"github.com/bookvision/bookvision/internal/svcctx"
)

// QARequest is a question about the current book.
type QARequest struct {
	Question string `json:"question"`
}

// QAResponse carries the answer to a question.
type QAResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QAEndpoint handles POST /api/qa.
type QAEndpoint struct{}

var _ api.Endpoint = (*QAEndpoint)(nil)

func (e *QAEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/qa", e.handler
}

func (e *QAEndpoint) RequiresInit() bool { return true }

func (e *QAEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req QARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	book, err := currentBook(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	text, err := loadBookText(r, book)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// A missing analysis is tolerated; the resolver falls back to the raw
	// excerpt for context.
	bookAnalysis, _ := analysis.Load(svcctx.HomeFrom(r.Context()), book.ID)

	resolver := svcctx.KnowledgeFrom(r.Context())
	answer, err := resolver.Answer(r.Context(), &book, bookAnalysis, text, req.Question)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QAResponse{Question: req.Question, Answer: answer})
}

func (e *QAEndpoint) Command(getServerURL func() string) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "qa <question>",
		Short: "Ask a question about the current book",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL()).WithSession(session)
			var resp QAResponse
			req := QARequest{Question: strings.Join(args, " ")}
			if err := client.Post(cmd.Context(), "/api/qa", req, &resp); err != nil {
				return err
			}
			fmt.Println(resp.Answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session ID (defaults to the shared session)")
	return cmd
}

// SuggestedQuestionsResponse carries question prompts for the current book.
type SuggestedQuestionsResponse struct {
	Questions []string `json:"questions"`
}

// SuggestedQuestionsEndpoint handles GET /api/suggested_questions.
type SuggestedQuestionsEndpoint struct{}

var _ api.Endpoint = (*SuggestedQuestionsEndpoint)(nil)

func (e *SuggestedQuestionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/suggested_questions", e.handler
}

func (e *SuggestedQuestionsEndpoint) RequiresInit() bool { return true }

func (e *SuggestedQuestionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.KnowledgeFrom(r.Context())

	// No current book still yields the static fallback questions.
	book, err := currentBook(r)
	if err != nil {
		writeJSON(w, http.StatusOK, SuggestedQuestionsResponse{
			Questions: resolver.SuggestedQuestions(r.Context(), nil, nil),
		})
		return
	}

	bookAnalysis, _ := analysis.Load(svcctx.HomeFrom(r.Context()), book.ID)
	writeJSON(w, http.StatusOK, SuggestedQuestionsResponse{
		Questions: resolver.SuggestedQuestions(r.Context(), &book, bookAnalysis),
	})
}

func (e *SuggestedQuestionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List suggested questions for the current book",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL()).WithSession(session)
			var resp SuggestedQuestionsResponse
			if err := client.Get(cmd.Context(), "/api/suggested_questions", &resp); err != nil {
				return err
			}
			for _, q := range resp.Questions {
				fmt.Println(q)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session ID (defaults to the shared session)")
	return cmd
}
