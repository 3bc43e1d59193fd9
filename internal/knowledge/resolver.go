// Package knowledge answers reader questions about the loaded book.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bookvision/bookvision/internal/analysis"
	"github.com/bookvision/bookvision/internal/prompts"
	"github.com/bookvision/bookvision/internal/providers"
	"github.com/bookvision/bookvision/internal/types"
)

// Config bounds the Q&A workflow.
type Config struct {
	LLMProvider string
	// ContextChars caps the book excerpt included in the context window.
	ContextChars int
	// Timeout is the hard ceiling on one question round trip.
	Timeout time.Duration
}

// Resolver builds bounded context windows from a book and answers
// questions against them.
type Resolver struct {
	registry *providers.Registry
	cfg      Config
	logger   *slog.Logger

	mu        sync.RWMutex
	questions map[string][]string // book ID -> cached suggested questions
}

// NewResolver creates a Resolver.
func NewResolver(registry *providers.Registry, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = 10000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Resolver{
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
		questions: make(map[string][]string),
	}
}

// Answer answers a question about the book. book is nil when the
// session has no book loaded, which is a NoContextError. The round
// trip is bounded by the configured timeout; exceeding it returns a
// TimeoutError.
func (r *Resolver) Answer(ctx context.Context, book *types.Book, bookAnalysis *types.Analysis, text, question string) (string, error) {
	if book == nil {
		return "", &types.NoContextError{}
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is empty")
	}

	client, err := r.registry.GetLLM(r.cfg.LLMProvider)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	window := r.buildContext(book, bookAnalysis, text)
	result, err := client.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: prompts.QASystemPrompt()},
			{Role: "user", Content: prompts.BuildQAUserPrompt(book.Title, window, question)},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &types.TimeoutError{Op: "question answering", Seconds: int(r.cfg.Timeout.Seconds())}
		}
		return "", err
	}
	if !result.Success || strings.TrimSpace(result.Content) == "" {
		return "", fmt.Errorf("empty answer from %s", client.Name())
	}
	return strings.TrimSpace(result.Content), nil
}

// buildContext assembles the bounded context window: analysis first,
// then as much of the book text as fits.
func (r *Resolver) buildContext(book *types.Book, bookAnalysis *types.Analysis, text string) string {
	var sb strings.Builder

	if bookAnalysis != nil {
		if bookAnalysis.Summary != "" {
			fmt.Fprintf(&sb, "Summary: %s\n\n", bookAnalysis.Summary)
		}
		if len(bookAnalysis.Entities) > 0 {
			sb.WriteString("Notable entities:\n")
			for _, e := range bookAnalysis.Entities {
				fmt.Fprintf(&sb, "- %s (%s)", e.Name, e.Role)
				if e.VisualDescription != "" {
					fmt.Fprintf(&sb, ": %s", e.VisualDescription)
				}
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
	}

	remaining := r.cfg.ContextChars - sb.Len()
	if remaining > 0 && text != "" {
		excerpt := text
		if len(excerpt) > remaining {
			excerpt = excerpt[:remaining]
		}
		sb.WriteString("Excerpt:\n")
		sb.WriteString(excerpt)
	}

	return sb.String()
}

// SuggestedQuestions returns starter questions for the book. Analysis
// questions are preferred, then a one-shot LLM generation cached per
// book, then the static fallback.
func (r *Resolver) SuggestedQuestions(ctx context.Context, book *types.Book, bookAnalysis *types.Analysis) []string {
	if book == nil {
		return analysis.FallbackQuestions()
	}

	r.mu.RLock()
	cached, ok := r.questions[book.ID]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	if bookAnalysis != nil && len(bookAnalysis.SuggestedQuestions) > 0 {
		r.cache(book.ID, bookAnalysis.SuggestedQuestions)
		return bookAnalysis.SuggestedQuestions
	}

	generated, err := r.generateQuestions(ctx, book, bookAnalysis)
	if err != nil {
		r.logger.Warn("suggested question generation failed", "book_id", book.ID, "error", err)
		return analysis.FallbackQuestions()
	}
	r.cache(book.ID, generated)
	return generated
}

func (r *Resolver) cache(bookID string, qs []string) {
	r.mu.Lock()
	r.questions[bookID] = qs
	r.mu.Unlock()
}

var questionsSchema = json.RawMessage(`{
	"name": "suggested_questions",
	"schema": {
		"type": "object",
		"properties": {
			"questions": {
				"type": "array",
				"minItems": 1,
				"items": {"type": "string"}
			}
		},
		"required": ["questions"]
	}
}`)

func (r *Resolver) generateQuestions(ctx context.Context, book *types.Book, bookAnalysis *types.Analysis) ([]string, error) {
	client, err := r.registry.GetLLM(r.cfg.LLMProvider)
	if err != nil {
		return nil, err
	}

	summary := ""
	if bookAnalysis != nil {
		summary = bookAnalysis.Summary
	}

	raw, err := providers.ChatStructured(ctx, client, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: "Suggest 3-5 short questions a curious reader might ask about the book. Respond with a JSON object {\"questions\": [...]}."},
			{Role: "user", Content: fmt.Sprintf("Book: %s\nSummary: %s", book.Title, summary)},
		},
		ResponseFormat: &providers.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: questionsSchema,
		},
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("no questions generated")
	}
	return out.Questions, nil
}
