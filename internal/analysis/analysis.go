// Package analysis derives a book's summary, entities, keywords, and
// chapter map from its extracted text.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bookvision/bookvision/internal/home"
	"github.com/bookvision/bookvision/internal/prompts"
	"github.com/bookvision/bookvision/internal/providers"
	"github.com/bookvision/bookvision/internal/types"
)

// maxInputChars caps the text sent to the LLM for analysis.
const maxInputChars = 24000

// analysisSchema validates the structured analysis response.
var analysisSchema = json.RawMessage(`{
	"name": "book_analysis",
	"schema": {
		"type": "object",
		"properties": {
			"summary": {"type": "string"},
			"entities": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"name": {"type": "string"},
						"role": {"type": "string", "enum": ["character", "place", "object"]},
						"visual_description": {"type": "string"}
					},
					"required": ["name"]
				}
			},
			"keywords": {"type": "array", "items": {"type": "string"}},
			"suggested_questions": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["summary", "entities"]
	}
}`)

// llmAnalysis is the wire shape of the structured analysis response.
type llmAnalysis struct {
	Summary            string         `json:"summary"`
	Entities           []types.Entity `json:"entities"`
	Keywords           []string       `json:"keywords"`
	SuggestedQuestions []string       `json:"suggested_questions"`
}

// Analyzer runs book analysis and persists results.
type Analyzer struct {
	registry    *providers.Registry
	home        *home.Dir
	llmProvider string
	maxEntities int
	logger      *slog.Logger
}

// NewAnalyzer creates an Analyzer. llmProvider names the registry entry
// to use; maxEntities bounds the entity list (0 means 10).
func NewAnalyzer(registry *providers.Registry, homeDir *home.Dir, llmProvider string, maxEntities int, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxEntities <= 0 {
		maxEntities = 10
	}
	return &Analyzer{
		registry:    registry,
		home:        homeDir,
		llmProvider: llmProvider,
		maxEntities: maxEntities,
		logger:      logger,
	}
}

// Analyze produces and persists an analysis for the book's text.
// Empty text is the only hard failure; when the LLM is unavailable or
// returns garbage the analyzer degrades to a heuristic pass and still
// succeeds.
func (a *Analyzer) Analyze(ctx context.Context, book types.Book, text string) (*types.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &types.AnalysisError{BookID: book.ID, Reason: "book has no text"}
	}

	result, err := a.analyzeLLM(ctx, book, text)
	if err != nil {
		a.logger.Warn("LLM analysis failed, using heuristic fallback", "book_id", book.ID, "error", err)
		result = heuristicAnalysis(text)
	}

	analysis := &types.Analysis{
		BookID:             book.ID,
		Summary:            result.Summary,
		Entities:           dedupeEntities(result.Entities, a.maxEntities),
		Keywords:           result.Keywords,
		Chapters:           detectChapters(text),
		SuggestedQuestions: result.SuggestedQuestions,
		CreatedAt:          time.Now().UTC(),
	}
	if len(analysis.SuggestedQuestions) == 0 {
		analysis.SuggestedQuestions = FallbackQuestions()
	}

	if err := a.save(analysis); err != nil {
		return nil, &types.AnalysisError{BookID: book.ID, Reason: "failed to persist analysis", Err: err}
	}

	a.logger.Info("analysis complete",
		"book_id", book.ID,
		"entities", len(analysis.Entities),
		"chapters", len(analysis.Chapters))
	return analysis, nil
}

func (a *Analyzer) analyzeLLM(ctx context.Context, book types.Book, text string) (*llmAnalysis, error) {
	client, err := a.registry.GetLLM(a.llmProvider)
	if err != nil {
		return nil, err
	}

	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	raw, err := providers.ChatStructured(ctx, client, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: prompts.AnalysisSystemPrompt(a.maxEntities)},
			{Role: "user", Content: prompts.BuildAnalysisUserPrompt(book.Title, text)},
		},
		ResponseFormat: &providers.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: analysisSchema,
		},
	})
	if err != nil {
		return nil, err
	}

	var out llmAnalysis
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return nil, fmt.Errorf("analysis has empty summary")
	}
	return &out, nil
}

// save writes the analysis to {home}/books/{id}/analysis.json.
func (a *Analyzer) save(analysis *types.Analysis) error {
	if err := a.home.EnsureBookDirs(analysis.BookID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.home.AnalysisPath(analysis.BookID), data, 0o644)
}

// Load reads a persisted analysis. Returns NotFoundError when the book
// has not been analyzed.
func Load(homeDir *home.Dir, bookID string) (*types.Analysis, error) {
	data, err := os.ReadFile(homeDir.AnalysisPath(bookID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &types.NotFoundError{Resource: "analysis", ID: bookID}
		}
		return nil, fmt.Errorf("failed to read analysis: %w", err)
	}
	var analysis types.Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}
	return &analysis, nil
}

// dedupeEntities drops duplicate entities by case-normalized name,
// keeping the first occurrence, and caps the list at max. Entities
// without a role default to character.
func dedupeEntities(entities []types.Entity, max int) []types.Entity {
	seen := make(map[string]bool, len(entities))
	out := make([]types.Entity, 0, len(entities))
	for _, e := range entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		e.Name = name
		if e.Role == "" {
			e.Role = types.RoleCharacter
		}
		out = append(out, e)
		if len(out) == max {
			break
		}
	}
	return out
}

// FallbackQuestions returns the static suggested questions used when no
// better ones are available.
func FallbackQuestions() []string {
	return []string{
		"What is the plot?",
		"Who are the characters?",
	}
}
