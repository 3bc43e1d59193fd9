package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bookvision/bookvision/internal/home"
	"github.com/bookvision/bookvision/internal/providers"
	"github.com/bookvision/bookvision/internal/types"
)

func testAnalyzer(t *testing.T, mock *providers.MockClient) (*Analyzer, *home.Dir) {
	t.Helper()

	dir, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatal(err)
	}

	reg := providers.NewRegistry()
	reg.RegisterLLM("mock", mock)
	return NewAnalyzer(reg, dir, "mock", 10, nil), dir
}

func TestAnalyze(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseJSON = json.RawMessage(`{
		"summary": "A boy finds a treasure map and sails to an island.",
		"entities": [
			{"name": "Jim Hawkins", "role": "character", "visual_description": "A young boy in a sailor coat"},
			{"name": "jim hawkins", "role": "character"},
			{"name": "Treasure Island", "role": "place"},
			{"name": "Black Spot"}
		],
		"keywords": ["pirates", "treasure"],
		"suggested_questions": ["Who is Long John Silver?"]
	}`)

	a, dir := testAnalyzer(t, mock)
	book := types.Book{ID: "b1", Title: "Treasure Island"}

	got, err := a.Analyze(context.Background(), book, "Jim Hawkins found a map.")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(got.Entities) != 3 {
		t.Fatalf("entities len = %d, want 3 (case duplicate dropped)", len(got.Entities))
	}
	if got.Entities[0].Name != "Jim Hawkins" {
		t.Errorf("first entity = %s, want Jim Hawkins (first occurrence kept)", got.Entities[0].Name)
	}
	if got.Entities[2].Role != types.RoleCharacter {
		t.Errorf("roleless entity role = %s, want character default", got.Entities[2].Role)
	}
	if len(got.SuggestedQuestions) != 1 {
		t.Errorf("suggested questions = %v", got.SuggestedQuestions)
	}

	// Persisted and loadable.
	loaded, err := Load(dir, "b1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Summary != got.Summary {
		t.Error("persisted analysis does not round-trip")
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	a, _ := testAnalyzer(t, providers.NewMockClient())

	_, err := a.Analyze(context.Background(), types.Book{ID: "b1"}, "   \n ")
	var analysisErr *types.AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("Analyze() error = %T, want *types.AnalysisError", err)
	}
}

func TestAnalyzeFallsBackWhenLLMFails(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true

	a, _ := testAnalyzer(t, mock)

	text := strings.Repeat("Gandalf spoke to Frodo about the ring. Frodo listened while Gandalf paced. ", 10) +
		"Gandalf and Frodo walked on. Frodo slept."
	got, err := a.Analyze(context.Background(), types.Book{ID: "b2", Title: "Fellowship"}, text)
	if err != nil {
		t.Fatalf("Analyze() error = %v, want degraded success", err)
	}

	if got.Summary == "" {
		t.Error("fallback analysis has empty summary")
	}
	names := make(map[string]bool)
	for _, e := range got.Entities {
		names[e.Name] = true
	}
	if !names["Gandalf"] || !names["Frodo"] {
		t.Errorf("fallback entities = %v, want Gandalf and Frodo", got.Entities)
	}
	want := FallbackQuestions()
	if len(got.SuggestedQuestions) != len(want) || got.SuggestedQuestions[0] != want[0] {
		t.Errorf("suggested questions = %v, want fallback %v", got.SuggestedQuestions, want)
	}
}

func TestAnalyzeCapsEntities(t *testing.T) {
	entities := make([]map[string]string, 0, 15)
	for _, n := range []string{"Aa", "Bb", "Cc", "Dd", "Ee", "Ff", "Gg", "Hh", "Ii", "Jj", "Kk", "Ll", "Mm", "Nn", "Oo"} {
		entities = append(entities, map[string]string{"name": n, "role": "character"})
	}
	payload, _ := json.Marshal(map[string]any{
		"summary":  "Many people.",
		"entities": entities,
	})

	mock := providers.NewMockClient()
	mock.ResponseJSON = payload

	a, _ := testAnalyzer(t, mock)
	got, err := a.Analyze(context.Background(), types.Book{ID: "b3"}, "text")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(got.Entities) != 10 {
		t.Errorf("entities len = %d, want cap of 10", len(got.Entities))
	}
}

func TestLoadNotFound(t *testing.T) {
	dir, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, err = Load(dir, "missing")
	var nf *types.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Load() error = %T, want *types.NotFoundError", err)
	}
}

func TestDedupeEntities(t *testing.T) {
	in := []types.Entity{
		{Name: "  Ahab "},
		{Name: "AHAB", Role: types.RolePlace},
		{Name: ""},
		{Name: "Pequod", Role: types.RolePlace},
	}

	got := dedupeEntities(in, 10)
	if len(got) != 2 {
		t.Fatalf("dedupeEntities() len = %d, want 2", len(got))
	}
	if got[0].Name != "Ahab" {
		t.Errorf("name not trimmed: %q", got[0].Name)
	}
	if got[0].Role != types.RoleCharacter {
		t.Errorf("default role = %s, want character", got[0].Role)
	}
	if got[1].Name != "Pequod" || got[1].Role != types.RolePlace {
		t.Errorf("second entity = %+v", got[1])
	}
}

func TestDetectChapters(t *testing.T) {
	text := "Preamble.\nChapter 1\nIt begins.\nSome text.\nCHAPTER II\nMore text.\nPart Three\nThe end."

	got := detectChapters(text)
	if len(got) != 3 {
		t.Fatalf("detectChapters() len = %d, want 3: %+v", len(got), got)
	}
	if got[0].Title != "Chapter 1" {
		t.Errorf("first chapter title = %q", got[0].Title)
	}
	if got[0].Start != strings.Index(text, "Chapter 1") {
		t.Errorf("first chapter start = %d", got[0].Start)
	}
	if got[1].Start <= got[0].Start || got[2].Start <= got[1].Start {
		t.Error("chapter offsets not increasing")
	}
}

func TestTopWords(t *testing.T) {
	words := []string{"whale", "whale", "whale", "sea", "sea", "sea", "sea", "the", "the", "the", "rare"}
	got := topWords(words, 5, 3)

	if len(got) != 2 {
		t.Fatalf("topWords() = %v, want 2 entries", got)
	}
	if got[0] != "sea" || got[1] != "whale" {
		t.Errorf("topWords() order = %v, want [sea whale]", got)
	}
}
