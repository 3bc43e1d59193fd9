// Package prompts holds the embedded prompt templates and prompt
// builders used by the analysis, podcast, and Q&A workflows.
package prompts

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed analysis_system.tmpl
var analysisSystem string

//go:embed podcast_system.tmpl
var podcastSystem string

//go:embed qa_system.tmpl
var qaSystem string

// ShowName is the podcast show title used in scripts and episode intros.
const ShowName = "Booked & Busy"

// AnalysisSystemPrompt returns the system prompt for book analysis.
func AnalysisSystemPrompt(maxEntities int) string {
	return strings.ReplaceAll(analysisSystem, "{{max_entities}}", strconv.Itoa(maxEntities))
}

// BuildAnalysisUserPrompt builds the user prompt carrying the book text.
func BuildAnalysisUserPrompt(title, text string) string {
	return fmt.Sprintf("Book title: %s\n\nText:\n%s", title, text)
}

// PodcastSystemPrompt returns the system prompt for podcast script generation.
func PodcastSystemPrompt() string {
	return strings.ReplaceAll(podcastSystem, "{{show_name}}", ShowName)
}

// BuildPodcastUserPrompt builds the user prompt carrying the book excerpt.
func BuildPodcastUserPrompt(title, excerpt string) string {
	return fmt.Sprintf("Book: %s\n\nExcerpt:\n%s", title, excerpt)
}

// QASystemPrompt returns the system prompt for book Q&A.
func QASystemPrompt() string {
	return qaSystem
}

// BuildQAUserPrompt builds the user prompt carrying the context window
// and the reader's question.
func BuildQAUserPrompt(title, contextWindow, question string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Book: %s\n\n", title)
	sb.WriteString("Context:\n")
	sb.WriteString(contextWindow)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

// BuildCoverImagePrompt builds the image prompt for a book's cover.
func BuildCoverImagePrompt(title, summary string) string {
	return fmt.Sprintf("Book cover illustration for %q. %s", title, firstSentence(summary))
}

// BuildSceneImagePrompt builds the image prompt for one scene keyword.
func BuildSceneImagePrompt(title, keyword string) string {
	return fmt.Sprintf("A scene from the book %q depicting %s, dramatic composition", title, keyword)
}

// BuildEntityImagePrompt builds the image prompt for an entity portrait.
func BuildEntityImagePrompt(name, role, visualDescription string) string {
	if visualDescription == "" {
		return fmt.Sprintf("Portrait of %s, a %s from a novel, detailed illustration", name, role)
	}
	return fmt.Sprintf("Portrait of %s: %s", name, visualDescription)
}

// firstSentence returns the text up to and including the first period,
// or the whole text when it has no period.
func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
