package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bookvision/bookvision/internal/types"
)

// stopwords are common words excluded from heuristic entity and keyword
// extraction. Capitalized entries also cover sentence starts.
var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "not": true,
	"with": true, "from": true, "that": true, "this": true, "then": true,
	"there": true, "their": true, "they": true, "them": true, "when": true,
	"what": true, "which": true, "would": true, "could": true, "should": true,
	"have": true, "been": true, "were": true, "said": true, "upon": true,
	"into": true, "about": true, "after": true, "before": true, "where": true,
	"while": true, "some": true, "only": true, "very": true, "more": true,
	"such": true, "than": true, "other": true, "these": true, "those": true,
	"chapter": true, "part": true, "book": true, "mister": true, "missus": true,
}

var (
	properNamePattern = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)
	wordPattern       = regexp.MustCompile(`\b[a-z]{5,}\b`)
	chapterPattern    = regexp.MustCompile(`(?m)^(?:CHAPTER|Chapter|PART|Part)\s+(?:[0-9]+|[IVXLCivxlc]+|[A-Za-z]+)\b[^\n]*`)
)

// heuristicAnalysis produces a degraded analysis without an LLM: proper
// names by frequency become character entities, frequent long words
// become keywords, and the opening text becomes the summary.
func heuristicAnalysis(text string) *llmAnalysis {
	out := &llmAnalysis{
		Summary:  heuristicSummary(text),
		Keywords: topWords(wordPattern.FindAllString(strings.ToLower(text), -1), 8, 3),
	}

	for _, name := range topWords(properNamePattern.FindAllString(text, -1), 10, 3) {
		out.Entities = append(out.Entities, types.Entity{
			Name: name,
			Role: types.RoleCharacter,
		})
	}
	return out
}

// heuristicSummary takes the first few sentences of the text.
func heuristicSummary(text string) string {
	text = strings.TrimSpace(text)
	const maxLen = 400
	if len(text) <= maxLen {
		return text
	}
	cut := text[:maxLen]
	if i := strings.LastIndex(cut, ". "); i > maxLen/2 {
		return cut[:i+1]
	}
	return cut + "..."
}

// topWords returns the most frequent words appearing at least minCount
// times, excluding stopwords, ordered by descending count then first
// appearance.
func topWords(words []string, limit, minCount int) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, w := range words {
		key := strings.ToLower(w)
		if stopwords[key] {
			continue
		}
		if _, ok := firstSeen[w]; !ok {
			firstSeen[w] = i
		}
		counts[w]++
	}

	candidates := make([]string, 0, len(counts))
	for w, c := range counts {
		if c >= minCount {
			candidates = append(candidates, w)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if counts[candidates[i]] != counts[candidates[j]] {
			return counts[candidates[i]] > counts[candidates[j]]
		}
		return firstSeen[candidates[i]] < firstSeen[candidates[j]]
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// detectChapters scans the text for chapter headings and returns their
// titles and character offsets.
func detectChapters(text string) []types.Chapter {
	matches := chapterPattern.FindAllStringIndex(text, -1)
	chapters := make([]types.Chapter, 0, len(matches))
	for i, m := range matches {
		title := strings.TrimSpace(text[m[0]:m[1]])
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		chapters = append(chapters, types.Chapter{
			Title: title,
			Start: m[0],
		})
	}
	return chapters
}
