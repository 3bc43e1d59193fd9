// Package types provides shared types used across multiple packages.
// This package has no dependencies on other bookvision packages to avoid import cycles.
package types

import "time"

// BookStatus tracks a book through its lifecycle.
type BookStatus string

const (
	// StatusUploaded indicates the raw file is stored but not yet analyzed.
	StatusUploaded BookStatus = "uploaded"
	// StatusAnalyzed indicates a persisted analysis exists for the book.
	StatusAnalyzed BookStatus = "analyzed"
)

// Book is a library entry for one ingested book.
type Book struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Author    string     `json:"author,omitempty"`
	Filename  string     `json:"filename"`
	Format    string     `json:"format"` // "pdf", "epub", "txt"
	CharCount int        `json:"char_count"`
	Status    BookStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// EntityRole classifies an entity extracted from a book.
type EntityRole string

const (
	RoleCharacter EntityRole = "character"
	RolePlace     EntityRole = "place"
	RoleObject    EntityRole = "object"
)

// Entity is a notable character, place, or object extracted from a book.
type Entity struct {
	Name              string     `json:"name"`
	Role              EntityRole `json:"role"`
	VisualDescription string     `json:"visual_description,omitempty"`
}

// Chapter is a detected chapter boundary in the book text.
type Chapter struct {
	Title string `json:"title"`
	Start int    `json:"start"` // Character offset into the full text
}

// Analysis is the persisted result of analyzing a book's text.
type Analysis struct {
	BookID             string    `json:"book_id"`
	Summary            string    `json:"summary"`
	Entities           []Entity  `json:"entities"`
	Keywords           []string  `json:"keywords,omitempty"`
	Chapters           []Chapter `json:"chapters,omitempty"`
	SuggestedQuestions []string  `json:"suggested_questions,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
