package types

import "fmt"

// IngestionError indicates an uploaded file could not be read or parsed.
type IngestionError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *IngestionError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("ingestion failed for %s: %s", e.Filename, e.Reason)
	}
	return fmt.Sprintf("ingestion failed: %s", e.Reason)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// AnalysisError indicates book analysis could not run at all.
// Degraded analysis output is not an AnalysisError.
type AnalysisError struct {
	BookID string
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %s", e.Reason)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// GenerationFailure indicates a media generation workflow failed after
// exhausting its providers. It is reported in job payloads, not as a
// transport-level error.
type GenerationFailure struct {
	Kind   string // "audio", "visuals", "podcast"
	Reason string
	Err    error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("%s generation failed: %s", e.Kind, e.Reason)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// NotFoundError indicates a referenced resource does not exist.
type NotFoundError struct {
	Resource string // "book", "job", "asset"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NoContextError indicates a question was asked with no book loaded
// for the session.
type NoContextError struct{}

func (e *NoContextError) Error() string {
	return "no book loaded; upload or load a book before asking questions"
}

// TimeoutError indicates an operation exceeded its hard time ceiling.
type TimeoutError struct {
	Op      string
	Seconds int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %ds", e.Op, e.Seconds)
}
