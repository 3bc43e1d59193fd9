// Package generate orchestrates media generation jobs: narration audio,
// visuals, and podcast episodes.
package generate

import (
	"time"
)

// Kind identifies a generation workflow.
type Kind string

const (
	KindAudio   Kind = "audio"
	KindVisuals Kind = "visuals"
	KindPodcast Kind = "podcast"
)

// Status tracks a job through its lifecycle.
type Status string

const (
	// StatusRequested means the job is created but work has not started.
	StatusRequested Status = "requested"
	// StatusRunning means the background workflow is executing.
	StatusRunning Status = "running"
	// StatusPartial means some artifacts are ready and work continues.
	StatusPartial Status = "partial"
	// StatusComplete means the workflow finished and at least one
	// artifact is ready.
	StatusComplete Status = "complete"
	// StatusFailed means the workflow produced nothing usable.
	StatusFailed Status = "failed"
	// StatusSuperseded means a newer job for the same book and kind
	// replaced this one.
	StatusSuperseded Status = "superseded"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusSuperseded
}

// ImageKind identifies what a generated image depicts.
type ImageKind string

const (
	ImageCover  ImageKind = "cover"
	ImageScene  ImageKind = "scene"
	ImageEntity ImageKind = "entity"
)

// ImageArtifact is one planned image in a visuals job. The URL is
// announced before generation; readiness is probed by artifact
// existence.
type ImageArtifact struct {
	Index  int       `json:"index"`
	Kind   ImageKind `json:"kind"`
	Name   string    `json:"name,omitempty"` // entity name or scene keyword
	URL    string    `json:"url"`
	Path   string    `json:"-"`
	Seed   int       `json:"seed"`
	Ready  bool      `json:"ready"`
	Failed bool      `json:"failed"`
}

// PodcastSegment is one planned audio segment in a podcast job.
// Segments are synthesized in order; a failed segment is skipped and
// the episode continues without it.
type PodcastSegment struct {
	Index   int    `json:"index"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	URL     string `json:"url"`
	Path    string `json:"-"`
	Ready   bool   `json:"ready"`
	Skipped bool   `json:"skipped"`
}

// AudioResult is the payload of an audio job.
type AudioResult struct {
	URL       string `json:"url"`
	Path      string `json:"-"`
	CharsUsed int    `json:"chars_used"`
	Provider  string `json:"provider,omitempty"`
}

// Job is one generation job. Fields are owned by the Manager; callers
// receive copies.
type Job struct {
	ID     string `json:"id"`
	BookID string `json:"book_id"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
	// Generation increases each time a new job supersedes an older one
	// for the same book and kind. Writes stamped with an older
	// generation are discarded.
	Generation int       `json:"generation"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Error      string    `json:"error,omitempty"`

	Audio    *AudioResult     `json:"audio,omitempty"`
	Images   []ImageArtifact  `json:"images,omitempty"`
	Episode  *EpisodeInfo     `json:"episode,omitempty"`
	Playlist []PodcastSegment `json:"playlist,omitempty"`
}

// EpisodeInfo describes a podcast episode.
type EpisodeInfo struct {
	Show  string `json:"show"`
	Title string `json:"title"`
}

// clone returns a deep copy safe to hand to callers.
func (j *Job) clone() *Job {
	out := *j
	if j.Audio != nil {
		audio := *j.Audio
		out.Audio = &audio
	}
	if j.Episode != nil {
		ep := *j.Episode
		out.Episode = &ep
	}
	if j.Images != nil {
		out.Images = make([]ImageArtifact, len(j.Images))
		copy(out.Images, j.Images)
	}
	if j.Playlist != nil {
		out.Playlist = make([]PodcastSegment, len(j.Playlist))
		copy(out.Playlist, j.Playlist)
	}
	return &out
}
