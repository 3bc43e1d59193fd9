package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bookvision/bookvision/internal/prompts"
	"github.com/bookvision/bookvision/internal/providers"
	"github.com/bookvision/bookvision/internal/types"
)

// persona holds the voice configuration for one podcast host.
type persona struct {
	VoiceID    string
	Stability  float64
	Similarity float64
	Style      float64
	Speed      float64
}

// personas maps host names to their voices. Jax is the energetic host,
// Emma the thoughtful one.
var personas = map[string]persona{
	"Jax":  {VoiceID: "pNInz6obpgDQGcFmaJgB", Stability: 0.4, Similarity: 0.8, Style: 0.6, Speed: 1.1},
	"Emma": {VoiceID: "21m00Tcm4TlvDq8ikWAM", Stability: 0.6, Similarity: 0.75, Style: 0.2},
}

// scriptSchema validates the structured podcast script response.
var scriptSchema = json.RawMessage(`{
	"name": "podcast_script",
	"schema": {
		"type": "object",
		"properties": {
			"title": {"type": "string"},
			"segments": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"properties": {
						"speaker": {"type": "string"},
						"text": {"type": "string"}
					},
					"required": ["speaker", "text"]
				}
			}
		},
		"required": ["title", "segments"]
	}
}`)

type podcastScript struct {
	Title    string `json:"title"`
	Segments []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"segments"`
}

// StartPodcast creates a podcast job. The script is written up front so
// the full playlist is on the returned job immediately; segment audio
// is synthesized in the background, in playlist order, skipping
// segments whose synthesis fails.
func (o *Orchestrator) StartPodcast(ctx context.Context, book types.Book, text string) (*Job, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &types.GenerationFailure{Kind: string(KindPodcast), Reason: "book has no text to discuss"}
	}

	script := o.writeScript(ctx, book, truncateAtWord(text, o.cfg.MaxPodcastChars))

	job, jobCtx := o.manager.Start(ctx, book.ID, KindPodcast)

	playlist := make([]PodcastSegment, 0, len(script.Segments))
	for i, seg := range script.Segments {
		speaker := normalizeSpeaker(seg.Speaker, i)
		path := o.home.PodcastSegmentPath(book.ID, i, speaker, "mp3")
		playlist = append(playlist, PodcastSegment{
			Index:   i,
			Speaker: speaker,
			Text:    seg.Text,
			URL:     o.assetURL(book.ID, path),
			Path:    path,
		})
	}

	o.manager.update(job.ID, job.Generation, func(j *Job) {
		j.Episode = &EpisodeInfo{Show: prompts.ShowName, Title: script.Title}
		j.Playlist = playlist
	})

	go o.runPodcast(jobCtx, job.ID, job.Generation, book.ID, playlist)

	return o.manager.Get(job.ID)
}

// writeScript asks the LLM for an episode script, falling back to a
// canned two-line episode when generation fails. A fallback script is
// still a successful podcast.
func (o *Orchestrator) writeScript(ctx context.Context, book types.Book, excerpt string) *podcastScript {
	client, err := o.registry.GetLLM(o.cfg.LLMProvider)
	if err != nil {
		o.logger.Warn("podcast script LLM unavailable, using fallback script", "book_id", book.ID, "error", err)
		return fallbackScript(book.Title)
	}

	raw, err := providers.ChatStructured(ctx, client, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: prompts.PodcastSystemPrompt()},
			{Role: "user", Content: prompts.BuildPodcastUserPrompt(book.Title, excerpt)},
		},
		ResponseFormat: &providers.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: scriptSchema,
		},
	})
	if err != nil {
		o.logger.Warn("podcast script generation failed, using fallback script", "book_id", book.ID, "error", err)
		return fallbackScript(book.Title)
	}

	var script podcastScript
	if err := json.Unmarshal(raw, &script); err != nil || len(script.Segments) == 0 {
		o.logger.Warn("podcast script unusable, using fallback script", "book_id", book.ID, "error", err)
		return fallbackScript(book.Title)
	}
	if script.Title == "" {
		script.Title = book.Title
	}
	return &script
}

// fallbackScript is the canned episode used when script generation
// fails.
func fallbackScript(title string) *podcastScript {
	script := &podcastScript{Title: title}
	lines := []struct{ speaker, text string }{
		{"Jax", fmt.Sprintf("Welcome back to %s! Today we're talking about %s.", prompts.ShowName, title)},
		{"Emma", "It's a book worth sitting with. Let's get into what makes it tick."},
		{"Jax", "Grab a copy and read along with us. That's the show, see you next time!"},
	}
	for _, l := range lines {
		script.Segments = append(script.Segments, struct {
			Speaker string `json:"speaker"`
			Text    string `json:"text"`
		}{Speaker: l.speaker, Text: l.text})
	}
	return script
}

// normalizeSpeaker maps unknown speaker names onto the two hosts,
// alternating by segment position.
func normalizeSpeaker(speaker string, index int) string {
	if _, ok := personas[speaker]; ok {
		return speaker
	}
	if index%2 == 0 {
		return "Jax"
	}
	return "Emma"
}

// runPodcast synthesizes segments strictly in playlist order. A failed
// segment is marked skipped and the episode continues; request IDs
// from prior segments are threaded through so the voice stays
// consistent across the episode.
func (o *Orchestrator) runPodcast(ctx context.Context, jobID string, generation int, bookID string, playlist []PodcastSegment) {
	o.manager.SetRunning(jobID, generation)

	if err := o.home.EnsureBookDirs(bookID); err != nil {
		o.manager.Fail(jobID, generation, err.Error())
		return
	}

	ready := 0
	prevRequestIDs := make(map[string][]string, len(personas))

	for _, seg := range playlist {
		if ctx.Err() != nil {
			return
		}

		result, err := o.synthesizeSegment(ctx, seg, prevRequestIDs[seg.Speaker])
		if err != nil || !result.Success {
			o.logger.Warn("podcast segment skipped",
				"book_id", bookID, "segment", seg.Index, "speaker", seg.Speaker, "error", err)
			o.markSegment(jobID, generation, seg.Index, false)
			continue
		}

		if err := os.WriteFile(seg.Path, result.Audio, 0o644); err != nil {
			o.markSegment(jobID, generation, seg.Index, false)
			continue
		}

		if result.RequestID != "" {
			prevRequestIDs[seg.Speaker] = append(prevRequestIDs[seg.Speaker], result.RequestID)
		}
		ready++
		o.markSegment(jobID, generation, seg.Index, true)
	}

	if ctx.Err() != nil {
		return
	}
	if ready == 0 {
		failure := &types.GenerationFailure{Kind: string(KindPodcast), Reason: "no segments were synthesized"}
		o.manager.Fail(jobID, generation, failure.Error())
		return
	}
	o.manager.Complete(jobID, generation)
	o.logger.Info("podcast complete", "book_id", bookID, "ready", ready, "planned", len(playlist))
}

// synthesizeSegment walks the TTS chain for one segment with the
// speaker's persona voice settings.
func (o *Orchestrator) synthesizeSegment(ctx context.Context, seg PodcastSegment, prevRequestIDs []string) (*providers.TTSResult, error) {
	p := personas[seg.Speaker]

	var lastErr error
	for _, name := range o.cfg.TTSChain {
		tts, err := o.registry.GetTTS(name)
		if err != nil {
			continue
		}
		result, err := tts.Generate(ctx, &providers.TTSRequest{
			Text:               seg.Text,
			Voice:              p.VoiceID,
			Format:             "mp3",
			Stability:          p.Stability,
			Similarity:         p.Similarity,
			Style:              p.Style,
			Speed:              p.Speed,
			PreviousRequestIDs: prevRequestIDs,
		})
		if err != nil {
			lastErr = err
			continue
		}
		if !result.Success {
			lastErr = fmt.Errorf("%s: %s", name, result.ErrorMessage)
			continue
		}
		return result, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no TTS providers configured")
	}
	return nil, lastErr
}

// markSegment records one segment's outcome. The first ready segment
// moves the job from running to partial.
func (o *Orchestrator) markSegment(jobID string, generation, index int, ready bool) {
	o.manager.update(jobID, generation, func(j *Job) {
		if index >= len(j.Playlist) {
			return
		}
		if ready {
			j.Playlist[index].Ready = true
		} else {
			j.Playlist[index].Skipped = true
		}
	})
	if ready {
		o.manager.SetPartial(jobID, generation)
	}
}
