package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bookvision/bookvision/internal/home"
	"github.com/bookvision/bookvision/internal/providers"
	"github.com/bookvision/bookvision/internal/types"
)

// Config bounds the generation workflows and names the providers they
// use.
type Config struct {
	LLMProvider   string
	TTSChain      []string // Ordered fallback chain for narration
	ImageProvider string

	MaxAudioChars       int
	MaxPodcastChars     int
	MaxConcurrentImages int
	DefaultSeed         int
	DefaultStyle        string

	// AssetPrefix is the URL prefix under which generated media is
	// served, e.g. "/api/assets".
	AssetPrefix string
}

func (c *Config) applyDefaults() {
	if c.MaxAudioChars <= 0 {
		c.MaxAudioChars = 2000
	}
	if c.MaxPodcastChars <= 0 {
		c.MaxPodcastChars = 12000
	}
	if c.MaxConcurrentImages <= 0 {
		c.MaxConcurrentImages = 3
	}
	if c.DefaultSeed == 0 {
		c.DefaultSeed = 42
	}
	if c.DefaultStyle == "" {
		c.DefaultStyle = "storybook"
	}
	if c.AssetPrefix == "" {
		c.AssetPrefix = "/api/assets"
	}
}

// Orchestrator starts generation jobs and runs their workflows in the
// background. Artifact locations are announced up front; readiness is
// observed through the Prober by artifact existence.
type Orchestrator struct {
	manager  *Manager
	prober   *Prober
	registry *providers.Registry
	home     *home.Dir
	cfg      Config
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(manager *Manager, prober *Prober, registry *providers.Registry, homeDir *home.Dir, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Orchestrator{
		manager:  manager,
		prober:   prober,
		registry: registry,
		home:     homeDir,
		cfg:      cfg,
		logger:   logger,
	}
}

// Manager returns the job manager.
func (o *Orchestrator) Manager() *Manager { return o.manager }

// Prober returns the artifact prober.
func (o *Orchestrator) Prober() *Prober { return o.prober }

// assetURL maps a media file to its serving URL.
func (o *Orchestrator) assetURL(bookID, path string) string {
	return fmt.Sprintf("%s/%s/%s", o.cfg.AssetPrefix, bookID, filepath.Base(path))
}

// AudioOptions carries caller overrides for a narration job. The zero
// value uses the configured defaults.
type AudioOptions struct {
	// Provider narrows the TTS chain to a single provider.
	Provider string
	// VoiceID overrides the provider's configured voice.
	VoiceID string
	// Stability and Similarity override the voice settings when non-zero.
	Stability  float64
	Similarity float64
}

// StartAudio creates a narration job for the opening of the book's
// text and synthesizes it in the background. The artifact URL and the
// number of characters actually narrated are available on the returned
// job immediately.
func (o *Orchestrator) StartAudio(ctx context.Context, book types.Book, text string, opts *AudioOptions) (*Job, error) {
	if opts == nil {
		opts = &AudioOptions{}
	}
	narration := truncateAtWord(text, o.cfg.MaxAudioChars)
	if strings.TrimSpace(narration) == "" {
		return nil, &types.GenerationFailure{Kind: string(KindAudio), Reason: "book has no text to narrate"}
	}

	job, jobCtx := o.manager.Start(ctx, book.ID, KindAudio)
	path := o.home.NarrationPath(book.ID, job.Generation, "mp3")

	o.manager.update(job.ID, job.Generation, func(j *Job) {
		j.Audio = &AudioResult{
			URL:       o.assetURL(book.ID, path),
			Path:      path,
			CharsUsed: len(narration),
		}
	})

	go o.runAudio(jobCtx, job.ID, job.Generation, book.ID, path, narration, opts)

	return o.manager.Get(job.ID)
}

// runAudio walks the TTS fallback chain until one provider produces
// audio.
func (o *Orchestrator) runAudio(ctx context.Context, jobID string, generation int, bookID, path, text string, opts *AudioOptions) {
	o.manager.SetRunning(jobID, generation)

	if err := o.home.EnsureBookDirs(bookID); err != nil {
		o.manager.Fail(jobID, generation, err.Error())
		return
	}

	chain := o.cfg.TTSChain
	if opts.Provider != "" {
		chain = []string{opts.Provider}
	}

	var lastErr error
	for _, name := range chain {
		if ctx.Err() != nil {
			return
		}
		tts, err := o.registry.GetTTS(name)
		if err != nil {
			continue
		}

		result, err := tts.Generate(ctx, &providers.TTSRequest{
			Text:       text,
			Format:     "mp3",
			Voice:      opts.VoiceID,
			Stability:  opts.Stability,
			Similarity: opts.Similarity,
		})
		if err != nil || !result.Success {
			if err == nil {
				err = fmt.Errorf("%s: %s", name, result.ErrorMessage)
			}
			lastErr = err
			o.logger.Warn("narration provider failed", "provider", name, "book_id", bookID, "error", err)
			continue
		}

		if err := os.WriteFile(path, result.Audio, 0o644); err != nil {
			o.manager.Fail(jobID, generation, err.Error())
			return
		}

		o.manager.update(jobID, generation, func(j *Job) {
			if j.Audio != nil {
				j.Audio.Provider = name
			}
		})
		o.manager.Complete(jobID, generation)
		o.logger.Info("narration complete", "book_id", bookID, "provider", name)
		return
	}

	failure := &types.GenerationFailure{Kind: string(KindAudio), Reason: "all narration providers failed", Err: lastErr}
	o.manager.Fail(jobID, generation, failure.Error())
}

// truncateAtWord cuts text to at most max characters, backing up to the
// last word boundary when one is close enough.
func truncateAtWord(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if i := strings.LastIndexByte(cut, ' '); i > max*3/4 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
