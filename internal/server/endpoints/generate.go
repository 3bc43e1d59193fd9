package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bookvision/bookvision/internal/analysis"
	"github.com/bookvision/bookvision/internal/api"
	"github.com/bookvision/bookvision/internal/generate"
	"github.com/bookvision/bookvision/internal/svcctx"
)

// AudioRequest carries optional narration overrides. All fields may be
// omitted; the book's own text and the configured voice chain apply.
type AudioRequest struct {
	Text       string  `json:"text,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	VoiceID    string  `json:"voice_id,omitempty"`
	Stability  float64 `json:"stability,omitempty"`
	Similarity float64 `json:"similarity_boost,omitempty"`
}

// GenerateAudioEndpoint handles POST /api/generate/audio.
// Narration runs in the background; poll the returned job for progress.
type GenerateAudioEndpoint struct{}

var _ api.Endpoint = (*GenerateAudioEndpoint)(nil)

func (e *GenerateAudioEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/generate/audio", e.handler
}

func (e *GenerateAudioEndpoint) RequiresInit() bool { return true }

func (e *GenerateAudioEndpoint) Group() string { return "generate" }

func (e *GenerateAudioEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AudioRequest
	if r.Body != nil {
		// Body is optional; defaults apply when absent or empty.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	book, err := currentBook(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	text := req.Text
	if text == "" {
		text, err = loadBookText(r, book)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	orch := svcctx.OrchestratorFrom(r.Context())
	job, err := orch.StartAudio(r.Context(), book, text, &generate.AudioOptions{
		Provider:   req.Provider,
		VoiceID:    req.VoiceID,
		Stability:  req.Stability,
		Similarity: req.Similarity,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (e *GenerateAudioEndpoint) Command(getServerURL func() string) *cobra.Command {
	var session, provider, voice string
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Generate narration audio for the current book",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL()).WithSession(session)
			var job generate.Job
			req := AudioRequest{Provider: provider, VoiceID: voice}
			if err := client.Post(cmd.Context(), "/api/generate/audio", req, &job); err != nil {
				return err
			}
			return api.Output(job)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session ID (defaults to the shared session)")
	cmd.Flags().StringVar(&provider, "provider", "", "Narrate with a single TTS provider instead of the fallback chain")
	cmd.Flags().StringVar(&voice, "voice", "", "Provider voice ID override")
	return cmd
}

// VisualsRequest carries optional style and seed overrides.
type VisualsRequest struct {
	Style string `json:"style,omitempty"`
	Seed  int    `json:"seed,omitempty"`
}

// GenerateVisualsEndpoint handles POST /api/generate/visuals.
// The response lists every planned image immediately; images fill in as
// the background render completes.
type GenerateVisualsEndpoint struct{}

var _ api.Endpoint = (*GenerateVisualsEndpoint)(nil)

func (e *GenerateVisualsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/generate/visuals", e.handler
}

func (e *GenerateVisualsEndpoint) RequiresInit() bool { return true }

func (e *GenerateVisualsEndpoint) Group() string { return "generate" }

func (e *GenerateVisualsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req VisualsRequest
	if r.Body != nil {
		// Body is optional; defaults apply when absent or empty.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	book, err := currentBook(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	bookAnalysis, err := analysis.Load(svcctx.HomeFrom(r.Context()), book.ID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	orch := svcctx.OrchestratorFrom(r.Context())
	job, err := orch.StartVisuals(r.Context(), book, bookAnalysis, req.Style, req.Seed)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (e *GenerateVisualsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var session, style string
	var seed int
	cmd := &cobra.Command{
		Use:   "visuals",
		Short: "Generate cover, scene, and entity images for the current book",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL()).WithSession(session)
			var job generate.Job
			req := VisualsRequest{Style: style, Seed: seed}
			if err := client.Post(cmd.Context(), "/api/generate/visuals", req, &job); err != nil {
				return err
			}
			return api.Output(job)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session ID (defaults to the shared session)")
	cmd.Flags().StringVar(&style, "style", "", "Art style for generated images")
	cmd.Flags().IntVar(&seed, "seed", 0, "Base seed for deterministic image generation")
	return cmd
}

// GeneratePodcastEndpoint handles POST /api/generate/podcast.
// The playlist is announced up front; segments are synthesized in order
// in the background.
type GeneratePodcastEndpoint struct{}

var _ api.Endpoint = (*GeneratePodcastEndpoint)(nil)

func (e *GeneratePodcastEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/generate/podcast", e.handler
}

func (e *GeneratePodcastEndpoint) RequiresInit() bool { return true }

func (e *GeneratePodcastEndpoint) Group() string { return "generate" }

func (e *GeneratePodcastEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	book, err := currentBook(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	text, err := loadBookText(r, book)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	orch := svcctx.OrchestratorFrom(r.Context())
	job, err := orch.StartPodcast(r.Context(), book, text)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (e *GeneratePodcastEndpoint) Command(getServerURL func() string) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "podcast",
		Short: "Generate a two-host podcast episode about the current book",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL()).WithSession(session)
			var job generate.Job
			if err := client.Post(cmd.Context(), "/api/generate/podcast", nil, &job); err != nil {
				return err
			}
			return api.Output(job)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session ID (defaults to the shared session)")
	return cmd
}

// JobGetEndpoint handles GET /api/generate/jobs/{id}.
type JobGetEndpoint struct{}

var _ api.Endpoint = (*JobGetEndpoint)(nil)

func (e *JobGetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/generate/jobs/{id}", e.handler
}

func (e *JobGetEndpoint) RequiresInit() bool { return true }

func (e *JobGetEndpoint) Group() string { return "generate" }

func (e *JobGetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	orch := svcctx.OrchestratorFrom(r.Context())
	job, err := orch.Manager().Get(r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (e *JobGetEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Get the status of a generation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var job generate.Job
			if err := client.Get(cmd.Context(), "/api/generate/jobs/"+args[0], &job); err != nil {
				return err
			}
			return api.Output(job)
		},
	}
}
