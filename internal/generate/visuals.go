package generate

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/bookvision/bookvision/internal/prompts"
	"github.com/bookvision/bookvision/internal/providers"
	"github.com/bookvision/bookvision/internal/types"
)

// maxScenes bounds how many scene images a visuals job plans.
const maxScenes = 4

// StartVisuals creates a visuals job. The full list of planned image
// locations is on the returned job immediately; images are generated
// in the background with bounded concurrency.
//
// Seeds are deterministic per plan position so a regenerate with the
// same seed reproduces the same images: the cover uses the seed
// itself, scene i uses seed+200+i, entity i uses seed+i+1.
func (o *Orchestrator) StartVisuals(ctx context.Context, book types.Book, analysis *types.Analysis, style string, seed int) (*Job, error) {
	if style == "" {
		style = o.cfg.DefaultStyle
	}
	if seed == 0 {
		seed = o.cfg.DefaultSeed
	}

	job, jobCtx := o.manager.Start(ctx, book.ID, KindVisuals)

	plan := o.planVisualPrompts(book, analysis, style, seed)
	artifacts := make([]ImageArtifact, len(plan))
	for i, p := range plan {
		artifacts[i] = p.artifact
	}
	o.manager.update(job.ID, job.Generation, func(j *Job) {
		j.Images = artifacts
	})

	go o.runVisuals(jobCtx, job.ID, job.Generation, book, plan, style)

	return o.manager.Get(job.ID)
}

// visualPrompt pairs a planned artifact with its image prompt.
type visualPrompt struct {
	artifact ImageArtifact
	prompt   string
}

func (o *Orchestrator) planVisualPrompts(book types.Book, analysis *types.Analysis, style string, seed int) []visualPrompt {
	plan := make([]visualPrompt, 0, 1+maxScenes+len(analysis.Entities))

	coverPath := o.home.CoverImagePath(book.ID, style)
	plan = append(plan, visualPrompt{
		artifact: ImageArtifact{
			Index: 0,
			Kind:  ImageCover,
			URL:   o.assetURL(book.ID, coverPath),
			Path:  coverPath,
			Seed:  seed,
		},
		prompt: prompts.BuildCoverImagePrompt(book.Title, analysis.Summary),
	})

	keywords := analysis.Keywords
	if len(keywords) > maxScenes {
		keywords = keywords[:maxScenes]
	}
	for i, kw := range keywords {
		path := o.home.SceneImagePath(book.ID, i+1)
		plan = append(plan, visualPrompt{
			artifact: ImageArtifact{
				Index: len(plan),
				Kind:  ImageScene,
				Name:  kw,
				URL:   o.assetURL(book.ID, path),
				Path:  path,
				Seed:  seed + 200 + i + 1,
			},
			prompt: prompts.BuildSceneImagePrompt(book.Title, kw),
		})
	}

	for i, e := range analysis.Entities {
		path := o.home.EntityImagePath(book.ID, e.Name)
		plan = append(plan, visualPrompt{
			artifact: ImageArtifact{
				Index: len(plan),
				Kind:  ImageEntity,
				Name:  e.Name,
				URL:   o.assetURL(book.ID, path),
				Path:  path,
				Seed:  seed + i + 1,
			},
			prompt: prompts.BuildEntityImagePrompt(e.Name, string(e.Role), e.VisualDescription),
		})
	}

	return plan
}

// runVisuals generates every planned image with bounded concurrency.
// Individual failures are recorded per artifact; the job fails only
// when nothing was produced.
func (o *Orchestrator) runVisuals(ctx context.Context, jobID string, generation int, book types.Book, plan []visualPrompt, style string) {
	o.manager.SetRunning(jobID, generation)

	if err := o.home.EnsureBookDirs(book.ID); err != nil {
		o.manager.Fail(jobID, generation, err.Error())
		return
	}

	img, err := o.registry.GetImage(o.cfg.ImageProvider)
	if err != nil {
		failure := &types.GenerationFailure{Kind: string(KindVisuals), Reason: "image provider unavailable", Err: err}
		o.manager.Fail(jobID, generation, failure.Error())
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentImages)

	for i := range plan {
		p := plan[i]
		g.Go(func() error {
			result, err := img.Generate(gctx, &providers.ImageRequest{
				Prompt: p.prompt,
				Style:  style,
				Seed:   p.artifact.Seed,
			})
			if err != nil || !result.Success {
				o.logger.Warn("image generation failed",
					"book_id", book.ID, "kind", p.artifact.Kind, "name", p.artifact.Name, "error", err)
				o.markImage(jobID, generation, p.artifact.Index, false)
				return nil
			}
			if err := os.WriteFile(p.artifact.Path, result.Image, 0o644); err != nil {
				o.markImage(jobID, generation, p.artifact.Index, false)
				return nil
			}
			o.markImage(jobID, generation, p.artifact.Index, true)
			return nil
		})
	}
	g.Wait()

	if ctx.Err() != nil {
		return
	}

	job, err := o.manager.Get(jobID)
	if err != nil {
		return
	}
	ready := 0
	for _, a := range job.Images {
		if a.Ready {
			ready++
		}
	}
	if ready == 0 {
		failure := &types.GenerationFailure{Kind: string(KindVisuals), Reason: "no images were generated"}
		o.manager.Fail(jobID, generation, failure.Error())
		return
	}
	o.manager.Complete(jobID, generation)
	o.logger.Info("visuals complete", "book_id", book.ID, "ready", ready, "planned", len(job.Images))
}

// markImage records one artifact's outcome. The first ready artifact
// moves the job from running to partial.
func (o *Orchestrator) markImage(jobID string, generation, index int, ready bool) {
	o.manager.update(jobID, generation, func(j *Job) {
		if index >= len(j.Images) {
			return
		}
		if ready {
			j.Images[index].Ready = true
		} else {
			j.Images[index].Failed = true
		}
	})
	if ready {
		o.manager.SetPartial(jobID, generation)
	}
}
