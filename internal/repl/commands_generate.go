package repl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/manash/stylestudio/internal/batch"
	"github.com/manash/stylestudio/internal/image"
	"github.com/manash/stylestudio/internal/orchestrator"
	"github.com/manash/stylestudio/internal/security"
	"github.com/manash/stylestudio/pkg/models"
)

// GenerateCommand applies the current selection to the active image
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string      { return "generate" }
func (c *GenerateCommand) Aliases() []string { return []string{"gen", "g", "go"} }
func (c *GenerateCommand) Description() string {
	return "Apply the selected style, blend, prompt or batch"
}
func (c *GenerateCommand) Usage() string { return "generate" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	sel := r.modes.Selection()
	if sel == nil {
		return fmt.Errorf("%w - use 'style', 'prompt', 'blend' or 'batch add'", orchestrator.ErrNoSelection)
	}

	if set, ok := sel.(orchestrator.BatchSet); ok {
		return r.runBatch(ctx, set)
	}

	fmt.Fprintf(r.out, "Generating (%s)...\n", r.modeLabel())
	out, err := r.orch.Generate(ctx, orchestrator.GenerateRequest{
		SessionID:   r.active,
		Selection:   sel,
		Reference:   r.reference,
		Aspect:      r.aspect,
		Enhancement: r.enhance,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	r.reportOutcome(out)
	return nil
}

func (r *REPL) runBatch(ctx context.Context, set orchestrator.BatchSet) error {
	if _, err := r.current(); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Running batch of %d style(s)...\n", len(set.StyleIDs))
	start := time.Now()
	results, err := r.orch.RunBatch(ctx, orchestrator.BatchRequest{
		SessionID:   r.active,
		Set:         set,
		Reference:   r.reference,
		Aspect:      r.aspect,
		Enhancement: r.enhance,
	}, func(current, total int) {
		fmt.Fprintf(r.out, "[%d/%d] done\n", current, total)
	})
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}
	r.lastBatch = results

	summary := make([]batch.Result[string, *orchestrator.Outcome], len(results))
	for i, res := range results {
		summary[i] = batch.Result[string, *orchestrator.Outcome]{
			Index: i + 1,
			Item:  res.StyleID,
			Value: res.Outcome,
			Err:   res.Err,
		}
	}
	batch.PrintSummary(r.out, summary, r.styleLabel, func(o *orchestrator.Outcome) float64 {
		if o == nil {
			return 0
		}
		return o.Cost
	})
	fmt.Fprintf(r.out, "  Elapsed: %s\n", time.Since(start).Round(time.Second))
	fmt.Fprintln(r.out, "Use 'batch save [dir]' to write the results.")
	return nil
}

// saveBatch writes the successful results of the last batch into dir.
func (r *REPL) saveBatch(dir string) error {
	if len(r.lastBatch) == 0 {
		return errors.New("no batch results to save")
	}

	saved := 0
	for i, res := range r.lastBatch {
		if !res.Success() || res.Outcome == nil {
			continue
		}
		format := models.FormatFromMIME(res.Outcome.Image.MIMEType)
		path, err := security.ResolveExportPath(dir, batch.Filename(i+1, res.Outcome.StyleName, format))
		if err != nil {
			return err
		}
		if err := r.saver.Save(res.Outcome.Image, path); err != nil {
			fmt.Fprintf(r.err, "Warning: %v\n", err)
			continue
		}
		fmt.Fprintf(r.out, "Saved: %s\n", path)
		saved++
	}
	fmt.Fprintf(r.out, "Saved %d of %d result(s)\n", saved, len(r.lastBatch))
	return nil
}

// CreateCommand creates a new image from a prompt and/or the reference
type CreateCommand struct{}

func (c *CreateCommand) Name() string      { return "create" }
func (c *CreateCommand) Aliases() []string { return []string{"new"} }
func (c *CreateCommand) Description() string {
	return "Create an image from a prompt (into the active image with 'here')"
}
func (c *CreateCommand) Usage() string { return "create [here] <prompt>" }

func (c *CreateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	sessionID := ""
	if len(args) > 0 && args[0] == "here" {
		if _, err := r.current(); err != nil {
			return err
		}
		sessionID = r.active
		args = args[1:]
	}

	fmt.Fprintln(r.out, "Creating...")
	out, err := r.orch.CreateImage(ctx, orchestrator.CreateRequest{
		SessionID:   sessionID,
		Prompt:      strings.Join(args, " "),
		Reference:   r.reference,
		Aspect:      r.aspect,
		Enhancement: r.enhance,
	})
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}
	r.reportOutcome(out)
	return nil
}

// UpscaleCommand upscales the active image
type UpscaleCommand struct{}

func (c *UpscaleCommand) Name() string        { return "upscale" }
func (c *UpscaleCommand) Aliases() []string   { return []string{"up"} }
func (c *UpscaleCommand) Description() string { return "Upscale the current image to 2K or 4K" }
func (c *UpscaleCommand) Usage() string       { return "upscale [2K|4K]" }

func (c *UpscaleCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	sess, err := r.current()
	if err != nil {
		return err
	}

	size := models.Upscale2K
	if len(args) > 0 {
		size, err = models.ParseUpscaleSize(strings.ToUpper(args[0]))
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(r.out, "Upscaling to %s...\n", size)
	out, err := r.orch.Upscale(ctx, sess.ID, size)
	if err != nil {
		return fmt.Errorf("upscale failed: %w", err)
	}
	r.reportOutcome(out)
	return nil
}

// AnimateCommand turns the active image into a short video
type AnimateCommand struct{}

func (c *AnimateCommand) Name() string        { return "animate" }
func (c *AnimateCommand) Aliases() []string   { return []string{"video"} }
func (c *AnimateCommand) Description() string { return "Animate the current image and save the clip" }
func (c *AnimateCommand) Usage() string       { return "animate [file.mp4]" }

func (c *AnimateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	sess, err := r.current()
	if err != nil {
		return err
	}

	path := ""
	if len(args) > 0 {
		path, err = security.ResolveExportPath(r.outputDir, args[0])
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(r.out, "Animating (this can take a few minutes)...")
	ref, err := r.orch.Animate(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("animation failed: %w", err)
	}
	if ref == nil {
		fmt.Fprintln(r.out, "The service returned no video.")
		return nil
	}

	if path == "" && r.outputDir != "" {
		path = filepath.Join(r.outputDir, image.GenerateVideoFilename(sess.Name, time.Now()))
	}
	saved, err := r.saver.SaveVideo(ctx, *ref, sess.Name, path)
	if err != nil {
		fmt.Fprintf(r.err, "Warning: video is ready at %s but could not be saved: %v\n", ref.URI, err)
		return nil
	}
	fmt.Fprintf(r.out, "Saved video: %s\n", saved)
	return nil
}

// JobsCommand lists tracked requests
type JobsCommand struct{}

func (c *JobsCommand) Name() string        { return "jobs" }
func (c *JobsCommand) Aliases() []string   { return []string{"status"} }
func (c *JobsCommand) Description() string { return "Show recent requests and their progress" }
func (c *JobsCommand) Usage() string       { return "jobs" }

func (c *JobsCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	jobs := r.orch.Jobs()
	if len(jobs) == 0 {
		fmt.Fprintln(r.out, "No requests yet.")
		return nil
	}

	fmt.Fprintf(r.out, "%-10s %-13s %-9s %-14s %s\n", "Kind", "State", "Progress", "Started", "Error")
	fmt.Fprintln(r.out, strings.Repeat("-", 70))
	for _, j := range jobs {
		errText := ""
		if j.Err != nil {
			errText = truncate(j.Err.Error(), 40)
		}
		fmt.Fprintf(r.out, "%-10s %-13s %-9s %-14s %s\n",
			j.Kind, j.State, fmt.Sprintf("%.0f%%", j.Progress), humanize.Time(j.StartedAt), errText)
	}

	if bp := r.orch.BatchProgress(); bp.Total > 0 && bp.Current < bp.Total {
		fmt.Fprintf(r.out, "Batch: %d/%d\n", bp.Current, bp.Total)
	}
	if d := r.orch.CooldownRemaining(); d > 0 {
		fmt.Fprintf(r.out, "Rate limited: retry in %s\n", d.Round(time.Second))
	}
	return nil
}

// reportOutcome prints an applied result and switches to a newly created
// session.
func (r *REPL) reportOutcome(out *orchestrator.Outcome) {
	if out == nil {
		fmt.Fprintln(r.out, "The service returned no image. Try a different style or prompt.")
		return
	}
	if out.Stale {
		fmt.Fprintln(r.err, "Warning: the image was closed while generating; the result is only in the gallery")
		return
	}
	if out.CreatedSession {
		r.active = out.SessionID
	}

	fmt.Fprintf(r.out, "Done: %s\n", out.StyleName)
	if out.UsedReference {
		fmt.Fprintln(r.out, "Applied the reference image style.")
	}
	if out.Cost > 0 {
		fmt.Fprintf(r.out, "Cost: $%.4f\n", out.Cost)
	}
	r.preview()
}

func (r *REPL) styleLabel(id string) string {
	if st, ok := r.catalog.Lookup(id); ok {
		return st.LocalizedLabel(r.lang)
	}
	return id
}
