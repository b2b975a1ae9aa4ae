package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manash/stylestudio/internal/batch"
	"github.com/manash/stylestudio/internal/catalog"
	"github.com/manash/stylestudio/internal/image"
	"github.com/manash/stylestudio/internal/orchestrator"
	"github.com/manash/stylestudio/internal/security"
	"github.com/manash/stylestudio/pkg/models"
)

// styleOptions are the selection flags shared by the generation commands.
type styleOptions struct {
	style     string
	modifier  string
	prompt    string
	blend     []string
	ratio     int
	reference string
	aspect    string
	vibrancy  int
	mood      int
	output    string
	format    string
}

func (o *styleOptions) bindOutput(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file")
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "output format (png, jpeg, webp; defaults to config)")
}

func (o *styleOptions) bindPrompt(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.reference, "ref", "", "style reference image")
	cmd.Flags().StringVar(&o.aspect, "aspect", "", "aspect ratio (auto, 1:1, 3:4, 4:3, 9:16, 16:9)")
	cmd.Flags().IntVar(&o.vibrancy, "vibrancy", 0, "vibrancy nudge (-50..50)")
	cmd.Flags().IntVar(&o.mood, "mood", 0, "mood nudge (-50..50)")
}

func (o *styleOptions) enhancement() (orchestrator.Enhancement, error) {
	for _, v := range []int{o.vibrancy, o.mood} {
		if v < -50 || v > 50 {
			return orchestrator.Enhancement{}, fmt.Errorf("vibrancy and mood must be between -50 and 50")
		}
	}
	return orchestrator.Enhancement{Vibrancy: o.vibrancy, Mood: o.mood}, nil
}

func (o *styleOptions) aspectRatio(def models.AspectRatio) (models.AspectRatio, error) {
	if o.aspect == "" {
		return def, nil
	}
	a := models.AspectRatio(o.aspect)
	if !a.IsValid() {
		return "", fmt.Errorf("%w: %s (valid: %v)", models.ErrInvalidAspectRatio, o.aspect, models.ValidAspectRatios())
	}
	return a, nil
}

func (o *styleOptions) outputFormat(def models.OutputFormat) (models.OutputFormat, error) {
	if o.format == "" {
		if f, ok := formatFromPath(o.output); ok {
			return f, nil
		}
		return def, nil
	}
	f := models.OutputFormat(strings.ToLower(o.format))
	if f == "jpg" {
		f = models.FormatJPEG
	}
	if !f.IsValid() {
		return "", fmt.Errorf("invalid format %q: must be one of %v", o.format, models.ValidFormats())
	}
	return f, nil
}

func (o *styleOptions) referenceImage() (*models.ImageData, error) {
	if o.reference == "" {
		return nil, nil
	}
	img, err := readImage(o.reference)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	return &img, nil
}

// selection turns the flags into a style selection. Exactly one of style,
// prompt or blend may be set.
func (o *styleOptions) selection(cat *catalog.Catalog) (orchestrator.Selection, error) {
	set := 0
	for _, on := range []bool{o.style != "", o.prompt != "", len(o.blend) > 0} {
		if on {
			set++
		}
	}
	if set == 0 {
		return nil, fmt.Errorf("%w: use --style, --prompt or --blend", orchestrator.ErrNoSelection)
	}
	if set > 1 {
		return nil, errors.New("--style, --prompt and --blend are mutually exclusive")
	}

	switch {
	case o.prompt != "":
		return orchestrator.CustomPrompt{Text: o.prompt}, nil
	case len(o.blend) > 0:
		if len(o.blend) != 2 || o.blend[0] == o.blend[1] {
			return nil, errors.New("--blend needs two different style ids")
		}
		for _, id := range o.blend {
			if _, ok := cat.Lookup(id); !ok {
				return nil, fmt.Errorf("%w: %s", catalog.ErrStyleNotFound, id)
			}
		}
		return orchestrator.Blend{StyleA: o.blend[0], StyleB: o.blend[1], Ratio: min(max(o.ratio, 0), 100)}, nil
	default:
		if _, ok := cat.Lookup(o.style); !ok {
			return nil, fmt.Errorf("%w: %s (run 'stylestudio styles' to list them)", catalog.ErrStyleNotFound, o.style)
		}
		return orchestrator.SingleStyle{StyleID: o.style, Modifier: o.modifier}, nil
	}
}

func newStylizeCmd(app *App) *cobra.Command {
	opts := &styleOptions{}
	cmd := &cobra.Command{
		Use:     "stylize <image>",
		Aliases: []string{"generate", "gen"},
		Short:   "Apply a style, blend or custom prompt to an image",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStylize(cmd.Context(), app, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.style, "style", "s", "", "style id")
	cmd.Flags().StringVarP(&opts.modifier, "modifier", "m", "", "extra instructions for the style")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "custom style prompt")
	cmd.Flags().StringSliceVar(&opts.blend, "blend", nil, "blend two styles: a,b")
	cmd.Flags().IntVar(&opts.ratio, "ratio", orchestrator.DefaultBlendRatio, "blend percentage given to the first style")
	opts.bindPrompt(cmd)
	opts.bindOutput(cmd)
	return cmd
}

func runStylize(parent context.Context, app *App, path string, opts *styleOptions) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	sel, err := opts.selection(rt.catalog)
	if err != nil {
		return err
	}
	aspect, err := opts.aspectRatio(rt.cfg.AspectRatio)
	if err != nil {
		return err
	}
	enhance, err := opts.enhancement()
	if err != nil {
		return err
	}
	format, err := opts.outputFormat(rt.cfg.Format)
	if err != nil {
		return err
	}
	reference, err := opts.referenceImage()
	if err != nil {
		return err
	}
	sessionID, err := rt.open(path)
	if err != nil {
		return err
	}
	if err := rt.requireKey(ctx); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Stylizing %s...\n", filepath.Base(path))
	out, err := rt.orch.Generate(ctx, orchestrator.GenerateRequest{
		SessionID:   sessionID,
		Selection:   sel,
		Reference:   reference,
		Aspect:      aspect,
		Enhancement: enhance,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", rt.explain(err))
	}
	if out == nil {
		return orchestrator.ErrNoResult
	}
	return rt.export(app, out, opts.output, format)
}

func newCreateCmd(app *App) *cobra.Command {
	opts := &styleOptions{}
	var source string
	cmd := &cobra.Command{
		Use:   "create [prompt]",
		Short: "Create a new image from a prompt and/or a reference image",
		Long: `Create renders a prompt text-to-image. With --image and --ref, the reference's
style is applied to the image instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := ""
			if len(args) > 0 {
				prompt = args[0]
			}
			return runCreate(cmd.Context(), app, prompt, source, opts)
		},
	}
	cmd.Flags().StringVar(&source, "image", "", "image to apply the reference style to")
	opts.bindPrompt(cmd)
	opts.bindOutput(cmd)
	return cmd
}

func runCreate(parent context.Context, app *App, prompt, source string, opts *styleOptions) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	aspect, err := opts.aspectRatio(rt.cfg.AspectRatio)
	if err != nil {
		return err
	}
	enhance, err := opts.enhancement()
	if err != nil {
		return err
	}
	format, err := opts.outputFormat(rt.cfg.Format)
	if err != nil {
		return err
	}
	reference, err := opts.referenceImage()
	if err != nil {
		return err
	}
	sessionID := ""
	if source != "" {
		if sessionID, err = rt.open(source); err != nil {
			return err
		}
	}
	if err := rt.requireKey(ctx); err != nil {
		return err
	}

	fmt.Fprintln(app.Out, "Creating...")
	out, err := rt.orch.CreateImage(ctx, orchestrator.CreateRequest{
		SessionID:   sessionID,
		Prompt:      prompt,
		Reference:   reference,
		Aspect:      aspect,
		Enhancement: enhance,
	})
	if err != nil {
		return fmt.Errorf("create failed: %w", rt.explain(err))
	}
	if out == nil {
		return orchestrator.ErrNoResult
	}
	return rt.export(app, out, opts.output, format)
}

func newBatchCmd(app *App) *cobra.Command {
	opts := &styleOptions{}
	var (
		file   string
		styles []string
	)
	cmd := &cobra.Command{
		Use:   "batch <image>",
		Short: "Apply several styles to one image, one after another",
		Long: `Batch runs every listed style over the same image and saves each result
as NNN-<style>.<ext> in the output directory. A failing style does not stop
the batch.

Style files list one style id per line, optionally followed by extra
instructions, or a JSON array of {"style": "...", "modifier": "..."}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), app, args[0], file, styles, opts)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "style list file (.txt or .json)")
	cmd.Flags().StringSliceVar(&styles, "styles", nil, "comma separated style ids")
	cmd.Flags().StringVarP(&opts.modifier, "modifier", "m", "", "extra instructions for every style")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (defaults to config output_dir)")
	opts.bindPrompt(cmd)
	return cmd
}

// batchGroup is a run of consecutive items sharing one modifier.
type batchGroup struct {
	modifier string
	ids      []string
}

func groupItems(items []batch.Item, shared string) []batchGroup {
	var groups []batchGroup
	for _, it := range items {
		mod := it.Modifier
		if mod == "" {
			mod = shared
		}
		if n := len(groups); n > 0 && groups[n-1].modifier == mod {
			groups[n-1].ids = append(groups[n-1].ids, it.StyleID)
			continue
		}
		groups = append(groups, batchGroup{modifier: mod, ids: []string{it.StyleID}})
	}
	return groups
}

func runBatch(parent context.Context, app *App, path, file string, styles []string, opts *styleOptions) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	var items []batch.Item
	switch {
	case file != "" && len(styles) > 0:
		return errors.New("use either --file or --styles, not both")
	case file != "":
		var err error
		if items, err = batch.ParseFile(file); err != nil {
			return err
		}
	case len(styles) > 0:
		for i, id := range styles {
			items = append(items, batch.Item{Index: i + 1, StyleID: strings.TrimSpace(id)})
		}
	default:
		return fmt.Errorf("%w: use --file or --styles", orchestrator.ErrBatchSelection)
	}

	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	aspect, err := opts.aspectRatio(rt.cfg.AspectRatio)
	if err != nil {
		return err
	}
	enhance, err := opts.enhancement()
	if err != nil {
		return err
	}
	reference, err := opts.referenceImage()
	if err != nil {
		return err
	}
	sessionID, err := rt.open(path)
	if err != nil {
		return err
	}
	if err := rt.requireKey(ctx); err != nil {
		return err
	}

	dir := opts.output
	if dir == "" {
		dir = rt.cfg.OutputDir
	}

	fmt.Fprintf(app.Out, "Processing %d style(s)...\n", len(items))
	start := time.Now()

	var results []batch.Result[string, *orchestrator.Outcome]
	done := 0
	for _, g := range groupItems(items, opts.modifier) {
		out, err := rt.orch.RunBatch(ctx, orchestrator.BatchRequest{
			SessionID:   sessionID,
			Set:         orchestrator.BatchSet{StyleIDs: g.ids, Modifier: g.modifier},
			Reference:   reference,
			Aspect:      aspect,
			Enhancement: enhance,
		}, func(current, _ int) {
			fmt.Fprintf(app.Out, "[%d/%d] %s\n", done+current, len(items), rt.styleLabel(g.ids[current-1]))
		})
		if err != nil {
			return fmt.Errorf("batch failed: %w", rt.explain(err))
		}

		for _, res := range out {
			done++
			r := batch.Result[string, *orchestrator.Outcome]{Index: done, Item: res.StyleID, Value: res.Outcome, Err: res.Err}
			if res.Success() {
				if err := rt.saveBatchResult(app, dir, done, res.Outcome); err != nil {
					r.Err = err
				}
			}
			results = append(results, r)
		}
	}

	batch.PrintSummary(app.Out, results, rt.styleLabel, func(o *orchestrator.Outcome) float64 {
		if o == nil {
			return 0
		}
		return o.Cost
	})
	fmt.Fprintf(app.Out, "  Elapsed: %s\n", time.Since(start).Round(time.Second))

	if s := batch.Summarize(results, nil); s.Succeeded == 0 {
		return errors.New("no styles succeeded")
	}
	return nil
}

func newUpscaleCmd(app *App) *cobra.Command {
	opts := &styleOptions{}
	var size string
	cmd := &cobra.Command{
		Use:   "upscale <image>",
		Short: "Upscale an image to 2K or 4K",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpscale(cmd.Context(), app, args[0], size, opts)
		},
	}
	cmd.Flags().StringVar(&size, "size", string(models.Upscale2K), "target size (2K, 4K)")
	opts.bindOutput(cmd)
	return cmd
}

func runUpscale(parent context.Context, app *App, path, size string, opts *styleOptions) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	target, err := models.ParseUpscaleSize(strings.ToUpper(size))
	if err != nil {
		return err
	}

	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	format, err := opts.outputFormat(rt.cfg.Format)
	if err != nil {
		return err
	}
	sessionID, err := rt.open(path)
	if err != nil {
		return err
	}
	if err := rt.requireKey(ctx); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Upscaling to %s...\n", target)
	out, err := rt.orch.Upscale(ctx, sessionID, target)
	if err != nil {
		return fmt.Errorf("upscale failed: %w", rt.explain(err))
	}
	if out == nil {
		return orchestrator.ErrNoResult
	}
	return rt.export(app, out, opts.output, format)
}

func newAnimateCmd(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "animate <image>",
		Short: "Turn an image into a short video clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnimate(cmd.Context(), app, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output video file")
	return cmd
}

func runAnimate(parent context.Context, app *App, path, output string) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	sessionID, err := rt.open(path)
	if err != nil {
		return err
	}
	if err := rt.requireKey(ctx); err != nil {
		return err
	}

	fmt.Fprintln(app.Out, "Animating (this can take a few minutes)...")
	ref, err := rt.orch.Animate(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("animation failed: %w", rt.explain(err))
	}
	if ref == nil {
		return orchestrator.ErrNoResult
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if output == "" && rt.cfg.OutputDir != "" {
		output = filepath.Join(rt.cfg.OutputDir, image.GenerateVideoFilename(name, time.Now()))
	}
	saved, err := rt.saver.SaveVideo(ctx, *ref, name, output)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Saved: %s\n", saved)
	return nil
}

// open loads an image file into a new session.
func (rt *runtime) open(path string) (string, error) {
	img, err := readImage(path)
	if err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return rt.sessions.Create(img.Data, img.MIMEType, name)
}

// export writes the session's current result in format and reports it.
func (rt *runtime) export(app *App, out *orchestrator.Outcome, output string, format models.OutputFormat) error {
	sess, err := rt.sessions.Get(out.SessionID)
	if err != nil {
		return err
	}
	if output == "" {
		output = image.GenerateFilename(out.StyleName, format, time.Now())
		if rt.cfg.OutputDir != "" {
			output = filepath.Join(rt.cfg.OutputDir, output)
		}
	}

	path, err := rt.saver.Export(sess, format, rt.cfg.Quality, output)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Saved: %s\n", path)
	if out.Cost > 0 {
		fmt.Fprintf(app.Out, "Cost: $%.4f (%s)\n", out.Cost, out.StyleName)
	}
	return nil
}

func (rt *runtime) saveBatchResult(app *App, dir string, index int, out *orchestrator.Outcome) error {
	format := models.FormatFromMIME(out.Image.MIMEType)
	name := batch.Filename(index, out.StyleName, format)
	path, err := security.ResolveExportPath(dir, name)
	if err != nil {
		return err
	}
	if err := rt.saver.Save(out.Image, path); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "  Saved: %s\n", path)
	return nil
}

func (rt *runtime) styleLabel(id string) string {
	if st, ok := rt.catalog.Lookup(id); ok {
		return st.LocalizedLabel(catalog.ParseLanguage(rt.cfg.Language))
	}
	return id
}

func (rt *runtime) explain(err error) error {
	if d := rt.orch.CooldownRemaining(); d > 0 {
		return fmt.Errorf("%w (retry in %s)", err, d.Round(time.Second))
	}
	return err
}

func readImage(path string) (models.ImageData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ImageData{}, fmt.Errorf("failed to read image: %w", err)
	}
	mimeType, err := security.ValidateUpload(data)
	if err != nil {
		return models.ImageData{}, fmt.Errorf("%s: %w", path, err)
	}
	return models.ImageData{Data: data, MIMEType: mimeType}, nil
}

func formatFromPath(path string) (models.OutputFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return models.FormatPNG, true
	case ".jpg", ".jpeg":
		return models.FormatJPEG, true
	case ".webp":
		return models.FormatWebP, true
	}
	return "", false
}
