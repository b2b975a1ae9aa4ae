package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/manash/stylestudio/internal/orchestrator"
	"github.com/manash/stylestudio/internal/security"
	"github.com/manash/stylestudio/pkg/models"
)

var timeNow = time.Now

// GalleryCommand browses generated images
type GalleryCommand struct{}

func (c *GalleryCommand) Name() string      { return "gallery" }
func (c *GalleryCommand) Aliases() []string { return []string{"gal"} }
func (c *GalleryCommand) Description() string {
	return "Browse, open, export or delete generated images"
}
func (c *GalleryCommand) Usage() string {
	return "gallery [n] | gallery open|export|delete <id> [file] | gallery clear"
}

func (c *GalleryCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.library == nil {
		return ErrNoLibrary
	}

	if len(args) == 0 || isNumber(args[0]) {
		limit := 20
		if len(args) > 0 {
			limit, _ = strconv.Atoi(args[0])
		}
		return c.list(ctx, r, limit)
	}

	switch args[0] {
	case "clear":
		if err := r.library.ClearGallery(ctx); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "Gallery cleared")
		return nil
	case "open", "export", "delete", "rm":
	default:
		return fmt.Errorf("unknown gallery command: %s\nUsage: %s", args[0], c.Usage())
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	id := args[1]
	if args[0] == "delete" || args[0] == "rm" {
		if err := r.library.DeleteGalleryEntry(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Deleted %s\n", id)
		return nil
	}

	entry, err := r.library.GalleryEntry(ctx, id)
	if err != nil {
		return err
	}

	if args[0] == "open" {
		sid, err := r.sessions.Create(entry.Image.Data, entry.Image.MIMEType, entry.StyleName)
		if err != nil {
			return err
		}
		r.active = sid
		fmt.Fprintf(r.out, "Opened %s\n", entry.StyleName)
		r.preview()
		return nil
	}

	format := models.FormatFromMIME(entry.Image.MIMEType)
	name := fmt.Sprintf("%s-%s.%s", security.SanitizeFilename(entry.StyleName), entry.Timestamp.Format("20060102-150405"), format)
	if len(args) > 2 {
		name = args[2]
	}
	path, err := security.ResolveExportPath(r.outputDir, name)
	if err != nil {
		return err
	}
	if err := r.saver.Save(entry.Image, path); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved: %s\n", path)
	return nil
}

func (c *GalleryCommand) list(ctx context.Context, r *REPL, limit int) error {
	entries, err := r.library.Gallery(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "Gallery is empty.")
		return nil
	}

	fmt.Fprintf(r.out, "%-38s %-24s %-6s %-9s %s\n", "ID", "Style", "Ratio", "Cost", "Created")
	fmt.Fprintln(r.out, strings.Repeat("-", 92))
	for _, e := range entries {
		fmt.Fprintf(r.out, "%-38s %-24s %-6s $%-8.4f %s\n",
			e.ID, truncate(e.StyleName, 24), e.AspectRatio, e.Cost, humanize.Time(e.Timestamp))
	}
	return nil
}

// PresetCommand saves and restores control settings
type PresetCommand struct{}

func (c *PresetCommand) Name() string        { return "preset" }
func (c *PresetCommand) Aliases() []string   { return []string{"presets"} }
func (c *PresetCommand) Description() string { return "Save, list, apply or delete presets" }
func (c *PresetCommand) Usage() string {
	return "preset [list] | preset save <name> | preset apply|delete <id>"
}

func (c *PresetCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.library == nil {
		return ErrNoLibrary
	}

	if len(args) == 0 || args[0] == "list" {
		presets, err := r.library.Presets(ctx)
		if err != nil {
			return err
		}
		if len(presets) == 0 {
			fmt.Fprintln(r.out, "No presets saved.")
			return nil
		}
		for _, p := range presets {
			what := r.styleLabel(p.StyleID)
			switch {
			case p.StyleID != "" && p.CustomStylePrompt != "":
				what += " + " + truncate(p.CustomStylePrompt, 20)
			case p.CustomStylePrompt != "":
				what = "custom: " + truncate(p.CustomStylePrompt, 30)
			}
			fmt.Fprintf(r.out, "  %-44s %-20s %s (vibrancy %d, mood %d, %s)\n",
				p.ID, truncate(p.Name, 20), what, p.Vibrancy, p.Mood, p.AspectRatio)
		}
		return nil
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	switch args[0] {
	case "save":
		p := r.currentPreset(strings.Join(args[1:], " "))
		id, err := r.library.SavePreset(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Saved preset %s (%s)\n", p.Name, id)
	case "apply", "use":
		presets, err := r.library.Presets(ctx)
		if err != nil {
			return err
		}
		for _, p := range presets {
			if p.ID == args[1] || p.Name == args[1] {
				r.applyPreset(p)
				fmt.Fprintf(r.out, "Applied preset %s\n", p.Name)
				return nil
			}
		}
		return fmt.Errorf("preset not found: %s", args[1])
	case "delete", "rm":
		if err := r.library.DeletePreset(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Deleted preset %s\n", args[1])
	default:
		return fmt.Errorf("unknown preset command: %s\nUsage: %s", args[0], c.Usage())
	}
	return nil
}

// currentPreset captures the controls. StyleInfluence carries the blend
// ratio; with a style set, CustomStylePrompt holds its extra instructions.
func (r *REPL) currentPreset(name string) models.Preset {
	p := models.Preset{
		Name:           name,
		StyleInfluence: orchestrator.DefaultBlendRatio,
		Vibrancy:       r.enhance.Vibrancy,
		Mood:           r.enhance.Mood,
		AspectRatio:    r.aspect,
	}
	switch sel := r.modes.Selection().(type) {
	case orchestrator.SingleStyle:
		p.StyleID = sel.StyleID
		p.CustomStylePrompt = sel.Modifier
	case orchestrator.CustomPrompt:
		p.CustomStylePrompt = sel.Text
	case orchestrator.Blend:
		p.StyleID = sel.StyleA
		p.StyleInfluence = sel.Ratio
	}
	return p
}

func (r *REPL) applyPreset(p models.Preset) {
	r.modes.SetBatch(false)
	r.modes.SetBlend(false)
	r.modes.SetStyle(p.StyleID)
	if p.StyleID != "" {
		r.modes.SetModifier(p.CustomStylePrompt)
		r.modes.SetCustomPrompt("")
	} else {
		r.modes.SetModifier("")
		r.modes.SetCustomPrompt(p.CustomStylePrompt)
	}
	r.modes.SetBlendRatio(p.StyleInfluence)
	r.enhance = orchestrator.Enhancement{Vibrancy: p.Vibrancy, Mood: p.Mood}
	if p.AspectRatio.IsValid() {
		r.aspect = p.AspectRatio
	}
}

// CostCommand shows spending recorded in the gallery
type CostCommand struct{}

func (c *CostCommand) Name() string      { return "cost" }
func (c *CostCommand) Aliases() []string { return []string{"$"} }
func (c *CostCommand) Description() string {
	return "View estimated cost summary (today, week, month, total, style)"
}
func (c *CostCommand) Usage() string { return "cost <today|week|month|total|style>" }

func (c *CostCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.library == nil {
		return ErrNoLibrary
	}

	subCmd := "total"
	if len(args) > 0 {
		subCmd = strings.ToLower(args[0])
	}

	now := timeNow()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.Add(24 * time.Hour)

	switch subCmd {
	case "today":
		return c.showRange(ctx, r, today, tomorrow, "Today's cost", "No costs recorded today.")
	case "week":
		return c.showRange(ctx, r, today.Add(-6*24*time.Hour), tomorrow, "Last 7 days cost", "No costs recorded in the last 7 days.")
	case "month":
		return c.showRange(ctx, r, today.Add(-29*24*time.Hour), tomorrow, "Last 30 days cost", "No costs recorded in the last 30 days.")
	case "total":
		summary, err := r.library.TotalCost(ctx)
		if err != nil {
			return err
		}
		if summary.EntryCount == 0 {
			fmt.Fprintln(r.out, "No costs recorded yet.")
			return nil
		}
		fmt.Fprintf(r.out, "Total cost: $%.4f (%d image(s))\n", summary.TotalCost, summary.EntryCount)
		return nil
	case "style":
		return c.showByStyle(ctx, r)
	default:
		return fmt.Errorf("unknown cost command: %s\nUsage: %s", subCmd, c.Usage())
	}
}

func (c *CostCommand) showRange(ctx context.Context, r *REPL, start, end time.Time, label, empty string) error {
	summary, err := r.library.CostByDateRange(ctx, start, end)
	if err != nil {
		return err
	}
	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, empty)
		return nil
	}
	fmt.Fprintf(r.out, "%s: $%.4f (%d image(s))\n", label, summary.TotalCost, summary.EntryCount)
	return nil
}

func (c *CostCommand) showByStyle(ctx context.Context, r *REPL) error {
	summaries, err := r.library.CostByStyle(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(r.out, "No costs recorded yet.")
		return nil
	}

	fmt.Fprintf(r.out, "%-26s  %-8s  %s\n", "Style", "Images", "Cost")
	fmt.Fprintln(r.out, strings.Repeat("-", 48))

	var totalCost float64
	var totalImages int
	for _, s := range summaries {
		fmt.Fprintf(r.out, "%-26s  %-8d  $%.4f\n", truncate(s.StyleName, 26), s.EntryCount, s.TotalCost)
		totalCost += s.TotalCost
		totalImages += s.EntryCount
	}

	fmt.Fprintln(r.out, strings.Repeat("-", 48))
	fmt.Fprintf(r.out, "%-26s  %-8d  $%.4f\n", "Total", totalImages, totalCost)
	return nil
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
