package repl

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	imgsave "github.com/manash/stylestudio/internal/image"
	"github.com/manash/stylestudio/internal/security"
	"github.com/manash/stylestudio/pkg/models"
)

// AdjustCommand changes a colour slider and commits it as one undo step
type AdjustCommand struct{}

func (c *AdjustCommand) Name() string      { return "adjust" }
func (c *AdjustCommand) Aliases() []string { return []string{"adj", "a"} }
func (c *AdjustCommand) Description() string {
	return "Set brightness, contrast or saturation (percent, 100 = unchanged)"
}
func (c *AdjustCommand) Usage() string {
	return "adjust <brightness|contrast|saturation> <value> | adjust reset"
}

func (c *AdjustCommand) Execute(_ context.Context, r *REPL, args []string) error {
	sess, err := r.current()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		a := sess.Live
		fmt.Fprintf(r.out, "Brightness: %g%%, Contrast: %g%%, Saturation: %g%%, Rotation: %g, Flip: %d/%d\n",
			a.Brightness, a.Contrast, a.Saturation, a.Rotation, a.ScaleX, a.ScaleY)
		return nil
	}
	if args[0] == "reset" {
		if sess.Live == models.IdentityAdjustments() {
			fmt.Fprintln(r.out, "Nothing to reset.")
			return nil
		}
		r.sessions.PushAdjustment(sess.ID, models.IdentityAdjustments())
		fmt.Fprintln(r.out, "Adjustments reset")
		r.preview()
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	value, err := strconv.ParseFloat(strings.TrimSuffix(args[1], "%"), 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", args[1])
	}
	adj, err := sess.Live.With(strings.ToLower(args[0]), value)
	if err != nil {
		return err
	}
	if err := adj.Validate(); err != nil {
		return err
	}

	r.sessions.SetLive(sess.ID, adj)
	if r.sessions.CommitLive(sess.ID) {
		fmt.Fprintf(r.out, "%s set to %g\n", args[0], value)
	}
	r.preview()
	return nil
}

// RotateCommand rotates the active image
type RotateCommand struct{}

func (c *RotateCommand) Name() string        { return "rotate" }
func (c *RotateCommand) Aliases() []string   { return []string{"rot"} }
func (c *RotateCommand) Description() string { return "Rotate by a number of degrees (default 90)" }
func (c *RotateCommand) Usage() string       { return "rotate [degrees]" }

func (c *RotateCommand) Execute(_ context.Context, r *REPL, args []string) error {
	sess, err := r.current()
	if err != nil {
		return err
	}

	deg := 90.0
	if len(args) > 0 {
		deg, err = strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid angle %q", args[0])
		}
	}

	adj := sess.Live.Rotated(deg)
	r.sessions.PushAdjustment(sess.ID, adj)
	fmt.Fprintf(r.out, "Rotation: %g\n", models.NormalizeRotation(adj.Rotation))
	r.preview()
	return nil
}

// FlipCommand mirrors the active image
type FlipCommand struct{}

func (c *FlipCommand) Name() string        { return "flip" }
func (c *FlipCommand) Aliases() []string   { return []string{"mirror"} }
func (c *FlipCommand) Description() string { return "Flip horizontally or vertically" }
func (c *FlipCommand) Usage() string       { return "flip h|v" }

func (c *FlipCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	sess, err := r.current()
	if err != nil {
		return err
	}

	var adj models.Adjustments
	switch strings.ToLower(args[0]) {
	case "h", "horizontal":
		adj = sess.Live.FlippedHorizontal()
	case "v", "vertical":
		adj = sess.Live.FlippedVertical()
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}

	r.sessions.PushAdjustment(sess.ID, adj)
	fmt.Fprintln(r.out, "Flipped")
	r.preview()
	return nil
}

// UndoCommand steps back through results or adjustments
type UndoCommand struct{}

func (c *UndoCommand) Name() string        { return "undo" }
func (c *UndoCommand) Aliases() []string   { return []string{"u", "back"} }
func (c *UndoCommand) Description() string { return "Step back to the previous result (or adjustment)" }
func (c *UndoCommand) Usage() string       { return "undo [adjust]" }

func (c *UndoCommand) Execute(_ context.Context, r *REPL, args []string) error {
	return step(r, args, "Nothing to undo.", r.sessions.UndoContent, r.sessions.UndoAdjustment)
}

// RedoCommand steps forward through results or adjustments
type RedoCommand struct{}

func (c *RedoCommand) Name() string        { return "redo" }
func (c *RedoCommand) Aliases() []string   { return []string{"forward"} }
func (c *RedoCommand) Description() string { return "Step forward to the next result (or adjustment)" }
func (c *RedoCommand) Usage() string       { return "redo [adjust]" }

func (c *RedoCommand) Execute(_ context.Context, r *REPL, args []string) error {
	return step(r, args, "Nothing to redo.", r.sessions.RedoContent, r.sessions.RedoAdjustment)
}

func step(r *REPL, args []string, none string, content, adjustment func(string) bool) error {
	sess, err := r.current()
	if err != nil {
		return err
	}

	move := content
	what := "result"
	if len(args) > 0 && strings.HasPrefix(args[0], "adj") {
		move = adjustment
		what = "adjustment"
	}
	if !move(sess.ID) {
		fmt.Fprintln(r.out, none)
		return nil
	}

	sess, err = r.current()
	if err != nil {
		return err
	}
	if what == "result" {
		fmt.Fprintf(r.out, "Now at result %d/%d: %s\n", sess.ContentIndex+1, len(sess.Content), sess.Current().Label)
	} else {
		fmt.Fprintf(r.out, "Now at adjustment %d/%d\n", sess.AdjustmentIndex+1, len(sess.Adjustments))
	}
	r.preview()
	return nil
}

// CropCommand crops the current image or the original
type CropCommand struct{}

func (c *CropCommand) Name() string      { return "crop" }
func (c *CropCommand) Aliases() []string { return nil }
func (c *CropCommand) Description() string {
	return "Crop to a pixel rectangle ('original' crops the source and resets history)"
}
func (c *CropCommand) Usage() string { return "crop <x0> <y0> <x1> <y1> [original]" }

func (c *CropCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	sess, err := r.current()
	if err != nil {
		return err
	}

	var coords [4]int
	for i := range coords {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return fmt.Errorf("invalid coordinate %q", args[i])
		}
		coords[i] = n
	}
	onOriginal := len(args) > 4 && args[4] == "original"

	rect := image.Rect(coords[0], coords[1], coords[2], coords[3])
	if err := r.orch.Crop(ctx, sess.ID, rect, onOriginal); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Cropped to %dx%d\n", rect.Dx(), rect.Dy())
	r.preview()
	return nil
}

// ExportCommand writes the current image with its adjustments applied
type ExportCommand struct{}

func (c *ExportCommand) Name() string      { return "export" }
func (c *ExportCommand) Aliases() []string { return []string{"save", "s"} }
func (c *ExportCommand) Description() string {
	return "Export the current image with adjustments baked in"
}
func (c *ExportCommand) Usage() string { return "export [file.png|file.jpg|file.webp]" }

func (c *ExportCommand) Execute(_ context.Context, r *REPL, args []string) error {
	sess, err := r.current()
	if err != nil {
		return err
	}

	format := r.format
	name := imgsave.GenerateFilename(sess.Name, format, timeNow())
	if len(args) > 0 {
		name = args[0]
		if f, ok := formatFromExt(filepath.Ext(name)); ok {
			format = f
		} else {
			name += "." + format.String()
		}
	}

	path, err := security.ResolveExportPath(r.outputDir, name)
	if err != nil {
		return err
	}
	written, err := r.saver.Export(sess, format, r.quality, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved: %s\n", written)
	return nil
}

// ShowCommand displays the active image
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"display", "view"} }
func (c *ShowCommand) Description() string { return "Display the current image (or 'original')" }
func (c *ShowCommand) Usage() string       { return "show [original]" }

func (c *ShowCommand) Execute(_ context.Context, r *REPL, args []string) error {
	sess, err := r.current()
	if err != nil {
		return err
	}
	if r.displayer == nil {
		return ErrNoPreview
	}

	if len(args) > 0 && args[0] == "original" {
		return r.displayer.Show(sess.OriginalImage())
	}
	return r.displayer.Preview(sess.Current().Image(), sess.Live)
}

// HistoryCommand lists the results of the active image
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h", "hist"} }
func (c *HistoryCommand) Description() string { return "Show the result history of the current image" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	sess, err := r.current()
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "History for %s:\n", batchLabel(sess.Name, 40))
	for i, e := range sess.Content {
		marker := "  "
		if i == sess.ContentIndex {
			marker = "> "
		}
		label := e.Label
		if i == 0 && label == "" {
			label = "original"
		}
		fmt.Fprintf(r.out, "%s%2d. %-30s %s\n", marker, i+1, truncate(label, 30), humanize.Bytes(uint64(len(e.Data))))
	}
	fmt.Fprintf(r.out, "Adjustments: %d/%d\n", sess.AdjustmentIndex+1, len(sess.Adjustments))
	if sess.Animation != nil {
		fmt.Fprintf(r.out, "Animation: %s\n", sess.Animation.URI)
	}
	return nil
}

func formatFromExt(ext string) (models.OutputFormat, bool) {
	switch strings.ToLower(ext) {
	case ".png":
		return models.FormatPNG, true
	case ".jpg", ".jpeg":
		return models.FormatJPEG, true
	case ".webp":
		return models.FormatWebP, true
	}
	return "", false
}
