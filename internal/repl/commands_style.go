package repl

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manash/stylestudio/internal/catalog"
	"github.com/manash/stylestudio/internal/orchestrator"
	"github.com/manash/stylestudio/internal/security"
	"github.com/manash/stylestudio/pkg/models"
)

// StylesCommand lists the catalog
type StylesCommand struct{}

func (c *StylesCommand) Name() string      { return "styles" }
func (c *StylesCommand) Aliases() []string { return []string{"catalog"} }
func (c *StylesCommand) Description() string {
	return "List styles, optionally filtered by text or folder"
}
func (c *StylesCommand) Usage() string {
	return "styles [query] | styles folder <id> | styles favorites"
}

func (c *StylesCommand) Execute(_ context.Context, r *REPL, args []string) error {
	var styles []catalog.Style
	switch {
	case len(args) >= 2 && args[0] == "folder":
		styles = r.catalog.InFolder(args[1])
	case len(args) == 1 && (args[0] == "favorites" || args[0] == "fav"):
		for _, s := range r.catalog.Visible(r.lang, "") {
			if s.Favorite {
				styles = append(styles, s)
			}
		}
	default:
		styles = r.catalog.Visible(r.lang, strings.Join(args, " "))
	}

	if len(styles) == 0 {
		fmt.Fprintln(r.out, "No styles found.")
		return nil
	}

	fmt.Fprintf(r.out, "%-28s %-26s %-14s %s\n", "ID", "Style", "Folder", "Rating")
	fmt.Fprintln(r.out, strings.Repeat("-", 78))
	for _, s := range styles {
		label := s.LocalizedLabel(r.lang)
		if s.Favorite {
			label = "* " + label
		}
		fmt.Fprintf(r.out, "%-28s %-26s %-14s %s\n",
			truncate(s.ID, 28), truncate(label, 26), truncate(r.folderName(s.FolderID), 14), stars(s.Rating))
	}
	return nil
}

// StyleCommand picks a style. In batch mode it toggles the style in the set;
// in blend mode it fills the blend slots.
type StyleCommand struct{}

func (c *StyleCommand) Name() string      { return "style" }
func (c *StyleCommand) Aliases() []string { return []string{"st"} }
func (c *StyleCommand) Description() string {
	return "Select a style (toggles batch set / blend slots in those modes)"
}
func (c *StyleCommand) Usage() string { return "style <id> [extra instructions] | style none" }

func (c *StyleCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	if args[0] == "none" {
		r.modes.SetStyle("")
		r.modes.SetModifier("")
		fmt.Fprintln(r.out, "Style cleared")
		return nil
	}

	st, ok := r.catalog.Lookup(args[0])
	if !ok || st.Deleted {
		return fmt.Errorf("%w: %s", catalog.ErrStyleNotFound, args[0])
	}
	if len(args) > 1 {
		r.modes.SetModifier(strings.Join(args[1:], " "))
	}

	label := st.LocalizedLabel(r.lang)
	switch {
	case r.modes.BatchEnabled():
		r.modes.ToggleBatchStyle(st.ID)
		fmt.Fprintf(r.out, "Batch set: %s\n", strings.Join(r.modes.BatchStyles(), ", "))
	case r.modes.BlendEnabled():
		r.modes.PickBlendStyle(st.ID)
		a, b := r.modes.BlendStyles()
		fmt.Fprintf(r.out, "Blend: A=%s B=%s\n", orNone(a), orNone(b))
	default:
		r.modes.SetStyle(st.ID)
		r.modes.SetCustomPrompt("")
		fmt.Fprintf(r.out, "Style: %s\n", label)
	}
	return nil
}

// PromptCommand sets a free-text style prompt that overrides the style
type PromptCommand struct{}

func (c *PromptCommand) Name() string      { return "prompt" }
func (c *PromptCommand) Aliases() []string { return []string{"p"} }
func (c *PromptCommand) Description() string {
	return "Set a custom style prompt (overrides the selected style)"
}
func (c *PromptCommand) Usage() string { return "prompt <text> | prompt clear" }

func (c *PromptCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	if len(args) == 1 && args[0] == "clear" {
		r.modes.SetCustomPrompt("")
		fmt.Fprintln(r.out, "Custom prompt cleared")
		return nil
	}

	text := strings.Join(args, " ")
	r.modes.SetCustomPrompt(text)
	fmt.Fprintf(r.out, "Custom prompt: %s\n", truncate(text, 60))
	return nil
}

// BlendCommand controls blend mode
type BlendCommand struct{}

func (c *BlendCommand) Name() string        { return "blend" }
func (c *BlendCommand) Aliases() []string   { return []string{"mix"} }
func (c *BlendCommand) Description() string { return "Blend two styles with a ratio" }
func (c *BlendCommand) Usage() string {
	return "blend on|off | blend <styleA> <styleB> [ratio] | blend ratio <0-100>"
}

func (c *BlendCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		a, b := r.modes.BlendStyles()
		fmt.Fprintf(r.out, "Blend mode: %s (A=%s B=%s)\n", onOff(r.modes.BlendEnabled()), orNone(a), orNone(b))
		return nil
	}

	switch args[0] {
	case "on":
		r.modes.SetBlend(true)
		fmt.Fprintln(r.out, "Blend mode on")
		return nil
	case "off":
		r.modes.SetBlend(false)
		fmt.Fprintln(r.out, "Blend mode off")
		return nil
	case "ratio":
		if len(args) < 2 {
			return fmt.Errorf("usage: %s", c.Usage())
		}
		ratio, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid ratio %q", args[1])
		}
		r.modes.SetBlendRatio(ratio)
		fmt.Fprintf(r.out, "Blend ratio: %d%%\n", min(max(ratio, 0), 100))
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	for _, id := range args[:2] {
		if _, ok := r.catalog.Lookup(id); !ok {
			return fmt.Errorf("%w: %s", catalog.ErrStyleNotFound, id)
		}
	}

	if args[0] == args[1] {
		return fmt.Errorf("blend needs two different styles")
	}

	r.modes.SetBlend(true)
	if a, _ := r.modes.BlendStyles(); a != "" {
		r.modes.PickBlendStyle(a)
	}
	// Slot A is empty now, so the first pick fills A and the second fills B.
	r.modes.PickBlendStyle(args[0])
	r.modes.PickBlendStyle(args[1])

	ratio := orchestrator.DefaultBlendRatio
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid ratio %q", args[2])
		}
		ratio = n
	}
	r.modes.SetBlendRatio(ratio)

	sel, _ := r.modes.Selection().(orchestrator.Blend)
	fmt.Fprintf(r.out, "Blend: %d%% %s + %d%% %s\n", sel.Ratio, sel.StyleA, 100-sel.Ratio, sel.StyleB)
	return nil
}

// BatchCommand controls batch mode
type BatchCommand struct{}

func (c *BatchCommand) Name() string        { return "batch" }
func (c *BatchCommand) Aliases() []string   { return []string{"b"} }
func (c *BatchCommand) Description() string { return "Run several styles over the same image" }
func (c *BatchCommand) Usage() string {
	return "batch on|off | batch add <id>... | batch list | batch save [dir]"
}

func (c *BatchCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		ids := r.modes.BatchStyles()
		fmt.Fprintf(r.out, "Batch mode: %s\n", onOff(r.modes.BatchEnabled()))
		if len(ids) == 0 {
			fmt.Fprintln(r.out, "No styles in the batch set.")
			return nil
		}
		for i, id := range ids {
			label := id
			if st, ok := r.catalog.Lookup(id); ok {
				label = st.LocalizedLabel(r.lang)
			}
			fmt.Fprintf(r.out, "  %d. %s (%s)\n", i+1, label, id)
		}
		return nil
	}

	switch args[0] {
	case "on":
		r.modes.SetBatch(true)
		fmt.Fprintln(r.out, "Batch mode on")
	case "off":
		r.modes.SetBatch(false)
		fmt.Fprintln(r.out, "Batch mode off")
	case "add", "toggle":
		if len(args) < 2 {
			return fmt.Errorf("usage: %s", c.Usage())
		}
		for _, id := range args[1:] {
			if _, ok := r.catalog.Lookup(id); !ok {
				return fmt.Errorf("%w: %s", catalog.ErrStyleNotFound, id)
			}
			r.modes.ToggleBatchStyle(id)
		}
		r.modes.SetBatch(true)
		fmt.Fprintf(r.out, "Batch set: %s\n", strings.Join(r.modes.BatchStyles(), ", "))
	case "save":
		dir := r.outputDir
		if len(args) > 1 {
			dir = args[1]
		}
		return r.saveBatch(dir)
	default:
		return fmt.Errorf("unknown batch command: %s\nUsage: %s", args[0], c.Usage())
	}
	return nil
}

// EnhanceCommand sets the vibrancy and mood sliders
type EnhanceCommand struct{}

func (c *EnhanceCommand) Name() string      { return "enhance" }
func (c *EnhanceCommand) Aliases() []string { return []string{"en"} }
func (c *EnhanceCommand) Description() string {
	return "Nudge prompts with vibrancy and mood (-50..50)"
}
func (c *EnhanceCommand) Usage() string { return "enhance [vibrancy|mood <n>] | enhance reset" }

func (c *EnhanceCommand) Execute(_ context.Context, r *REPL, args []string) error {
	switch {
	case len(args) == 0:
	case args[0] == "reset":
		r.enhance = orchestrator.Enhancement{}
	case len(args) == 2:
		n, err := strconv.Atoi(args[1])
		if err != nil || n < -50 || n > 50 {
			return fmt.Errorf("value must be an integer between -50 and 50")
		}
		switch args[0] {
		case "vibrancy", "vib":
			r.enhance.Vibrancy = n
		case "mood":
			r.enhance.Mood = n
		default:
			return fmt.Errorf("unknown enhancement: %s", args[0])
		}
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}

	fmt.Fprintf(r.out, "Vibrancy: %d, Mood: %d\n", r.enhance.Vibrancy, r.enhance.Mood)
	return nil
}

// AspectCommand gets or sets the aspect ratio
type AspectCommand struct{}

func (c *AspectCommand) Name() string        { return "aspect" }
func (c *AspectCommand) Aliases() []string   { return []string{"ar"} }
func (c *AspectCommand) Description() string { return "Get or set the aspect ratio" }
func (c *AspectCommand) Usage() string       { return "aspect [auto|1:1|3:4|4:3|9:16|16:9]" }

func (c *AspectCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Aspect ratio: %s\n", r.aspect)
		return nil
	}

	a := models.AspectRatio(args[0])
	if !a.IsValid() {
		return fmt.Errorf("%w: %s", models.ErrInvalidAspectRatio, args[0])
	}
	r.aspect = a
	fmt.Fprintf(r.out, "Aspect ratio set to: %s\n", a)
	return nil
}

// ReferenceCommand sets the style reference image
type ReferenceCommand struct{}

func (c *ReferenceCommand) Name() string        { return "ref" }
func (c *ReferenceCommand) Aliases() []string   { return []string{"reference"} }
func (c *ReferenceCommand) Description() string { return "Use an image as the style reference" }
func (c *ReferenceCommand) Usage() string       { return "ref <file> | ref clear" }

func (c *ReferenceCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		if r.reference == nil {
			fmt.Fprintln(r.out, "No reference image.")
		} else {
			fmt.Fprintf(r.out, "Reference image: %s\n", r.reference.MIMEType)
		}
		return nil
	}
	if args[0] == "clear" {
		r.reference = nil
		fmt.Fprintln(r.out, "Reference image cleared")
		return nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read reference: %w", err)
	}
	mimeType, err := security.ValidateUpload(data)
	if err != nil {
		return err
	}
	r.reference = &models.ImageData{Data: data, MIMEType: mimeType}
	fmt.Fprintf(r.out, "Reference image set: %s\n", args[0])
	return nil
}

// LanguageCommand switches the catalog and prompt language
type LanguageCommand struct{}

func (c *LanguageCommand) Name() string        { return "lang" }
func (c *LanguageCommand) Aliases() []string   { return []string{"language"} }
func (c *LanguageCommand) Description() string { return "Switch the style language" }
func (c *LanguageCommand) Usage() string       { return "lang [en|vi]" }

func (c *LanguageCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) > 0 {
		r.lang = catalog.ParseLanguage(args[0])
		r.orch.SetLanguage(r.lang)
	}
	fmt.Fprintf(r.out, "Language: %s\n", r.lang)
	return nil
}

// FavoriteCommand toggles a style's favourite flag
type FavoriteCommand struct{}

func (c *FavoriteCommand) Name() string        { return "fav" }
func (c *FavoriteCommand) Aliases() []string   { return []string{"favorite"} }
func (c *FavoriteCommand) Description() string { return "Toggle a style as favourite" }
func (c *FavoriteCommand) Usage() string       { return "fav <style-id>" }

func (c *FavoriteCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	st, err := r.catalog.ToggleFavorite(args[0])
	if err != nil {
		return err
	}
	r.persistStyle(ctx, st)
	if st.Favorite {
		fmt.Fprintf(r.out, "Added %s to favourites\n", st.LocalizedLabel(r.lang))
	} else {
		fmt.Fprintf(r.out, "Removed %s from favourites\n", st.LocalizedLabel(r.lang))
	}
	return nil
}

// RateCommand rates a style
type RateCommand struct{}

func (c *RateCommand) Name() string        { return "rate" }
func (c *RateCommand) Aliases() []string   { return nil }
func (c *RateCommand) Description() string { return "Rate a style from 0 to 5" }
func (c *RateCommand) Usage() string       { return "rate <style-id> <0-5>" }

func (c *RateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return catalog.ErrInvalidRating
	}
	st, err := r.catalog.Rate(args[0], n)
	if err != nil {
		return err
	}
	r.persistStyle(ctx, st)
	fmt.Fprintf(r.out, "%s: %s\n", st.LocalizedLabel(r.lang), stars(st.Rating))
	return nil
}

// HideCommand soft-deletes a style
type HideCommand struct{}

func (c *HideCommand) Name() string        { return "hide" }
func (c *HideCommand) Aliases() []string   { return []string{"delstyle"} }
func (c *HideCommand) Description() string { return "Hide a style from the catalog" }
func (c *HideCommand) Usage() string       { return "hide <style-id>" }

func (c *HideCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	st, err := r.catalog.SoftDelete(args[0])
	if err != nil {
		return err
	}
	r.persistStyle(ctx, st)
	fmt.Fprintf(r.out, "Hid %s (use 'restore %s' to bring it back)\n", st.LocalizedLabel(r.lang), st.ID)
	return nil
}

// RestoreCommand restores a hidden style
type RestoreCommand struct{}

func (c *RestoreCommand) Name() string        { return "restore" }
func (c *RestoreCommand) Aliases() []string   { return nil }
func (c *RestoreCommand) Description() string { return "Restore a hidden style" }
func (c *RestoreCommand) Usage() string       { return "restore <style-id>" }

func (c *RestoreCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	st, err := r.catalog.Restore(args[0])
	if err != nil {
		return err
	}
	r.persistStyle(ctx, st)
	fmt.Fprintf(r.out, "Restored %s\n", st.LocalizedLabel(r.lang))
	return nil
}

// MoveCommand moves a style to another folder
type MoveCommand struct{}

func (c *MoveCommand) Name() string      { return "move" }
func (c *MoveCommand) Aliases() []string { return nil }
func (c *MoveCommand) Description() string {
	return "Move a style into a folder ('none' for no folder)"
}
func (c *MoveCommand) Usage() string { return "move <style-id> <folder-id|none>" }

func (c *MoveCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	folderID := args[1]
	if folderID == "none" {
		folderID = ""
	} else if _, ok := r.folder(folderID); !ok {
		return fmt.Errorf("unknown folder: %s", folderID)
	}

	st, err := r.catalog.Move(args[0], folderID)
	if err != nil {
		return err
	}
	r.persistStyle(ctx, st)
	fmt.Fprintf(r.out, "Moved %s to %s\n", st.LocalizedLabel(r.lang), r.folderName(folderID))
	return nil
}

// FolderCommand manages style folders
type FolderCommand struct{}

func (c *FolderCommand) Name() string        { return "folders" }
func (c *FolderCommand) Aliases() []string   { return []string{"folder"} }
func (c *FolderCommand) Description() string { return "List, add or delete style folders" }
func (c *FolderCommand) Usage() string       { return "folders | folders add <name> | folders delete <id>" }

func (c *FolderCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		for _, f := range r.folders {
			fmt.Fprintf(r.out, "  %-16s %-24s %d style(s)\n", f.ID, f.LocalizedName(r.lang), len(r.catalog.InFolder(f.ID)))
		}
		return nil
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	switch args[0] {
	case "add":
		name := strings.Join(args[1:], " ")
		f := catalog.Folder{ID: fmt.Sprintf("fld_%d", len(r.folders)+1), Name: name, NameEN: name}
		for {
			if _, taken := r.folder(f.ID); !taken {
				break
			}
			f.ID += "_"
		}
		if r.library != nil {
			if err := r.library.SaveFolder(ctx, f); err != nil {
				return err
			}
		}
		r.folders = append(r.folders, f)
		fmt.Fprintf(r.out, "Created folder %s (%s)\n", name, f.ID)
	case "delete", "rm":
		id := args[1]
		if _, ok := r.folder(id); !ok {
			return fmt.Errorf("unknown folder: %s", id)
		}
		if isDefaultFolder(id) {
			return fmt.Errorf("built-in folder %s cannot be deleted", id)
		}
		if r.library != nil {
			if err := r.library.DeleteFolder(ctx, id); err != nil {
				return err
			}
		}
		for _, st := range r.catalog.ClearFolder(id) {
			r.persistStyle(ctx, st)
		}
		kept := r.folders[:0]
		for _, f := range r.folders {
			if f.ID != id {
				kept = append(kept, f)
			}
		}
		r.folders = kept
		fmt.Fprintf(r.out, "Deleted folder %s\n", id)
	default:
		return fmt.Errorf("unknown folder command: %s\nUsage: %s", args[0], c.Usage())
	}
	return nil
}

// SaveStyleCommand stores the reference image as a new catalog style
type SaveStyleCommand struct{}

func (c *SaveStyleCommand) Name() string        { return "savestyle" }
func (c *SaveStyleCommand) Aliases() []string   { return []string{"newstyle"} }
func (c *SaveStyleCommand) Description() string { return "Save the reference image as a new style" }
func (c *SaveStyleCommand) Usage() string       { return "savestyle <name> [prompt]" }

func (c *SaveStyleCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	if r.reference == nil {
		return fmt.Errorf("no reference image - use 'ref <file>' first")
	}

	prompt := ""
	if len(args) > 1 {
		prompt = strings.Join(args[1:], " ")
	}
	st, err := r.orch.SaveReferenceStyle(ctx, args[0], prompt, *r.reference, "")
	if err != nil {
		return err
	}
	r.persistStyle(ctx, st)
	fmt.Fprintf(r.out, "Saved style %s (%s)\n", st.Label, st.ID)
	return nil
}

func (r *REPL) folder(id string) (catalog.Folder, bool) {
	for _, f := range r.folders {
		if f.ID == id {
			return f, true
		}
	}
	return catalog.Folder{}, false
}

func (r *REPL) folderName(id string) string {
	if id == "" {
		return "-"
	}
	if f, ok := r.folder(id); ok {
		return f.LocalizedName(r.lang)
	}
	return id
}

func isDefaultFolder(id string) bool {
	_, folders, err := catalog.Defaults()
	if err != nil {
		return false
	}
	for _, f := range folders {
		if f.ID == id {
			return true
		}
	}
	return false
}

func stars(n int) string {
	if n <= 0 {
		return "-"
	}
	return strings.Repeat("*", n)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
