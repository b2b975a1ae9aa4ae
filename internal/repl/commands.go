package repl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/manash/stylestudio/internal/security"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func (r *REPL) registerCommands() {
	commands := []Command{
		&LoadCommand{},
		&ImagesCommand{},
		&UseCommand{},
		&CloseCommand{},
		&RenameCommand{},
		&StylesCommand{},
		&StyleCommand{},
		&PromptCommand{},
		&BlendCommand{},
		&BatchCommand{},
		&EnhanceCommand{},
		&AspectCommand{},
		&ReferenceCommand{},
		&LanguageCommand{},
		&GenerateCommand{},
		&CreateCommand{},
		&UpscaleCommand{},
		&AnimateCommand{},
		&JobsCommand{},
		&AdjustCommand{},
		&RotateCommand{},
		&FlipCommand{},
		&UndoCommand{},
		&RedoCommand{},
		&CropCommand{},
		&ExportCommand{},
		&ShowCommand{},
		&HistoryCommand{},
		&FavoriteCommand{},
		&RateCommand{},
		&HideCommand{},
		&RestoreCommand{},
		&MoveCommand{},
		&FolderCommand{},
		&SaveStyleCommand{},
		&GalleryCommand{},
		&PresetCommand{},
		&CostCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}

	r.ordered = commands
	for _, cmd := range commands {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// LoadCommand opens an image file as a new session
type LoadCommand struct{}

func (c *LoadCommand) Name() string        { return "load" }
func (c *LoadCommand) Aliases() []string   { return []string{"open", "o"} }
func (c *LoadCommand) Description() string { return "Open an image file as a new session" }
func (c *LoadCommand) Usage() string       { return "load <file> [name]" }

func (c *LoadCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	mimeType, err := security.ValidateUpload(data)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(args) > 1 {
		name = strings.Join(args[1:], " ")
	}

	id, err := r.sessions.Create(data, mimeType, name)
	if err != nil {
		return err
	}
	r.active = id

	fmt.Fprintf(r.out, "Loaded %s (%s, %s)\n", name, mimeType, humanize.Bytes(uint64(len(data))))
	r.preview()
	return nil
}

// ImagesCommand lists open sessions
type ImagesCommand struct{}

func (c *ImagesCommand) Name() string        { return "images" }
func (c *ImagesCommand) Aliases() []string   { return []string{"ls"} }
func (c *ImagesCommand) Description() string { return "List open images" }
func (c *ImagesCommand) Usage() string       { return "images" }

func (c *ImagesCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	sessions := r.sessions.List()
	if len(sessions) == 0 {
		fmt.Fprintln(r.out, "No images open.")
		return nil
	}

	fmt.Fprintf(r.out, "%-3s %-10s %-24s %-8s %-10s %s\n", "", "ID", "Name", "Steps", "Size", "Opened")
	fmt.Fprintln(r.out, strings.Repeat("-", 72))

	for _, s := range sessions {
		marker := ""
		if s.ID == r.active {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%-3s %-10s %-24s %-8s %-10s %s\n",
			marker,
			truncate(s.ID, 10),
			batchLabel(s.Name, 24),
			fmt.Sprintf("%d/%d", s.ContentIndex+1, len(s.Content)),
			humanize.Bytes(uint64(len(s.Current().Data))),
			humanize.Time(s.CreatedAt),
		)
	}
	return nil
}

// UseCommand switches the active session
type UseCommand struct{}

func (c *UseCommand) Name() string        { return "use" }
func (c *UseCommand) Aliases() []string   { return []string{"switch"} }
func (c *UseCommand) Description() string { return "Switch to another open image" }
func (c *UseCommand) Usage() string       { return "use <id-prefix>" }

func (c *UseCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	var matches []string
	for _, s := range r.sessions.List() {
		if strings.HasPrefix(s.ID, args[0]) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return fmt.Errorf("no image matches %q", args[0])
	case 1:
		r.active = matches[0]
	default:
		return fmt.Errorf("%q is ambiguous (%d matches)", args[0], len(matches))
	}

	sess, err := r.current()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Switched to %s\n", batchLabel(sess.Name, 40))
	r.preview()
	return nil
}

// CloseCommand closes the active session
type CloseCommand struct{}

func (c *CloseCommand) Name() string        { return "close" }
func (c *CloseCommand) Aliases() []string   { return []string{"rm"} }
func (c *CloseCommand) Description() string { return "Close the active image, or all images" }
func (c *CloseCommand) Usage() string       { return "close [all]" }

func (c *CloseCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) > 0 && args[0] == "all" {
		n := r.sessions.Len()
		r.sessions.Clear()
		r.active = ""
		fmt.Fprintf(r.out, "Closed %d image(s)\n", n)
		return nil
	}

	sess, err := r.current()
	if err != nil {
		return err
	}
	r.sessions.Remove(sess.ID)
	r.active = ""
	if remaining := r.sessions.List(); len(remaining) > 0 {
		r.active = remaining[len(remaining)-1].ID
	}
	fmt.Fprintf(r.out, "Closed %s\n", batchLabel(sess.Name, 40))
	return nil
}

// RenameCommand renames the active session
type RenameCommand struct{}

func (c *RenameCommand) Name() string        { return "rename" }
func (c *RenameCommand) Aliases() []string   { return []string{"mv"} }
func (c *RenameCommand) Description() string { return "Rename the active image" }
func (c *RenameCommand) Usage() string       { return "rename <name>" }

func (c *RenameCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	sess, err := r.current()
	if err != nil {
		return err
	}

	name := strings.Join(args, " ")
	r.sessions.Rename(sess.ID, name)
	fmt.Fprintf(r.out, "Renamed to: %s\n", name)
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help [command]" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) > 0 {
		cmd, ok := r.commands[strings.ToLower(args[0])]
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(r.out, "%s - %s\nUsage: %s\n", cmd.Name(), cmd.Description(), cmd.Usage())
		return nil
	}

	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range r.ordered {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-22s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "  %-22sUsage: %s\n", "", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if n := r.orch.InFlight(); n > 0 {
		fmt.Fprintf(r.err, "Warning: %d request(s) still running will be abandoned\n", n)
	}
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}
