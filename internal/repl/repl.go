// Package repl is the interactive host: it keeps the selection modes, the
// active image and the export settings, and drives the orchestrator.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/manash/stylestudio/internal/catalog"
	"github.com/manash/stylestudio/internal/display"
	"github.com/manash/stylestudio/internal/image"
	"github.com/manash/stylestudio/internal/library"
	"github.com/manash/stylestudio/internal/orchestrator"
	"github.com/manash/stylestudio/internal/provider"
	"github.com/manash/stylestudio/internal/session"
	"github.com/manash/stylestudio/pkg/models"
)

var (
	ErrNoActiveImage = errors.New("no image loaded - use 'load <file>' first")
	ErrNoLibrary     = errors.New("library is not available")
	ErrNoPreview     = errors.New("inline preview is not supported in this terminal")
)

type REPL struct {
	in        io.Reader
	out       io.Writer
	err       io.Writer
	orch      *orchestrator.Orchestrator
	sessions  *session.Store
	catalog   *catalog.Catalog
	folders   []catalog.Folder
	library   *library.Store
	displayer *display.Displayer
	saver     *image.Saver
	log       zerolog.Logger

	modes     *orchestrator.Modes
	active    string
	reference *models.ImageData
	aspect    models.AspectRatio
	enhance   orchestrator.Enhancement
	lang      language.Tag
	format    models.OutputFormat
	quality   int
	outputDir string
	lastBatch []orchestrator.BatchResult

	commands map[string]Command
	ordered  []Command
	running  bool
}

type Config struct {
	In           io.Reader
	Out          io.Writer
	Err          io.Writer
	Orchestrator *orchestrator.Orchestrator
	Sessions     *session.Store
	Catalog      *catalog.Catalog
	Folders      []catalog.Folder
	// Library may be nil; gallery, preset and cost commands then fail.
	Library *library.Store
	// Displayer may be nil when the terminal cannot show images.
	Displayer *display.Displayer
	Saver     *image.Saver
	Logger    zerolog.Logger
	Language  language.Tag
	Aspect    models.AspectRatio
	Format    models.OutputFormat
	Quality   int
	OutputDir string
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:        cfg.In,
		out:       cfg.Out,
		err:       cfg.Err,
		orch:      cfg.Orchestrator,
		sessions:  cfg.Sessions,
		catalog:   cfg.Catalog,
		folders:   cfg.Folders,
		library:   cfg.Library,
		displayer: cfg.Displayer,
		saver:     cfg.Saver,
		log:       cfg.Logger,
		modes:     orchestrator.NewModes(),
		aspect:    cfg.Aspect,
		lang:      cfg.Language,
		format:    cfg.Format,
		quality:   cfg.Quality,
		outputDir: cfg.OutputDir,
		commands:  make(map[string]Command),
	}
	if r.aspect == "" {
		r.aspect = models.AspectAuto
	}
	if r.format == "" {
		r.format = models.FormatPNG
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", r.explain(err))
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}
	r.log.Debug().Str("command", cmd.Name()).Int("args", len(parts)-1).Msg("executing command")
	return cmd.Execute(ctx, r, parts[1:])
}

func (r *REPL) Stop() {
	r.running = false
}

// explain adds what the user can do about well-known failures.
func (r *REPL) explain(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrCredentialRequired):
		return fmt.Errorf("%w - run the command again once a valid key is set", err)
	case errors.Is(err, provider.ErrRateLimited):
		if d := r.orch.CooldownRemaining(); d > 0 {
			return fmt.Errorf("%w (retry in %s)", err, d.Round(time.Second))
		}
	}
	return err
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "stylestudio interactive mode")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	var b strings.Builder
	b.WriteString("stylestudio")
	if sess, err := r.current(); err == nil {
		fmt.Fprintf(&b, " [%s %d/%d]", batchLabel(sess.Name, 20), sess.ContentIndex+1, len(sess.Content))
	}
	if mode := r.modeLabel(); mode != "" {
		fmt.Fprintf(&b, " (%s)", mode)
	}
	b.WriteString("> ")
	fmt.Fprint(r.out, b.String())
}

func (r *REPL) modeLabel() string {
	switch sel := r.modes.Selection().(type) {
	case orchestrator.SingleStyle:
		return sel.StyleID
	case orchestrator.CustomPrompt:
		return "custom"
	case orchestrator.Blend:
		return fmt.Sprintf("blend %s+%s %d%%", sel.StyleA, sel.StyleB, sel.Ratio)
	case orchestrator.BatchSet:
		return fmt.Sprintf("batch x%d", len(sel.StyleIDs))
	}
	return ""
}

// current returns a snapshot of the active session.
func (r *REPL) current() (*session.ImageSession, error) {
	if r.active == "" {
		return nil, ErrNoActiveImage
	}
	sess, err := r.sessions.Get(r.active)
	if err != nil {
		r.active = ""
		return nil, ErrNoActiveImage
	}
	return sess, nil
}

// preview shows the active image with its live adjustment when the terminal
// supports it. Failures are warnings.
func (r *REPL) preview() {
	if r.displayer == nil {
		return
	}
	sess, err := r.current()
	if err != nil {
		return
	}
	if err := r.displayer.Preview(sess.Current().Image(), sess.Live); err != nil {
		fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
	}
}

func (r *REPL) persistStyle(ctx context.Context, st catalog.Style) {
	if r.library == nil {
		return
	}
	if err := r.library.SaveStyle(ctx, st); err != nil {
		fmt.Fprintf(r.err, "Warning: failed to save style: %v\n", err)
	}
}

func batchLabel(s string, n int) string {
	if s == "" {
		return "(unnamed)"
	}
	return truncate(s, n)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}
