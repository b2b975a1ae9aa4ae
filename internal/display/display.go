// Package display previews images inline in terminals that speak the kitty
// graphics protocol.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/manash/stylestudio/internal/compositor"
	"github.com/manash/stylestudio/pkg/models"
)

type Displayer struct {
	out     io.Writer
	columns int
}

type Option func(*Displayer)

// WithColumns scales previews to n terminal cells wide.
func WithColumns(n int) Option {
	return func(d *Displayer) {
		d.columns = n
	}
}

func New(out io.Writer, opts ...Option) *Displayer {
	d := &Displayer{out: out}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Preview renders img under adj and shows the result. Pass the live
// adjustment to mirror what the sliders currently show.
func (d *Displayer) Preview(img models.ImageData, adj models.Adjustments) error {
	if img.IsEmpty() {
		return models.ErrNoImageData
	}
	if adj.IsIdentity() && models.FormatFromMIME(img.MIMEType) == models.FormatPNG {
		return d.write(img.Data)
	}

	data, err := compositor.RenderBytes(img.Data, adj, models.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}
	return d.write(data)
}

// Show displays img as stored.
func (d *Displayer) Show(img models.ImageData) error {
	return d.Preview(img, models.IdentityAdjustments())
}

func (d *Displayer) write(png []byte) error {
	enc := NewKittyEncoder(d.out, d.columns)
	if err := enc.Encode(png); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	fmt.Fprintln(d.out)
	return nil
}

// IsTerminalSupported reports whether stdout is a terminal that can show
// inline images.
func IsTerminalSupported() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && supported(os.Getenv)
}

func supported(getenv func(string) string) bool {
	termProgram := strings.ToLower(getenv("TERM_PROGRAM"))
	switch termProgram {
	case "kitty", "ghostty", "iterm.app", "wezterm":
		return true
	}

	if getenv("KITTY_WINDOW_ID") != "" || getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	t := strings.ToLower(getenv("TERM"))
	return strings.Contains(t, "kitty") || strings.Contains(t, "ghostty")
}
