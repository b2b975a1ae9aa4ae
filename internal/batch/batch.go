package batch

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/manash/stylestudio/pkg/models"
)

type Result[T, R any] struct {
	Index    int
	Item     T
	Value    R
	Err      error
	Duration time.Duration
}

func (r Result[T, R]) OK() bool {
	return r.Err == nil
}

// ProgressFunc receives the 1-based position of the item that just finished,
// before its result is recorded.
type ProgressFunc func(current, total int)

type config struct {
	delay time.Duration
}

type Option func(*config)

// WithDelay pauses between items.
func WithDelay(d time.Duration) Option {
	return func(c *config) { c.delay = d }
}

// Run calls fn for each item strictly one after another. An item failure is
// recorded in its Result and never stops the run; only ctx cancellation does,
// in which case every remaining item carries ctx.Err().
func Run[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error), onProgress ProgressFunc, opts ...Option) []Result[T, R] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	results := make([]Result[T, R], len(items))
	total := len(items)

	for i, item := range items {
		results[i] = Result[T, R]{Index: i + 1, Item: item}

		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		start := time.Now()
		value, err := fn(ctx, item)
		if onProgress != nil {
			onProgress(i+1, total)
		}
		results[i].Value = value
		results[i].Err = err
		results[i].Duration = time.Since(start)

		if cfg.delay > 0 && i < total-1 {
			select {
			case <-ctx.Done():
			case <-time.After(cfg.delay):
			}
		}
	}

	return results
}

// Summary counts outcomes of a finished run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Cost      float64
}

// Summarize tallies results; cost may be nil.
func Summarize[T, R any](results []Result[T, R], cost func(R) float64) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		if cost != nil {
			s.Cost += cost(r.Value)
		}
	}
	return s
}

// PrintSummary writes a human-readable report. describe names an item in the
// error list.
func PrintSummary[T, R any](w io.Writer, results []Result[T, R], describe func(T) string, cost func(R) float64) {
	s := Summarize(results, cost)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Successful: %d/%d images\n", s.Succeeded, s.Total)
	if s.Failed > 0 {
		fmt.Fprintf(w, "  Failed: %d (see errors below)\n", s.Failed)
	}
	fmt.Fprintf(w, "  Total cost: $%.4f\n", s.Cost)

	if s.Failed == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Errors:")
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		fmt.Fprintf(w, "  [%d] %q: %v\n", r.Index, Truncate(describe(r.Item), 40), r.Err)
	}
}

// Filename builds an export name such as "003-watercolor.png".
func Filename(index int, label string, format models.OutputFormat) string {
	return fmt.Sprintf("%03d-%s.%s", index, sanitizeLabel(label), format)
}

var windowsReservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true,
	"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
	"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)

func sanitizeLabel(label string) string {
	sanitized := unsafeChars.ReplaceAllString(label, "")
	sanitized = strings.ToLower(sanitized)
	sanitized = strings.Join(strings.Fields(sanitized), "-")
	sanitized = strings.TrimLeft(sanitized, "-")

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	sanitized = strings.TrimSuffix(sanitized, "-")

	if sanitized == "" {
		sanitized = "image"
	}

	if windowsReservedNames[sanitized] {
		sanitized = sanitized + "-img"
	}

	return sanitized
}

func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
