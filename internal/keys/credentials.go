package keys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/term"
)

var ErrNoKeyEntered = errors.New("no API key entered")

// SecretReader reads one line without echo.
type SecretReader func() (string, error)

// TerminalSecret reads from the terminal behind fd with echo disabled.
func TerminalSecret(fd int) SecretReader {
	return func() (string, error) {
		b, err := term.ReadPassword(fd)
		return string(b), err
	}
}

// Credentials resolves the API key lazily and asks the user for a new one
// when the service rejects it.
type Credentials struct {
	store    *Store
	explicit string
	getenv   func(string) string
	out      io.Writer
	read     SecretReader

	mu       sync.Mutex
	key      string
	source   string
	resolved bool
}

func NewCredentials(store *Store, explicit string, getenv func(string) string, out io.Writer, read SecretReader) *Credentials {
	return &Credentials{store: store, explicit: explicit, getenv: getenv, out: out, read: read}
}

// Key returns the current key or "" when none is configured.
func (c *Credentials) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveLocked()
	return c.key
}

// Source describes where the current key came from.
func (c *Credentials) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveLocked()
	return c.source
}

func (c *Credentials) resolveLocked() {
	if c.resolved {
		return
	}
	c.resolved = true
	key, source, err := GetAPIKey(c.explicit, c.store, c.getenv)
	if err == nil {
		c.key, c.source = key, source
	}
}

func (c *Credentials) HasCredential() bool {
	return c.Key() != ""
}

// PromptForCredential asks for a replacement key, stores it and makes it
// current.
func (c *Credentials) PromptForCredential(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.read == nil {
		return fmt.Errorf("%w: not running interactively", ErrNoKeyEntered)
	}

	fmt.Fprint(c.out, "Enter Gemini API key: ")
	key, err := c.read()
	fmt.Fprintln(c.out)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrNoKeyEntered
	}

	if c.store != nil {
		if err := c.store.Set(ProviderGemini, key); err != nil {
			return fmt.Errorf("failed to store API key: %w", err)
		}
	}

	c.mu.Lock()
	c.key, c.source, c.resolved = key, "prompt", true
	c.mu.Unlock()
	fmt.Fprintf(c.out, "Using key %s\n", MaskKey(key))
	return nil
}
