package keys

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func noEnv(string) string { return "" }

func TestCredentials_ResolvesLazily(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	c := NewCredentials(store, "", func(k string) string {
		if k == "API_KEY" {
			return "from-env"
		}
		return ""
	}, &bytes.Buffer{}, nil)

	if !c.HasCredential() {
		t.Fatal("HasCredential() = false, want true")
	}
	if c.Key() != "from-env" || !strings.Contains(c.Source(), "API_KEY") {
		t.Errorf("Key() = %q from %q", c.Key(), c.Source())
	}
}

func TestCredentials_PromptStoresKey(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	var out bytes.Buffer
	c := NewCredentials(store, "", noEnv, &out, func() (string, error) {
		return "  AIza-new-key-0001\n", nil
	})

	if c.HasCredential() {
		t.Fatal("HasCredential() = true before prompting")
	}
	if err := c.PromptForCredential(context.Background()); err != nil {
		t.Fatalf("PromptForCredential() error = %v", err)
	}
	if c.Key() != "AIza-new-key-0001" || c.Source() != "prompt" {
		t.Errorf("Key() = %q from %q", c.Key(), c.Source())
	}
	if stored, _ := store.Get(ProviderGemini); stored != "AIza-new-key-0001" {
		t.Errorf("stored key = %q", stored)
	}
	if !strings.Contains(out.String(), "Enter Gemini API key") || strings.Contains(out.String(), "new-key") {
		t.Errorf("prompt output = %q", out.String())
	}
}

func TestCredentials_PromptFailures(t *testing.T) {
	tests := []struct {
		name    string
		read    SecretReader
		ctx     func() context.Context
		wantErr error
	}{
		{"not interactive", nil, context.Background, ErrNoKeyEntered},
		{"blank input", func() (string, error) { return "   ", nil }, context.Background, ErrNoKeyEntered},
		{"read error", func() (string, error) { return "", errors.New("eof") }, context.Background, nil},
		{"cancelled", func() (string, error) { return "k", nil }, func() context.Context {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx
		}, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCredentials(nil, "", noEnv, &bytes.Buffer{}, tt.read)
			err := c.PromptForCredential(tt.ctx())
			if err == nil {
				t.Fatal("PromptForCredential() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("PromptForCredential() error = %v, want %v", err, tt.wantErr)
			}
			if c.HasCredential() {
				t.Error("failed prompt must not set a key")
			}
		})
	}
}
