package keys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STYLESTUDIO_CONFIG_DIR", dir)

	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.Path() != filepath.Join(dir, "keys.json") {
		t.Errorf("Store.Path() = %q", store.Path())
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStoreAt(tmpDir)

	if err := store.Set(ProviderGemini, "AIza-test-key-12345"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, "keys.json"))
	if err != nil {
		t.Fatalf("keys.json not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("keys.json permissions = %v, want 0600", info.Mode().Perm())
	}

	key, err := store.Get(ProviderGemini)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "AIza-test-key-12345" {
		t.Errorf("Get() = %v, want AIza-test-key-12345", key)
	}

	key, err = store.Get("other")
	if err != nil || key != "" {
		t.Errorf("Get(missing) = %q, %v", key, err)
	}

	store.Set("backup", "b")
	providers, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(providers) != 2 || providers[0] != "backup" || providers[1] != ProviderGemini {
		t.Errorf("List() = %v, want sorted [backup gemini]", providers)
	}

	if err := store.Delete(ProviderGemini); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if key, _ := store.Get(ProviderGemini); key != "" {
		t.Errorf("Get() after Delete() = %v", key)
	}
	if err := store.Delete(ProviderGemini); err == nil {
		t.Error("Delete(missing) should return error")
	}
}

func TestStore_CorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "keys.json"), []byte("{not json"), 0600)

	if _, err := NewStoreAt(tmpDir).Get(ProviderGemini); err == nil {
		t.Error("Get() expected parse error")
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"AIza1234567890abcd", "AIza**********abcd"},
		{"short", "*****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGetAPIKey_Priority(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	env := map[string]string{"GEMINI_API_KEY": "gemini-env", "API_KEY": "generic-env"}
	getenv := func(k string) string { return env[k] }

	key, source, err := GetAPIKey("flag-key", store, getenv)
	if err != nil || key != "flag-key" || source != "command-line flag" {
		t.Errorf("explicit: %q %q %v", key, source, err)
	}

	key, source, _ = GetAPIKey("", store, getenv)
	if key != "gemini-env" || !strings.Contains(source, "GEMINI_API_KEY") {
		t.Errorf("env: %q %q", key, source)
	}

	delete(env, "GEMINI_API_KEY")
	key, _, _ = GetAPIKey("", store, getenv)
	if key != "generic-env" {
		t.Errorf("fallback env: %q", key)
	}

	store.Set(ProviderGemini, "stored")
	key, source, _ = GetAPIKey("", store, getenv)
	if key != "stored" || !strings.HasPrefix(source, "stored key") {
		t.Errorf("stored: %q %q", key, source)
	}

	if _, _, err := GetAPIKey("", nil, func(string) string { return "" }); err == nil {
		t.Error("GetAPIKey() expected error with no sources")
	}
}
