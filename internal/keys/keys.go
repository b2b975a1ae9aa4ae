package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// ProviderGemini is the key name used for the generative service.
const ProviderGemini = "gemini"

// EnvVars are checked in order when no key is stored.
var EnvVars = []string{"GEMINI_API_KEY", "API_KEY"}

// Store handles API key storage and retrieval
type Store struct {
	configDir string
}

// KeyEntry represents a stored API key
type KeyEntry struct {
	Key string `json:"key"`
}

// Keys represents the keys.json structure
type Keys map[string]KeyEntry

// NewStore creates a key store in the platform config directory.
func NewStore() (*Store, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return &Store{configDir: configDir}, nil
}

// NewStoreAt creates a key store rooted at dir.
func NewStoreAt(dir string) *Store {
	return &Store{configDir: dir}
}

// ConfigDir returns the platform-specific config directory.
// STYLESTUDIO_CONFIG_DIR overrides it.
func ConfigDir() (string, error) {
	if dir := os.Getenv("STYLESTUDIO_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "stylestudio"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "stylestudio"), nil
	default:
		// XDG Base Directory Specification
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "stylestudio"), nil
	}
}

// Path returns the path to the keys.json file
func (s *Store) Path() string {
	return filepath.Join(s.configDir, "keys.json")
}

func (s *Store) load() (Keys, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(Keys), nil
		}
		return nil, err
	}

	var keys Keys
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys.json: %w", err)
	}
	return keys, nil
}

func (s *Store) save(keys Keys) error {
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}

	// owner read/write only
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write keys.json: %w", err)
	}
	return nil
}

// Set stores a key for the given provider
func (s *Store) Set(provider, key string) error {
	keys, err := s.load()
	if err != nil {
		return err
	}

	keys[provider] = KeyEntry{Key: key}
	return s.save(keys)
}

// Get retrieves a key for the given provider. A missing key is not an error.
func (s *Store) Get(provider string) (string, error) {
	keys, err := s.load()
	if err != nil {
		return "", err
	}
	return keys[provider].Key, nil
}

// Delete removes a key for the given provider
func (s *Store) Delete(provider string) error {
	keys, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := keys[provider]; !ok {
		return fmt.Errorf("no key found for %s", provider)
	}

	delete(keys, provider)
	return s.save(keys)
}

// List returns all stored provider names, sorted.
func (s *Store) List() ([]string, error) {
	keys, err := s.load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(keys))
	for provider := range keys {
		providers = append(providers, provider)
	}
	slices.Sort(providers)
	return providers, nil
}

// MaskKey returns a masked version of the key for display
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// GetAPIKey resolves a key in priority order: the explicit key, the stored
// key, then the first non-empty environment variable. It returns the key and
// a description of where it came from.
func GetAPIKey(explicitKey string, store *Store, getenv func(string) string) (string, string, error) {
	if explicitKey != "" {
		return explicitKey, "command-line flag", nil
	}

	if store != nil {
		if stored, err := store.Get(ProviderGemini); err == nil && stored != "" {
			return stored, fmt.Sprintf("stored key (%s)", store.Path()), nil
		}
	}

	for _, name := range EnvVars {
		if v := getenv(name); v != "" {
			return v, fmt.Sprintf("environment variable (%s)", name), nil
		}
	}

	return "", "", fmt.Errorf("API key required: run 'stylestudio keys set' or set %s", strings.Join(EnvVars, " or "))
}
