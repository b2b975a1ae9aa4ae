// Package config loads settings from defaults, a YAML file, .env files and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/manash/stylestudio/pkg/models"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	FileName = "config.yaml"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Redis struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
	MaxLen   int64  `yaml:"max_len"`
}

// Enabled reports whether a Redis gallery mirror is configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

type Config struct {
	Env          string              `yaml:"env"`
	LogLevel     string              `yaml:"log_level"`
	Language     string              `yaml:"language"`
	AspectRatio  models.AspectRatio  `yaml:"aspect_ratio"`
	DataDir      string              `yaml:"data_dir"`
	OutputDir    string              `yaml:"output_dir"`
	Format       models.OutputFormat `yaml:"format"`
	Quality      int                 `yaml:"quality"`
	BaseURL      string              `yaml:"base_url"`
	TimeoutSec   int                 `yaml:"timeout_sec"`
	PollInterval time.Duration       `yaml:"poll_interval"`
	Cooldown     time.Duration       `yaml:"cooldown"`
	BatchDelay   time.Duration       `yaml:"batch_delay"`
	Redis        Redis               `yaml:"redis"`
	// Models overrides the model used per operation, keyed by operation name.
	Models map[models.Operation]string `yaml:"models"`
}

// Default returns the built-in settings. configDir holds the library
// database unless data_dir is set.
func Default(configDir string) *Config {
	return &Config{
		Env:          EnvProduction,
		LogLevel:     "info",
		Language:     "en",
		AspectRatio:  models.AspectAuto,
		DataDir:      configDir,
		Format:       models.FormatPNG,
		Quality:      90,
		TimeoutSec:   300,
		PollInterval: 10 * time.Second,
		Cooldown:     time.Minute,
	}
}

// Load builds the configuration. A missing file at path is not an error.
func Load(path, configDir string, getenv func(string) string) (*Config, error) {
	cfg := Default(configDir)

	if path == "" {
		path = filepath.Join(configDir, FileName)
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads the given .env files into the process environment,
// skipping files that do not exist. Existing variables are not overridden.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"STYLESTUDIO_ENV":            &c.Env,
		"STYLESTUDIO_LOG_LEVEL":      &c.LogLevel,
		"STYLESTUDIO_LANGUAGE":       &c.Language,
		"STYLESTUDIO_DATA_DIR":       &c.DataDir,
		"STYLESTUDIO_OUTPUT_DIR":     &c.OutputDir,
		"STYLESTUDIO_BASE_URL":       &c.BaseURL,
		"STYLESTUDIO_REDIS_ADDR":     &c.Redis.Addr,
		"STYLESTUDIO_REDIS_USERNAME": &c.Redis.Username,
		"STYLESTUDIO_REDIS_PASSWORD": &c.Redis.Password,
		"STYLESTUDIO_REDIS_KEY":      &c.Redis.Key,
	}
	for name, dst := range str {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("STYLESTUDIO_ASPECT_RATIO"); v != "" {
		c.AspectRatio = models.AspectRatio(v)
	}
	if v := getenv("STYLESTUDIO_FORMAT"); v != "" {
		c.Format = models.OutputFormat(strings.ToLower(v))
	}

	durations := map[string]*time.Duration{
		"STYLESTUDIO_POLL_INTERVAL": &c.PollInterval,
		"STYLESTUDIO_COOLDOWN":      &c.Cooldown,
		"STYLESTUDIO_BATCH_DELAY":   &c.BatchDelay,
	}
	for name, dst := range durations {
		v := getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"STYLESTUDIO_QUALITY":     &c.Quality,
		"STYLESTUDIO_TIMEOUT_SEC": &c.TimeoutSec,
		"STYLESTUDIO_REDIS_DB":    &c.Redis.DB,
	}
	for name, dst := range ints {
		v := getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) Validate() error {
	if !c.AspectRatio.IsValid() {
		return fmt.Errorf("%w: aspect ratio %q", ErrInvalidConfig, c.AspectRatio)
	}
	if !c.Format.IsValid() {
		return fmt.Errorf("%w: format %q", ErrInvalidConfig, c.Format)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("%w: quality %d not in 1..100", ErrInvalidConfig, c.Quality)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	if c.Cooldown < 0 || c.BatchDelay < 0 {
		return fmt.Errorf("%w: durations cannot be negative", ErrInvalidConfig)
	}
	for op := range c.Models {
		switch op {
		case models.OpTextToImage, models.OpStylize, models.OpUpscale, models.OpAnimate:
		default:
			return fmt.Errorf("%w: unknown operation %q in models", ErrInvalidConfig, op)
		}
	}
	return nil
}

// Registry returns the default model registry with configured overrides.
func (c *Config) Registry() *models.ModelRegistry {
	r := models.DefaultRegistry()
	for op, name := range c.Models {
		r.Override(op, name)
	}
	return r
}

func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}
