package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/manash/stylestudio/internal/catalog"
	"github.com/manash/stylestudio/internal/config"
	"github.com/manash/stylestudio/internal/cost"
	"github.com/manash/stylestudio/internal/display"
	"github.com/manash/stylestudio/internal/image"
	"github.com/manash/stylestudio/internal/keys"
	"github.com/manash/stylestudio/internal/library"
	"github.com/manash/stylestudio/internal/logging"
	"github.com/manash/stylestudio/internal/orchestrator"
	"github.com/manash/stylestudio/internal/provider"
	"github.com/manash/stylestudio/internal/provider/gemini"
	"github.com/manash/stylestudio/internal/repl"
	"github.com/manash/stylestudio/internal/session"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig string
	flagAPIKey string
	flagLang   string
)

type App struct {
	In           io.Reader
	Out          io.Writer
	Err          io.Writer
	GetEnv       func(string) string
	ConfigDir    func() (string, error)
	NewClient    func(cfg *config.Config, log zerolog.Logger) provider.Builder
	NewSaver     func(opts ...image.Option) *image.Saver
	NewDisplayer func(out io.Writer) *display.Displayer
	// ReadSecret prompts for a key without echo. Nil disables prompting.
	ReadSecret keys.SecretReader
}

func DefaultApp() *App {
	app := &App{
		In:        os.Stdin,
		Out:       os.Stdout,
		Err:       os.Stderr,
		GetEnv:    os.Getenv,
		ConfigDir: keys.ConfigDir,
		NewClient: func(cfg *config.Config, log zerolog.Logger) provider.Builder {
			return func(ctx context.Context, pc *provider.Config) (provider.Client, error) {
				return gemini.New(ctx, pc,
					gemini.WithPollInterval(cfg.PollInterval),
					gemini.WithRegistry(cfg.Registry()),
					gemini.WithLogger(log),
				)
			}
		},
		NewSaver: image.NewSaver,
		NewDisplayer: func(out io.Writer) *display.Displayer {
			if !display.IsTerminalSupported() {
				return nil
			}
			return display.New(out)
		},
	}
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		app.ReadSecret = keys.TerminalSecret(fd)
	}
	return app
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		return err
	}
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stylestudio",
		Short: "Restyle photos with AI art styles",
		Long: `stylestudio applies AI art styles to your photos using Gemini image models.

Run without a subcommand to start interactive mode.

Examples:
  stylestudio
  stylestudio stylize photo.jpg --style anime
  stylestudio stylize photo.jpg --blend anime,oil_painting --ratio 70
  stylestudio batch photo.jpg -f styles.txt -o out/
  stylestudio create "a lighthouse in a storm"`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd.Context(), app)
		},
	}
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default is <config dir>/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "Gemini API key (defaults to stored key, then GEMINI_API_KEY)")
	cmd.PersistentFlags().StringVar(&flagLang, "lang", "", "style language (en, vi)")

	cmd.AddCommand(
		newStylizeCmd(app),
		newCreateCmd(app),
		newBatchCmd(app),
		newUpscaleCmd(app),
		newAnimateCmd(app),
		newStylesCmd(app),
		newGalleryCmd(app),
		newCostCmd(app),
		newPricingCmd(app),
		newKeysCmd(app),
		newConfigCmd(app),
		newDBCmd(app),
	)
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// runtime is the wired core shared by every command.
type runtime struct {
	cfg      *config.Config
	log      zerolog.Logger
	library  *library.Store
	mirror   *library.RedisSink
	catalog  *catalog.Catalog
	folders  []catalog.Folder
	sessions *session.Store
	creds    *keys.Credentials
	orch     *orchestrator.Orchestrator
	saver    *image.Saver
}

func (app *App) loadConfig() (*config.Config, string, error) {
	dir, err := app.ConfigDir()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(flagConfig, dir, app.GetEnv)
	if err != nil {
		return nil, "", err
	}
	if flagLang != "" {
		cfg.Language = flagLang
	}
	return cfg, dir, nil
}

func (app *App) start(ctx context.Context) (*runtime, error) {
	cfg, dir, err := app.loadConfig()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Env, cfg.LogLevel, app.Err)

	lib, err := library.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	cat, folders, err := lib.LoadCatalog(ctx)
	if err != nil {
		lib.Close()
		return nil, err
	}

	rt := &runtime{
		cfg:      cfg,
		log:      log,
		library:  lib,
		catalog:  cat,
		folders:  folders,
		sessions: session.NewStore(),
	}

	sinks := library.Fanout{lib}
	if cfg.Redis.Enabled() {
		mirror, err := library.NewRedisSink(ctx, library.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			MaxLen:   cfg.Redis.MaxLen,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis gallery mirror disabled")
		} else {
			rt.mirror = mirror
			sinks = append(sinks, mirror)
		}
	}

	pricing, err := cost.LoadPricing(dir)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring local pricing overrides")
	}

	rt.creds = keys.NewCredentials(keys.NewStoreAt(dir), flagAPIKey, app.GetEnv, app.Err, app.ReadSecret)
	client := provider.NewFactory(
		provider.Config{BaseURL: cfg.BaseURL, TimeoutSec: cfg.TimeoutSec},
		rt.creds.Key,
		app.NewClient(cfg, log),
	)

	rt.orch = orchestrator.New(client, rt.sessions, cat,
		orchestrator.WithCredentials(rt.creds),
		orchestrator.WithSink(sinks),
		orchestrator.WithLogger(log),
		orchestrator.WithLanguage(catalog.ParseLanguage(cfg.Language)),
		orchestrator.WithAspectRatio(cfg.AspectRatio),
		orchestrator.WithCooldown(cfg.Cooldown),
		orchestrator.WithBatchDelay(cfg.BatchDelay),
		orchestrator.WithRegistry(cfg.Registry()),
		orchestrator.WithCostCalculator(cost.NewCalculator(cost.WithOverrides(pricing))),
	)
	rt.saver = app.NewSaver(image.WithKeySource(rt.creds.Key))

	log.Debug().Str("data_dir", cfg.DataDir).Int("styles", len(cat.Styles())).Msg("stylestudio ready")
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.mirror != nil {
		if err := rt.mirror.Close(); err != nil {
			rt.log.Warn().Err(err).Msg("failed to close redis mirror")
		}
	}
	if err := rt.library.Close(); err != nil {
		rt.log.Warn().Err(err).Msg("failed to close library")
	}
}

// requireKey fails one-shot commands early when no key is configured and
// none can be prompted for.
func (rt *runtime) requireKey(ctx context.Context) error {
	if rt.creds.HasCredential() {
		return nil
	}
	if err := rt.creds.PromptForCredential(ctx); err != nil {
		if errors.Is(err, keys.ErrNoKeyEntered) {
			return fmt.Errorf("API key required: run 'stylestudio keys set' or set %s", keys.EnvVars[0])
		}
		return err
	}
	return nil
}

func runInteractive(parent context.Context, app *App) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	r := repl.New(&repl.Config{
		In:           app.In,
		Out:          app.Out,
		Err:          app.Err,
		Orchestrator: rt.orch,
		Sessions:     rt.sessions,
		Catalog:      rt.catalog,
		Folders:      rt.folders,
		Library:      rt.library,
		Displayer:    app.NewDisplayer(app.Out),
		Saver:        rt.saver,
		Logger:       rt.log,
		Language:     catalog.ParseLanguage(rt.cfg.Language),
		Aspect:       rt.cfg.AspectRatio,
		Format:       rt.cfg.Format,
		Quality:      rt.cfg.Quality,
		OutputDir:    rt.cfg.OutputDir,
	})
	return r.Run(ctx)
}
