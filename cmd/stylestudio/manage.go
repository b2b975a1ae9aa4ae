package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/manash/stylestudio/internal/catalog"
	"github.com/manash/stylestudio/internal/config"
	"github.com/manash/stylestudio/internal/cost"
	"github.com/manash/stylestudio/internal/keys"
	"github.com/manash/stylestudio/internal/library"
	"github.com/manash/stylestudio/internal/security"
	"github.com/manash/stylestudio/pkg/models"
)

var (
	flagStylesFolder    string
	flagStylesFavorites bool
	flagGalleryMirror   bool
	flagDBBackup        bool
)

func newStylesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "styles [query]",
		Aliases: []string{"catalog"},
		Short:   "List available styles",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStyles(cmd.Context(), app, args)
		},
	}
	cmd.Flags().StringVar(&flagStylesFolder, "folder", "", "only styles in this folder id")
	cmd.Flags().BoolVar(&flagStylesFavorites, "favorites", false, "only favorite styles")
	return cmd
}

func runStyles(ctx context.Context, app *App, args []string) error {
	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	lang := catalog.ParseLanguage(rt.cfg.Language)
	query := ""
	if len(args) > 0 {
		query = args[0]
	}

	var styles []catalog.Style
	if flagStylesFolder != "" {
		styles = rt.catalog.InFolder(flagStylesFolder)
	} else {
		styles = rt.catalog.Visible(lang, query)
	}

	folders := make(map[string]string, len(rt.folders))
	for _, f := range rt.folders {
		folders[f.ID] = f.LocalizedName(lang)
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTYLE\tFOLDER\tRATING")
	n := 0
	for _, st := range styles {
		if flagStylesFavorites && !st.Favorite {
			continue
		}
		label := st.LocalizedLabel(lang)
		if st.Favorite {
			label += " *"
		}
		folder := folders[st.FolderID]
		if folder == "" {
			folder = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.ID, label, folder, strings.Repeat("★", st.Rating))
		n++
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "\n%d style(s)\n", n)
	return nil
}

func newGalleryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery [n]",
		Short: "List or manage saved results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGalleryList(cmd.Context(), app, args)
		},
	}
	cmd.Flags().BoolVar(&flagGalleryMirror, "mirror", false, "read the Redis mirror instead of the local library")

	exportCmd := &cobra.Command{
		Use:   "export <id> <file>",
		Short: "Write a gallery image to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGalleryExport(cmd.Context(), app, args[0], args[1])
		},
	}
	deleteCmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a gallery entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGalleryDelete(cmd.Context(), app, args[0])
		},
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every gallery entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGalleryClear(cmd.Context(), app)
		},
	}
	cmd.AddCommand(exportCmd, deleteCmd, clearCmd)
	return cmd
}

func runGalleryList(ctx context.Context, app *App, args []string) error {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid count %q", args[0])
		}
		limit = n
	}

	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTYLE\tSIZE\tCOST\tCREATED")

	if flagGalleryMirror {
		if rt.mirror == nil {
			return errors.New("redis mirror is not configured (set redis.addr in config.yaml)")
		}
		records, err := rt.mirror.Recent(ctx, int64(limit))
		if err != nil {
			return fmt.Errorf("failed to read mirror: %w", err)
		}
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t$%.4f\t%s\n", shortID(r.ID), r.StyleName,
				humanize.Bytes(uint64(r.Bytes)), r.Cost, humanize.Time(r.Timestamp))
		}
		return w.Flush()
	}

	entries, err := rt.library.Gallery(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(app.Out, "Gallery is empty.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t$%.4f\t%s\n", shortID(e.ID), e.StyleName,
			humanize.Bytes(uint64(len(e.Image.Data))), e.Cost, humanize.Time(e.Timestamp))
	}
	return w.Flush()
}

func runGalleryExport(ctx context.Context, app *App, id, path string) error {
	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	entry, err := rt.galleryEntry(ctx, id)
	if err != nil {
		return err
	}
	dir, name := filepath.Split(path)
	if path, err = security.ResolveExportPath(dir, name); err != nil {
		return err
	}
	if err := rt.saver.Save(entry.Image, path); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Saved: %s\n", path)
	return nil
}

func runGalleryDelete(ctx context.Context, app *App, id string) error {
	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	entry, err := rt.galleryEntry(ctx, id)
	if err != nil {
		return err
	}
	if err := rt.library.DeleteGalleryEntry(ctx, entry.ID); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted %s (%s)\n", shortID(entry.ID), entry.StyleName)
	return nil
}

func runGalleryClear(ctx context.Context, app *App) error {
	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.library.ClearGallery(ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, "Gallery cleared.")
	return nil
}

// galleryEntry resolves a full id or a unique prefix of one.
func (rt *runtime) galleryEntry(ctx context.Context, id string) (*models.GalleryEntry, error) {
	if e, err := rt.library.GalleryEntry(ctx, id); err == nil {
		return e, nil
	} else if !errors.Is(err, library.ErrNotFound) {
		return nil, err
	}

	entries, err := rt.library.Gallery(ctx, 0)
	if err != nil {
		return nil, err
	}
	var match *models.GalleryEntry
	for i := range entries {
		if strings.HasPrefix(entries[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("gallery id %q is ambiguous", id)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("gallery entry %q: %w", id, library.ErrNotFound)
	}
	return match, nil
}

func newCostCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cost [today|week|month|total|style]",
		Short: "Show spending recorded in the gallery",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCost(cmd.Context(), app, args)
		},
	}
}

func runCost(ctx context.Context, app *App, args []string) error {
	period := "total"
	if len(args) > 0 {
		period = args[0]
	}

	rt, err := app.start(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	now := timeNow()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var (
		summary *library.CostSummary
		label   string
	)
	switch period {
	case "today":
		summary, err = rt.library.CostByDateRange(ctx, today, today.AddDate(0, 0, 1))
		label = "Today"
	case "week":
		summary, err = rt.library.CostByDateRange(ctx, today.AddDate(0, 0, -6), today.AddDate(0, 0, 1))
		label = "Last 7 days"
	case "month":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		summary, err = rt.library.CostByDateRange(ctx, start, start.AddDate(0, 1, 0))
		label = now.Format("January 2006")
	case "total":
		summary, err = rt.library.TotalCost(ctx)
		label = "All time"
	case "style":
		byStyle, err := rt.library.CostByStyle(ctx)
		if err != nil {
			return err
		}
		if len(byStyle) == 0 {
			fmt.Fprintln(app.Out, "No costs recorded.")
			return nil
		}
		w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STYLE\tIMAGES\tCOST")
		for _, s := range byStyle {
			fmt.Fprintf(w, "%s\t%d\t$%.4f\n", s.StyleName, s.EntryCount, s.TotalCost)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown period %q: use today, week, month, total or style", period)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "%s\n", label)
	fmt.Fprintf(app.Out, "  Total cost: $%.4f\n", summary.TotalCost)
	fmt.Fprintf(app.Out, "  Images:     %d\n", summary.EntryCount)
	return nil
}

var timeNow = time.Now

func newPricingCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Show or override per-image prices",
	}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show built-in prices and local overrides",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPricingShow(app)
		},
	}
	setCmd := &cobra.Command{
		Use:   "set <model> <size> <price>",
		Short: "Override the price of one model and size",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPricingSet(app, args[0], args[1], args[2])
		},
	}
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove all local price overrides",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPricingReset(app)
		},
	}
	cmd.AddCommand(showCmd, setCmd, resetCmd)
	return cmd
}

func runPricingShow(app *App) error {
	dir, err := app.ConfigDir()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tSIZE\tPRICE")
	for _, p := range cost.ImagePrices() {
		fmt.Fprintf(w, "%s\t%s\t$%.3f\n", p.Model, p.Size, p.USD)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	local, err := cost.LoadPricing(dir)
	if err != nil {
		return err
	}
	if local == nil || len(local.Image) == 0 {
		fmt.Fprintln(app.Out, "\nNo local overrides.")
		return nil
	}
	fmt.Fprintf(app.Out, "\nLocal overrides (%s, updated %s):\n", cost.PricingPath(dir), humanize.Time(local.UpdatedAt))
	for model, sizes := range local.Image {
		for size, price := range sizes {
			fmt.Fprintf(app.Out, "  %s %s: $%.3f\n", model, size, price)
		}
	}
	return nil
}

func runPricingSet(app *App, model, size, price string) error {
	usd, err := strconv.ParseFloat(strings.TrimPrefix(price, "$"), 64)
	if err != nil || usd < 0 {
		return fmt.Errorf("invalid price %q", price)
	}
	dir, err := app.ConfigDir()
	if err != nil {
		return err
	}
	if err := cost.SetPrice(dir, model, size, usd); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Price for %s (%s) set to $%.3f\n", model, size, usd)
	return nil
}

func runPricingReset(app *App) error {
	dir, err := app.ConfigDir()
	if err != nil {
		return err
	}
	if err := cost.DeletePricing(dir); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, "Local pricing overrides removed.")
	return nil
}

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the stored API key",
	}
	setCmd := &cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key (prompts when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysSet(app, args)
		},
	}
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show the active key, masked, and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runKeysGet(app)
		},
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runKeysList(app)
		},
	}
	deleteCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		Short:   "Delete the stored key",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runKeysDelete(app)
		},
	}
	cmd.AddCommand(setCmd, getCmd, listCmd, deleteCmd)
	return cmd
}

func (app *App) keyStore() (*keys.Store, error) {
	dir, err := app.ConfigDir()
	if err != nil {
		return nil, err
	}
	return keys.NewStoreAt(dir), nil
}

func runKeysSet(app *App, args []string) error {
	store, err := app.keyStore()
	if err != nil {
		return err
	}

	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		if app.ReadSecret == nil {
			return errors.New("no key given and stdin is not a terminal")
		}
		fmt.Fprint(app.Out, "Enter API key: ")
		key, err = app.ReadSecret()
		fmt.Fprintln(app.Out)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return keys.ErrNoKeyEntered
	}

	if err := store.Set(keys.ProviderGemini, key); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Key %s saved to %s\n", keys.MaskKey(key), store.Path())
	return nil
}

func runKeysGet(app *App) error {
	store, err := app.keyStore()
	if err != nil {
		return err
	}
	key, source, err := keys.GetAPIKey(flagAPIKey, store, app.GetEnv)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s (from %s)\n", keys.MaskKey(key), source)
	return nil
}

func runKeysList(app *App) error {
	store, err := app.keyStore()
	if err != nil {
		return err
	}
	names, err := store.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(app.Out, "No stored keys.")
		return nil
	}
	for _, name := range names {
		key, err := store.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "%s: %s\n", name, keys.MaskKey(key))
	}
	return nil
}

func runKeysDelete(app *App) error {
	store, err := app.keyStore()
	if err != nil {
		return err
	}
	if err := store.Delete(keys.ProviderGemini); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, "Stored key deleted.")
	return nil
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigPath(app)
		},
	}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigShow(app)
		},
	}
	cmd.AddCommand(pathCmd, showCmd)
	return cmd
}

func runConfigPath(app *App) error {
	path := flagConfig
	if path == "" {
		dir, err := app.ConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, config.FileName)
	}
	fmt.Fprintln(app.Out, path)
	return nil
}

func runConfigShow(app *App) error {
	cfg, _, err := app.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Redis.Password != "" {
		cfg.Redis.Password = keys.MaskKey(cfg.Redis.Password)
	}
	enc := yaml.NewEncoder(app.Out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func newDBCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect or reset the local library database",
	}
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show database location and statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDBInfo(cmd.Context(), app)
		},
	}
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the gallery, presets and style changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDBReset(cmd.Context(), app)
		},
	}
	resetCmd.Flags().BoolVar(&flagDBBackup, "backup", false, "keep a timestamped copy of the old database")
	cmd.AddCommand(infoCmd, resetCmd)
	return cmd
}

func (app *App) dbPath() (string, error) {
	cfg, _, err := app.loadConfig()
	if err != nil {
		return "", err
	}
	return library.DBPath(cfg.DataDir), nil
}

func runDBInfo(ctx context.Context, app *App) error {
	path, err := app.dbPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Database location: %s\n", path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Fprintln(app.Out, "Database does not exist yet.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Database size: %s\n", humanize.Bytes(uint64(info.Size())))

	store, err := library.NewStoreWithPath(path)
	if err != nil {
		return err
	}
	defer store.Close()

	total, err := store.TotalCost(ctx)
	if err != nil {
		return err
	}
	presets, err := store.Presets(ctx)
	if err != nil {
		return err
	}
	styles, err := store.Styles(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.Out, "\nStatistics:")
	fmt.Fprintf(app.Out, "  Gallery entries: %d\n", total.EntryCount)
	fmt.Fprintf(app.Out, "  Presets:         %d\n", len(presets))
	fmt.Fprintf(app.Out, "  Saved styles:    %d\n", len(styles))
	fmt.Fprintf(app.Out, "  Total cost:      $%.4f\n", total.TotalCost)
	return nil
}

func runDBReset(ctx context.Context, app *App) error {
	path, err := app.dbPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(app.Out, "Database does not exist, nothing to reset.")
		return nil
	}

	if flagDBBackup {
		backup := fmt.Sprintf("%s.%s.bak", path, timeNow().Format("20060102-150405"))
		if err := copyFile(path, backup); err != nil {
			return fmt.Errorf("failed to back up database: %w", err)
		}
		fmt.Fprintf(app.Out, "Backup saved to: %s\n", backup)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	fmt.Fprintln(app.Out, "Database deleted successfully.")

	store, err := library.NewStoreWithPath(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	if _, _, err := store.LoadCatalog(ctx); err != nil {
		store.Close()
		return err
	}
	if err := store.Close(); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, "Fresh database created.")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
