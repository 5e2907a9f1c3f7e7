package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Hanaasagi/w90parse/cmd"
	"github.com/Hanaasagi/w90parse/internal/archive"
	"github.com/Hanaasagi/w90parse/internal/logger"
	"github.com/Hanaasagi/w90parse/internal/wannier"
)

const appName = "w90parse"

var (
	Version     = "0.1.0"
	CommitSha   = "unknown"
	FullVersion = Version + "-" + CommitSha
)

// AppConfig holds the command line state before it is merged into Config
type AppConfig struct {
	configPath  string
	showVersion bool

	logLevel     string
	workers      int
	noColor      bool
	pathMismatch string
	archive      bool
	archivePath  string

	config    *Config
	logCloser io.Closer
}

// load reads the config file and lets explicitly set flags win over it
func (a *AppConfig) load(c *cobra.Command) error {
	config, err := LoadConfigFromFile(a.configPath)
	if err != nil {
		return err
	}

	flags := c.Flags()
	if flags.Changed("log-level") {
		config.Core.LogLevel = a.logLevel
	}
	if flags.Changed("workers") {
		config.Core.Workers = a.workers
	}
	if flags.Changed("no-color") {
		config.Core.Color = !a.noColor
	}
	if flags.Changed("path-mismatch") {
		config.Pipeline.PathMismatch = a.pathMismatch
	}
	if flags.Changed("archive") {
		config.Archive.Enabled = a.archive
	}
	if flags.Changed("archive-path") {
		config.Archive.Path = a.archivePath
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.config = config
	return nil
}

func (a *AppConfig) setup(c *cobra.Command) error {
	if err := a.load(c); err != nil {
		return err
	}

	if !a.config.Core.Color || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	closer, err := logger.InitLogger(a.config.Core.LogFile, a.config.Core.LogLevel)
	if err != nil {
		return err
	}
	a.logCloser = closer

	crashFilePath := filepath.Join(filepath.Dir(a.config.Core.LogFile), "crash")
	if f, err := os.Create(crashFilePath); err == nil {
		_ = debug.SetCrashOutput(f, debug.CrashOptions{})
	}

	slog.Debug("configuration loaded", "path", a.configPath, "workers", a.config.Core.Workers,
		"path_mismatch", a.config.Pipeline.PathMismatch, "archive", a.config.Archive.Enabled)
	return nil
}

func (a *AppConfig) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

func (a *AppConfig) openArchive(ctx context.Context) (*archive.Store, error) {
	path := a.config.Archive.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}
	return archive.Open(ctx, path)
}

// archiveResults stores every result when the archive is enabled and
// returns the assigned ids, zero for results that were not stored
func (a *AppConfig) archiveResults(ctx context.Context, results []*wannier.Result) ([]int64, error) {
	ids := make([]int64, len(results))
	if !a.config.Archive.Enabled {
		return ids, nil
	}

	store, err := a.openArchive(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close() // nolint: errcheck

	for i, res := range results {
		if res == nil {
			continue
		}
		if ids[i], err = store.Save(ctx, res); err != nil {
			return nil, fmt.Errorf("archiving %s: %w", res.Files.Wout, err)
		}
		slog.Info("run archived", "id", ids[i], "wout", res.Files.Wout)
	}
	return ids, nil
}

func runParse(c *cobra.Command, a *AppConfig, wout string) error {
	opts, err := a.config.ParseOptions()
	if err != nil {
		return err
	}

	res, err := wannier.ParseFile(wout, opts)
	if err != nil {
		return err
	}

	ids, err := a.archiveResults(c.Context(), []*wannier.Result{res})
	if err != nil {
		return err
	}

	out := c.OutOrStdout()
	if err := writeResult(out, res); err != nil {
		return err
	}
	if ids[0] > 0 {
		fmt.Fprintf(out, "archived as run %d\n", ids[0])
	}
	return nil
}

// collectSets expands directories into the file sets they hold
func collectSets(args []string) ([]wannier.FileSet, error) {
	var sets []wannier.FileSet
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if info.IsDir() {
			found, err := wannier.DiscoverDir(arg)
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				slog.Warn("no output logs in directory", "dir", arg)
			}
			sets = append(sets, found...)
			continue
		}

		fs, err := wannier.Discover(arg)
		if err != nil {
			return nil, err
		}
		sets = append(sets, fs)
	}
	return sets, nil
}

func runBatch(c *cobra.Command, a *AppConfig, args []string) error {
	sets, err := collectSets(args)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return errors.New("no output logs found")
	}

	opts, err := a.config.ParseOptions()
	if err != nil {
		return err
	}

	ctx := c.Context()
	items, err := wannier.ParseAll(ctx, sets, opts, a.config.Core.Workers)
	if err != nil {
		return err
	}

	results := make([]*wannier.Result, len(items))
	for i, item := range items {
		results[i] = item.Result
	}
	ids, err := a.archiveResults(ctx, results)
	if err != nil {
		return err
	}

	var rows [][]string
	failed := 0
	for i, item := range items {
		if item.Err != nil {
			failed++
			slog.Error("parse failed", "wout", item.Files.Wout, "error", item.Err)
			fmt.Fprintln(c.ErrOrStderr(), errorStyle.Sprintf("%s: %v", item.Files.Wout, item.Err))
			continue
		}
		run := archive.Summarize(item.Result)
		run.ID = ids[i]
		rows = append(rows, runRow(run))
	}

	if err := writeTable(c.OutOrStdout(), runHeader, rows); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file sets failed", failed, len(items))
	}
	return nil
}

func runList(c *cobra.Command, a *AppConfig) error {
	store, err := a.openArchive(c.Context())
	if err != nil {
		return err
	}
	defer store.Close() // nolint: errcheck

	runs, err := store.List(c.Context())
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		// List leaves issues out, so the counts come from Get
		full, err := store.Get(c.Context(), run.ID)
		if err != nil {
			return err
		}
		rows = append(rows, runRow(*full))
	}
	return writeTable(c.OutOrStdout(), runHeader, rows)
}

func parseRunID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid run id %q", arg)
	}
	return id, nil
}

func runShow(c *cobra.Command, a *AppConfig, arg string) error {
	id, err := parseRunID(arg)
	if err != nil {
		return err
	}

	store, err := a.openArchive(c.Context())
	if err != nil {
		return err
	}
	defer store.Close() // nolint: errcheck

	run, err := store.Get(c.Context(), id)
	if errors.Is(err, archive.ErrNotFound) {
		return fmt.Errorf("run %d: %w", id, err)
	}
	if err != nil {
		return err
	}
	return writeRun(c.OutOrStdout(), run)
}

func runDelete(c *cobra.Command, a *AppConfig, arg string) error {
	id, err := parseRunID(arg)
	if err != nil {
		return err
	}

	store, err := a.openArchive(c.Context())
	if err != nil {
		return err
	}
	defer store.Close() // nolint: errcheck

	if err := store.Delete(c.Context(), id); err != nil {
		return fmt.Errorf("run %d: %w", id, err)
	}
	slog.Info("run deleted", "id", id)
	fmt.Fprintf(c.OutOrStdout(), "run %d deleted\n", id)
	return nil
}

func runSchema(c *cobra.Command, a *AppConfig, rollback bool) error {
	store, err := a.openArchive(c.Context())
	if err != nil {
		return err
	}
	defer store.Close() // nolint: errcheck

	v, err := store.SchemaVersion(c.Context())
	if err != nil {
		return err
	}
	if rollback {
		from := v
		if v, err = store.Rollback(c.Context()); err != nil {
			return err
		}
		slog.Warn("archive schema rolled back", "from", from.String(), "to", v.String())
	}
	fmt.Fprintf(c.OutOrStdout(), "schema %s (sqlite %s, driver %s)\n", v, archive.BuildMode, archive.DriverName)
	return nil
}

func newRootCommand(a *AppConfig) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Rebuild band structure, DOS and hoppings from Wannier90 output",
		Long: color.New(color.FgHiMagenta).Sprintf(
			"Rebuild structure, band path, band energies, density of states and hopping matrix from Wannier90 output. %s",
			color.New(color.FgBlue).Sprintf("(%s)", FullVersion),
		),
		SilenceUsage: true,
		RunE: func(c *cobra.Command, args []string) error {
			if a.showVersion {
				fmt.Fprintf(c.OutOrStdout(), "%s version: %s (sqlite %s)\n", appName, FullVersion, archive.BuildMode)
				return nil
			}
			return c.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", DefaultConfigPath(), "Path of the TOML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&a.pathMismatch, "path-mismatch", wannier.MismatchFail.String(), "What to do when the k-path and band grid disagree (fail, adjust-last)")
	pf.BoolVar(&a.archive, "archive", false, "Store a summary of each run in the archive")
	pf.StringVar(&a.archivePath, "archive-path", DefaultArchivePath(), "Path of the SQLite archive")
	rootCmd.Flags().BoolVarP(&a.showVersion, "version", "v", false, "Print version and exit")

	rootCmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		return a.setup(c)
	}

	parseCmd := &cobra.Command{
		Use:     "parse <file.wout>",
		Short:   "Parse one run and print what was recovered",
		Example: "  w90parse parse ./si/si.wout\n  w90parse parse --archive --path-mismatch adjust-last gaas.wout",
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runParse(c, a, args[0])
		},
	}

	batchCmd := &cobra.Command{
		Use:   "batch <dir|file.wout>...",
		Short: "Parse many runs concurrently and print a summary table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runBatch(c, a, args)
		},
	}
	batchCmd.Flags().IntVarP(&a.workers, "workers", "j", 0, "Parallel parses (0: one per CPU)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runList(c, a)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one archived run with its issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runShow(c, a, args[0])
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Remove an archived run and its issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runDelete(c, a, args[0])
		},
	}

	var rollback bool
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the archive schema version",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runSchema(c, a, rollback)
		},
	}
	schemaCmd.Flags().BoolVar(&rollback, "rollback", false, "Undo the newest schema migration (reapplied on the next run)")

	rootCmd.AddCommand(parseCmd, batchCmd, listCmd, showCmd, deleteCmd, schemaCmd)

	rootCmd.SetHelpTemplate(cmd.HelpTemplate)
	rootCmd.SetUsageFunc(func(c *cobra.Command) error {
		return cmd.ColorUsageFunc(c.OutOrStderr(), c)
	})
	return rootCmd
}

func main() {
	a := &AppConfig{}
	rootCmd := newRootCommand(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		slog.Error("Error executing command", "error", err)
	}
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
