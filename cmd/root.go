// Package cmd implements the equilibrium CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/config"
	"github.com/twiced-technology-gmbh/equilibrium/internal/filelock"
	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
	"github.com/twiced-technology-gmbh/equilibrium/internal/registry"
	"github.com/twiced-technology-gmbh/equilibrium/internal/search"
	"github.com/twiced-technology-gmbh/equilibrium/internal/seed"
	"github.com/twiced-technology-gmbh/equilibrium/internal/store"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
	"github.com/twiced-technology-gmbh/equilibrium/internal/tracing"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so the
	// OSC 11 response cannot race with the input loop.
	_ = lipgloss.HasDarkBackground()
}

// version is set at build time via ldflags.
var version = "dev"

// Global flags.
var (
	flagJSON    bool
	flagTable   bool
	flagCompact bool
	flagDir     string
	flagNoColor bool
	flagDebug   bool
	flagTrace   string
)

// mutateLockName serializes mutating commands within one registry directory.
const (
	mutateLockName    = ".mutate.lock"
	mutateLockTimeout = 10 * time.Second
)

// logCleanup closes the debug log file, if one was opened.
var logCleanup = func() {}

// traceShutdown flushes exported spans, if tracing was enabled.
var traceShutdown = func(context.Context) error { return nil }

const traceFlushTimeout = 2 * time.Second

var rootCmd = &cobra.Command{
	Use:   "equilibrium",
	Short: "Plan activities and keep work and life in balance",
	Long: `equilibrium keeps a personal registry of planned, completed and canceled
activities. It tracks today's load against a daily capacity and the balance
between work and life categories. Run equilibrium with no arguments to open
the dashboard.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runTUI,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if viper.GetBool("no_color") || os.Getenv("NO_COLOR") != "" {
			output.DisableColor()
		}
	},
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagTable, "table", false, "output as table")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "path to registry directory")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "write debug log to <dir>/debug.log")
	rootCmd.PersistentFlags().StringVar(&flagTrace, "trace", "",
		"export spans ("+strings.Join(tracing.Exporters(), ", ")+"); file writes <dir>/"+tracing.FileName)

	_ = viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("trace", rootCmd.PersistentFlags().Lookup("trace"))
}

// initViper lets EQUILIBRIUM_* environment variables stand in for the
// corresponding flags.
func initViper() {
	viper.SetEnvPrefix("equilibrium")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteContextC(context.Background())

	flushCtx, cancel := context.WithTimeout(context.Background(), traceFlushTimeout)
	if terr := traceShutdown(flushCtx); terr != nil {
		log.ErrorErr(log.CatConfig, "flushing traces", terr)
	}
	cancel()
	logCleanup()
	if err == nil {
		return
	}

	// SilentError: exit with its code, print nothing.
	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	cliErr := asCLIError(err)

	if outputFormat() == output.FormatJSON {
		if cliErr == nil {
			// Unknown error: wrap as INTERNAL_ERROR.
			cliErr = clierr.New(clierr.InternalError, err.Error())
		}
		output.JSONError(os.Stdout, cliErr)
		os.Exit(cliErr.ExitCode())
	}

	// Non-JSON mode: print to stderr.
	var verrs task.Errors
	if errors.As(err, &verrs) {
		output.ValidationErrors(os.Stderr, verrs)
	} else {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	if cliErr != nil {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// asCLIError maps domain errors onto structured CLI errors. Returns nil for
// errors without a code.
func asCLIError(err error) *clierr.Error {
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		return cliErr
	}
	var verrs task.Errors
	if errors.As(err, &verrs) {
		return verrs.CLIError()
	}
	var compileErr *search.CompileError
	if errors.As(err, &compileErr) {
		return compileErr.CLIError()
	}
	if errors.Is(err, config.ErrNotFound) {
		return clierr.New(clierr.RegistryNotFound, err.Error())
	}
	return nil
}

// resolveDir returns the registry directory: --dir or EQUILIBRIUM_DIR, then the
// nearest .equilibrium directory upward from the working directory, then the
// per-user directory.
func resolveDir() (string, error) {
	if dir := viper.GetString("dir"); dir != "" {
		return dir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	dir, err := config.FindDir(cwd)
	if err == nil {
		return dir, nil
	}

	return config.UserDir()
}

// loadConfig finds and loads the registry config.
// The per-user directory is created on first use.
func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return nil, err
		}
		userDir, userErr := config.UserDir()
		if userErr != nil || dir != userDir {
			return nil, err
		}
		if cfg, err = config.Init(userDir, ""); err != nil {
			return nil, err
		}
	}

	if viper.GetBool("debug") || log.EnvEnabled() {
		cleanup, err := log.Init(cfg.DebugLogPath())
		if err != nil {
			return nil, err
		}
		logCleanup = cleanup
	}

	if err := initTracing(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initTracing installs the span exporter chosen by --trace (EQUILIBRIUM_TRACE)
// or trace.exporter in config.yml.
func initTracing(cfg *config.Config) error {
	exporter := viper.GetString("trace")
	if exporter == "" {
		exporter = cfg.Trace.Exporter
	}
	if !tracing.Valid(exporter) {
		return clierr.Newf(clierr.InvalidInput, "invalid --trace %q; valid: %s",
			exporter, strings.Join(tracing.Exporters(), ", "))
	}

	p, err := tracing.NewProvider(tracing.Config{Exporter: exporter, FilePath: cfg.TracePath()})
	if err != nil {
		return err
	}
	if p.Enabled() {
		traceShutdown = p.Shutdown
		log.Debug(log.CatConfig, "tracing enabled", "exporter", exporter)
	}
	return nil
}

// openStore opens the byte store selected by the config's backend.
func openStore(cfg *config.Config) (store.ByteStore, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		return store.OpenSQLite(cfg.DatabasePath())
	default:
		return store.NewFileStore(cfg.Dir())
	}
}

// openRegistry loads the config, opens its store and initializes the registry,
// seeding it on first use. With exclusive set, a lock is held until the returned
// close function runs, so concurrent mutating commands cannot lose each
// other's writes.
func openRegistry(ctx context.Context, exclusive bool) (_ *config.Config, _ *registry.Registry, _ func(), err error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, span := tracing.Start(ctx, "registry.open",
		attribute.String(tracing.AttrBackend, cfg.Store.Backend),
		attribute.Bool(tracing.AttrExclusive, exclusive),
	)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	unlock := func() error { return nil }
	if exclusive {
		lockCtx, cancel := context.WithTimeout(ctx, mutateLockTimeout)
		unlock, err = filelock.Lock(lockCtx, filepath.Join(cfg.Dir(), mutateLockName))
		cancel()
		if errors.Is(err, filelock.ErrBusy) {
			return nil, nil, nil, clierr.New(clierr.RegistryBusy,
				"another equilibrium command is modifying this registry; try again")
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("acquiring lock: %w", err)
		}
	}

	bs, err := openStore(cfg)
	if err != nil {
		_ = unlock()
		return nil, nil, nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	closeFn := func() {
		if err := bs.Close(); err != nil {
			log.ErrorErr(log.CatStore, "closing store", err)
		}
		_ = unlock()
	}

	status, _ := task.ParseStatus(cfg.Defaults.Status)
	reg := registry.New(registry.Options{
		Name:        cfg.Name,
		Gateway:     store.NewGateway(bs, cfg.StoreKey()),
		Seed:        seed.FromConfig(cfg.Seed.Source),
		SeedTimeout: cfg.SeedTimeout(),
		Categories:  cfg.Categories,
		Defaults: registry.Defaults{
			Time:     cfg.Defaults.Time,
			Status:   status,
			Capacity: cfg.Defaults.Capacity,
		},
		LogDir: cfg.Dir(),
	})

	state, err := reg.Initialize(ctx)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	if state == registry.StateSeeded {
		fmt.Fprintf(os.Stderr, "Seeded %d tasks into a new registry.\n", len(reg.Tasks()))
	}
	if !reg.LastSaveOK() {
		fmt.Fprintln(os.Stderr, "Warning: changes could not be saved; they are kept for this session only.")
	}
	return cfg, reg, closeFn, nil
}

// warnUnsaved reports a failed durable write after a mutation.
func warnUnsaved(reg *registry.Registry) {
	if !reg.LastSaveOK() {
		fmt.Fprintln(os.Stderr, "Warning: change applied but not saved to the store.")
	}
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// resolveIDs splits a comma-separated argument and resolves each id prefix
// against the registry. Unresolvable entries are kept verbatim so batch
// operations report them individually.
func resolveIDs(reg *registry.Registry, arg string) ([]string, error) {
	ids, err := board.ParseIDs(arg)
	if err != nil {
		return nil, err
	}
	tasks := reg.Tasks()
	for i, id := range ids {
		if full, err := board.ResolveID(tasks, id); err == nil {
			ids[i] = full
		}
	}
	return ids, nil
}

// runBatch executes fn for each ID and collects results. Returns a SilentError
// with exit code 1 if any operation failed (after outputting results).
func runBatch(ids []string, fn func(string) error) error {
	results := make([]output.BatchResult, 0, len(ids))
	anyFailed := false

	for _, id := range ids {
		err := fn(id)
		if err != nil {
			anyFailed = true
			if cliErr := asCLIError(err); cliErr != nil {
				results = append(results, output.BatchResult{ID: id, OK: false, Error: cliErr.Message, Code: cliErr.Code})
			} else {
				results = append(results, output.BatchResult{ID: id, OK: false, Error: err.Error()})
			}
		} else {
			results = append(results, output.BatchResult{ID: id, OK: true})
		}
	}

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		var succeeded int
		for _, r := range results {
			if r.OK {
				succeeded++
			} else {
				fmt.Fprintf(os.Stderr, "Error: task %s: %s\n", output.ShortID(r.ID), r.Error)
			}
		}
		output.Messagef(os.Stdout, "Completed %d/%d operations", succeeded, len(ids))
	}

	if anyFailed {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
