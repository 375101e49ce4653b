// Package cli implements the qbank command line. Offline commands work on
// the vocabulary and the configured rules alone; the rest open the question
// store described by the configuration.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/QuestionBank/internal/app"
	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/infrastructure/database/postgres"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputTable = "table"
	OutputText  = "text"
	OutputJSON  = "json"
)

// ErrCheckFailed is returned by check commands whose input did not pass.
// The report has already been printed.
var ErrCheckFailed = errors.New(errors.ErrCodeValidation, "check failed")

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

// Opener connects the services that need the question store. The returned
// func releases the connections.
type Opener func(ctx context.Context, cfg *config.Config, core *app.Core, logger logging.Logger) (*app.Services, func(), error)

// Migrator applies schema migrations.
type Migrator interface {
	Up() error
	Down(steps int) error
	Status() (postgres.MigrationStatus, error)
	Force(version int) error
}

// MigratorFactory builds a Migrator for cfg.
type MigratorFactory func(cfg *config.Config, logger logging.Logger) Migrator

// Option customizes the root command. Tests replace the backends.
type Option func(*CLIContext)

func WithOpener(o Opener) Option { return func(c *CLIContext) { c.open = o } }

func WithMigrator(f MigratorFactory) Option { return func(c *CLIContext) { c.migrator = f } }

// CLIContext carries the loaded configuration through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration

	core     *app.Core
	open     Opener
	migrator MigratorFactory
}

// NewRootCommand creates the qbank root command with every subcommand.
func NewRootCommand(opts ...Option) *cobra.Command {
	ro := &RootOptions{}
	cc := &CLIContext{open: openServices, migrator: newMigrator}
	for _, o := range opts {
		o(cc)
	}

	cmd := &cobra.Command{
		Use:     "qbank",
		Short:   "Question bank tooling for primary-school maths papers",
		Long:    "qbank normalizes question numbers, splits extracted questions into parts,\nbinds answer keys and validates classifier tags against the vocabulary.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, ro, cc)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&ro.ConfigPath, "config", "c", "", "config file path (default: ./qbank.yaml, then configs/config.yaml)")
	pf.StringVar(&ro.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&ro.OutputFormat, "output", "o", OutputTable, "output format (table, text, json)")
	pf.BoolVarP(&ro.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&ro.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&ro.Timeout, "timeout", 2*time.Minute, "global operation timeout")

	cmd.AddCommand(
		NewTaxonomyCmd(),
		NewNormalizeCmd(),
		NewSplitCmd(),
		NewMatchCmd(),
		NewReconcileCmd(),
		NewPaperCmd(),
		NewIngestCmd(),
		NewAnswersCmd(),
		NewMigrateCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, ro *RootOptions, cc *CLIContext) error {
	format := strings.ToLower(ro.OutputFormat)
	switch format {
	case OutputTable, OutputText, OutputJSON:
	default:
		return errors.New(errors.ErrCodeValidation, "unknown output format").
			WithDetailf("%q; expected table, text or json", ro.OutputFormat)
	}

	cfg, err := initConfig(ro)
	if err != nil {
		return err
	}
	logger, err := initLogger(ro)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cc.Config = cfg
	cc.Logger = logger
	cc.OutputFormat = format
	cc.Verbose = ro.Verbose
	cc.NoColor = ro.NoColor
	cc.Timeout = ro.Timeout
	if ro.NoColor || format == OutputJSON {
		color.NoColor = true
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))
	return nil
}

// initConfig loads --config, else the first file found on the search path,
// else QBANK_* variables alone.
func initConfig(ro *RootOptions) (*config.Config, error) {
	if ro.ConfigPath != "" {
		return config.Load(ro.ConfigPath)
	}
	search := []string{"./qbank.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		search = append(search, filepath.Join(home, ".qbank", "config.yaml"))
	}
	search = append(search, "configs/config.yaml", "/etc/qbank/config.yaml")
	for _, p := range search {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	return config.LoadFromEnv()
}

// initLogger logs to stderr so stdout carries only results.
func initLogger(ro *RootOptions) (logging.Logger, error) {
	level := strings.ToLower(ro.LogLevel)
	if ro.Verbose {
		level = logging.LevelDebug
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

func openServices(ctx context.Context, cfg *config.Config, core *app.Core, logger logging.Logger) (*app.Services, func(), error) {
	infra, err := app.Open(ctx, cfg, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	return app.NewServices(core, infra, logger), infra.Close, nil
}

func newMigrator(cfg *config.Config, logger logging.Logger) Migrator {
	return postgres.NewMigrator(cfg.Database.URL(), cfg.Database.MigrationPath, logger)
}

// GetCLIContext extracts the CLIContext stored by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLI context not initialized")
	}
	return cc, nil
}

// Core builds the domain objects on first use. Commands that only touch the
// database never load the vocabulary.
func (c *CLIContext) Core() (*app.Core, error) {
	if c.core == nil {
		core, err := app.NewCore(c.Config)
		if err != nil {
			return nil, err
		}
		c.core = core
	}
	return c.core, nil
}

// OfflineServices returns services without a question store. Split,
// Match and Reconcile work; storage calls fail.
func (c *CLIContext) OfflineServices() (*app.Services, error) {
	core, err := c.Core()
	if err != nil {
		return nil, err
	}
	return app.NewServices(core, nil, c.Logger), nil
}

// Services opens the storage-backed services. Callers defer the returned
// func.
func (c *CLIContext) Services(ctx context.Context) (*app.Services, func(), error) {
	core, err := c.Core()
	if err != nil {
		return nil, nil, err
	}
	svc, done, err := c.open(ctx, c.Config, core, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	if done == nil {
		done = func() {}
	}
	return svc, done, nil
}

// Context applies the global timeout to the command context.
func (c *CLIContext) Context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), c.Timeout)
}

// Execute runs the qbank command line.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		PrintError(root, err)
		return err
	}
	return nil
}

//Personal.AI order the ending
