// Package commands implements the mds subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	internalobs "github.com/lukasn42/move-datastructure/internal/observability"
	"github.com/lukasn42/move-datastructure/pkg/config"
	"github.com/lukasn42/move-datastructure/pkg/observability"
	"github.com/lukasn42/move-datastructure/pkg/version"
)

const metricsMeterName = "github.com/lukasn42/move-datastructure/cmd/mds"

type observabilityInit func(observability.Config) (observability.Providers, error)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	verbose    bool
	quiet      bool
	noColor    bool

	initObs observabilityInit

	cfg       *config.Config
	providers observability.Providers
	textfile  *internalobs.TextfileExporter
	metrics   *observability.BuildMetrics
}

// NewRootCommand creates the mds command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithDeps(observability.Init)
}

func newRootCommandWithDeps(initObs observabilityInit) *cobra.Command {
	a := &app{initObs: initObs}

	rootCmd := &cobra.Command{
		Use:   "mds",
		Short: "Build and query move datastructures",
		Long: `mds balances disjoint interval sequences into move datastructures,
which apply the permutation they describe in constant time per step.

Commands:
  build     Build a structure from a pair listing or a BWT
  move      Follow a position through repeated moves
  stats     Report interval and move statistics
  verify    Check a stored structure and its metadata`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: ./mds.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress output")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newBuildCommand(a))
	rootCmd.AddCommand(newMoveCommand(a))
	rootCmd.AddCommand(newStatsCommand(a))
	rootCmd.AddCommand(newVerifyCommand(a))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mds %s\n", version.String())
		},
	}
}

type runFunc func(cmd *cobra.Command, args []string) error

// wrap loads the configuration, applies the command's flag overrides and
// sets up observability around fn, flushing it however fn ends.
func (a *app) wrap(overrides func(*cobra.Command, *config.Config), fn runFunc) runFunc {
	return func(cmd *cobra.Command, args []string) (err error) {
		err = a.setup(cmd, overrides)
		if err != nil {
			return err
		}

		defer func() {
			err = errors.Join(err, a.teardown(commandContext(cmd)))
		}()

		return fn(cmd, args)
	}
}

func (a *app) setup(cmd *cobra.Command, overrides func(*cobra.Command, *config.Config)) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	if overrides != nil {
		overrides(cmd, cfg)
	}

	switch {
	case a.verbose:
		cfg.Logging.Level = "debug"
	case a.quiet:
		cfg.Logging.Level = "error"
	}

	err = config.Validate(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if a.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	a.cfg = cfg

	providers, err := a.initObs(observabilityConfig(cmd, cfg))
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	if providers.Logger == nil {
		providers.Logger = slog.Default()
	}

	a.providers = providers

	return a.setupMetrics()
}

func observabilityConfig(cmd *cobra.Command, cfg *config.Config) observability.Config {
	level, _ := observability.ParseLogLevel(cfg.Logging.Level)

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.SampleRatio = cfg.Observability.SampleRatio
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.Format == "json"
	obsCfg.LogWriter = cmd.ErrOrStderr()

	return obsCfg
}

// setupMetrics records builds into a Prometheus textfile when one is
// configured and into the OTel meter otherwise.
func (a *app) setupMetrics() error {
	meter := a.providers.Meter

	if a.cfg.Observability.MetricsFile != "" {
		textfile, err := internalobs.NewTextfileExporter()
		if err != nil {
			return err
		}

		a.textfile = textfile
		meter = textfile.Meter(metricsMeterName)
	}

	if meter == nil {
		return nil
	}

	metrics, err := observability.NewBuildMetrics(meter)
	if err != nil {
		return fmt.Errorf("create build metrics: %w", err)
	}

	a.metrics = metrics

	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var errs []error

	if a.textfile != nil {
		errs = append(errs, a.textfile.WriteFile(a.cfg.Observability.MetricsFile), a.textfile.Shutdown(ctx))
	}

	if a.providers.Shutdown != nil {
		err := a.providers.Shutdown(ctx)
		if err != nil {
			a.providers.Logger.Warn("observability shutdown failed", "error", err)
		}
	}

	return errors.Join(errs...)
}

func (a *app) logger() *slog.Logger {
	return a.providers.Logger
}

func (a *app) tracer() trace.Tracer {
	return a.providers.Tracer
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
