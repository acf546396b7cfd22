// Package cmd provides the CLI commands for docsearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/config"
	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/logging"
	"github.com/Aman-CERP/docsearch/internal/metrics"
	"github.com/Aman-CERP/docsearch/internal/profiling"
	"github.com/Aman-CERP/docsearch/pkg/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configDir   string
	dataDir     string
	envFile     string
	debug       bool
	metricsFile string
	profile     profiling.Options
}

// app is the state built once per invocation by the root pre-run hook.
type app struct {
	flags   globalFlags
	cfg     *config.Config
	logger  *slog.Logger
	profile *profiling.Session
	cleanup func()
}

// NewRootCmd creates the root command for the docsearch CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Hybrid document search with rank fusion",
		Long: `docsearch indexes documents into SQLite full-text, trigram and vector
indexes and answers queries by fusing the four result lists with weighted
Reciprocal Rank Fusion, then boosting by recency, affinity and popularity.`,
		Version:            version.Version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	cmd.SetVersionTemplate("docsearch version {{.Version}}\n")

	f := cmd.PersistentFlags()
	f.StringVar(&a.flags.configDir, "config-dir", ".", "Directory holding "+config.ProjectConfigFile)
	f.StringVar(&a.flags.dataDir, "data-dir", "", "Override index.data_dir")
	f.StringVar(&a.flags.envFile, "env-file", ".env", "Load environment variables from this file when present")
	f.BoolVar(&a.flags.debug, "debug", false, "Log at debug level to the log file and stderr")
	f.StringVar(&a.flags.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file on exit")
	f.StringVar(&a.flags.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	f.StringVar(&a.flags.profile.Heap, "profile-mem", "", "Write memory profile to file")
	f.StringVar(&a.flags.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(
		newImportCmd(a),
		newIndexCmd(a),
		newDeleteCmd(a),
		newReindexCmd(a),
		newSearchCmd(a),
		newViewCmd(a),
		newInteractionCmd(a),
		newWarmupCmd(a),
		newCheckCmd(a),
		newConfigCmd(a),
		newLogsCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command, cancelling its context on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(os.Stderr, docerrors.FormatForCLI(err))
	}
	return err
}

// setup loads .env and configuration, then starts logging, metrics and
// profiling. Commands that only print static information skip it.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if skipSetup(cmd) {
		return nil
	}

	// A missing .env file is normal.
	if a.flags.envFile != "" {
		_ = godotenv.Load(a.flags.envFile)
	}

	cfg, err := config.Load(a.flags.configDir)
	if err != nil {
		return err
	}
	if a.flags.dataDir != "" {
		cfg.Index.DataDir = a.flags.dataDir
	}
	a.cfg = cfg

	logCfg := logging.Config{
		Level:       cfg.Logging.Level,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxFiles:    cfg.Logging.MaxFiles,
		StderrLevel: "warn",
		Stderr:      cmd.ErrOrStderr(),
	}
	if cfg.Logging.File {
		logCfg.FilePath = logging.LogPath(cfg.Index.DataDir)
	}
	if a.flags.debug {
		logCfg.Level = "debug"
		logCfg.StderrLevel = "debug"
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	a.logger = logger
	a.cleanup = cleanup
	slog.SetDefault(logger)

	metrics.Register()

	if a.flags.profile.Enabled() {
		a.profile, err = profiling.Start(a.flags.profile)
		if err != nil {
			return err
		}
	}
	return nil
}

// teardown stops profiling, flushes metrics and closes the log file.
func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if skipSetup(cmd) {
		return nil
	}

	var err error
	if a.profile != nil {
		err = a.profile.Stop()
		a.profile = nil
	}
	if a.flags.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(a.flags.metricsFile, prometheus.DefaultGatherer); werr != nil && err == nil {
			err = fmt.Errorf("failed to write metrics: %w", werr)
		}
	}
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	return err
}

// skipSetup reports whether cmd runs without configuration.
func skipSetup(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return true
	case "init", "backups":
		// Must work even when the existing config does not load.
		return cmd.HasParent() && cmd.Parent().Name() == "config"
	}
	return false
}
