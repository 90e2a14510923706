// Package cli provides the operator command line for the renamer.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/drive-renamer/internal/app"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/joseph-ayodele/drive-renamer/internal/repository"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Global flags
	logLevel  string
	logFormat string

	cfg         *common.Config
	logger      *slog.Logger
	closeLogger func() error
)

var rootCmd = &cobra.Command{
	Use:   "renamer",
	Short: "Rename and index documents in shared drive folders",
	Long: `Renamer reads documents from configured drive folders, asks a language model for
their date and keywords, renames them from a per-job template and keeps an
index.html per folder.

Configuration comes from the environment (DB_URL, OPENAI_API_KEY, BLOB_* ...).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		cfg = common.LoadConfig()
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if logFormat != "" {
			cfg.Log.Format = logFormat
		}
		logger, closeLogger = common.SetupLogger(cfg.Log)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLogger != nil {
			_ = closeLogger()
		}
	},
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if common.IsConfigError(err) {
			return 2
		}
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override LOG_FORMAT (text, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runAllCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(runsCmd)
}

// buildApp wires the full worker after validating the configuration.
func buildApp(ctx context.Context) (*app.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

// openStore connects only the job store, for commands that never touch the drive.
func openStore(ctx context.Context) (*repository.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "DB_URL is required", common.ErrConfig)
	}
	return app.OpenStore(ctx, cfg, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
