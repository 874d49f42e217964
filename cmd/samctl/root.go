package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/joshuapare/samkit/internal/config"
	"github.com/joshuapare/samkit/internal/logger"
	"github.com/joshuapare/samkit/internal/workspace"
	"github.com/joshuapare/samkit/pkg/evidence"
)

var (
	// Global flags
	configPath string
	workdir    string
	imagePath  string
	verbose    bool
	quiet      bool
	jsonOut    bool

	cfg *config.Config

	// nativeFs and probes are replaced by tests.
	nativeFs afero.Fs
	probes   []evidence.Probe
)

var rootCmd = &cobra.Command{
	Use:   "samctl",
	Short: "Inspect Windows accounts and mail inside a disk image",
	Long: `samctl reads an evidence container (EWF segments, a raw disk image or an
exported directory tree), finds the Windows partitions in it, extracts the SAM
hive and decodes the account records it holds.

Settings come from an optional YAML file; SAMCTL_* variables in a .env file
in the working directory are loaded first and may be referenced as ${VAR}.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", envOr("SAMCTL_CONFIG", "samctl.yaml"), "Config file")
	rootCmd.PersistentFlags().StringVarP(&workdir, "workdir", "w", "", "Work directory (overrides evidence.workdir)")
	rootCmd.PersistentFlags().StringVarP(&imagePath, "image", "i", "", "Evidence container (default <workdir>/upload.E01)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// setup loads the configuration and starts the logger.
func setup() error {
	c := config.NewDefaultConfig()
	if err := config.LoadOptional(configPath, c); err != nil {
		return err
	}
	if workdir != "" {
		c.Evidence.Workdir = workdir
	}
	cfg = c

	level := c.Log.Level
	if verbose {
		level = slog.LevelDebug
	}
	return logger.Init(logger.Options{
		Enabled: verbose || c.Log.File != "",
		Level:   level,
		JSON:    c.Log.Format == config.LogFormatJSON,
		File:    c.Log.File,
	})
}

// openWorkspace builds the workspace every data command runs against.
func openWorkspace() (*workspace.Workspace, error) {
	if cfg == nil {
		if err := setup(); err != nil {
			return nil, err
		}
	}
	ws, err := workspace.New(workspace.Options{
		Config: cfg,
		Image:  imagePath,
		Fs:     nativeFs,
		Logger: logger.L,
		Probes: probes,
	})
	if err != nil {
		return nil, err
	}
	printVerbose("Evidence: %s\n", ws.Image())
	return ws, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
