// Package cli defines Cobra command definitions for the programapi CLI.
// This file contains the root command, shared flags and exit handling.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/europython/programapi/internal/config"
)

var (
	verbose    bool
	projectDir string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "programapi",
	Short: "Publish a conference programme from pretalx exports",
	Long: `programapi turns the raw submissions, speakers and schedule exported
from pretalx into the sessions.json, speakers.json and schedule.json
documents served to the conference website.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and exits with a code describing the
// failure class. Called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}

// Verbose returns true if --verbose flag is set.
func Verbose() bool {
	return verbose
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print configuration and every warning in detail")
	rootCmd.PersistentFlags().StringVar(&projectDir, "config", ".", "Project directory containing .programapi/")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(cleanCmd)
}

// projectRoot returns the absolute project directory.
func projectRoot() (string, error) {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("resolving project directory: %w", err)
	}
	return root, nil
}

// loadConfig reads the project config, applies environment overrides and
// validates the result.
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.ReadConfig(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s not found; run 'programapi init' first", config.Path(root))
		}
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
