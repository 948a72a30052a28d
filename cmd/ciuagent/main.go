// Package main provides the CLI entry point for the CIU Agent: an
// autonomous GUI automation agent that perceives the screen through a
// tiered frame-diff / region-analysis / vision-LLM pipeline and drives
// the operating system's input devices to complete a described task.
//
// # Basic Usage
//
// Run a task:
//
//	ciuagent run "open the settings menu and enable dark mode"
//
// Inspect the active configuration:
//
//	ciuagent settings show
//
// Review past task runs:
//
//	ciuagent history
//
// # Environment Variables
//
// Settings may reference environment variables via ${VAR} expansion in
// the YAML settings file; provider credentials are read the same way:
//
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY
//   - AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ciuagent/ciuagent/settings"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := buildRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var settingsPath string

	rootCmd := &cobra.Command{
		Use:   "ciuagent",
		Short: "Autonomous GUI automation agent",
		Long:  "ciuagent perceives the desktop through a tiered perception pipeline and drives the Platform Adapter to complete a described task.",
	}
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", defaultSettingsPath(), "Path to YAML settings file")

	rootCmd.AddCommand(
		buildRunCmd(&settingsPath),
		buildSettingsCmd(&settingsPath),
		buildHistoryCmd(&settingsPath),
	)
	return rootCmd
}

func defaultSettingsPath() string {
	if v := os.Getenv("CIUAGENT_SETTINGS"); v != "" {
		return v
	}
	return "ciuagent.yaml"
}

func loadSettings(path string) (*settings.Settings, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return settings.Default(), nil
		}
		return nil, fmt.Errorf("stat settings file: %w", err)
	}
	return settings.Load(path)
}
