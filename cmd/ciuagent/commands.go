package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ciuagent/ciuagent/internal/history"
	"github.com/ciuagent/ciuagent/internal/observability"
)

func buildRunCmd(settingsPath *string) *cobra.Command {
	var showTimeline bool
	cmd := &cobra.Command{
		Use:   "run <task description>",
		Short: "Run one task to completion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(*settingsPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := buildAgent(ctx, s, *settingsPath)
			if err != nil {
				return fmt.Errorf("build agent: %w", err)
			}
			defer a.Shutdown()

			if err := a.Startup(ctx); err != nil {
				return fmt.Errorf("agent startup: %w", err)
			}

			runStartedAt := time.Now()
			task := strings.Join(args, " ")
			result := a.director.Run(ctx, task)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("encode task result: %w", err)
			}

			if showTimeline && a.events != nil {
				events, err := a.events.GetByTimeRange(runStartedAt, time.Now())
				if err != nil {
					return fmt.Errorf("load run timeline: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), observability.FormatTimeline(observability.BuildTimeline(events)))
			}

			if !result.Success {
				return fmt.Errorf("task failed: %s", result.FinalError)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTimeline, "timeline", false, "Print the recorded event timeline after the run completes")
	return cmd
}

func buildSettingsCmd(settingsPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect the active configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the loaded settings as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(*settingsPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal settings: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	})
	return cmd
}

func buildHistoryCmd(settingsPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Review past task runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(*settingsPath)
			if err != nil {
				return err
			}
			if s.HistoryDBPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "history_db_path is not configured; nothing to show")
				return nil
			}

			ctx := cmd.Context()
			store, err := history.Open(ctx, s.HistoryDBPath)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			runs, err := store.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("query recent runs: %w", err)
			}
			for _, r := range runs {
				status := "ok"
				if !r.Success {
					status = "failed: " + r.FinalErrorKind
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %q — %s (plans=%d api_calls=%d steps=%d)\n",
					r.FinishedAt.Format("2006-01-02 15:04:05"), r.TaskDescription, status, r.PlansUsed, r.APICallsUsed, len(r.CompletedSteps))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}
