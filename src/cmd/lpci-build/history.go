package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/canonical/rocks-toolbox/src/config"
	"github.com/canonical/rocks-toolbox/src/store"
)

var errNoStore = errors.New("no run store configured, set --store-dsn or LPCI_BUILD_STORE_DSN")

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.StoreDSN == "" {
		return errNoStore
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	st, err := openStore(cmd.Context(), cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	runID := ""
	if len(args) > 0 {
		runID = args[0]
	}
	return printHistory(cmd.Context(), st, cmd.OutOrStdout(), runID, limit)
}

// printHistory lists the latest runs, or the builds of runID when set.
func printHistory(ctx context.Context, st store.Store, out io.Writer, runID string, limit int) error {
	if runID != "" {
		return printRun(ctx, st, out, runID)
	}

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	t := newTable("RUN ID", "ROCK", "SERIES", "STATUS", "STARTED", "REPOSITORY")
	for _, run := range runs {
		t.Row(run.RunID, run.RockName, run.Series, run.Status, formatTime(run.StartedAt), run.Repository)
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

func printRun(ctx context.Context, st store.Store, out io.Writer, runID string) error {
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	builds, err := st.ListBuilds(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load builds: %w", err)
	}

	fmt.Fprintf(out, "Run:        %s\n", run.RunID)
	fmt.Fprintf(out, "Rock:       %s (%s)\n", run.RockName, run.Series)
	fmt.Fprintf(out, "Status:     %s\n", run.Status)
	fmt.Fprintf(out, "Repository: %s\n", run.Repository)
	if run.CommitSHA1 != "" {
		fmt.Fprintf(out, "Commit:     %s\n", run.CommitSHA1)
	}
	fmt.Fprintf(out, "Started:    %s\n", formatTime(run.StartedAt))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(out, "Finished:   %s\n", formatTime(run.FinishedAt))
	}

	if len(builds) == 0 {
		fmt.Fprintln(out, "No builds recorded.")
		return nil
	}
	t := newTable("ARCH", "STATE", "LOG", "LINK")
	for _, b := range builds {
		t.Row(b.ArchTag, b.State, b.LogPath, b.WebLink)
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
