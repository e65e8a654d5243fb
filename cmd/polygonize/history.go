// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/polygonize/internal/ledger"
	"github.com/pdiddy/polygonize/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past runs recorded in the ledger",
	Long: `History lists recent batch runs from the SQLite ledger given by --ledger
(or the "ledger" config key). Use --run to list the jobs of one run.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().String("run", "", "show the jobs of this run ID")
	historyCmd.Flags().Bool("failed", false, "with --run, show only failed jobs")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString("ledger")
	if path == "" {
		return errors.New("no ledger configured: pass --ledger or set ledger in the config file")
	}
	cmd.SilenceUsage = true

	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	runID, _ := cmd.Flags().GetString("run")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()

	if runID != "" {
		var status types.JobStatus
		if failed, _ := cmd.Flags().GetBool("failed"); failed {
			status = types.JobFailed
		}
		run, err := l.GetRun(cmd.Context(), runID)
		if err != nil {
			return err
		}
		jobs, err := l.Jobs(cmd.Context(), runID, status)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(w, struct {
				Run  ledger.Run   `json:"run"`
				Jobs []ledger.Job `json:"jobs"`
			}{run, jobs})
		}
		formatRun(w, run)
		formatJobs(w, jobs)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := l.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, runs)
	}
	formatRuns(w, runs)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRuns(w io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-19s  %-9s  %6s  %6s  %6s  %6s  %s\n",
		"Run", "Started", "Outcome", "Found", "Conv", "Skip", "Fail", "Input")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %-9s  %6d  %6d  %6d  %6d  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Outcome,
			r.Discovered, r.Converted, r.Skipped, r.Failed, r.InputDir)
	}
}

func formatRun(w io.Writer, r ledger.Run) {
	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "Started:  %s\n", r.StartedAt.Local().Format(time.DateTime))
	if r.FinishedAt != nil {
		fmt.Fprintf(w, "Finished: %s (%s)\n", r.FinishedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(w, "Input:    %s\n", r.InputDir)
	fmt.Fprintf(w, "Output:   %s\n", r.OutputDir)
	fmt.Fprintf(w, "Outcome:  %s (%d found, %d converted, %d skipped, %d failed, %d canceled)\n",
		r.Outcome, r.Discovered, r.Converted, r.Skipped, r.Failed, r.Canceled)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", firstLine(r.Error))
	}
	fmt.Fprintln(w)
}

func formatJobs(w io.Writer, jobs []ledger.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs recorded.")
		return
	}
	for _, j := range jobs {
		fmt.Fprintf(w, "%-9s  %8s  %s\n", j.Status, j.Duration.Round(time.Millisecond), j.Input)
		if j.Status == types.JobFailed {
			if s := strings.TrimSpace(j.Stderr); s != "" {
				for _, line := range strings.Split(s, "\n") {
					fmt.Fprintf(w, "    %s\n", line)
				}
			}
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
